package bridge

import (
	"context"

	"github.com/audiofog/pulsebridge/internal/native"
)

// connectAttempt carries the connect parameters until they are consumed by
// the first wait iteration. Consuming them guards the single-connect
// invariant: a wake-up after registration never dials again.
type connectAttempt struct {
	server string
	flags  native.ContextFlags
	spawn  *native.SpawnAPI
	issued bool
}

// AwaitReady issues a connection attempt on h and blocks the calling
// goroutine until the attempt has finished trying: the state is ready, or
// it is terminal. A non-ready terminal state returns nil as well; callers
// that care about the outcome's quality query the handle afterwards, the
// same ambiguity the underlying protocol has. A synchronous failure of the
// connect call itself is returned directly.
//
// The handle must be exclusively owned by this call until it returns; the
// connect parameters are used at most once no matter how many times the
// goroutine is woken.
func AwaitReady(ctx context.Context, h ConnHandle, server string, flags native.ContextFlags, spawn *native.SpawnAPI) error {
	if h == nil {
		panic("bridge: AwaitReady on nil handle")
	}
	a := connectAttempt{server: server, flags: flags, spawn: spawn}
	for {
		if s := h.State(); s.IsGood() || s.Terminal() {
			return nil
		}

		// Bind the trigger to this attempt's wake channel before doing
		// anything that can change state, so a transition racing the
		// registration still lands in this attempt.
		wake, fire := notifier()
		h.OnStateChange(fire)

		if !a.issued {
			a.issued = true
			srv, sp := a.server, a.spawn
			a.server, a.spawn = "", nil
			if err := h.Connect(srv, a.flags, sp); err != nil {
				return err
			}
		}

		if err := park(ctx, wake); err != nil {
			return err
		}
	}
}
