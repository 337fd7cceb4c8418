// Package bridge adapts the native layer's callback-registration model to
// blocking calls. A native handle exposes a synchronous state query and a
// one-shot "call this on the next state change" trigger; the bridge parks
// the calling goroutine on a wake channel bound to the current attempt and
// re-checks state on every wake-up, so spurious triggers and transitions
// that race the registration are both harmless.
//
// Each attempt allocates a fresh wake channel of capacity one and the
// trigger performs a non-blocking send into it. The trigger closure owns
// nothing but that channel: if the caller gives up (context cancellation)
// a late trigger firing is a no-op rather than a dangling reference.
package bridge

import (
	"context"

	"github.com/audiofog/pulsebridge/internal/native"
)

// ConnHandle is the capability a connection context must expose to be
// awaited. *native.Context implements it.
type ConnHandle interface {
	// State synchronously queries the connection life-cycle state
	State() native.ContextState
	// OnStateChange registers a one-shot trigger for the next state
	// transition, overwriting any previous registration
	OnStateChange(func())
	// Connect initiates the connection, failing synchronously or not at all
	Connect(server string, flags native.ContextFlags, spawn *native.SpawnAPI) error
}

// OpHandle is the capability an in-flight operation must expose to be
// awaited. *native.Operation implements it.
type OpHandle interface {
	State() native.OperationState
	OnStateChange(func())
}

// notifier returns a fresh wake channel and the trigger that feeds it.
// The send is non-blocking: the channel is buffered and a second firing,
// or a firing after the waiter left, is dropped.
func notifier() (chan struct{}, func()) {
	wake := make(chan struct{}, 1)
	return wake, func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

// park blocks until the trigger fires or the caller's context ends
func park(ctx context.Context, wake <-chan struct{}) error {
	select {
	case <-wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
