package bridge

import (
	"context"

	"github.com/audiofog/pulsebridge/internal/native"
)

// AwaitOperation blocks the calling goroutine until op reaches a terminal
// state. Done resolves to nil; a cancelled operation resolves to the fixed
// killed error, since a killed operation carries no further diagnostics.
//
// The operation is one-shot and must be owned by this call: once it has
// resolved, awaiting it again is a caller bug, mirroring the native
// handle's own single-use semantics. Cancellation and timeout policy live
// in ctx; the bridge never retries.
func AwaitOperation(ctx context.Context, op OpHandle) error {
	if op == nil {
		panic("bridge: AwaitOperation on nil handle")
	}
	for {
		switch op.State() {
		case native.OperationDone:
			return nil
		case native.OperationCancelled:
			return native.ErrKilled
		}

		wake, fire := notifier()
		op.OnStateChange(fire)

		if err := park(ctx, wake); err != nil {
			return err
		}
	}
}
