package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/audiofog/pulsebridge/internal/native"
)

// fakeOp is a scriptable operation handle
type fakeOp struct {
	mu    sync.Mutex
	state native.OperationState
	cb    func()

	registered chan struct{}
}

func newFakeOp(state native.OperationState) *fakeOp {
	return &fakeOp{state: state, registered: make(chan struct{}, 16)}
}

func (f *fakeOp) State() native.OperationState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeOp) OnStateChange(fn func()) {
	f.mu.Lock()
	f.cb = fn
	f.mu.Unlock()
	f.registered <- struct{}{}
}

func (f *fakeOp) setState(s native.OperationState) {
	f.mu.Lock()
	f.state = s
	cb := f.cb
	f.cb = nil
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func (f *fakeOp) fireSpurious() {
	f.mu.Lock()
	cb := f.cb
	f.cb = nil
	f.mu.Unlock()
	if cb != nil {
		cb()
	}
}

func awaitOp(ctx context.Context, op OpHandle) chan error {
	done := make(chan error, 1)
	go func() {
		done <- AwaitOperation(ctx, op)
	}()
	return done
}

func TestAwaitOperationAlreadyDone(t *testing.T) {
	f := newFakeOp(native.OperationDone)
	if err := AwaitOperation(context.Background(), f); err != nil {
		t.Fatalf("AwaitOperation: %v", err)
	}
	if len(f.registered) != 0 {
		t.Error("trigger registered for an already terminal operation")
	}
}

func TestAwaitOperationAlreadyCancelled(t *testing.T) {
	f := newFakeOp(native.OperationCancelled)
	err := AwaitOperation(context.Background(), f)
	if !errors.Is(err, native.ErrKilled) {
		t.Fatalf("AwaitOperation = %v, want ErrKilled", err)
	}
}

func TestAwaitOperationResolvesOnDone(t *testing.T) {
	f := newFakeOp(native.OperationRunning)
	done := awaitOp(context.Background(), f)

	<-f.registered
	assertParked(t, done)

	f.setState(native.OperationDone)
	if err := waitErr(t, done); err != nil {
		t.Fatalf("AwaitOperation: %v", err)
	}
}

func TestAwaitOperationCancelledMapsToKilled(t *testing.T) {
	f := newFakeOp(native.OperationRunning)
	done := awaitOp(context.Background(), f)

	<-f.registered
	f.setState(native.OperationCancelled)

	err := waitErr(t, done)
	if !errors.Is(err, native.ErrKilled) {
		t.Fatalf("AwaitOperation = %v, want ErrKilled", err)
	}
}

func TestAwaitOperationToleratesSpuriousWakes(t *testing.T) {
	f := newFakeOp(native.OperationRunning)
	done := awaitOp(context.Background(), f)

	<-f.registered
	for i := 0; i < 3; i++ {
		f.fireSpurious()
		<-f.registered
	}
	assertParked(t, done)

	f.setState(native.OperationDone)
	if err := waitErr(t, done); err != nil {
		t.Fatalf("AwaitOperation: %v", err)
	}
}

func TestAwaitOperationCallerCancellation(t *testing.T) {
	f := newFakeOp(native.OperationRunning)
	ctx, cancel := context.WithCancel(context.Background())
	done := awaitOp(ctx, f)

	<-f.registered
	cancel()
	if err := waitErr(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("AwaitOperation = %v, want context.Canceled", err)
	}

	// Late completion wakes nobody
	f.setState(native.OperationDone)
}
