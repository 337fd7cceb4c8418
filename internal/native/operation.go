package native

import "sync"

// Operation represents one outstanding request to the server. It starts in
// the running state and moves exactly once to done or cancelled; terminal
// states are sticky.
type Operation struct {
	mu      sync.Mutex
	state   OperationState
	stateCB func()
}

func newOperation() *Operation {
	return &Operation{state: OperationRunning}
}

// State returns the current life-cycle state
func (o *Operation) State() OperationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OnStateChange registers a one-shot trigger invoked on the next state
// transition. A second registration overwrites the first. The trigger runs
// on the connection's reader goroutine, not the caller's.
func (o *Operation) OnStateChange(fn func()) {
	o.mu.Lock()
	if o.state != OperationRunning && fn != nil {
		// Already terminal: fire immediately so a late registration
		// cannot strand a waiter.
		o.mu.Unlock()
		fn()
		return
	}
	o.stateCB = fn
	o.mu.Unlock()
}

// Cancel marks the operation as cancelled. The server may still process
// the request; only the notification is abandoned. No-op once terminal.
func (o *Operation) Cancel() {
	o.transition(OperationCancelled)
}

// finish marks the operation done after its completion callback has run
func (o *Operation) finish() {
	o.transition(OperationDone)
}

func (o *Operation) transition(s OperationState) {
	o.mu.Lock()
	if o.state != OperationRunning {
		o.mu.Unlock()
		return
	}
	o.state = s
	cb := o.stateCB
	o.stateCB = nil
	o.mu.Unlock()
	if cb != nil {
		cb()
	}
}
