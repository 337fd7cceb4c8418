package native

import "testing"

func TestOperationTerminalStatesAreSticky(t *testing.T) {
	op := newOperation()
	op.finish()
	for i := 0; i < 3; i++ {
		if got := op.State(); got != OperationDone {
			t.Fatalf("State() = %v, want done", got)
		}
	}
	op.Cancel() // no-op after done
	if got := op.State(); got != OperationDone {
		t.Fatalf("State() = %v after Cancel on done op, want done", got)
	}

	op = newOperation()
	op.Cancel()
	op.finish() // no-op after cancelled
	if got := op.State(); got != OperationCancelled {
		t.Fatalf("State() = %v, want cancelled", got)
	}
}

func TestOperationTriggerFiresOnceAndClears(t *testing.T) {
	op := newOperation()
	fired := 0
	op.OnStateChange(func() { fired++ })
	op.finish()
	op.Cancel()
	if fired != 1 {
		t.Fatalf("trigger fired %d times, want 1", fired)
	}
}

func TestOperationTriggerOverwrite(t *testing.T) {
	op := newOperation()
	var first, second int
	op.OnStateChange(func() { first++ })
	op.OnStateChange(func() { second++ })
	op.finish()
	if first != 0 {
		t.Errorf("superseded trigger fired %d times, want 0", first)
	}
	if second != 1 {
		t.Errorf("current trigger fired %d times, want 1", second)
	}
}

func TestOperationLateRegistrationFiresImmediately(t *testing.T) {
	op := newOperation()
	op.finish()
	fired := false
	op.OnStateChange(func() { fired = true })
	if !fired {
		t.Fatal("registration on a terminal operation did not fire")
	}
}
