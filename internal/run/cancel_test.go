package run

import "testing"

func TestCanceller(t *testing.T) {
	c := NewCanceller()
	if c.Cancelled() {
		t.Fatal("new canceller must not be cancelled")
	}
	c.Cancel()
	if !c.Cancelled() {
		t.Fatal("expected cancelled after Cancel")
	}
	c.Cancel() // idempotent
	if !c.Cancelled() {
		t.Fatal("cancel must be sticky")
	}
}
