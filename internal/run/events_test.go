package run

import (
	"testing"
	"time"
)

func TestDispatcherDeliversInOrder(t *testing.T) {
	d := NewDispatcher(nil)
	collector := &eventCollector{}
	d.Subscribe(collector)

	d.Emit(ItemStart{ItemID: "1", Name: "a.pdf"})
	d.Emit(SplitProgress{ItemID: "1", PartIndex: 1, CurrentPage: 1})
	d.Emit(SplitProgress{ItemID: "1", PartIndex: 1, CurrentPage: 2})
	d.Emit(ItemDone{ItemID: "1", Outcome: OutcomeCompleted})
	d.Close()

	events := collector.all()
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if _, ok := events[0].(ItemStart); !ok {
		t.Errorf("expected ItemStart first, got %T", events[0])
	}
	if _, ok := events[3].(ItemDone); !ok {
		t.Errorf("expected ItemDone last, got %T", events[3])
	}
	if p, ok := events[2].(SplitProgress); !ok || p.CurrentPage != 2 {
		t.Errorf("expected page 2 progress third, got %#v", events[2])
	}
}

func TestDispatcherUnsubscribe(t *testing.T) {
	d := NewDispatcher(nil)
	collector := &eventCollector{}
	unsubscribe := d.Subscribe(collector)

	d.Emit(ItemStart{ItemID: "1"})
	// Drain the first event before removing the observer.
	deadline := time.Now().Add(time.Second)
	for len(collector.all()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	unsubscribe()
	unsubscribe() // safe twice
	d.Emit(ItemStart{ItemID: "2"})
	d.Close()

	if got := len(collector.all()); got != 1 {
		t.Errorf("expected 1 event after unsubscribe, got %d", got)
	}
}

func TestDispatcherCloseIdempotent(t *testing.T) {
	d := NewDispatcher(nil)
	d.Close()
	d.Close()
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	d := NewDispatcher(nil)
	collector := &eventCollector{}
	d.Subscribe(collector)

	d.Emit(ItemStart{ItemID: "1", Name: "a.pdf"})
	d.Close()

	// A run winding down after Close keeps emitting; those events must be
	// dropped, not panic.
	d.Emit(CompressDone{ItemID: "1", PartIndex: 1})
	d.Emit(Summary{CompletedItems: 1, TotalItems: 1})

	events := collector.all()
	if len(events) != 1 {
		t.Fatalf("expected only the pre-close event, got %d", len(events))
	}
	if _, ok := events[0].(ItemStart); !ok {
		t.Errorf("expected ItemStart, got %T", events[0])
	}
}

func TestDispatcherMultipleObservers(t *testing.T) {
	d := NewDispatcher(nil)
	a := &eventCollector{}
	b := &eventCollector{}
	d.Subscribe(a)
	d.Subscribe(b)

	d.Emit(Summary{CompletedItems: 1, TotalItems: 1})
	d.Close()

	if len(a.all()) != 1 || len(b.all()) != 1 {
		t.Errorf("expected both observers to receive the event, got %d and %d", len(a.all()), len(b.all()))
	}
}

func TestThrottleSuppressesHighFrequencyEvents(t *testing.T) {
	collector := &eventCollector{}
	throttled := Throttle(collector, 50*time.Millisecond)

	for page := 1; page <= 20; page++ {
		throttled.OnEvent(SplitProgress{ItemID: "1", CurrentPage: page})
	}

	got := len(collector.all())
	if got == 0 || got >= 20 {
		t.Errorf("expected a small number of progress events to pass, got %d", got)
	}
}

func TestThrottlePassesBoundaryEvents(t *testing.T) {
	collector := &eventCollector{}
	throttled := Throttle(collector, time.Hour)

	throttled.OnEvent(SplitProgress{ItemID: "1", CurrentPage: 1})
	throttled.OnEvent(ItemStart{ItemID: "1"})
	throttled.OnEvent(CompressDone{ItemID: "1", PartIndex: 1})
	throttled.OnEvent(ItemDone{ItemID: "1"})
	throttled.OnEvent(Summary{})
	// Second progress event inside the interval is dropped.
	throttled.OnEvent(SplitProgress{ItemID: "1", CurrentPage: 2})

	events := collector.all()
	if len(events) != 5 {
		t.Fatalf("expected 5 delivered events, got %d", len(events))
	}
	for _, e := range events[1:] {
		if _, ok := e.(SplitProgress); ok {
			t.Errorf("throttled progress event leaked through: %#v", e)
		}
	}
}
