package run

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregatorSplitOnly(t *testing.T) {
	agg := NewAggregator(1)
	agg.BeginItem(100, 4, false)

	agg.PageWritten(50)
	if f := agg.ItemFraction(); !almostEqual(f, 0.5) {
		t.Errorf("expected item fraction 0.5 at page 50/100, got %f", f)
	}

	agg.SplitFinished()
	if f := agg.ItemFraction(); !almostEqual(f, 1.0) {
		t.Errorf("expected item fraction 1.0 after split finished, got %f", f)
	}
}

func TestAggregatorPhaseWeighting(t *testing.T) {
	agg := NewAggregator(1)
	agg.BeginItem(100, 4, true)

	agg.PageWritten(100)
	if f := agg.ItemFraction(); !almostEqual(f, 0.5) {
		t.Errorf("expected 0.5 with all pages written but compression pending, got %f", f)
	}

	agg.SplitFinished()
	agg.PartFraction(1, 0.5)
	agg.PartFraction(2, 1.0)
	// 0.5 + 0.5 * (0.5 + 1.0) / 4
	if f := agg.ItemFraction(); !almostEqual(f, 0.6875) {
		t.Errorf("expected 0.6875, got %f", f)
	}

	agg.PartFraction(1, 1.0)
	agg.PartFraction(3, 1.0)
	agg.PartFraction(4, 1.0)
	if f := agg.ItemFraction(); !almostEqual(f, 1.0) {
		t.Errorf("expected 1.0 with all parts terminal, got %f", f)
	}
}

func TestAggregatorNeverRegresses(t *testing.T) {
	agg := NewAggregator(1)
	agg.BeginItem(10, 2, true)

	var prev float64
	step := func(label string) {
		f := agg.ItemFraction()
		if f < prev {
			t.Fatalf("item fraction regressed after %s: %f < %f", label, f, prev)
		}
		prev = f
	}

	agg.PageWritten(5)
	step("page 5")
	agg.PageWritten(3) // stale signal
	step("stale page 3")
	agg.SplitFinished()
	step("split finished")
	agg.PartFraction(1, 0.8)
	step("part 1 at 0.8")
	agg.PartFraction(1, 0.2) // stale size sample
	step("stale part 1 at 0.2")
	agg.PartFraction(1, 1.0)
	agg.PartFraction(2, 1.0)
	step("all terminal")

	if !almostEqual(prev, 1.0) {
		t.Errorf("expected final fraction 1.0, got %f", prev)
	}
}

func TestAggregatorOverall(t *testing.T) {
	agg := NewAggregator(2)

	agg.BeginItem(10, 1, false)
	agg.SplitFinished()
	agg.CompleteItem()
	if f := agg.Overall(); !almostEqual(f, 0.5) {
		t.Errorf("expected overall 0.5 after 1 of 2 items, got %f", f)
	}

	agg.BeginItem(10, 1, false)
	agg.PageWritten(5)
	if f := agg.Overall(); !almostEqual(f, 0.75) {
		t.Errorf("expected overall 0.75, got %f", f)
	}

	// Mid-run append grows the denominator; the overall fraction may drop
	// but the per-item fraction must not.
	item := agg.ItemFraction()
	agg.AddItems(2)
	if f := agg.Overall(); !almostEqual(f, 0.375) {
		t.Errorf("expected overall 0.375 after append, got %f", f)
	}
	if f := agg.ItemFraction(); !almostEqual(f, item) {
		t.Errorf("item fraction changed on append: %f != %f", f, item)
	}
}

func TestAggregatorOverallOneOnlyWhenAllComplete(t *testing.T) {
	agg := NewAggregator(2)

	agg.BeginItem(10, 1, false)
	agg.SplitFinished()
	agg.CompleteItem()

	agg.BeginItem(10, 1, false)
	agg.SplitFinished()
	agg.AbandonItem() // failed item

	if f := agg.Overall(); f >= 1.0 {
		t.Errorf("overall must stay below 1.0 with an abandoned item, got %f", f)
	}

	completed, total := agg.Counts()
	if completed != 1 || total != 2 {
		t.Errorf("expected counts 1/2, got %d/%d", completed, total)
	}
}

func TestAggregatorZeroItems(t *testing.T) {
	agg := NewAggregator(0)
	if f := agg.Overall(); f != 0 {
		t.Errorf("expected overall 0 with no items, got %f", f)
	}
	if f := agg.ItemFraction(); f != 0 {
		t.Errorf("expected item fraction 0 with no active item, got %f", f)
	}
}
