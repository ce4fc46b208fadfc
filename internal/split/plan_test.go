package split

import (
	"errors"
	"testing"
)

// verifyCover checks that ranges cover 1..total exactly once with no gaps
// or overlaps and that indices are sequential from 1.
func verifyCover(t *testing.T, ranges []PartRange, total int) {
	t.Helper()

	next := 1
	for i, r := range ranges {
		if r.Index != i+1 {
			t.Errorf("range %d: expected index %d, got %d", i, i+1, r.Index)
		}
		if r.First != next {
			t.Errorf("range %d: expected first page %d, got %d", i, next, r.First)
		}
		if r.Last < r.First {
			t.Errorf("range %d: last (%d) before first (%d)", i, r.Last, r.First)
		}
		next = r.Last + 1
	}
	if next != total+1 {
		t.Errorf("ranges cover 1..%d, expected 1..%d", next-1, total)
	}
}

func TestPlan_FixedParts(t *testing.T) {
	ranges, err := Plan(1000, StrategyParts, 4, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}

	expected := []PartRange{
		{Index: 1, First: 1, Last: 250},
		{Index: 2, First: 251, Last: 500},
		{Index: 3, First: 501, Last: 750},
		{Index: 4, First: 751, Last: 1000},
	}
	if len(ranges) != len(expected) {
		t.Fatalf("expected %d parts, got %d", len(expected), len(ranges))
	}
	for i, want := range expected {
		if ranges[i] != want {
			t.Errorf("part %d: expected %+v, got %+v", i, want, ranges[i])
		}
	}
}

func TestPlan_FixedParts_Remainder(t *testing.T) {
	// 10 pages over 3 parts: first part gets the extra page.
	ranges, err := Plan(10, StrategyParts, 3, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	verifyCover(t, ranges, 10)

	sizes := []int{ranges[0].Pages(), ranges[1].Pages(), ranges[2].Pages()}
	if sizes[0] != 4 || sizes[1] != 3 || sizes[2] != 3 {
		t.Errorf("expected sizes [4 3 3], got %v", sizes)
	}
}

func TestPlan_FixedParts_TooManyParts(t *testing.T) {
	_, err := Plan(3, StrategyParts, 5, 0)
	if !errors.Is(err, ErrInvalidStrategyValue) {
		t.Fatalf("expected ErrInvalidStrategyValue, got %v", err)
	}
}

func TestPlan_FixedParts_SinglePart(t *testing.T) {
	// N == 1 is a degenerate but valid plan.
	ranges, err := Plan(7, StrategyParts, 1, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(ranges) != 1 || ranges[0].First != 1 || ranges[0].Last != 7 {
		t.Errorf("expected single range 1-7, got %+v", ranges)
	}
}

func TestPlan_MaxPages(t *testing.T) {
	ranges, err := Plan(1000, StrategyMaxPages, 333, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(ranges) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(ranges))
	}
	verifyCover(t, ranges, 1000)

	wantSizes := []int{333, 333, 333, 1}
	for i, want := range wantSizes {
		if got := ranges[i].Pages(); got != want {
			t.Errorf("part %d: expected %d pages, got %d", i+1, want, got)
		}
	}
}

func TestPlan_MaxPages_EvenlyDivisible(t *testing.T) {
	ranges, err := Plan(100, StrategyMaxPages, 25, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(ranges) != 4 {
		t.Fatalf("expected 4 parts, got %d", len(ranges))
	}
	for i, r := range ranges {
		if r.Pages() != 25 {
			t.Errorf("part %d: expected 25 pages, got %d", i+1, r.Pages())
		}
	}
}

func TestPlan_TargetSize(t *testing.T) {
	// 100 pages, 1000 bytes total -> 10 bytes/page. 30-byte target -> 3 pages/part.
	ranges, err := Plan(100, StrategyTargetSize, 30, 1000)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	verifyCover(t, ranges, 100)
	if len(ranges) != 34 {
		t.Fatalf("expected 34 parts, got %d", len(ranges))
	}
	if ranges[0].Pages() != 3 {
		t.Errorf("expected 3 pages in first part, got %d", ranges[0].Pages())
	}
	if last := ranges[len(ranges)-1]; last.Pages() != 1 {
		t.Errorf("expected 1 page in last part, got %d", last.Pages())
	}
}

func TestPlan_TargetSize_ClampsToOnePage(t *testing.T) {
	// Target smaller than a single page: pagesPerPart computes to 0 and is
	// clamped to 1, yielding one part per page.
	ranges, err := Plan(5, StrategyTargetSize, 1, 5000)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(ranges) != 5 {
		t.Fatalf("expected 5 single-page parts, got %d", len(ranges))
	}
	verifyCover(t, ranges, 5)
}

func TestPlan_TargetSize_ZeroBytesPerPage(t *testing.T) {
	// Zero total bytes must not divide by zero; bytes/page is treated as 1.
	ranges, err := Plan(10, StrategyTargetSize, 4, 0)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	verifyCover(t, ranges, 10)
	if ranges[0].Pages() != 4 {
		t.Errorf("expected 4 pages per part, got %d", ranges[0].Pages())
	}
}

func TestPlan_InvalidValues(t *testing.T) {
	cases := []struct {
		name     string
		pages    int
		strategy Strategy
		value    int64
	}{
		{"zero parts", 10, StrategyParts, 0},
		{"negative parts", 10, StrategyParts, -1},
		{"zero max pages", 10, StrategyMaxPages, 0},
		{"zero target size", 10, StrategyTargetSize, 0},
		{"no pages", 0, StrategyParts, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Plan(tc.pages, tc.strategy, tc.value, 100); !errors.Is(err, ErrInvalidStrategyValue) {
				t.Errorf("expected ErrInvalidStrategyValue, got %v", err)
			}
		})
	}
}

func TestPlan_UnknownStrategy(t *testing.T) {
	if _, err := Plan(10, Strategy("bogus"), 1, 0); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestPlan_CoverProperty(t *testing.T) {
	// Exhaustive small-domain check: every strategy/value combination that
	// plans successfully must cover 1..T exactly once.
	for total := 1; total <= 40; total++ {
		for value := int64(1); value <= 45; value++ {
			for _, strategy := range []Strategy{StrategyParts, StrategyMaxPages, StrategyTargetSize} {
				ranges, err := Plan(total, strategy, value, int64(total)*10)
				if err != nil {
					continue
				}
				verifyCover(t, ranges, total)
			}
		}
	}
}

func TestParseStrategy(t *testing.T) {
	for _, valid := range []string{"parts", "pages", "size"} {
		if _, err := ParseStrategy(valid); err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseStrategy("bytes"); err == nil {
		t.Error("expected error for unknown strategy name")
	}
}

func TestMaxParts(t *testing.T) {
	n, err := MaxParts(1000, StrategyMaxPages, 333, 0)
	if err != nil {
		t.Fatalf("MaxParts failed: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4, got %d", n)
	}
}
