package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/split"
)

// makeJobs writes n split-done part files of size bytes each and returns
// their jobs.
func makeJobs(t *testing.T, dir string, n int, size int) []*PartJob {
	t.Helper()
	jobs := make([]*PartJob, 0, n)
	for i := 1; i <= n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("doc_part_%d.pdf", i))
		if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
			t.Fatal(err)
		}
		jobs = append(jobs, &PartJob{
			Range:   split.PartRange{Index: i, First: 1, Last: 1},
			OutPath: path,
			State:   PartSplitDone,
		})
	}
	return jobs
}

func compressAggregator(parts int) *Aggregator {
	agg := NewAggregator(1)
	agg.BeginItem(parts, parts, true)
	agg.SplitFinished()
	return agg
}

func TestSchedulerSequentialOrder(t *testing.T) {
	dir := t.TempDir()
	transformer := newMockTransformer()
	scheduler := NewCompressScheduler(transformer, 1, nil)

	jobs := makeJobs(t, dir, 4, 1000)
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 4, 4000, HealthReady)

	scheduler.Run(context.Background(), item, jobs, gs.PresetMedium, NewCanceller(), compressAggregator(4), func(Event) {})

	paths := transformer.compressedPaths()
	if len(paths) != 4 {
		t.Fatalf("expected 4 compress calls, got %d", len(paths))
	}
	for i, p := range paths {
		want := jobs[i].OutPath
		if p != want {
			t.Errorf("call %d: compressed %s, want %s (dispatch must follow part order)", i, p, want)
		}
	}
	for _, j := range jobs {
		if j.State != PartCompressed {
			t.Errorf("part %d: expected compressed, got %s", j.Range.Index, j.State)
		}
	}
}

func TestSchedulerConcurrencyBound(t *testing.T) {
	dir := t.TempDir()
	transformer := newMockTransformer()
	transformer.delay = 20 * time.Millisecond
	scheduler := NewCompressScheduler(transformer, 2, nil)

	jobs := makeJobs(t, dir, 6, 1000)
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 6, 6000, HealthReady)

	scheduler.Run(context.Background(), item, jobs, gs.PresetMedium, NewCanceller(), compressAggregator(6), func(Event) {})

	if transformer.maxInFlight > 2 {
		t.Errorf("worker cap violated: %d concurrent compressions", transformer.maxInFlight)
	}
	if transformer.maxInFlight < 2 {
		t.Errorf("expected the pool to fill to 2 workers, peaked at %d", transformer.maxInFlight)
	}
}

func TestSchedulerFailureKeepsUncompressedPart(t *testing.T) {
	dir := t.TempDir()
	transformer := newMockTransformer()
	scheduler := NewCompressScheduler(transformer, 2, nil)

	jobs := makeJobs(t, dir, 3, 1000)
	transformer.failPaths[jobs[1].OutPath] = true
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 3, 3000, HealthReady)
	agg := compressAggregator(3)

	var events []Event
	scheduler.Run(context.Background(), item, jobs, gs.PresetMedium, NewCanceller(), agg, func(e Event) {
		events = append(events, e)
	})

	if jobs[1].State != PartFailed {
		t.Errorf("expected part 2 failed, got %s", jobs[1].State)
	}
	if jobs[0].State != PartCompressed || jobs[2].State != PartCompressed {
		t.Errorf("other parts must compress: %s, %s", jobs[0].State, jobs[2].State)
	}

	// The uncompressed split output remains on disk as the deliverable.
	if _, err := os.Stat(jobs[1].OutPath); err != nil {
		t.Errorf("failed part's output missing: %v", err)
	}

	var failDone *CompressDone
	for _, e := range events {
		if d, ok := e.(CompressDone); ok && d.PartIndex == 2 {
			failDone = &d
		}
	}
	if failDone == nil || !failDone.Failed || failDone.Error == "" {
		t.Errorf("expected a failed CompressDone for part 2, got %+v", failDone)
	}

	// A failed part is terminal and no longer holds back the item fraction.
	if f := agg.ItemFraction(); !almostEqual(f, 1.0) {
		t.Errorf("expected item fraction 1.0, got %f", f)
	}
}

func TestSchedulerCancelStopsDispatch(t *testing.T) {
	dir := t.TempDir()
	transformer := newMockTransformer()
	cancel := NewCanceller()
	transformer.onCompress = func(string) { cancel.Cancel() }
	scheduler := NewCompressScheduler(transformer, 1, nil)

	jobs := makeJobs(t, dir, 4, 1000)
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 4, 4000, HealthReady)

	scheduler.Run(context.Background(), item, jobs, gs.PresetMedium, cancel, compressAggregator(4), func(Event) {})

	// The in-flight part finishes; no further parts are dispatched.
	if len(transformer.compressedPaths()) != 1 {
		t.Fatalf("expected 1 compress call before cancellation, got %d", len(transformer.compressedPaths()))
	}
	if jobs[0].State != PartCompressed {
		t.Errorf("in-flight part should complete, got %s", jobs[0].State)
	}
	for _, j := range jobs[1:] {
		if j.State != PartSplitDone {
			t.Errorf("part %d should stay split-done, got %s", j.Range.Index, j.State)
		}
	}
}

func TestSchedulerSizeProgress(t *testing.T) {
	dir := t.TempDir()
	transformer := newMockTransformer()
	transformer.sizes = []int64{250, 500, 900}
	scheduler := NewCompressScheduler(transformer, 1, nil)

	jobs := makeJobs(t, dir, 2, 1000)
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 2, 2000, HealthReady)
	agg := compressAggregator(2)

	var sizeEvents []CompressProgress
	scheduler.Run(context.Background(), item, jobs, gs.PresetMedium, NewCanceller(), agg, func(e Event) {
		if p, ok := e.(CompressProgress); ok {
			sizeEvents = append(sizeEvents, p)
		}
	})

	if len(sizeEvents) == 0 {
		t.Fatal("expected observed-size events")
	}
	for _, e := range sizeEvents {
		if e.ObservedSize <= 0 {
			t.Errorf("expected positive observed size, got %d", e.ObservedSize)
		}
	}
	if f := agg.ItemFraction(); !almostEqual(f, 1.0) {
		t.Errorf("expected terminal fraction 1.0, got %f", f)
	}
}

func TestSchedulerNoJobs(t *testing.T) {
	scheduler := NewCompressScheduler(newMockTransformer(), 2, nil)
	item := NewLocalItem("/src/doc.pdf", "doc.pdf", 0, 0, HealthReady)
	// Must return immediately without dispatching anything.
	scheduler.Run(context.Background(), item, nil, gs.PresetMedium, NewCanceller(), NewAggregator(1), func(Event) {})
}
