package run

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackzampolin/pdfsplit/internal/gs"
)

// CompressScheduler runs the external transformer over one item's parts with
// at most W processes in flight. Dispatch is FIFO in part-index order and
// work-conserving: the next pending part starts the moment a slot frees.
//
// Workers never touch shared state; they report through partMsg messages and
// the scheduler loop is the single writer of part states and the aggregator's
// per-part fractions.
type CompressScheduler struct {
	transformer Transformer
	workers     int
	logger      *slog.Logger
}

// NewCompressScheduler creates a scheduler with the given worker cap.
func NewCompressScheduler(transformer Transformer, workers int, logger *slog.Logger) *CompressScheduler {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CompressScheduler{transformer: transformer, workers: workers, logger: logger}
}

type msgKind int

const (
	msgStart msgKind = iota
	msgSize
	msgDone
)

// partMsg is a one-way report from a compression worker to the scheduler.
type partMsg struct {
	part int // 1-based part index
	kind msgKind
	size int64
	err  error
}

// Run compresses jobs (all split-done) in place with preset. It blocks until
// every dispatched worker has finished. Observing cancellation stops further
// dispatch; in-flight processes are allowed to complete.
//
// A part whose transformer exits nonzero is marked failed and keeps its
// uncompressed split output as the deliverable; the run continues.
func (s *CompressScheduler) Run(
	ctx context.Context,
	item *WorkItem,
	jobs []*PartJob,
	preset gs.Preset,
	cancel *Canceller,
	agg *Aggregator,
	emit func(Event),
) {
	if len(jobs) == 0 {
		return
	}

	// The uncompressed part size is a conservative overestimate of the
	// final output; observed/estimate approaches but rarely reaches 1
	// before completion forces it there.
	estimates := make(map[int]int64, len(jobs))
	byIndex := make(map[int]*PartJob, len(jobs))
	for _, j := range jobs {
		byIndex[j.Range.Index] = j
		estimates[j.Range.Index] = 1
		if fi, err := os.Stat(j.OutPath); err == nil && fi.Size() > 0 {
			estimates[j.Range.Index] = fi.Size()
		}
	}

	msgs := make(chan partMsg, len(jobs)*4+s.workers)
	next := 0
	inFlight := 0

	dispatch := func(j *PartJob) {
		idx := j.Range.Index
		path := j.OutPath
		go func() {
			msgs <- partMsg{part: idx, kind: msgStart}
			err := s.transformer.Compress(ctx, path, preset, func(observed int64) {
				// Best effort: dropping a size sample is fine, stalling
				// the transformer poll loop is not.
				select {
				case msgs <- partMsg{part: idx, kind: msgSize, size: observed}:
				default:
				}
			})
			msgs <- partMsg{part: idx, kind: msgDone, err: err}
		}()
	}

	for {
		// Checkpoint: no new dispatch once cancellation is observed.
		for !cancel.Cancelled() && inFlight < s.workers && next < len(jobs) {
			dispatch(jobs[next])
			next++
			inFlight++
		}
		if inFlight == 0 {
			return
		}

		msg := <-msgs
		job := byIndex[msg.part]

		switch msg.kind {
		case msgStart:
			job.State = PartCompressing
			emit(CompressStart{ItemID: item.ID, PartIndex: msg.part})

		case msgSize:
			frac := float64(msg.size) / float64(estimates[msg.part])
			if frac > 1 {
				frac = 1
			}
			agg.PartFraction(msg.part, frac)
			emit(CompressProgress{ItemID: item.ID, PartIndex: msg.part, ObservedSize: msg.size})
			emit(Progress{ItemID: item.ID, ItemFraction: agg.ItemFraction(), Overall: agg.Overall()})

		case msgDone:
			inFlight--
			done := CompressDone{ItemID: item.ID, PartIndex: msg.part}
			if msg.err != nil {
				job.State = PartFailed
				done.Failed = true
				done.Error = msg.err.Error()
				s.logger.Warn("compression failed, keeping uncompressed part",
					"item", item.Name, "part", msg.part, "error", msg.err)
			} else {
				job.State = PartCompressed
			}
			// Terminal either way: the part no longer holds back the item.
			agg.PartFraction(msg.part, 1)
			emit(done)
			emit(Progress{ItemID: item.ID, ItemFraction: agg.ItemFraction(), Overall: agg.Overall()})
		}
	}
}
