package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jackzampolin/pdfsplit/internal/split"
)

// SessionRunner coordinates one run over an append-only queue of work items:
// health check, optional repair, partition, sequential split, bounded-pool
// compression, aggregated progress, cooperative cancellation.
//
// State machine: Idle -> Running -> Completed | Cancelled. A finished session
// cannot be restarted; the Manager creates a fresh one per run.
type SessionRunner struct {
	cfg         RunConfig
	engine      Engine
	transformer Transformer
	fetcher     Fetcher
	dispatcher  *Dispatcher
	logger      *slog.Logger

	cancel *Canceller
	agg    *Aggregator

	done     chan struct{}
	doneOnce sync.Once

	mu         sync.Mutex
	state      State
	queue      []*WorkItem // append-only while running; no reordering or removal
	cursor     int
	workers    int // effective compression worker cap
	totalParts int
	started    time.Time
}

// NewSession validates cfg and builds a runner over the given collaborators.
// fetcher may be nil when no remote items will be queued.
func NewSession(cfg RunConfig, engine Engine, transformer Transformer, fetcher Fetcher, dispatcher *Dispatcher, logger *slog.Logger) (*SessionRunner, error) {
	if cfg.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if _, err := split.ParseStrategy(string(cfg.Strategy)); err != nil && !cfg.RepairOnly {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRunner{
		cfg:         cfg,
		engine:      engine,
		transformer: transformer,
		fetcher:     fetcher,
		dispatcher:  dispatcher,
		logger:      logger.With("component", "runner"),
		cancel:      NewCanceller(),
		agg:         NewAggregator(0),
		done:        make(chan struct{}),
		state:       StateIdle,
	}, nil
}

// Run executes the session to completion or cancellation. It blocks; callers
// wanting asynchrony run it in a goroutine (see Manager).
//
// Strategy feasibility is validated against every initial item before any
// work begins; an infeasible value aborts the whole run since the strategy is
// run-wide.
func (r *SessionRunner) Run(ctx context.Context, items []*WorkItem) error {
	defer r.doneOnce.Do(func() { close(r.done) })

	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(items) == 0 {
		r.mu.Unlock()
		return errors.New("no items to process")
	}

	if err := r.validateItems(items); err != nil {
		r.mu.Unlock()
		return err
	}

	r.queue = append(r.queue, items...)
	r.workers = r.effectiveWorkers(items)
	r.agg.AddItems(len(items))
	r.state = StateRunning
	r.started = time.Now()
	r.mu.Unlock()

	r.logger.Info("run started",
		"items", len(items),
		"strategy", r.cfg.Strategy,
		"value", r.cfg.Value,
		"preset", r.cfg.Preset,
		"workers", r.workers,
		"repair_only", r.cfg.RepairOnly,
	)

	r.loop(ctx)

	if r.cfg.ScratchDir != "" {
		if err := os.RemoveAll(r.cfg.ScratchDir); err != nil {
			r.logger.Warn("failed to remove run scratch directory", "dir", r.cfg.ScratchDir, "error", err)
		}
	}
	return nil
}

// validateItems surfaces InvalidStrategyValue before dispatch. Remote items
// have unknown page counts and are checked when their pages become known.
func (r *SessionRunner) validateItems(items []*WorkItem) error {
	if r.cfg.RepairOnly {
		return nil
	}
	for _, item := range items {
		if item.Remote() || item.Pages == 0 {
			continue
		}
		if _, err := split.Plan(item.Pages, r.cfg.Strategy, r.cfg.Value, item.SizeBytes); err != nil {
			return fmt.Errorf("item %s: %w", item.Name, err)
		}
	}
	return nil
}

// effectiveWorkers clamps the requested worker count to
// min(MaxWorkers, max achievable part count across the initial items).
// Remote items with unknown page counts impose no clamp.
func (r *SessionRunner) effectiveWorkers(items []*WorkItem) int {
	limit := MaxWorkers

	maxParts := 0
	unknown := false
	for _, item := range items {
		if item.Remote() || item.Pages == 0 {
			unknown = true
			continue
		}
		n, err := split.MaxParts(item.Pages, r.cfg.Strategy, r.cfg.Value, item.SizeBytes)
		if err == nil && n > maxParts {
			maxParts = n
		}
	}
	if !unknown && maxParts > 0 && maxParts < limit {
		limit = maxParts
	}

	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > limit {
		workers = limit
	}
	return workers
}

// Append adds items to the live queue, after the current tail. Items are
// picked up when the cursor reaches them. Fails when no run is active, or
// when an appended local item is infeasible under the run's strategy (the
// run itself is never poisoned mid-flight).
func (r *SessionRunner) Append(items []*WorkItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return ErrNotRunning
	}
	if err := r.validateItems(items); err != nil {
		return err
	}
	r.queue = append(r.queue, items...)
	r.agg.AddItems(len(items))
	r.logger.Info("items appended to live run", "count", len(items), "total", len(r.queue))
	return nil
}

// Cancel requests a cooperative stop. Idempotent; safe before, during, and
// after the run.
func (r *SessionRunner) Cancel() {
	r.cancel.Cancel()
}

// Done returns a channel closed when Run has returned. In-flight compression
// workers finish naturally after a cancel, so a terminal state is only
// reached once they have drained.
func (r *SessionRunner) Done() <-chan struct{} {
	return r.done
}

// loop drains the queue, then emits the terminal summary.
func (r *SessionRunner) loop(ctx context.Context) {
	executor := NewSplitExecutor(r.engine, r.transformer, r.logger)
	scheduler := NewCompressScheduler(r.transformer, r.workers, r.logger)

	cancelled := false
	for {
		// Checkpoint: no further items are dispatched once cancellation
		// is observed.
		if r.cancel.Cancelled() || ctx.Err() != nil {
			cancelled = true
			break
		}

		r.mu.Lock()
		if r.cursor >= len(r.queue) {
			// Close the append window before releasing the lock so a
			// concurrent Append cannot land on a finished run.
			r.state = StateCompleted
			r.mu.Unlock()
			break
		}
		item := r.queue[r.cursor]
		r.mu.Unlock()

		r.processItem(ctx, item, executor, scheduler)

		r.mu.Lock()
		r.cursor++
		r.mu.Unlock()
	}

	if r.cancel.Cancelled() {
		cancelled = true
	}

	r.mu.Lock()
	for _, item := range r.queue[r.cursor:] {
		if item.Outcome == OutcomePending {
			item.Outcome = OutcomeSkipped
		}
	}
	completed, total := r.agg.Counts()
	summary := Summary{
		Cancelled:      cancelled,
		CompletedItems: completed,
		TotalItems:     total,
		TotalParts:     r.totalParts,
		ElapsedSeconds: time.Since(r.started).Seconds(),
	}
	if cancelled {
		r.state = StateCancelled
	} else {
		r.state = StateCompleted
	}
	r.mu.Unlock()

	r.emit(summary)
	r.logger.Info("run finished",
		"cancelled", summary.Cancelled,
		"completed", summary.CompletedItems,
		"total", summary.TotalItems,
		"parts", summary.TotalParts,
	)
}

// processItem runs one item end to end. Item-level failures never abort the
// run; the item is marked failed and the loop moves on.
func (r *SessionRunner) processItem(ctx context.Context, item *WorkItem, executor *SplitExecutor, scheduler *CompressScheduler) {
	if err := r.prepareItem(ctx, item); err != nil {
		if errors.Is(err, errCancelled) {
			return
		}
		r.failItem(item, err)
		return
	}

	var plan []split.PartRange
	if !r.cfg.RepairOnly {
		var err error
		plan, err = split.Plan(item.Pages, r.cfg.Strategy, r.cfg.Value, item.SizeBytes)
		if err != nil {
			// Only reachable for items whose page count became known
			// mid-run; strategy errors for the initial queue abort in Run.
			r.failItem(item, err)
			return
		}
	}

	totalParts := len(plan)
	if r.cfg.RepairOnly {
		totalParts = 1
	}
	r.agg.BeginItem(item.Pages, totalParts, r.cfg.CompressionEnabled())
	r.emit(ItemStart{ItemID: item.ID, Name: item.Name, TotalPages: item.Pages, TotalParts: totalParts})

	jobs, err := executor.Run(ctx, item, r.cfg, plan, r.cancel, r.agg, r.emit)
	if err != nil {
		if errors.Is(err, errCancelled) {
			r.agg.AbandonItem()
			return
		}
		r.failItem(item, err)
		return
	}

	if r.cfg.CompressionEnabled() && r.transformer.Available() {
		scheduler.Run(ctx, item, jobs, r.cfg.Preset, r.cancel, r.agg, r.emit)
		if r.cancel.Cancelled() && !allTerminal(jobs) {
			r.agg.AbandonItem()
			return
		}
	}

	outputs := make([]string, 0, len(jobs))
	for _, j := range jobs {
		outputs = append(outputs, j.OutPath)
	}

	r.mu.Lock()
	r.totalParts += len(jobs)
	r.mu.Unlock()

	item.Outcome = OutcomeCompleted
	r.agg.CompleteItem()
	r.emit(ItemDone{ItemID: item.ID, Name: item.Name, Outcome: OutcomeCompleted, Outputs: outputs})
	r.emit(Progress{ItemID: item.ID, ItemFraction: 1, Overall: r.agg.Overall()})
}

// prepareItem stages remote sources and resolves health for items that were
// enqueued without an analysis pass.
func (r *SessionRunner) prepareItem(ctx context.Context, item *WorkItem) error {
	if item.Remote() {
		if r.fetcher == nil {
			return errors.New("remote item queued but no downloader configured")
		}
		if r.cancel.Cancelled() {
			return errCancelled
		}
		path, err := r.fetcher.Fetch(ctx, item.URL, r.cfg.StagingDir, func(received, total int64) {
			r.emit(DownloadProgress{ItemID: item.ID, Name: item.Name, Received: received, Total: total})
		})
		if err != nil {
			return fmt.Errorf("download failed: %w", err)
		}
		item.Path = path
	}

	if item.Health == "" || item.Pages == 0 {
		doc, err := r.engine.Inspect(ctx, item.Path)
		if err != nil {
			return fmt.Errorf("failed to inspect source: %w", err)
		}
		item.Pages = doc.Pages
		item.SizeBytes = doc.SizeBytes
		item.Health = doc.Health
	}

	if item.Health == HealthUnreadable {
		return errors.New("source is unreadable")
	}
	return nil
}

func (r *SessionRunner) failItem(item *WorkItem, err error) {
	item.Outcome = OutcomeFailed
	r.agg.AbandonItem()
	r.logger.Warn("item failed, continuing run", "item", item.Name, "error", err)
	r.emit(ItemDone{ItemID: item.ID, Name: item.Name, Outcome: OutcomeFailed, Error: err.Error()})
}

func (r *SessionRunner) emit(e Event) {
	if r.dispatcher != nil {
		r.dispatcher.Emit(e)
	}
}

// allTerminal reports whether every part reached compressed or failed.
func allTerminal(jobs []*PartJob) bool {
	for _, j := range jobs {
		if j.State != PartCompressed && j.State != PartFailed {
			return false
		}
	}
	return true
}

// Snapshot is a point-in-time view of the session for status reporting.
type Snapshot struct {
	State          State      `json:"state"`
	CompletedItems int        `json:"completed_items"`
	TotalItems     int        `json:"total_items"`
	TotalParts     int        `json:"total_parts"`
	Workers        int        `json:"workers"`
	ItemFraction   float64    `json:"item_fraction"`
	Overall        float64    `json:"overall"`
	ElapsedSeconds float64    `json:"elapsed_seconds"`
	Items          []WorkItem `json:"items"`
}

// Snapshot returns the session's current status.
func (r *SessionRunner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	completed, total := r.agg.Counts()
	items := make([]WorkItem, len(r.queue))
	for i, it := range r.queue {
		items[i] = *it
	}

	var elapsed float64
	if !r.started.IsZero() {
		elapsed = time.Since(r.started).Seconds()
	}

	return Snapshot{
		State:          r.state,
		CompletedItems: completed,
		TotalItems:     total,
		TotalParts:     r.totalParts,
		Workers:        r.workers,
		ItemFraction:   r.agg.ItemFraction(),
		Overall:        r.agg.Overall(),
		ElapsedSeconds: elapsed,
		Items:          items,
	}
}

// State returns the session's lifecycle state.
func (r *SessionRunner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}
