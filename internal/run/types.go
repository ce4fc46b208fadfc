// Package run implements the run coordinator: it partitions queued documents
// into parts, drives sequential splitting and bounded-concurrency compression,
// aggregates progress from both phases into monotonic fractions, and supports
// cooperative cancellation and mid-run queue appends.
package run

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/split"
)

// Sentinel errors for run lifecycle operations.
var (
	// ErrAlreadyRunning is returned by Start when a run is active.
	ErrAlreadyRunning = errors.New("a run is already active")

	// ErrNotRunning is returned by Append when no run is active.
	ErrNotRunning = errors.New("no run is active")
)

// MaxWorkers is the global ceiling on concurrent compression processes.
const MaxWorkers = 8

// Health mirrors the analyzer's verdict on a source document.
type Health string

const (
	HealthReady      Health = "ready"
	HealthRepairable Health = "repairable"
	HealthUnreadable Health = "unreadable"
)

// Outcome is the terminal state of one work item.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped" // never reached before the run ended
)

// WorkItem is one enqueued document. Identity, origin, page count, size, and
// health are fixed at enqueue time; only Outcome changes afterwards.
type WorkItem struct {
	ID        string  `json:"id"`
	Path      string  `json:"path,omitempty"` // local source (set after download for remote items)
	URL       string  `json:"url,omitempty"`  // remote source, downloaded before processing
	Name      string  `json:"name"`
	Pages     int     `json:"pages"`
	SizeBytes int64   `json:"size_bytes"`
	Health    Health  `json:"health"`
	Outcome   Outcome `json:"outcome"`
}

// NewLocalItem builds a WorkItem for an already-analyzed local file.
func NewLocalItem(path, name string, pages int, sizeBytes int64, health Health) *WorkItem {
	return &WorkItem{
		ID:        uuid.New().String(),
		Path:      path,
		Name:      name,
		Pages:     pages,
		SizeBytes: sizeBytes,
		Health:    health,
		Outcome:   OutcomePending,
	}
}

// NewRemoteItem builds a WorkItem for a URL. Page count and health are
// unknown until the item is downloaded and analyzed at dispatch time.
func NewRemoteItem(url, name string) *WorkItem {
	return &WorkItem{
		ID:      uuid.New().String(),
		URL:     url,
		Name:    name,
		Outcome: OutcomePending,
	}
}

// Remote reports whether the item must be downloaded before processing.
func (w *WorkItem) Remote() bool {
	return w.URL != "" && w.Path == ""
}

// PartState is the lifecycle state of one PartJob.
type PartState string

const (
	PartPending     PartState = "pending"
	PartSplitting   PartState = "splitting"
	PartSplitDone   PartState = "split-done"
	PartCompressing PartState = "compressing"
	PartCompressed  PartState = "compressed"
	PartFailed      PartState = "failed"
)

// PartJob tracks one part of one item from split through compression.
type PartJob struct {
	Range   split.PartRange
	OutPath string
	State   PartState
}

// RunConfig is fixed for the duration of one run.
type RunConfig struct {
	Strategy     split.Strategy `json:"strategy"`
	Value        int64          `json:"value"`
	Preset       gs.Preset      `json:"preset,omitempty"` // empty disables compression
	Workers      int            `json:"workers"`          // requested; clamped at start
	RepairOnly   bool           `json:"repair_only"`
	RemoveImages bool           `json:"remove_images"`
	OutputDir    string         `json:"output_dir"`
	StagingDir   string         `json:"staging_dir,omitempty"` // for remote downloads
	ScratchDir   string         `json:"scratch_dir,omitempty"` // per-run scratch; removed when the run ends
}

// CompressionEnabled reports whether the run performs the compression phase.
// Repair-only mode always skips it.
func (c RunConfig) CompressionEnabled() bool {
	return c.Preset != "" && !c.RepairOnly
}

// State is the coordinator's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Document is what the document collaborator reports about a source file.
type Document struct {
	Pages     int
	SizeBytes int64
	Health    Health
}

// Engine is the document-manipulation collaborator. It opens sources and
// materializes standalone outputs for page ranges; the coordinator treats it
// as a black box.
type Engine interface {
	// Inspect returns page count, size, and health for a source file.
	Inspect(ctx context.Context, path string) (Document, error)

	// WritePart writes pages [first, last] of src as a standalone file at
	// dst. onPage is invoked once per page in order; returning an error
	// aborts the part and discards its partial output.
	WritePart(ctx context.Context, src, dst string, first, last int, onPage func(page int) error) error
}

// Transformer is the external compression/repair collaborator.
type Transformer interface {
	// Available reports whether the external binary can be invoked.
	Available() bool

	// Compress shrinks path in place using preset, reporting the growing
	// output size through onSize while the process runs.
	Compress(ctx context.Context, path string, preset gs.Preset, onSize func(observed int64)) error

	// Repair writes a repaired copy of src to dst.
	Repair(ctx context.Context, src, dst string) error

	// FilterImages writes a copy of src to dst with images removed.
	FilterImages(ctx context.Context, src, dst string) error
}

// Fetcher stages remote sources locally before processing.
type Fetcher interface {
	// Fetch downloads url into destDir, reporting received/total bytes, and
	// returns the staged file path.
	Fetch(ctx context.Context, url, destDir string, onProgress func(received, total int64)) (string, error)
}
