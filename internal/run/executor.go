package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackzampolin/pdfsplit/internal/split"
)

// errCancelled propagates a cooperative stop out of a phase. It is not a
// failure; callers translate it into run termination.
var errCancelled = errors.New("cancelled")

// SplitExecutor materializes an item's parts one at a time, in plan order.
// Splitting is strictly sequential so at most one page buffer is live.
type SplitExecutor struct {
	engine      Engine
	transformer Transformer
	logger      *slog.Logger
}

// NewSplitExecutor creates an executor over the given collaborators.
func NewSplitExecutor(engine Engine, transformer Transformer, logger *slog.Logger) *SplitExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SplitExecutor{engine: engine, transformer: transformer, logger: logger}
}

// Run writes every part of plan for item, emitting a SplitProgress event per
// page. It returns the part jobs created so far; on errCancelled the partial
// part in progress has been discarded and completed parts are kept.
//
// A repairable item gets exactly one repair attempt before splitting; repair
// failure fails the item. In repair-only mode partitioning is bypassed: a
// single pseudo-part spanning the whole document is produced under the
// _repaired naming and plan is ignored.
func (e *SplitExecutor) Run(
	ctx context.Context,
	item *WorkItem,
	cfg RunConfig,
	plan []split.PartRange,
	cancel *Canceller,
	agg *Aggregator,
	emit func(Event),
) ([]*PartJob, error) {
	src := item.Path
	base := strings.TrimSuffix(item.Name, filepath.Ext(item.Name))

	// One repair attempt for repairable sources, splitting from the
	// repaired copy. The copy is scratch; outputs keep the original name.
	if item.Health == HealthRepairable && !cfg.RepairOnly {
		scratchDir := cfg.ScratchDir
		if scratchDir == "" {
			scratchDir = cfg.OutputDir
		}
		repaired := filepath.Join(scratchDir, base+".tmp_repaired.pdf")
		if err := e.transformer.Repair(ctx, src, repaired); err != nil {
			return nil, fmt.Errorf("repair attempt failed: %w", err)
		}
		defer os.Remove(repaired)
		src = repaired
		e.logger.Debug("repaired source for splitting", "item", item.Name)
	}

	if cfg.RepairOnly {
		return e.repairOnly(ctx, item, cfg, base, cancel, agg, emit)
	}

	jobs := make([]*PartJob, 0, len(plan))
	totalParts := len(plan)

	for _, r := range plan {
		if cancel.Cancelled() {
			return jobs, errCancelled
		}

		job := &PartJob{
			Range:   r,
			OutPath: filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_part_%d.pdf", base, r.Index)),
			State:   PartSplitting,
		}

		err := e.engine.WritePart(ctx, src, job.OutPath, r.First, r.Last, func(page int) error {
			if cancel.Cancelled() {
				return errCancelled
			}
			agg.PageWritten(page)
			emit(SplitProgress{
				ItemID:      item.ID,
				PartIndex:   r.Index,
				TotalParts:  totalParts,
				CurrentPage: page,
				TotalPages:  item.Pages,
			})
			return nil
		})
		if err != nil {
			if errors.Is(err, errCancelled) {
				return jobs, errCancelled
			}
			return jobs, fmt.Errorf("failed to write part %d: %w", r.Index, err)
		}

		if cfg.RemoveImages {
			if err := e.stripImages(ctx, job.OutPath); err != nil {
				return jobs, fmt.Errorf("failed to remove images from part %d: %w", r.Index, err)
			}
		}

		job.State = PartSplitDone
		jobs = append(jobs, job)
	}

	agg.SplitFinished()
	return jobs, nil
}

// repairOnly produces the single {base}_repaired.pdf pseudo-part. The
// compression stage is skipped for it regardless of configuration.
func (e *SplitExecutor) repairOnly(
	ctx context.Context,
	item *WorkItem,
	cfg RunConfig,
	base string,
	cancel *Canceller,
	agg *Aggregator,
	emit func(Event),
) ([]*PartJob, error) {
	if cancel.Cancelled() {
		return nil, errCancelled
	}

	job := &PartJob{
		Range:   split.PartRange{Index: 1, First: 1, Last: item.Pages},
		OutPath: filepath.Join(cfg.OutputDir, base+"_repaired.pdf"),
		State:   PartSplitting,
	}

	if err := e.transformer.Repair(ctx, item.Path, job.OutPath); err != nil {
		return nil, fmt.Errorf("repair failed: %w", err)
	}

	job.State = PartSplitDone
	agg.SplitFinished()
	emit(SplitProgress{
		ItemID:      item.ID,
		PartIndex:   1,
		TotalParts:  1,
		CurrentPage: item.Pages,
		TotalPages:  item.Pages,
	})
	return []*PartJob{job}, nil
}

// stripImages rewrites a part in place with its images filtered out.
func (e *SplitExecutor) stripImages(ctx context.Context, path string) error {
	tmp := path + ".tmp_noimg.pdf"
	if err := e.transformer.FilterImages(ctx, path, tmp); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
