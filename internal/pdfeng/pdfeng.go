// Package pdfeng implements the document-manipulation collaborator on top of
// pdfcpu. It is the production run.Engine: it inspects sources and writes
// standalone page-range outputs.
package pdfeng

import (
	"context"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/pdfsplit/internal/analyze"
	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/run"
)

// Engine wraps pdfcpu, with Ghostscript as the repair probe for unreadable
// sources.
type Engine struct {
	gs *gs.Runner
}

// New creates an Engine. runner may be nil to disable repair probing during
// inspection.
func New(runner *gs.Runner) *Engine {
	return &Engine{gs: runner}
}

// Inspect returns page count, size, and health for the PDF at path.
func (e *Engine) Inspect(ctx context.Context, path string) (run.Document, error) {
	info := analyze.File(ctx, e.gs, path)
	return run.Document{
		Pages:     info.Pages,
		SizeBytes: info.SizeBytes,
		Health:    run.Health(info.Health),
	}, nil
}

// WritePart materializes pages [first, last] of src as a standalone PDF at
// dst, then reports each page of the range through onPage in order. An
// onPage error discards the partial output and aborts the part.
func (e *Engine) WritePart(ctx context.Context, src, dst string, first, last int, onPage func(page int) error) error {
	if first < 1 || last < first {
		return fmt.Errorf("invalid page range %d-%d", first, last)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	selection := []string{fmt.Sprintf("%d-%d", first, last)}
	if err := api.TrimFile(src, dst, selection, nil); err != nil {
		os.Remove(dst)
		return fmt.Errorf("failed to extract pages %d-%d: %w", first, last, err)
	}

	if onPage != nil {
		for page := first; page <= last; page++ {
			if err := onPage(page); err != nil {
				os.Remove(dst)
				return err
			}
		}
	}
	return nil
}

// Interface compliance.
var (
	_ run.Engine      = (*Engine)(nil)
	_ run.Transformer = (*gs.Runner)(nil)
)
