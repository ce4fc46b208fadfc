// Package analyze inspects a PDF without loading every page: page count,
// file size, and health state. A file that pdfcpu cannot open gets exactly one
// Ghostscript repair probe before being declared unreadable.
package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/pdfsplit/internal/gs"
)

// Health describes whether a PDF can be processed as-is.
type Health string

const (
	// HealthReady means the file opened cleanly.
	HealthReady Health = "ready"

	// HealthRepairable means the file failed to open but a Ghostscript
	// rewrite produced a readable copy.
	HealthRepairable Health = "repairable"

	// HealthUnreadable means the file could not be opened even after repair.
	HealthUnreadable Health = "unreadable"
)

// Info is the result of analyzing one PDF.
type Info struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Pages     int    `json:"pages"`
	SizeBytes int64  `json:"size_bytes"`
	SizeHuman string `json:"size_human"`
	Health    Health `json:"health"`
	Error     string `json:"error,omitempty"`
}

// File returns page count, size, and health for the PDF at path.
//
// If the file fails to open and Ghostscript is available, a repaired copy is
// written to a temp file, probed, and removed; success reports
// HealthRepairable with the repaired copy's page count.
func File(ctx context.Context, runner *gs.Runner, path string) Info {
	info := Info{
		Path: path,
		Name: filepath.Base(path),
	}

	fi, err := os.Stat(path)
	if err != nil {
		info.Health = HealthUnreadable
		info.Error = err.Error()
		return info
	}
	info.SizeBytes = fi.Size()
	info.SizeHuman = HumanSize(fi.Size())

	pages, firstErr := pageCount(path)
	if firstErr == nil {
		info.Pages = pages
		info.Health = HealthReady
		return info
	}

	if runner != nil && runner.Available() {
		repaired := path + ".tmp_analyze_repair.pdf"
		defer os.Remove(repaired)

		if err := runner.Repair(ctx, path, repaired); err == nil {
			if pages, err := pageCount(repaired); err == nil {
				info.Pages = pages
				info.Health = HealthRepairable
				return info
			}
		}
	}

	info.Health = HealthUnreadable
	info.Error = firstErr.Error()
	return info
}

// pageCount opens the PDF and returns its page count.
func pageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return count, nil
}

// HumanSize renders a byte count as a short human-readable string.
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

