// Package gs wraps the Ghostscript binary for PDF compression and repair.
//
// Ghostscript reports no progress of its own; the only observable signal while
// it runs is the growing size of its output file. Compress polls that size at
// a fixed interval and reports it through a callback so callers can estimate
// progress.
package gs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Preset selects the Ghostscript quality/size tradeoff.
type Preset string

const (
	PresetLow     Preset = "low"     // /screen, 72 DPI, smallest files
	PresetMedium  Preset = "medium"  // /ebook, 150 DPI, good balance
	PresetHigh    Preset = "high"    // /printer, 300 DPI, print-ready
	PresetMaximum Preset = "maximum" // /prepress, highest quality
)

// pdfSettings maps presets to Ghostscript -dPDFSETTINGS values.
var pdfSettings = map[Preset]string{
	PresetLow:     "/screen",
	PresetMedium:  "/ebook",
	PresetHigh:    "/printer",
	PresetMaximum: "/prepress",
}

// Presets returns all presets in quality order, smallest output first.
func Presets() []Preset {
	return []Preset{PresetLow, PresetMedium, PresetHigh, PresetMaximum}
}

// ParsePreset validates a preset name.
func ParsePreset(s string) (Preset, error) {
	p := Preset(s)
	if _, ok := pdfSettings[p]; !ok {
		return "", fmt.Errorf("unknown compression preset: %q", s)
	}
	return p, nil
}

// OutputRatio returns the typical compressed/uncompressed size ratio for a
// preset. Used only for size estimation in the UI; actual output varies.
func OutputRatio(p Preset) float64 {
	switch p {
	case PresetLow:
		return 0.25
	case PresetMedium:
		return 0.4
	case PresetHigh:
		return 0.6
	case PresetMaximum:
		return 0.9
	default:
		return 0.5
	}
}

// PollInterval is how often a running compression's output size is sampled.
const PollInterval = 500 * time.Millisecond

// Runner invokes Ghostscript. The zero value is not usable; call New.
type Runner struct {
	binary string
}

// New returns a Runner using the given binary name, or "gs" if empty.
func New(binary string) *Runner {
	if binary == "" {
		binary = "gs"
	}
	return &Runner{binary: binary}
}

// Available reports whether the Ghostscript binary is on PATH.
func (r *Runner) Available() bool {
	_, err := exec.LookPath(r.binary)
	return err == nil
}

// Compress rewrites path in place using the given preset.
//
// Ghostscript writes to a temp file next to the input; on success the temp
// file replaces the input. onSize, if non-nil, is called with the temp file's
// size at each poll interval while the process runs. Cancelling ctx kills the
// process and removes the temp file.
func (r *Runner) Compress(ctx context.Context, path string, preset Preset, onSize func(observed int64)) error {
	setting, ok := pdfSettings[preset]
	if !ok {
		return fmt.Errorf("unknown compression preset: %q", preset)
	}

	tmpOut := path + ".tmp_gs.pdf"
	err := r.run(ctx, tmpOut, onSize,
		"-o", tmpOut,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS="+setting,
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		path,
	)
	if err != nil {
		os.Remove(tmpOut)
		return err
	}
	if err := os.Rename(tmpOut, path); err != nil {
		os.Remove(tmpOut)
		return fmt.Errorf("failed to replace %s with compressed output: %w", path, err)
	}
	return nil
}

// Repair writes a repaired/rewritten copy of src to dst without touching src.
// Uses the highest-quality preset to preserve content.
func (r *Runner) Repair(ctx context.Context, src, dst string) error {
	err := r.run(ctx, "", nil,
		"-o", dst,
		"-sDEVICE=pdfwrite",
		"-dCompatibilityLevel=1.4",
		"-dPDFSETTINGS=/prepress",
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		src,
	)
	if err != nil {
		os.Remove(dst)
	}
	return err
}

// FilterImages writes a copy of src to dst with raster images dropped.
func (r *Runner) FilterImages(ctx context.Context, src, dst string) error {
	err := r.run(ctx, "", nil,
		"-o", dst,
		"-sDEVICE=pdfwrite",
		"-dFILTERIMAGE",
		"-dNOPAUSE",
		"-dBATCH",
		"-dSAFER",
		src,
	)
	if err != nil {
		os.Remove(dst)
	}
	return err
}

// run executes Ghostscript, polling watchPath's size while it runs.
func (r *Runner) run(ctx context.Context, watchPath string, onSize func(int64), args ...string) error {
	gsBin, err := exec.LookPath(r.binary)
	if err != nil {
		return fmt.Errorf("ghostscript (%s) not found in PATH: %w", r.binary, err)
	}

	cmd := exec.CommandContext(ctx, gsBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ghostscript: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("ghostscript failed: %w\nstderr: %s", err, stderr.String())
			}
			return nil

		case <-ticker.C:
			if watchPath == "" || onSize == nil {
				continue
			}
			if fi, err := os.Stat(watchPath); err == nil {
				onSize(fi.Size())
			}
		}
	}
}
