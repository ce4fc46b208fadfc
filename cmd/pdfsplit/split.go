package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/config"
	"github.com/jackzampolin/pdfsplit/internal/download"
	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/home"
	"github.com/jackzampolin/pdfsplit/internal/pdfeng"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/split"
)

var (
	splitMode         string
	splitValue        int64
	splitCompression  string
	splitWorkers      int
	splitRemoveImages bool
	splitRepairOnly   bool
	splitOutputDir    string
)

var splitCmd = &cobra.Command{
	Use:   "split <path|url>...",
	Short: "Split PDF files without a server",
	Long: `Split runs a batch locally, in the foreground, without a running server.

Local paths are analyzed and split in place; http(s) URLs are downloaded
to the staging directory first. Progress prints to stderr; output files
land next to the first input unless --output-dir is given.

Examples:
  pdfsplit split book.pdf                          # Split into 2 parts
  pdfsplit split --mode pages --value 50 book.pdf  # At most 50 pages per part
  pdfsplit split --compression medium *.pdf        # Compress every part
  pdfsplit split --repair-only damaged.pdf         # Repair without splitting`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))

		cfgMgr, err := config.NewManager(cfgFile)
		if err != nil {
			return err
		}
		appCfg := cfgMgr.Get()

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		gsRunner := gs.New(appCfg.Ghostscript.Binary)
		engine := pdfeng.New(gsRunner)
		downloader := download.New(appCfg.MaxDownloadBytes(), logger)

		runCfg, err := buildLocalRunConfig(appCfg, h, args)
		if err != nil {
			return err
		}
		if runCfg.CompressionEnabled() && !gsRunner.Available() {
			return fmt.Errorf("compression requested but ghostscript binary %q is not available", appCfg.Ghostscript.Binary)
		}

		items := make([]*run.WorkItem, 0, len(args))
		for _, arg := range args {
			if isURL(arg) {
				items = append(items, run.NewRemoteItem(arg, filepath.Base(arg)))
				continue
			}
			doc, err := engine.Inspect(ctx, arg)
			if err != nil {
				return fmt.Errorf("failed to inspect %s: %w", arg, err)
			}
			items = append(items, run.NewLocalItem(arg, filepath.Base(arg), doc.Pages, doc.SizeBytes, doc.Health))
		}

		mgr := run.NewManager(engine, gsRunner, downloader, logger)
		defer mgr.Close()

		done := make(chan run.Summary, 1)
		unsubscribe := mgr.Subscribe(run.Throttle(run.ObserverFunc(func(e run.Event) {
			printEvent(cmd.ErrOrStderr(), e)
			if s, ok := e.(run.Summary); ok {
				done <- s
			}
		}), consoleThrottle))
		defer unsubscribe()

		if err := mgr.Start(ctx, runCfg, items); err != nil {
			os.RemoveAll(runCfg.ScratchDir)
			return err
		}

		var summary run.Summary
		select {
		case summary = <-done:
		case <-ctx.Done():
			mgr.Cancel()
			summary = <-done
		}

		if summary.Cancelled {
			return errors.New("run cancelled")
		}
		if summary.CompletedItems < summary.TotalItems {
			return fmt.Errorf("%d of %d items failed",
				summary.TotalItems-summary.CompletedItems, summary.TotalItems)
		}
		return nil
	},
}

const consoleThrottle = 200 * time.Millisecond

// buildLocalRunConfig merges flags with configured defaults.
func buildLocalRunConfig(appCfg *config.Config, h *home.Dir, args []string) (run.RunConfig, error) {
	var runCfg run.RunConfig

	mode := splitMode
	if mode == "" {
		mode = appCfg.Defaults.SplitMode
	}
	strategy, err := split.ParseStrategy(mode)
	if err != nil && !splitRepairOnly {
		return runCfg, err
	}

	value := splitValue
	if value == 0 {
		value = appCfg.Defaults.SplitValue
	}

	compression := splitCompression
	if compression == "" {
		compression = appCfg.Defaults.Compression
	}
	var preset gs.Preset
	if compression != "" {
		preset, err = gs.ParsePreset(compression)
		if err != nil {
			return runCfg, err
		}
	}

	workers := splitWorkers
	if workers == 0 {
		workers = appCfg.Defaults.Workers
	}

	outputDir := splitOutputDir
	if outputDir == "" {
		outputDir = appCfg.Output.Dir
	}
	if outputDir == "" {
		for _, arg := range args {
			if !isURL(arg) {
				outputDir = filepath.Dir(arg)
				break
			}
		}
	}
	if outputDir == "" {
		return runCfg, errors.New("--output-dir is required when only urls are given")
	}

	runID := uuid.NewString()
	if err := h.EnsureRunDir(runID); err != nil {
		return runCfg, fmt.Errorf("failed to create run scratch directory: %w", err)
	}

	return run.RunConfig{
		Strategy:     strategy,
		Value:        value,
		Preset:       preset,
		Workers:      workers,
		RepairOnly:   splitRepairOnly,
		RemoveImages: splitRemoveImages,
		OutputDir:    outputDir,
		StagingDir:   h.StagingPath(),
		ScratchDir:   h.RunPath(runID),
	}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// printEvent renders one run event as a console progress line.
func printEvent(w io.Writer, e run.Event) {
	switch ev := e.(type) {
	case run.DownloadProgress:
		if ev.Total > 0 {
			fmt.Fprintf(w, "downloading %s: %d/%d bytes\n", ev.Name, ev.Received, ev.Total)
		} else {
			fmt.Fprintf(w, "downloading %s: %d bytes\n", ev.Name, ev.Received)
		}
	case run.ItemStart:
		fmt.Fprintf(w, "splitting %s: %d pages into %d parts\n", ev.Name, ev.TotalPages, ev.TotalParts)
	case run.CompressStart:
		fmt.Fprintf(w, "compressing part %d\n", ev.PartIndex)
	case run.Progress:
		fmt.Fprintf(w, "progress: %3.0f%%\n", ev.Overall*100)
	case run.ItemDone:
		if ev.Outcome == run.OutcomeFailed {
			fmt.Fprintf(w, "failed %s: %s\n", ev.Name, ev.Error)
			return
		}
		fmt.Fprintf(w, "done %s (%s)\n", ev.Name, ev.Outcome)
		for _, out := range ev.Outputs {
			fmt.Fprintf(w, "  %s\n", out)
		}
	case run.Summary:
		fmt.Fprintf(w, "finished: %d/%d items, %d parts in %.1fs\n",
			ev.CompletedItems, ev.TotalItems, ev.TotalParts, ev.ElapsedSeconds)
	}
}

func init() {
	splitCmd.Flags().StringVar(&splitMode, "mode", "", "split mode: parts, pages, or size")
	splitCmd.Flags().Int64Var(&splitValue, "value", 0, "part count, pages per part, or target bytes per part")
	splitCmd.Flags().StringVar(&splitCompression, "compression", "", "compression preset: low, medium, high, maximum")
	splitCmd.Flags().IntVar(&splitWorkers, "workers", 0, "concurrent compression workers")
	splitCmd.Flags().BoolVar(&splitRemoveImages, "remove-images", false, "strip images from output parts")
	splitCmd.Flags().BoolVar(&splitRepairOnly, "repair-only", false, "repair files without splitting")
	splitCmd.Flags().StringVar(&splitOutputDir, "output-dir", "", "directory for output files")

	rootCmd.AddCommand(splitCmd)
}
