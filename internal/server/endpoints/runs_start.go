package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/gs"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/split"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// RunRequest is the body of POST /api/runs. Omitted options fall back to the
// server's configured defaults.
type RunRequest struct {
	Paths        []string `json:"paths,omitempty"`
	URLs         []string `json:"urls,omitempty"`
	Mode         string   `json:"mode,omitempty"`
	Value        int64    `json:"value,omitempty"`
	Compression  string   `json:"compression,omitempty"`
	Workers      int      `json:"workers,omitempty"`
	RemoveImages bool     `json:"remove_images,omitempty"`
	RepairOnly   bool     `json:"repair_only,omitempty"`
	OutputDir    string   `json:"output_dir,omitempty"`
}

// RunResponse acknowledges a started run.
type RunResponse struct {
	State      string   `json:"state"`
	TotalItems int      `json:"total_items"`
	ItemIDs    []string `json:"item_ids"`
}

var runRequestSchema = jsonschema.MustCompileString("run_request.json", `{
	"type": "object",
	"properties": {
		"paths":         {"type": "array", "items": {"type": "string", "minLength": 1}},
		"urls":          {"type": "array", "items": {"type": "string", "minLength": 1}},
		"mode":          {"enum": ["parts", "pages", "size"]},
		"value":         {"type": "integer", "minimum": 1},
		"compression":   {"enum": ["", "low", "medium", "high", "maximum"]},
		"workers":       {"type": "integer", "minimum": 0, "maximum": 64},
		"remove_images": {"type": "boolean"},
		"repair_only":   {"type": "boolean"},
		"output_dir":    {"type": "string"}
	},
	"additionalProperties": false
}`)

// StartRunEndpoint handles POST /api/runs.
type StartRunEndpoint struct{}

func (e *StartRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/runs", e.handler
}

func (e *StartRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start a split run
//	@Description	Queues the given files and URLs and begins processing. Only one run can be active.
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RunRequest	true	"Run options"
//	@Success		202		{object}	RunResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/runs [post]
func (e *StartRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := runRequestSchema.Validate(doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid run request: "+err.Error())
		return
	}

	var req RunRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 && len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one path or url is required")
		return
	}

	cfg, err := buildRunConfig(r, &req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := buildItems(r, &req)
	if err != nil {
		discardScratchDir(cfg)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runner := svcctx.RunnerFrom(r.Context())
	// The run outlives the HTTP request; drop the request's cancellation.
	if err := runner.Start(context.WithoutCancel(r.Context()), cfg, items); err != nil {
		discardScratchDir(cfg)
		switch {
		case errors.Is(err, run.ErrAlreadyRunning):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, split.ErrInvalidStrategyValue):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	resp := RunResponse{State: string(run.StateRunning), TotalItems: len(items)}
	for _, it := range items {
		resp.ItemIDs = append(resp.ItemIDs, it.ID)
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// discardScratchDir removes the scratch directory of a run that never
// started; a running session cleans up its own.
func discardScratchDir(cfg run.RunConfig) {
	if cfg.ScratchDir != "" {
		os.RemoveAll(cfg.ScratchDir)
	}
}

// buildRunConfig merges the request with configured defaults.
func buildRunConfig(r *http.Request, req *RunRequest) (run.RunConfig, error) {
	var cfg run.RunConfig

	defaults := svcctx.ConfigFrom(r.Context()).Get().Defaults

	mode := req.Mode
	if mode == "" {
		mode = defaults.SplitMode
	}
	strategy, err := split.ParseStrategy(mode)
	if err != nil && !req.RepairOnly {
		return cfg, err
	}

	value := req.Value
	if value == 0 {
		value = defaults.SplitValue
	}

	compression := req.Compression
	if compression == "" {
		compression = defaults.Compression
	}
	var preset gs.Preset
	if compression != "" {
		preset, err = gs.ParsePreset(compression)
		if err != nil {
			return cfg, err
		}
	}

	workers := req.Workers
	if workers == 0 {
		workers = defaults.Workers
	}

	outputDir := req.OutputDir
	if outputDir == "" {
		outputDir = svcctx.ConfigFrom(r.Context()).Get().Output.Dir
	}
	if outputDir == "" && len(req.Paths) > 0 {
		outputDir = filepath.Dir(req.Paths[0])
	}
	if outputDir == "" {
		return cfg, errors.New("output_dir is required when only urls are given")
	}

	cfg = run.RunConfig{
		Strategy:     strategy,
		Value:        value,
		Preset:       preset,
		Workers:      workers,
		RepairOnly:   req.RepairOnly || defaults.RepairOnly,
		RemoveImages: req.RemoveImages || defaults.RemoveImages,
		OutputDir:    outputDir,
	}
	if h := svcctx.HomeFrom(r.Context()); h != nil {
		cfg.StagingDir = h.StagingPath()

		runID := uuid.NewString()
		if err := h.EnsureRunDir(runID); err != nil {
			return cfg, fmt.Errorf("failed to create run scratch directory: %w", err)
		}
		cfg.ScratchDir = h.RunPath(runID)
	}
	return cfg, nil
}

// buildItems analyzes local paths and queues URLs for download.
func buildItems(r *http.Request, req *RunRequest) ([]*run.WorkItem, error) {
	engine := svcctx.EngineFrom(r.Context())

	items := make([]*run.WorkItem, 0, len(req.Paths)+len(req.URLs))
	for _, path := range req.Paths {
		doc, err := engine.Inspect(r.Context(), path)
		if err != nil {
			return nil, fmt.Errorf("failed to inspect %s: %w", path, err)
		}
		items = append(items, run.NewLocalItem(path, filepath.Base(path), doc.Pages, doc.SizeBytes, doc.Health))
	}
	for _, url := range req.URLs {
		items = append(items, run.NewRemoteItem(url, filepath.Base(url)))
	}
	return items, nil
}

func (e *StartRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req RunRequest
	cmd := &cobra.Command{
		Use:   "start <path|url>...",
		Short: "Start a split run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if isURL(arg) {
					req.URLs = append(req.URLs, arg)
				} else {
					abs, err := filepath.Abs(arg)
					if err != nil {
						return err
					}
					req.Paths = append(req.Paths, abs)
				}
			}

			client := api.NewClient(getServerURL())
			var resp RunResponse
			if err := client.Post(cmd.Context(), "/api/runs", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.Mode, "mode", "", "Split mode: parts, pages, or size")
	cmd.Flags().Int64Var(&req.Value, "value", 0, "Split value (count, pages per part, or MB per part)")
	cmd.Flags().StringVar(&req.Compression, "compression", "", "Compression preset: low, medium, high, maximum")
	cmd.Flags().IntVar(&req.Workers, "workers", 0, "Concurrent compression workers")
	cmd.Flags().BoolVar(&req.RemoveImages, "remove-images", false, "Strip images from output parts")
	cmd.Flags().BoolVar(&req.RepairOnly, "repair-only", false, "Repair files without splitting")
	cmd.Flags().StringVar(&req.OutputDir, "output-dir", "", "Directory for output files")
	return cmd
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
