package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/split"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// AppendRequest is the body of POST /api/runs/current/items.
type AppendRequest struct {
	Paths []string `json:"paths,omitempty"`
	URLs  []string `json:"urls,omitempty"`
}

// AppendResponse acknowledges appended items.
type AppendResponse struct {
	Appended int      `json:"appended"`
	ItemIDs  []string `json:"item_ids"`
}

// AppendRunEndpoint handles POST /api/runs/current/items.
type AppendRunEndpoint struct{}

func (e *AppendRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/runs/current/items", e.handler
}

func (e *AppendRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Append items to the active run
//	@Description	Adds files or URLs after the current queue tail. Fails when no run is active.
//	@Tags			runs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AppendRequest	true	"Items to append"
//	@Success		200		{object}	AppendResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/runs/current/items [post]
func (e *AppendRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 && len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one path or url is required")
		return
	}

	engine := svcctx.EngineFrom(r.Context())
	items := make([]*run.WorkItem, 0, len(req.Paths)+len(req.URLs))
	for _, path := range req.Paths {
		doc, err := engine.Inspect(r.Context(), path)
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to inspect "+path+": "+err.Error())
			return
		}
		items = append(items, run.NewLocalItem(path, filepath.Base(path), doc.Pages, doc.SizeBytes, doc.Health))
	}
	for _, url := range req.URLs {
		items = append(items, run.NewRemoteItem(url, filepath.Base(url)))
	}

	if err := svcctx.RunnerFrom(r.Context()).Append(items); err != nil {
		switch {
		case errors.Is(err, run.ErrNotRunning):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, split.ErrInvalidStrategyValue):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	resp := AppendResponse{Appended: len(items)}
	for _, it := range items {
		resp.ItemIDs = append(resp.ItemIDs, it.ID)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *AppendRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "append <path|url>...",
		Short: "Append items to the active run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req AppendRequest
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
			var resp AppendResponse
			if err := client.Post(cmd.Context(), "/api/runs/current/items", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
