package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/analyze"
	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// AnalyzeRequest is the body of POST /api/analyze.
type AnalyzeRequest struct {
	Paths []string `json:"paths"`
}

// AnalyzeResponse reports per-file analysis results.
type AnalyzeResponse struct {
	Files []analyze.Info `json:"files"`
}

// AnalyzeEndpoint handles POST /api/analyze.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Analyze PDF files
//	@Description	Reports page count, size, and health for each path. Damaged files get one repair probe.
//	@Tags			analyze
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AnalyzeRequest	true	"Paths to analyze"
//	@Success		200		{object}	AnalyzeResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Paths) == 0 {
		writeError(w, http.StatusBadRequest, "paths is required")
		return
	}

	runner := svcctx.GSFrom(r.Context())

	var resp AnalyzeResponse
	for _, path := range req.Paths {
		resp.Files = append(resp.Files, analyze.File(r.Context(), runner, path))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Analyze PDF files before splitting",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AnalyzeResponse
			if err := client.Post(cmd.Context(), "/api/analyze", AnalyzeRequest{Paths: args}, &resp); err != nil {
				return err
			}
			for _, f := range resp.Files {
				if f.Error != "" {
					fmt.Printf("%-30s %s (%s)\n", f.Name, f.Health, f.Error)
					continue
				}
				fmt.Printf("%-30s %s  %d pages  %s\n", f.Name, f.Health, f.Pages, f.SizeHuman)
			}
			return nil
		},
	}
}
