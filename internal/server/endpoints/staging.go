package endpoints

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// ClearStagingEndpoint handles DELETE /api/staging. Downloaded sources
// accumulate in the staging directory; this removes them between runs.
type ClearStagingEndpoint struct{}

func (e *ClearStagingEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/staging", e.handler
}

func (e *ClearStagingEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Clear staged downloads
//	@Description	Removes downloaded source files. Refused while a run is active.
//	@Tags			system
//	@Produce		json
//	@Success		204
//	@Failure		409	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/staging [delete]
func (e *ClearStagingEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if svcctx.RunnerFrom(r.Context()).Snapshot().State == run.StateRunning {
		writeError(w, http.StatusConflict, "cannot clear staging while a run is active")
		return
	}

	h := svcctx.HomeFrom(r.Context())
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}

	entries, err := os.ReadDir(h.StagingPath())
	if err != nil {
		if os.IsNotExist(err) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(h.StagingPath(), entry.Name())); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearStagingEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-staging",
		Short: "Remove downloaded source files",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/staging"); err != nil {
				return err
			}
			fmt.Println("Staging cleared")
			return nil
		},
	}
}
