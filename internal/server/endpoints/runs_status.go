package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// RunStatusEndpoint handles GET /api/runs/current.
type RunStatusEndpoint struct{}

func (e *RunStatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/runs/current", e.handler
}

func (e *RunStatusEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get run status
//	@Description	Returns a snapshot of the active or most recent run
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	run.Snapshot
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/runs/current [get]
func (e *RunStatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runner := svcctx.RunnerFrom(r.Context())
	writeJSON(w, http.StatusOK, runner.Snapshot())
}

func (e *RunStatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var snap run.Snapshot
			if err := client.Get(cmd.Context(), "/api/runs/current", &snap); err != nil {
				return err
			}
			return api.Output(snap)
		},
	}
}
