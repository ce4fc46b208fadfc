package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// CancelResponse acknowledges a cancellation request.
type CancelResponse struct {
	Status string `json:"status"`
}

// CancelRunEndpoint handles POST /api/runs/current/cancel.
type CancelRunEndpoint struct{}

func (e *CancelRunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/runs/current/cancel", e.handler
}

func (e *CancelRunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel the active run
//	@Description	Requests a cooperative stop. Always succeeds, including when no run is active.
//	@Tags			runs
//	@Produce		json
//	@Success		200	{object}	CancelResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/runs/current/cancel [post]
func (e *CancelRunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	svcctx.RunnerFrom(r.Context()).Cancel()
	writeJSON(w, http.StatusOK, CancelResponse{Status: "cancelling"})
}

func (e *CancelRunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active run",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelResponse
			if err := client.Post(cmd.Context(), "/api/runs/current/cancel", nil, &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}
