package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
	"github.com/jackzampolin/pdfsplit/version"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status      string `json:"status"`
	Ghostscript string `json:"ghostscript,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Check server health
//	@Description	Returns OK when the HTTP server is responding
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status: %s\n", resp.Status)
			return nil
		},
	}
}

// ReadyEndpoint handles GET /ready.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Check server readiness
//	@Description	Returns OK when services are initialized; reports Ghostscript availability
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Failure		503	{object}	HealthResponse
//	@Router			/ready [get]
func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}

	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if runner.TransformerAvailable() {
		resp.Ghostscript = "available"
	} else {
		resp.Ghostscript = "unavailable"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (includes Ghostscript)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:      %s\n", resp.Status)
			if resp.Ghostscript != "" {
				fmt.Printf("Ghostscript: %s\n", resp.Ghostscript)
			}
			return nil
		},
	}
}

// SystemResponse is the detailed system status.
type SystemResponse struct {
	Server      string `json:"server"`
	Version     string `json:"version"`
	Commit      string `json:"commit,omitempty"`
	Go          string `json:"go"`
	Ghostscript bool   `json:"ghostscript_available"`
}

// SystemEndpoint handles GET /api/system.
type SystemEndpoint struct{}

func (e *SystemEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/system", e.handler
}

func (e *SystemEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get system information
//	@Description	Reports server version and whether the Ghostscript binary can be invoked
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	SystemResponse
//	@Router			/api/system [get]
func (e *SystemEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := SystemResponse{
		Server:  "running",
		Version: version.GitRelease,
		Commit:  version.GitCommit,
		Go:      version.GoInfo,
	}
	if runner := svcctx.RunnerFrom(r.Context()); runner != nil {
		resp.Ghostscript = runner.TransformerAvailable()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *SystemEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Get server system information",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SystemResponse
			if err := client.Get(cmd.Context(), "/api/system", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
