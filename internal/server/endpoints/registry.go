package endpoints

import (
	"github.com/jackzampolin/pdfsplit/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&SystemEndpoint{},

		// Analysis endpoints
		&AnalyzeEndpoint{},
		&PresetsEndpoint{},

		// Run endpoints
		&StartRunEndpoint{},
		&RunStatusEndpoint{},
		&CancelRunEndpoint{},
		&AppendRunEndpoint{},
		&EventsEndpoint{},

		// Maintenance endpoints
		&ClearStagingEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
