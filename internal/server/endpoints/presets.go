package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/api"
	"github.com/jackzampolin/pdfsplit/internal/gs"
)

// Preset describes one compression preset.
type Preset struct {
	Name string `json:"name"`
	// ExpectedRatio is the typical output/input size ratio for the preset.
	ExpectedRatio float64 `json:"expected_ratio"`
}

// PresetsResponse lists the available compression presets.
type PresetsResponse struct {
	Presets []Preset `json:"presets"`
}

// PresetsEndpoint handles GET /api/presets.
type PresetsEndpoint struct{}

func (e *PresetsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/presets", e.handler
}

func (e *PresetsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List compression presets
//	@Description	Lists presets from lightest to strongest with their typical size ratios
//	@Tags			presets
//	@Produce		json
//	@Success		200	{object}	PresetsResponse
//	@Router			/api/presets [get]
func (e *PresetsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var resp PresetsResponse
	for _, p := range gs.Presets() {
		resp.Presets = append(resp.Presets, Preset{
			Name:          string(p),
			ExpectedRatio: gs.OutputRatio(p),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *PresetsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List compression presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp PresetsResponse
			if err := client.Get(cmd.Context(), "/api/presets", &resp); err != nil {
				return err
			}
			for _, p := range resp.Presets {
				fmt.Printf("%-8s ~%d%% of original size\n", p.Name, int(p.ExpectedRatio*100))
			}
			return nil
		},
	}
}
