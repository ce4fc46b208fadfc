package endpoints

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfsplit/internal/run"
	"github.com/jackzampolin/pdfsplit/internal/svcctx"
)

// eventThrottle is the minimum spacing between streamed progress events.
// Terminal and boundary events always pass.
const eventThrottle = 80 * time.Millisecond

// EventsEndpoint handles GET /api/events, a server-sent-events stream of run
// progress.
type EventsEndpoint struct{}

func (e *EventsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/events", e.handler
}

func (e *EventsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Stream run events
//	@Description	Server-sent events: download, split, and compression progress, item outcomes, and the run summary
//	@Tags			runs
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"SSE stream"
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/events [get]
func (e *EventsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan run.Event, 256)
	observer := run.Throttle(run.ObserverFunc(func(ev run.Event) {
		// A stalled client must not stall delivery to other observers.
		select {
		case events <- ev:
		default:
		}
	}), eventThrottle)

	unsubscribe := svcctx.RunnerFrom(r.Context()).Subscribe(observer)
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", run.EventName(ev), data)
			flusher.Flush()
		}
	}
}

func (e *EventsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stream run events from the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, getServerURL()+"/api/events", nil)
			if err != nil {
				return err
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %s", resp.Status)
			}

			scanner := bufio.NewScanner(resp.Body)
			for scanner.Scan() {
				line := scanner.Text()
				if strings.HasPrefix(line, "data: ") {
					fmt.Println(strings.TrimPrefix(line, "data: "))
				}
			}
			return scanner.Err()
		},
	}
}
