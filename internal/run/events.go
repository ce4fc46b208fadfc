package run

import (
	"log/slog"
	"sync"
	"time"
)

// Event is one progress signal from a run. The set of variants is closed so
// consumers can switch exhaustively over phases.
type Event interface {
	isEvent()
}

// DownloadProgress reports bytes staged for a remote item. Total is -1 when
// the server did not announce a length.
type DownloadProgress struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Received int64  `json:"received"`
	Total    int64  `json:"total"`
}

// ItemStart announces that the coordinator has begun an item.
type ItemStart struct {
	ItemID     string `json:"item_id"`
	Name       string `json:"name"`
	TotalPages int    `json:"total_pages"`
	TotalParts int    `json:"total_parts"`
}

// SplitProgress is emitted per page written during the split phase.
type SplitProgress struct {
	ItemID      string `json:"item_id"`
	PartIndex   int    `json:"part_index"`
	TotalParts  int    `json:"total_parts"`
	CurrentPage int    `json:"current_page"`
	TotalPages  int    `json:"total_pages"`
}

// CompressStart is emitted when a worker begins compressing a part.
type CompressStart struct {
	ItemID    string `json:"item_id"`
	PartIndex int    `json:"part_index"`
}

// CompressProgress reports the observed size of a part's growing compression
// output. The transformer exposes no other signal.
type CompressProgress struct {
	ItemID       string `json:"item_id"`
	PartIndex    int    `json:"part_index"`
	ObservedSize int64  `json:"observed_size"`
}

// CompressDone is the terminal compression event for a part. When Failed is
// true the uncompressed split output remains the deliverable.
type CompressDone struct {
	ItemID    string `json:"item_id"`
	PartIndex int    `json:"part_index"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// Progress carries the aggregated fractions after any other event.
type Progress struct {
	ItemID       string  `json:"item_id"`
	ItemFraction float64 `json:"item_fraction"`
	Overall      float64 `json:"overall"`
}

// ItemDone reports an item's terminal outcome and its output files.
type ItemDone struct {
	ItemID  string   `json:"item_id"`
	Name    string   `json:"name"`
	Outcome Outcome  `json:"outcome"`
	Outputs []string `json:"outputs,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Summary is the terminal event of a run.
type Summary struct {
	Cancelled      bool    `json:"cancelled"`
	CompletedItems int     `json:"completed_items"`
	TotalItems     int     `json:"total_items"`
	TotalParts     int     `json:"total_parts"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

func (DownloadProgress) isEvent() {}
func (ItemStart) isEvent()        {}
func (SplitProgress) isEvent()    {}
func (CompressStart) isEvent()    {}
func (CompressProgress) isEvent() {}
func (CompressDone) isEvent()     {}
func (Progress) isEvent()         {}
func (ItemDone) isEvent()         {}
func (Summary) isEvent()          {}

// Observer receives run events. Implementations must be safe for concurrent
// use; events for a single part arrive in order start, progress*, terminal,
// but events across parts interleave.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// dispatcherBuffer bounds the per-dispatcher event backlog. A full buffer
// drops events rather than stalling the producing phase.
const dispatcherBuffer = 1024

// Dispatcher fans events out to observers from a dedicated goroutine so that
// a slow observer can never block a split or compression operation.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []subscription
	nextID    int

	ch      chan Event
	closing chan struct{}
	done    chan struct{}
	logger  *slog.Logger

	closeOnce sync.Once
}

type subscription struct {
	id  int
	obs Observer
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		ch:      make(chan Event, dispatcherBuffer),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go d.loop()
	return d
}

// Subscribe registers an observer for all subsequent events. The returned
// function removes the observer; it is safe to call more than once.
func (d *Dispatcher) Subscribe(o Observer) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.nextID
	d.nextID++
	d.observers = append(d.observers, subscription{id: id, obs: o})

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, s := range d.observers {
			if s.id == id {
				d.observers = append(d.observers[:i], d.observers[i+1:]...)
				return
			}
		}
	}
}

// Emit queues an event for delivery. Never blocks; drops when the buffer is
// full. Events emitted after Close are dropped the same way, so a run still
// winding down cannot crash a closed dispatcher.
func (d *Dispatcher) Emit(e Event) {
	select {
	case <-d.closing:
		return
	default:
	}
	select {
	case d.ch <- e:
	default:
		d.logger.Warn("event buffer full, dropping event", "type", EventName(e))
	}
}

// Close flushes queued events and stops the delivery goroutine. Safe to call
// more than once and while producers are still emitting.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.closing)
		<-d.done
	})
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case e := <-d.ch:
			d.deliver(e)
		case <-d.closing:
			// Drain what was queued before the close, then stop.
			for {
				select {
				case e := <-d.ch:
					d.deliver(e)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(e Event) {
	d.mu.RLock()
	observers := make([]subscription, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, s := range observers {
		s.obs.OnEvent(e)
	}
}

// EventName returns the wire name of an event variant, used for logging and
// as the SSE event type.
func EventName(e Event) string {
	switch e.(type) {
	case DownloadProgress:
		return "download-progress"
	case ItemStart:
		return "item-start"
	case SplitProgress:
		return "split"
	case CompressStart:
		return "compress-start"
	case CompressProgress:
		return "compress-progress"
	case CompressDone:
		return "compress-done"
	case Progress:
		return "progress"
	case ItemDone:
		return "item-done"
	case Summary:
		return "summary"
	default:
		return "unknown"
	}
}

// Throttle wraps an observer and suppresses high-frequency progress events
// closer together than interval. Terminal and boundary events always pass.
// Used at presentation edges (e.g. an SSE stream); the coordinator itself
// never throttles.
func Throttle(o Observer, interval time.Duration) Observer {
	var mu sync.Mutex
	var last time.Time

	return ObserverFunc(func(e Event) {
		switch e.(type) {
		case SplitProgress, CompressProgress, DownloadProgress, Progress:
			mu.Lock()
			now := time.Now()
			if now.Sub(last) < interval {
				mu.Unlock()
				return
			}
			last = now
			mu.Unlock()
		}
		o.OnEvent(e)
	})
}
