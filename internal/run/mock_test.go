package run

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackzampolin/pdfsplit/internal/gs"
)

// mockEngine fabricates documents and writes placeholder part files.
type mockEngine struct {
	mu         sync.Mutex
	docs       map[string]Document
	inspectErr error
	writeErr   error
	srcs       []string
	dsts       []string
	pageHook   func(page int) // invoked before each onPage delivery
}

func newMockEngine() *mockEngine {
	return &mockEngine{docs: map[string]Document{}}
}

func (m *mockEngine) addDoc(path string, pages int, size int64, health Health) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = Document{Pages: pages, SizeBytes: size, Health: health}
}

func (m *mockEngine) Inspect(ctx context.Context, path string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inspectErr != nil {
		return Document{}, m.inspectErr
	}
	if d, ok := m.docs[path]; ok {
		return d, nil
	}
	return Document{Pages: 10, SizeBytes: 1000, Health: HealthReady}, nil
}

func (m *mockEngine) WritePart(ctx context.Context, src, dst string, first, last int, onPage func(page int) error) error {
	m.mu.Lock()
	m.srcs = append(m.srcs, src)
	m.dsts = append(m.dsts, dst)
	hook := m.pageHook
	werr := m.writeErr
	m.mu.Unlock()

	if werr != nil {
		return werr
	}
	if err := os.WriteFile(dst, bytes.Repeat([]byte("p"), (last-first+1)*100), 0o644); err != nil {
		return err
	}
	for p := first; p <= last; p++ {
		if hook != nil {
			hook(p)
		}
		if err := onPage(p); err != nil {
			os.Remove(dst)
			return err
		}
	}
	return nil
}

// mockTransformer records calls and tracks its concurrency high-water mark.
type mockTransformer struct {
	mu         sync.Mutex
	available  bool
	compressed []string // paths in call order
	repairs    [][2]string
	filtered   [][2]string
	failPaths  map[string]bool
	repairErr  error
	sizes      []int64 // reported through onSize per call
	delay      time.Duration
	onCompress func(path string) // invoked at the start of each Compress

	inFlight    int32
	maxInFlight int32
}

func newMockTransformer() *mockTransformer {
	return &mockTransformer{available: true, failPaths: map[string]bool{}}
}

func (m *mockTransformer) Available() bool { return m.available }

func (m *mockTransformer) Compress(ctx context.Context, path string, preset gs.Preset, onSize func(observed int64)) error {
	cur := atomic.AddInt32(&m.inFlight, 1)
	for {
		high := atomic.LoadInt32(&m.maxInFlight)
		if cur <= high || atomic.CompareAndSwapInt32(&m.maxInFlight, high, cur) {
			break
		}
	}
	defer atomic.AddInt32(&m.inFlight, -1)

	m.mu.Lock()
	m.compressed = append(m.compressed, path)
	hook := m.onCompress
	fail := m.failPaths[path]
	sizes := m.sizes
	m.mu.Unlock()

	if hook != nil {
		hook(path)
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	for _, s := range sizes {
		if onSize != nil {
			onSize(s)
		}
	}
	if fail {
		return errors.New("ghostscript exited with status 1")
	}
	return nil
}

func (m *mockTransformer) Repair(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	m.repairs = append(m.repairs, [2]string{src, dst})
	rerr := m.repairErr
	m.mu.Unlock()
	if rerr != nil {
		return rerr
	}
	return os.WriteFile(dst, []byte("repaired"), 0o644)
}

func (m *mockTransformer) FilterImages(ctx context.Context, src, dst string) error {
	m.mu.Lock()
	m.filtered = append(m.filtered, [2]string{src, dst})
	m.mu.Unlock()
	return os.WriteFile(dst, []byte("noimg"), 0o644)
}

func (m *mockTransformer) compressedPaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.compressed...)
}

// mockFetcher stages a placeholder file instead of downloading.
type mockFetcher struct {
	mu      sync.Mutex
	fetched []string
	err     error
}

func (m *mockFetcher) Fetch(ctx context.Context, url, destDir string, onProgress func(received, total int64)) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	m.fetched = append(m.fetched, url)
	m.mu.Unlock()

	path := filepath.Join(destDir, "remote.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0o644); err != nil {
		return "", err
	}
	if onProgress != nil {
		onProgress(4, 4)
	}
	return path, nil
}

// eventCollector accumulates dispatched events for post-run assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []Event
}

func (c *eventCollector) OnEvent(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *eventCollector) all() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *eventCollector) summary() (Summary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if s, ok := c.events[i].(Summary); ok {
			return s, true
		}
	}
	return Summary{}, false
}

func (c *eventCollector) count(match func(Event) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if match(e) {
			n++
		}
	}
	return n
}
