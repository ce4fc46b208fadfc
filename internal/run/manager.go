package run

import (
	"context"
	"log/slog"
	"sync"
)

// Manager owns at most one active session at a time and hands out a shared
// event dispatcher. It is the surface the HTTP API and CLI talk to.
type Manager struct {
	engine      Engine
	transformer Transformer
	fetcher     Fetcher
	dispatcher  *Dispatcher
	logger      *slog.Logger

	mu      sync.Mutex
	current *SessionRunner
}

// NewManager wires a manager over the collaborators.
func NewManager(engine Engine, transformer Transformer, fetcher Fetcher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engine:      engine,
		transformer: transformer,
		fetcher:     fetcher,
		dispatcher:  NewDispatcher(logger),
		logger:      logger,
	}
}

// Subscribe registers an observer for events from all runs.
func (m *Manager) Subscribe(o Observer) (unsubscribe func()) {
	return m.dispatcher.Subscribe(o)
}

// TransformerAvailable reports whether the external compression binary can be
// invoked. Queried once by the presentation layer at startup; when false,
// compression and repair options must be disabled there.
func (m *Manager) TransformerAvailable() bool {
	return m.transformer != nil && m.transformer.Available()
}

// Start begins a run over items. Returns ErrAlreadyRunning when a run is
// active, or a validation error before any work is dispatched. The run
// itself proceeds asynchronously; progress arrives via subscribed observers.
func (m *Manager) Start(ctx context.Context, cfg RunConfig, items []*WorkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil && m.current.State() == StateRunning {
		return ErrAlreadyRunning
	}

	session, err := NewSession(cfg, m.engine, m.transformer, m.fetcher, m.dispatcher, m.logger)
	if err != nil {
		return err
	}

	// Validate synchronously so configuration errors surface to the caller
	// before the goroutine detaches.
	if err := session.validateItems(items); err != nil {
		return err
	}

	m.current = session
	go func() {
		if err := session.Run(ctx, items); err != nil {
			m.logger.Error("run failed to start", "error", err)
		}
	}()
	return nil
}

// Cancel requests a cooperative stop of the active run. Always succeeds;
// the effect is asynchronous and idempotent.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Cancel()
	}
}

// Wait blocks until the active run reaches a terminal state, or ctx expires.
// Returns immediately when no run is active. Call before Close during
// shutdown so a finishing session has nowhere left to emit into.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()

	if session == nil {
		return nil
	}
	select {
	case <-session.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Append adds items to the live run's queue. Returns ErrNotRunning when no
// run is active; callers should queue locally instead.
func (m *Manager) Append(items []*WorkItem) error {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()

	if session == nil {
		return ErrNotRunning
	}
	return session.Append(items)
}

// Snapshot returns the current (or most recent) session's status. A manager
// that has never run reports StateIdle.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	session := m.current
	m.mu.Unlock()

	if session == nil {
		return Snapshot{State: StateIdle}
	}
	return session.Snapshot()
}

// Close stops event delivery. Call once, after any active run has finished.
func (m *Manager) Close() {
	m.dispatcher.Close()
}
