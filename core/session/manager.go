package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/scriptorium/clientkit/core/logger"
	"github.com/scriptorium/clientkit/core/sessionstore"
)

// Manager owns the current in-memory Session and keeps it in sync with the
// dual-substrate store. It is the single writer of the current session;
// everything else reads through Current. Safe for concurrent use.
type Manager struct {
	store  *sessionstore.Reconciler
	logger *slog.Logger

	mu      sync.RWMutex
	current *Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger configures structured logging. Defaults to a discard logger.
func WithManagerLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// NewManager creates a Manager over the given reconciler.
func NewManager(store *sessionstore.Reconciler, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reconciles the substrates and restores the persisted session, if any.
// Must be called once at startup before the current session is trusted.
// A corrupt blob is treated as no session and cleared from both substrates.
func (m *Manager) Load(ctx context.Context) error {
	m.store.Reconcile(ctx)

	blob, ok := m.store.Read(ctx)
	if !ok {
		return nil
	}

	sess, err := Decode(blob)
	if err != nil {
		m.logger.Warn("persisted session is corrupt, clearing", logger.Error(err))
		m.store.Clear(ctx)
		return nil
	}

	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()
	return nil
}

// Current returns the current session. ok is false when none exists.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.current == nil {
		return Session{}, false
	}
	return *m.current, true
}

// Set replaces the current session and persists it. A persistence failure is
// returned for reporting but the in-memory session is installed regardless —
// it stays authoritative for the process lifetime.
func (m *Manager) Set(ctx context.Context, sess Session) error {
	m.mu.Lock()
	m.current = &sess
	m.mu.Unlock()

	blob, err := sess.Encode()
	if err != nil {
		return err
	}
	return m.store.Persist(ctx, blob)
}

// Clear drops the current session from memory and both substrates.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.store.Clear(ctx)
}
