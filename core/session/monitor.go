package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scriptorium/clientkit/core/logger"
)

// DefaultLookahead is how far before expiry a token is refreshed. Refreshing
// ahead of the deadline keeps in-flight requests from racing the expiry.
const DefaultLookahead = 5 * time.Minute

// State is the outcome of one freshness check.
type State int

const (
	// StateValid means the token expires beyond the lookahead window, or a
	// refresh just installed a fresh token.
	StateValid State = iota + 1
	// StateNearExpiry means the token is inside the lookahead window. It is
	// a transient state: EnsureFresh moves straight on to refreshing.
	StateNearExpiry
	// StateRefreshing means a remote refresh is in flight.
	StateRefreshing
	// StateFailed means no valid token is available for this attempt.
	StateFailed
	// StateAnonymous means the session has no access token and the machine
	// does not apply.
	StateAnonymous
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateNearExpiry:
		return "near_expiry"
	case StateRefreshing:
		return "refreshing"
	case StateFailed:
		return "failed"
	case StateAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// Refresher exchanges a refresh credential for a new session.
// Implemented by the auth client.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Session, error)
}

// Monitor decides whether the current access token needs refreshing before
// use and performs that refresh at most once per decision point.
type Monitor struct {
	manager   *Manager
	refresher Refresher
	lookahead time.Duration
	logger    *slog.Logger
	now       func() time.Time

	group singleflight.Group
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithLookahead overrides the refresh lookahead window.
func WithLookahead(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.lookahead = d
		}
	}
}

// WithMonitorLogger configures structured logging. Defaults to a discard logger.
func WithMonitorLogger(log *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		if log != nil {
			m.logger = log
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMonitor creates a Monitor bound to the manager's current session.
func NewMonitor(manager *Manager, refresher Refresher, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		manager:   manager,
		refresher: refresher,
		lookahead: DefaultLookahead,
		logger:    logger.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureFresh checks the current session and refreshes its token when it is
// inside the lookahead window or already expired. Exactly one refresh attempt
// is made per call; the Monitor never retries a failed refresh. Concurrent
// callers hitting the window together share a single remote call.
//
// Returns StateValid when a usable token is installed, StateAnonymous when
// the session has no access token, and StateFailed (with an error wrapping
// ErrRefreshFailed or ErrStaleRefresh) when no valid token is available.
func (m *Monitor) EnsureFresh(ctx context.Context) (State, error) {
	sess, ok := m.manager.Current()
	if !ok {
		return StateFailed, ErrNoSession
	}

	if !sess.IsAuthenticated() {
		return StateAnonymous, nil
	}

	if !sess.ExpiresWithin(m.lookahead, m.now()) {
		return StateValid, nil
	}

	m.logger.Debug("access token near expiry, refreshing",
		logger.Component("session_monitor"),
		logger.Duration(time.Until(sess.ExpiresAt)))

	// Collapse concurrent near-expiry checks into one refresh call. Each
	// caller still observes the shared outcome.
	_, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx, sess, false)
	})
	if err != nil {
		return StateFailed, err
	}
	return StateValid, nil
}

// ForceRefresh refreshes the current token regardless of the expiry window.
// The request pipeline calls it after a 401: the server has rejected a token
// the window still considered fresh. Like EnsureFresh it makes at most one
// refresh attempt and shares the flight with concurrent callers.
func (m *Monitor) ForceRefresh(ctx context.Context) (State, error) {
	sess, ok := m.manager.Current()
	if !ok {
		return StateFailed, ErrNoSession
	}

	if !sess.IsAuthenticated() {
		return StateAnonymous, ErrAnonymousRefresh
	}

	_, err, _ := m.group.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx, sess, true)
	})
	if err != nil {
		return StateFailed, err
	}
	return StateValid, nil
}

func (m *Monitor) refresh(ctx context.Context, sess Session, force bool) error {
	// Another caller may have completed the refresh while this one waited.
	if current, ok := m.manager.Current(); ok && current.IsAuthenticated() {
		if current.AccessToken != sess.AccessToken {
			return nil
		}
		if !force && !current.ExpiresWithin(m.lookahead, m.now()) {
			return nil
		}
	}

	fresh, err := m.refresher.Refresh(ctx, sess.RefreshToken)
	if err != nil {
		m.logger.Warn("session refresh failed", logger.Error(err))
		return errors.Join(ErrRefreshFailed, err)
	}

	// A refresh that hands back an already-expired token means the refresh
	// credential itself is spent.
	if !fresh.ExpiresAt.After(m.now()) {
		return ErrStaleRefresh
	}

	if err := m.manager.Set(ctx, fresh); err != nil {
		// Persistence is best-effort; the refreshed in-memory session is
		// already installed and usable.
		m.logger.Warn("refreshed session not persisted", logger.Error(err))
	}
	return nil
}
