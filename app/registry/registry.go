package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/apiclient"
	"github.com/scriptorium/clientkit/core/auth"
	"github.com/scriptorium/clientkit/core/config"
	"github.com/scriptorium/clientkit/core/event"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/logger"
	"github.com/scriptorium/clientkit/core/prefs"
	"github.com/scriptorium/clientkit/core/session"
	"github.com/scriptorium/clientkit/core/sessionstore"
)

// Registry owns one fully wired instance of the auth and preference stack:
// event bus, session reconciler, manager, token monitor, auth client,
// request pipeline, and preference tiers. Construct one per identity scope
// and share it; every dependency between components is wired here and
// nowhere else.
type Registry struct {
	Bus      *event.Bus
	Store    *sessionstore.Reconciler
	Sessions *session.Manager
	Monitor  *session.Monitor
	Auth     *auth.Client
	API      *apiclient.Client
	Prefs    *prefs.Service

	logger *slog.Logger

	mu     sync.Mutex
	sub    *event.Subscription
	done   chan struct{}
	closed bool
}

// Option configures a Registry.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	httpClient *http.Client
	prefsStore kvstore.Substrate
}

// WithLogger configures structured logging for every component.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithHTTPClient overrides the HTTP client used by the auth client and the
// request pipeline. Test hook.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithPrefsStore puts preference tiers on their own substrate instead of
// sharing the plaintext session substrate.
func WithPrefsStore(store kvstore.Substrate) Option {
	return func(s *settings) {
		if store != nil {
			s.prefsStore = store
		}
	}
}

// New wires the full stack over the two session substrates. plaintext holds
// the app-scoped store (and, by default, preferences and the install id);
// encrypted holds the platform-encrypted store. cfg.PrimaryStore selects
// which one is authoritative for session reads.
func New(cfg Config, plaintext, encrypted kvstore.Substrate, opts ...Option) (*Registry, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is required", clientkit.ErrValidation)
	}
	if cfg.AnonKey == "" {
		return nil, fmt.Errorf("%w: anon key is required", clientkit.ErrValidation)
	}
	if plaintext == nil || encrypted == nil {
		return nil, fmt.Errorf("%w: both substrates are required", clientkit.ErrValidation)
	}

	var primary sessionstore.Primary
	switch strings.ToLower(cfg.PrimaryStore) {
	case "", "plaintext":
		primary = sessionstore.PrimaryPlaintext
	case "encrypted":
		primary = sessionstore.PrimaryEncrypted
	default:
		return nil, fmt.Errorf("%w: unknown primary store %q", clientkit.ErrValidation, cfg.PrimaryStore)
	}

	s := &settings{
		logger:     logger.Discard(),
		prefsStore: plaintext,
	}
	for _, opt := range opts {
		opt(s)
	}

	bus := event.NewBus(event.WithLogger(s.logger))

	store, err := sessionstore.New(plaintext, encrypted, primary,
		sessionstore.WithLogger(s.logger),
		sessionstore.WithBackgroundSecondarySync())
	if err != nil {
		return nil, err
	}

	manager := session.NewManager(store, session.WithManagerLogger(s.logger))

	authOpts := []auth.Option{
		auth.WithBus(bus),
		auth.WithLogger(s.logger),
		auth.WithTimeout(cfg.RequestTimeout),
	}
	if s.httpClient != nil {
		authOpts = append(authOpts, auth.WithHTTPClient(s.httpClient))
	}
	authClient := auth.New(cfg.BaseURL, cfg.AnonKey, manager, authOpts...)

	monitor := session.NewMonitor(manager, authClient,
		session.WithLookahead(cfg.RefreshLookahead),
		session.WithMonitorLogger(s.logger))

	apiOpts := []apiclient.Option{
		apiclient.WithBus(bus),
		apiclient.WithInstallIDStore(plaintext),
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(s.logger),
	}
	if s.httpClient != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(s.httpClient))
	}
	api := apiclient.New(cfg.BaseURL, cfg.AnonKey, manager, monitor, apiOpts...)

	prefService := prefs.New(s.prefsStore, api, prefs.WithLogger(s.logger))

	r := &Registry{
		Bus:      bus,
		Store:    store,
		Sessions: manager,
		Monitor:  monitor,
		Auth:     authClient,
		API:      api,
		Prefs:    prefService,
		logger:   s.logger,
		done:     make(chan struct{}),
	}
	r.sub = bus.Subscribe()
	go r.watch()
	return r, nil
}

// NewFromEnv loads Config from environment variables and wires the stack.
func NewFromEnv(plaintext, encrypted kvstore.Substrate, opts ...Option) (*Registry, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return New(cfg, plaintext, encrypted, opts...)
}

// Load restores a persisted session from the substrates. Call once at
// startup before any authenticated request.
func (r *Registry) Load(ctx context.Context) error {
	return r.Sessions.Load(ctx)
}

// Subject returns the identity key for preference resolution: the user id
// when authenticated, empty otherwise.
func (r *Registry) Subject() string {
	sess, ok := r.Sessions.Current()
	if !ok {
		return ""
	}
	return sess.UserID
}

// Close detaches the event watcher, shuts down the bus, and drops every
// in-memory preference entry. Safe to call multiple times.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.sub.Cancel()
	<-r.done
	r.Bus.Close()
	r.Prefs.InvalidateAll()
}

// watch invalidates every preference tier when the identity changes, so no
// tier serves the previous subject's values.
func (r *Registry) watch() {
	defer close(r.done)
	for ev := range r.sub.C {
		switch ev.Name {
		case event.SignedIn, event.SignedOut:
			r.logger.Info("identity changed, invalidating preference tiers",
				logger.Event(ev.Name))
			r.Prefs.InvalidateAll()
		}
	}
}
