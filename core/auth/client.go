package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/event"
	"github.com/scriptorium/clientkit/core/logger"
	"github.com/scriptorium/clientkit/core/session"
)

// DefaultTimeout bounds every auth call.
const DefaultTimeout = 10 * time.Second

// Client is the auth backend client. Safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
	manager    *session.Manager
	bus        *event.Bus
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBus wires the event bus for lifecycle announcements.
func WithBus(bus *event.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

// WithLogger configures structured logging. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}

// WithClock overrides the time source used to compute absolute token expiry.
// Test hook.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates an auth client that installs sessions into manager.
func New(baseURL, anonKey string, manager *session.Manager, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		manager:    manager,
		logger:     logger.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SignUp registers a new account and installs the returned session.
func (c *Client) SignUp(ctx context.Context, email, password string) (session.Session, error) {
	sess, err := c.tokenCall(ctx, "/auth/v1/signup", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return session.Session{}, err
	}
	return c.install(ctx, sess)
}

// SignInWithPassword exchanges credentials for a session and installs it.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (session.Session, error) {
	sess, err := c.tokenCall(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return session.Session{}, err
	}
	return c.install(ctx, sess)
}

// SignInAnonymously installs a local anonymous session. No credentials are
// issued; anonymous identity is the per-install id the request pipeline
// sends.
func (c *Client) SignInAnonymously(ctx context.Context) (session.Session, error) {
	return c.install(ctx, session.NewAnonymous())
}

// SignOut revokes the session remotely (best-effort) and clears it locally.
// Publishes one SignedOut event.
func (c *Client) SignOut(ctx context.Context) {
	if sess, ok := c.manager.Current(); ok && sess.IsAuthenticated() {
		if err := c.post(ctx, "/auth/v1/logout", nil, sess.AccessToken); err != nil {
			// Local sign-out proceeds regardless; the token will lapse.
			c.logger.Warn("remote sign-out failed", logger.Error(err))
		}
	}

	c.manager.Clear(ctx)
	c.publish(event.SignedOut, "user_initiated")
}

// Refresh implements session.Refresher: it exchanges the refresh credential
// for a new session. It does not install the result — that is the monitor's
// job — but it does announce the refresh.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (session.Session, error) {
	sess, err := c.tokenCall(ctx, "/auth/v1/token?grant_type=refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return session.Session{}, err
	}

	c.publish(event.SessionRefreshed, "")
	return sess, nil
}

func (c *Client) install(ctx context.Context, sess session.Session) (session.Session, error) {
	if err := c.manager.Set(ctx, sess); err != nil {
		// Persistence is best-effort; the in-memory session is installed.
		c.logger.Warn("session not persisted", logger.Error(err))
	}
	c.publish(event.SignedIn, "")
	return sess, nil
}

func (c *Client) publish(name, reason string) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(event.New(name, reason)); err != nil {
		c.logger.Warn("lifecycle event not delivered",
			logger.Event(name),
			logger.Error(err))
	}
}

// tokenCall posts to a token-issuing endpoint and maps the response to a
// Session with an absolute expiry.
func (c *Client) tokenCall(ctx context.Context, path string, body map[string]string) (session.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return session.Session{}, fmt.Errorf("failed to encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", clientkit.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", clientkit.ErrNetwork, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return session.Session{}, fmt.Errorf("%w: %w", clientkit.ErrNetwork, err)
	}

	if res.StatusCode >= 400 {
		return session.Session{}, decodeAuthError(res.StatusCode, data)
	}

	var tok tokenResponse
	if err := json.Unmarshal(data, &tok); err != nil {
		return session.Session{}, fmt.Errorf("%w: malformed token response: %w", clientkit.ErrAuthentication, err)
	}
	if tok.AccessToken == "" {
		return session.Session{}, fmt.Errorf("%w: token response missing access token", clientkit.ErrAuthentication)
	}

	return session.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		UserID:       tok.User.ID,
		ExpiresAt:    c.now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC(),
	}, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, accessToken string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", clientkit.ErrNetwork, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode >= 400 {
		return fmt.Errorf("%w: sign-out rejected with status %d", clientkit.ErrNetwork, res.StatusCode)
	}
	return nil
}

// tokenResponse is the token endpoint's success payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// decodeAuthError probes the error payload variants the auth backend emits:
// {"error":{"message","code"}}, {"message","code"}, and the OAuth-style
// {"error","error_description"}.
func decodeAuthError(status int, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = gjson.GetBytes(body, "message").String()
	}
	if msg == "" {
		msg = gjson.GetBytes(body, "error_description").String()
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s", clientkit.ErrAuthentication, msg)
}
