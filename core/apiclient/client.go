package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scriptorium/clientkit/core/event"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/logger"
	"github.com/scriptorium/clientkit/core/session"
)

// DefaultTimeout bounds every request attempt.
const DefaultTimeout = 10 * time.Second

// InstallIDKey is the substrate key holding the per-install anonymous
// session id.
const InstallIDKey = "install_id"

// Client issues authenticated backend requests with bounded 401 retry.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	timeout    time.Duration
	httpClient *http.Client
	manager    *session.Manager
	monitor    *session.Monitor
	bus        *event.Bus
	idStore    kvstore.Substrate
	logger     *slog.Logger

	idMu      sync.Mutex
	installID string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-attempt request timeout.
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

// WithBus wires the event bus used for the forced-logout escalation.
// Without a bus the escalation still clears the session, it just has no one
// to tell.
func WithBus(bus *event.Bus) Option {
	return func(c *Client) {
		c.bus = bus
	}
}

// WithInstallIDStore persists the per-install anonymous session id in the
// given substrate. Without a store the id is generated fresh per process.
func WithInstallIDStore(store kvstore.Substrate) Option {
	return func(c *Client) {
		c.idStore = store
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

// New creates a request pipeline bound to the session manager and monitor.
func New(baseURL, anonKey string, manager *session.Manager, monitor *session.Monitor, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		timeout:    DefaultTimeout,
		httpClient: &http.Client{},
		manager:    manager,
		monitor:    monitor,
		logger:     logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET request. header may be nil.
func (c *Client) Get(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, nil, header)
}

// Post issues a POST request with a JSON body. body may be nil.
func (c *Client) Post(ctx context.Context, path string, body any, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodPost, path, body, header)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodPut, path, body, header)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodDelete, path, nil, header)
}

// do runs the request with at most one refresh-and-retry cycle on 401.
// Callers see at most one extra round-trip, and always a classified error.
func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	// Proactive freshness check: refresh before the token lapses mid-flight.
	// An anonymous session or no session at all skips the machine entirely.
	if sess, ok := c.manager.Current(); ok && sess.IsAuthenticated() {
		if state, err := c.monitor.EnsureFresh(ctx); state == session.StateFailed {
			c.escalate(ctx, "refresh_failed")
			return nil, authError("session refresh failed")
		} else if err != nil {
			c.logger.Warn("freshness check errored", logger.Error(err))
		}
	}

	resp, err := c.send(ctx, method, path, payload, header)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return c.classify(resp)
	}

	// One bounded refresh-and-retry cycle. Anonymous and session-less
	// requests escalate immediately: there is nothing to refresh.
	sess, ok := c.manager.Current()
	if !ok || !sess.IsAuthenticated() {
		c.escalate(ctx, "unauthorized")
		return nil, authError("request rejected and no refreshable session exists")
	}

	state, refreshErr := c.monitor.ForceRefresh(ctx)
	if state != session.StateValid {
		c.logger.Warn("refresh after 401 failed",
			logger.StatusCode(http.StatusUnauthorized),
			logger.Error(refreshErr))
		c.escalate(ctx, "refresh_failed")
		return nil, authError("session refresh failed")
	}

	c.logger.Debug("retrying request with refreshed token",
		logger.Method(method),
		logger.Path(path),
		logger.RetryCount(1))

	resp, err = c.send(ctx, method, path, payload, header)
	if err != nil {
		return nil, networkError(err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.escalate(ctx, "retry_unauthorized")
		return nil, authError("request rejected after token refresh")
	}
	return c.classify(resp)
}

// send performs one HTTP round-trip with the per-attempt timeout and current
// credentials.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, header http.Header) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if payload != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthHeaders(ctx, req)

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: res.StatusCode, Body: data}, nil
}

// setAuthHeaders attaches credentials for the current session state.
// The apikey header is always present; authenticated sessions get their
// bearer token, everything else gets the anon key plus the per-install id.
func (c *Client) setAuthHeaders(ctx context.Context, req *http.Request) {
	req.Header.Set("apikey", c.anonKey)

	if sess, ok := c.manager.Current(); ok && sess.IsAuthenticated() {
		req.Header.Set("Authorization", "Bearer "+sess.AccessToken)
		return
	}

	req.Header.Set("Authorization", "Bearer "+c.anonKey)
	req.Header.Set("x-session-id", c.iid(ctx))
}

// classify turns a non-401 response into a Response or an APIError.
func (c *Client) classify(resp *Response) (*Response, error) {
	if resp.StatusCode >= 400 {
		apiErr := decodeAPIError(resp.StatusCode, resp.Body)
		c.logger.Warn("request failed",
			logger.StatusCode(resp.StatusCode),
			logger.Error(apiErr))
		return nil, apiErr
	}
	return resp, nil
}

// escalate is the forced-logout path: one SignedOut event, then the session
// is cleared everywhere.
func (c *Client) escalate(ctx context.Context, reason string) {
	if c.bus != nil {
		if err := c.bus.Publish(event.New(event.SignedOut, reason)); err != nil {
			c.logger.Warn("logout event not delivered", logger.Error(err))
		}
	}
	c.manager.Clear(ctx)
}

// iid returns the per-install anonymous session id, generating and
// persisting it on first use.
func (c *Client) iid(ctx context.Context) string {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	if c.installID != "" {
		return c.installID
	}

	if c.idStore != nil {
		if id, err := c.idStore.Get(ctx, InstallIDKey); err == nil {
			c.installID = id
			return c.installID
		}
	}

	c.installID = uuid.New().String()
	if c.idStore != nil {
		if err := c.idStore.Set(ctx, InstallIDKey, c.installID); err != nil {
			c.logger.Warn("install id not persisted",
				logger.StoreKey(InstallIDKey),
				logger.Error(err))
		}
	}
	return c.installID
}
