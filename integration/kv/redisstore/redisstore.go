package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scriptorium/clientkit/core/kvstore"
)

// Config contains Redis connection parameters with environment variable mapping.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
}

var (
	// ErrEmptyConnectionURL is returned when no connection URL is provided.
	ErrEmptyConnectionURL = errors.New("redisstore: empty connection URL")
	// ErrFailedToParseConnString is returned when the connection URL is malformed.
	ErrFailedToParseConnString = errors.New("redisstore: failed to parse connection string")
	// ErrNotReady is returned when Redis does not answer a ping within the
	// configured attempts.
	ErrNotReady = errors.New("redisstore: redis did not become ready")
)

// Connect creates a Redis client from cfg and verifies connectivity with a
// ping, retrying on transient failures. The returned client is ready for use.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.ConnectionURL == "" {
		return nil, ErrEmptyConnectionURL
	}

	opts, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFailedToParseConnString, err)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	client := redis.NewClient(opts)

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				client.Close()
				return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
			case <-time.After(cfg.RetryInterval):
			}
		}
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return client, nil
		}
	}
	client.Close()
	return nil, fmt.Errorf("%w: %w", ErrNotReady, lastErr)
}

// Healthcheck returns a function that verifies Redis connectivity, suitable
// for readiness probes.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("%w: %w", kvstore.ErrUnavailable, err)
		}
		return nil
	}
}

// Store is a Redis-backed key-value substrate for server-side deployments,
// where sessions and preferences live in Redis instead of device files. Keys
// are namespaced with a caller-supplied prefix so one Redis database can
// serve many subjects.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets an expiration on every written key. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a Redis-backed substrate over client. The prefix namespaces
// every key, e.g. "clientkit:user-1:".
func New(client *redis.Client, prefix string, opts ...Option) *Store {
	s := &Store{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", kvstore.ErrNotFound
		}
		return "", fmt.Errorf("%w: %w", kvstore.ErrUnavailable, err)
	}
	if v == "" {
		return "", kvstore.ErrNotFound
	}
	return v, nil
}

// Set stores value under key. An empty value is equivalent to Delete.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if value == "" {
		return s.Delete(ctx, key)
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %w", kvstore.ErrUnavailable, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %w", kvstore.ErrUnavailable, err)
	}
	return nil
}
