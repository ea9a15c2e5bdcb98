package prefcache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/logger"
)

// Source tags where a resolved value came from.
type Source string

const (
	// SourceRemote means the value came from a live backend fetch.
	SourceRemote Source = "remote"
	// SourceLocal means the value came from the local durable store.
	SourceLocal Source = "local"
	// SourceFallback means the tier's hardcoded default was returned.
	SourceFallback Source = "fallback"
)

// Entry is one cached resolution for one subject.
type Entry[T any] struct {
	Value      T
	SubjectKey string
	FetchedAt  time.Time
	Source     Source
}

// FetchFunc loads the value from the remote source for one subject.
type FetchFunc[T any] func(ctx context.Context, subject string) (T, error)

// PushFunc writes the value to the remote source for one subject.
type PushFunc[T any] func(ctx context.Context, subject string, value T) error

// Tier is one instantiation of the tiered preference cache.
// Safe for concurrent use.
type Tier[T any] struct {
	name         string
	store        kvstore.Substrate
	storeKey     string
	window       time.Duration
	defaultValue T
	fetch        FetchFunc[T]
	push         PushFunc[T]
	encode       func(T) (string, error)
	decode       func(string) (T, error)
	logger       *slog.Logger
	now          func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	entry     *Entry[T]
	completed bool
}

// Option configures a Tier.
type Option[T any] func(*Tier[T])

// WithRemote attaches remote resolution to the tier. Either function may be
// nil for read-only or write-only remotes.
func WithRemote[T any](fetch FetchFunc[T], push PushFunc[T]) Option[T] {
	return func(t *Tier[T]) {
		t.fetch = fetch
		t.push = push
	}
}

// WithCodec overrides the local-store encoding. Defaults to JSON.
func WithCodec[T any](encode func(T) (string, error), decode func(string) (T, error)) Option[T] {
	return func(t *Tier[T]) {
		if encode != nil && decode != nil {
			t.encode = encode
			t.decode = decode
		}
	}
}

// WithLogger configures structured logging. Defaults to a discard logger.
func WithLogger[T any](log *slog.Logger) Option[T] {
	return func(t *Tier[T]) {
		if log != nil {
			t.logger = log
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(t *Tier[T]) {
		if now != nil {
			t.now = now
		}
	}
}

// New creates a tier. The window bounds in-memory freshness; defaultValue is
// the last-resort answer and is never cached.
func New[T any](name string, store kvstore.Substrate, storeKey string, window time.Duration, defaultValue T, opts ...Option[T]) *Tier[T] {
	t := &Tier[T]{
		name:         name,
		store:        store,
		storeKey:     storeKey,
		window:       window,
		defaultValue: defaultValue,
		logger:       logger.Discard(),
		now:          time.Now,
	}
	t.encode = func(v T) (string, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	t.decode = func(s string) (T, error) {
		var v T
		err := json.Unmarshal([]byte(s), &v)
		return v, err
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Get resolves the value for subject. subject is empty for anonymous or
// global resolution; anonymous subjects skip the remote level. The returned
// Source tells the caller how authoritative the value is. Get never returns
// an error to its caller: every failure has a fallback, ending at the tier
// default.
func (t *Tier[T]) Get(ctx context.Context, subject string) (T, Source) {
	// Level 1: fresh in-memory entry for the active subject.
	if entry := t.snapshot(); entry != nil &&
		entry.SubjectKey == subject &&
		t.now().Sub(entry.FetchedAt) < t.window {
		return entry.Value, entry.Source
	}

	// Level 2: remote, authenticated subjects only. Concurrent resolutions
	// for the same subject share one fetch.
	if t.fetch != nil && subject != "" {
		v, err, _ := t.group.Do(subject, func() (any, error) {
			resolved, err := t.resolveRemote(ctx, subject)
			return resolved, err
		})
		if err == nil {
			return v.(T), SourceRemote
		}
		t.logger.Warn("remote preference fetch failed",
			logger.Tier(t.name),
			logger.Error(err))
	}

	// Level 3: local durable store.
	if raw, err := t.store.Get(ctx, t.storeKey); err == nil {
		if v, err := t.decode(raw); err == nil {
			t.setEntry(v, subject, SourceLocal)
			return v, SourceLocal
		} else {
			t.logger.Warn("stored preference is corrupt",
				logger.Tier(t.name),
				logger.StoreKey(t.storeKey),
				logger.Error(err))
		}
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		t.logger.Warn("preference store read failed",
			logger.Tier(t.name),
			logger.Error(err))
	}

	// Level 4: stale-but-known-good beats fresh-but-wrong. A transient
	// failure never downgrades a value that once resolved successfully.
	if entry := t.snapshot(); entry != nil && entry.SubjectKey == subject {
		return entry.Value, entry.Source
	}

	return t.defaultValue, SourceFallback
}

// Set writes the value through every level: memory and the local store
// synchronously, then the remote push, awaited. The tier's completion flag
// flips only once the remote write is confirmed (immediately, for tiers
// without a remote). A push failure is returned while the local value stays
// honored.
func (t *Tier[T]) Set(ctx context.Context, subject string, value T) error {
	t.setEntry(value, subject, SourceLocal)

	if raw, err := t.encode(value); err != nil {
		t.logger.Warn("preference not encodable for local store",
			logger.Tier(t.name),
			logger.Error(err))
	} else if err := t.store.Set(ctx, t.storeKey, raw); err != nil {
		t.logger.Warn("preference store write failed",
			logger.Tier(t.name),
			logger.StoreKey(t.storeKey),
			logger.Error(err))
	}

	if t.push != nil && subject != "" {
		if err := t.push(ctx, subject, value); err != nil {
			return err
		}
		t.setEntry(value, subject, SourceRemote)
	}

	t.mu.Lock()
	t.completed = true
	t.mu.Unlock()
	return nil
}

// Invalidate clears the in-memory entry and the completion flag. The next
// Get must resolve fresh instead of reusing the old value; the local store
// is left intact.
func (t *Tier[T]) Invalidate() {
	t.mu.Lock()
	t.entry = nil
	t.completed = false
	t.mu.Unlock()
}

// Completed reports whether the last Set was confirmed through to the
// remote. Routing logic gates on this rather than on the cached value.
func (t *Tier[T]) Completed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed
}

// Name returns the tier name used in logs.
func (t *Tier[T]) Name() string {
	return t.name
}

func (t *Tier[T]) resolveRemote(ctx context.Context, subject string) (T, error) {
	v, err := t.fetch(ctx, subject)
	if err != nil {
		var zero T
		return zero, err
	}

	// Write-through on successful fetch so level 3 works offline later.
	if raw, encErr := t.encode(v); encErr == nil {
		if setErr := t.store.Set(ctx, t.storeKey, raw); setErr != nil {
			t.logger.Warn("preference store write failed",
				logger.Tier(t.name),
				logger.StoreKey(t.storeKey),
				logger.Error(setErr))
		}
	}

	t.setEntry(v, subject, SourceRemote)
	return v, nil
}

func (t *Tier[T]) snapshot() *Entry[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entry
}

func (t *Tier[T]) setEntry(v T, subject string, src Source) {
	t.mu.Lock()
	t.entry = &Entry[T]{
		Value:      v,
		SubjectKey: subject,
		FetchedAt:  t.now(),
		Source:     src,
	}
	t.mu.Unlock()
}
