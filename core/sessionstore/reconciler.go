package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/logger"
	"github.com/scriptorium/clientkit/pkg/async"
)

// DefaultKey is the substrate key under which the session blob is stored.
const DefaultKey = "auth_session"

// Primary designates which substrate wins when both hold divergent data.
type Primary int

const (
	// PrimaryPlaintext treats the application-scoped plaintext store as
	// authoritative. Preferred where the encrypted store is prone to
	// silent OS-triggered clearing.
	PrimaryPlaintext Primary = iota + 1

	// PrimaryEncrypted treats the platform-encrypted store as authoritative.
	PrimaryEncrypted
)

// ErrInvalidPrimary is returned by New when the primary designation is not
// one of the declared constants.
var ErrInvalidPrimary = errors.New("primary substrate must be PrimaryPlaintext or PrimaryEncrypted")

// Reconciler owns both substrates for one logical session blob.
// Safe for concurrent use.
type Reconciler struct {
	plaintext kvstore.Substrate
	encrypted kvstore.Substrate
	primary   Primary
	key       string
	logger    *slog.Logger

	backgroundSync bool

	syncMu   sync.Mutex
	lastSync *async.ExecFuture
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithKey overrides the substrate key used for the session blob.
func WithKey(key string) Option {
	return func(r *Reconciler) {
		if key != "" {
			r.key = key
		}
	}
}

// WithLogger configures structured logging. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithBackgroundSecondarySync makes Persist write the secondary substrate in
// a background task instead of inline. The task is observable: its outcome is
// logged on completion and awaitable via SyncFuture.
func WithBackgroundSecondarySync() Option {
	return func(r *Reconciler) {
		r.backgroundSync = true
	}
}

// New creates a Reconciler over the two substrates. The primary designation
// is required; there is no safe default to guess.
func New(plaintext, encrypted kvstore.Substrate, primary Primary, opts ...Option) (*Reconciler, error) {
	if primary != PrimaryPlaintext && primary != PrimaryEncrypted {
		return nil, ErrInvalidPrimary
	}

	r := &Reconciler{
		plaintext: plaintext,
		encrypted: encrypted,
		primary:   primary,
		key:       DefaultKey,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Persist writes blob to both substrates. A failure on one substrate is
// logged but tolerated as long as the other write succeeds. Only when both
// writes fail is an error returned, wrapped in clientkit.ErrStorage; even
// then the caller's in-memory session remains authoritative.
func (r *Reconciler) Persist(ctx context.Context, blob string) error {
	primary, primaryName := r.roleSubstrates()
	secondary, secondaryName := r.secondarySubstrates()

	primaryErr := primary.Set(ctx, r.key, blob)
	if primaryErr != nil {
		r.logger.Warn("session write failed",
			logger.Substrate(primaryName),
			logger.Error(primaryErr))
	}

	if r.backgroundSync {
		future := async.Exec(context.WithoutCancel(ctx), blob, func(ctx context.Context, b string) error {
			if err := secondary.Set(ctx, r.key, b); err != nil {
				r.logger.Warn("background session sync failed",
					logger.Substrate(secondaryName),
					logger.Error(err))
				return err
			}
			r.logger.Debug("background session sync complete",
				logger.Substrate(secondaryName))
			return nil
		})
		r.syncMu.Lock()
		r.lastSync = future
		r.syncMu.Unlock()
		// Only a dual failure is reportable. When the primary write failed
		// the background outcome decides, so wait for it.
		if primaryErr != nil {
			if secondaryErr := future.Await(); secondaryErr != nil {
				return fmt.Errorf("%w: persist failed on both substrates: %w", clientkit.ErrStorage,
					errors.Join(primaryErr, secondaryErr))
			}
		}
		return nil
	}

	secondaryErr := secondary.Set(ctx, r.key, blob)
	if secondaryErr != nil {
		r.logger.Warn("session write failed",
			logger.Substrate(secondaryName),
			logger.Error(secondaryErr))
	}

	if primaryErr != nil && secondaryErr != nil {
		return fmt.Errorf("%w: persist failed on both substrates: %w", clientkit.ErrStorage,
			errors.Join(primaryErr, secondaryErr))
	}
	return nil
}

// Read returns the current session blob. The designated primary is consulted
// first; when it is empty or unavailable the secondary is used and its value
// is repaired forward into the primary. Returns ok=false when neither
// substrate holds data.
func (r *Reconciler) Read(ctx context.Context) (string, bool) {
	primary, primaryName := r.roleSubstrates()
	secondary, secondaryName := r.secondarySubstrates()

	if blob := r.get(ctx, primary, primaryName); blob != "" {
		return blob, true
	}

	blob := r.get(ctx, secondary, secondaryName)
	if blob == "" {
		return "", false
	}

	// Repair forward: the primary lost its copy, restore it from the
	// secondary so the next read takes the fast path.
	if err := primary.Set(ctx, r.key, blob); err != nil {
		r.logger.Warn("session repair-forward failed",
			logger.Substrate(primaryName),
			logger.Error(err))
	}
	return blob, true
}

// Reconcile aligns the two substrates and must run to completion at startup
// before the first Read is trusted. When exactly one substrate holds data it
// is copied to the other. When both hold divergent data the designated
// primary wins. Best-effort: failures are logged, never returned. Calling
// Reconcile twice in a row yields the same final state as calling it once.
func (r *Reconciler) Reconcile(ctx context.Context) {
	primary, primaryName := r.roleSubstrates()
	secondary, secondaryName := r.secondarySubstrates()

	primaryBlob := r.get(ctx, primary, primaryName)
	secondaryBlob := r.get(ctx, secondary, secondaryName)

	switch {
	case primaryBlob == "" && secondaryBlob == "":
		return
	case primaryBlob == secondaryBlob:
		return
	case primaryBlob == "":
		if err := primary.Set(ctx, r.key, secondaryBlob); err != nil {
			r.logger.Warn("reconcile copy failed",
				logger.Substrate(primaryName),
				logger.Error(err))
		}
	default:
		// Primary has data: it wins, whether the secondary is empty or
		// divergent. Neither substrate records mutation timestamps, so
		// last-write-wins is by role, not by time.
		if err := secondary.Set(ctx, r.key, primaryBlob); err != nil {
			r.logger.Warn("reconcile copy failed",
				logger.Substrate(secondaryName),
				logger.Error(err))
		}
	}
}

// Clear deletes the session blob from both substrates. Partial failure is
// logged, not returned.
func (r *Reconciler) Clear(ctx context.Context) {
	if err := r.plaintext.Delete(ctx, r.key); err != nil {
		r.logger.Warn("session clear failed",
			logger.Substrate("plaintext"),
			logger.Error(err))
	}
	if err := r.encrypted.Delete(ctx, r.key); err != nil {
		r.logger.Warn("session clear failed",
			logger.Substrate("encrypted"),
			logger.Error(err))
	}
}

// SyncFuture returns the future of the most recent background secondary
// write, or nil when none has been started. Teardown paths await it so no
// write outcome goes unobserved.
func (r *Reconciler) SyncFuture() *async.ExecFuture {
	r.syncMu.Lock()
	defer r.syncMu.Unlock()
	return r.lastSync
}

// get reads one substrate, collapsing "not found" and substrate failures
// into the empty string. Failures other than a miss are logged.
func (r *Reconciler) get(ctx context.Context, sub kvstore.Substrate, name string) string {
	val, err := sub.Get(ctx, r.key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			r.logger.Warn("session read failed",
				logger.Substrate(name),
				logger.Error(err))
		}
		return ""
	}
	return val
}

func (r *Reconciler) roleSubstrates() (kvstore.Substrate, string) {
	if r.primary == PrimaryEncrypted {
		return r.encrypted, "encrypted"
	}
	return r.plaintext, "plaintext"
}

func (r *Reconciler) secondarySubstrates() (kvstore.Substrate, string) {
	if r.primary == PrimaryEncrypted {
		return r.plaintext, "plaintext"
	}
	return r.encrypted, "encrypted"
}
