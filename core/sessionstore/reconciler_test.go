package sessionstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/sessionstore"
)

const blobKey = sessionstore.DefaultKey

func newReconciler(t *testing.T, primary sessionstore.Primary, opts ...sessionstore.Option) (*sessionstore.Reconciler, *kvstore.Memory, *kvstore.Memory) {
	t.Helper()

	plain := kvstore.NewMemory()
	secure := kvstore.NewMemory()
	rec, err := sessionstore.New(plain, secure, primary, opts...)
	require.NoError(t, err)
	return rec, plain, secure
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("rejects missing primary designation", func(t *testing.T) {
		t.Parallel()

		_, err := sessionstore.New(kvstore.NewMemory(), kvstore.NewMemory(), 0)
		assert.ErrorIs(t, err, sessionstore.ErrInvalidPrimary)
	})
}

func TestPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("writes both substrates", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, rec.Persist(ctx, "S1"))

		got, err := plain.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", got)

		got, err = secure.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", got)
	})

	t.Run("single substrate failure is tolerated", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		secure.FailWith(errors.New("keystore gone"))

		require.NoError(t, rec.Persist(ctx, "S1"))

		got, err := plain.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", got)
	})

	t.Run("dual failure is reported as storage error", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		plain.FailWith(errors.New("disk full"))
		secure.FailWith(errors.New("keystore gone"))

		err := rec.Persist(ctx, "S1")
		assert.ErrorIs(t, err, clientkit.ErrStorage)
	})

	t.Run("background secondary sync is observable", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext,
			sessionstore.WithBackgroundSecondarySync())

		require.NoError(t, rec.Persist(ctx, "S1"))

		got, err := plain.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", got)

		future := rec.SyncFuture()
		require.NotNil(t, future)
		require.NoError(t, future.AwaitWithTimeout(time.Second))

		got, err = secure.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", got)
	})

	t.Run("background sync dual failure is reported", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext,
			sessionstore.WithBackgroundSecondarySync())
		plain.FailWith(errors.New("disk full"))
		secure.FailWith(errors.New("keystore gone"))

		assert.ErrorIs(t, rec.Persist(ctx, "S1"), clientkit.ErrStorage)
	})
}

func TestRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("primary value wins", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, plain.Set(ctx, blobKey, "P"))
		require.NoError(t, secure.Set(ctx, blobKey, "E"))

		blob, ok := rec.Read(ctx)
		require.True(t, ok)
		assert.Equal(t, "P", blob)
	})

	t.Run("falls back to secondary and repairs forward", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, secure.Set(ctx, blobKey, "S1"))

		blob, ok := rec.Read(ctx)
		require.True(t, ok)
		assert.Equal(t, "S1", blob)

		repaired, err := plain.Get(ctx, blobKey)
		require.NoError(t, err)
		assert.Equal(t, "S1", repaired)
	})

	t.Run("unavailable primary falls back to secondary", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, secure.Set(ctx, blobKey, "S1"))
		plain.FailWith(errors.New("io error"))

		blob, ok := rec.Read(ctx)
		require.True(t, ok)
		assert.Equal(t, "S1", blob)
	})

	t.Run("both empty reads as no session", func(t *testing.T) {
		t.Parallel()

		rec, _, _ := newReconciler(t, sessionstore.PrimaryPlaintext)
		blob, ok := rec.Read(ctx)
		assert.False(t, ok)
		assert.Empty(t, blob)
	})

	t.Run("encrypted-primary configuration flips the roles", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryEncrypted)
		require.NoError(t, plain.Set(ctx, blobKey, "P"))
		require.NoError(t, secure.Set(ctx, blobKey, "E"))

		blob, ok := rec.Read(ctx)
		require.True(t, ok)
		assert.Equal(t, "E", blob)
	})
}

func TestReconcile(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	type state struct{ plain, secure string }

	// All substrate state pairs from the reconciliation matrix. Final state
	// must be identical whether Reconcile runs once or twice.
	cases := []struct {
		name string
		in   state
		want state
	}{
		{name: "empty empty", in: state{}, want: state{}},
		{name: "data in primary only", in: state{plain: "S1"}, want: state{plain: "S1", secure: "S1"}},
		{name: "data in secondary only", in: state{secure: "S1"}, want: state{plain: "S1", secure: "S1"}},
		{name: "matching data", in: state{plain: "S1", secure: "S1"}, want: state{plain: "S1", secure: "S1"}},
		{name: "divergent data primary wins", in: state{plain: "P", secure: "E"}, want: state{plain: "P", secure: "P"}},
	}

	read := func(t *testing.T, s *kvstore.Memory) string {
		t.Helper()
		v, err := s.Get(ctx, blobKey)
		if errors.Is(err, kvstore.ErrNotFound) {
			return ""
		}
		require.NoError(t, err)
		return v
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
			if tc.in.plain != "" {
				require.NoError(t, plain.Set(ctx, blobKey, tc.in.plain))
			}
			if tc.in.secure != "" {
				require.NoError(t, secure.Set(ctx, blobKey, tc.in.secure))
			}

			rec.Reconcile(ctx)
			assert.Equal(t, tc.want, state{plain: read(t, plain), secure: read(t, secure)})

			// Idempotent: second run changes nothing.
			rec.Reconcile(ctx)
			assert.Equal(t, tc.want, state{plain: read(t, plain), secure: read(t, secure)})
		})
	}

	t.Run("substrate failure does not panic", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, secure.Set(ctx, blobKey, "S1"))
		plain.FailWith(errors.New("io error"))

		rec.Reconcile(ctx)
	})
}

func TestClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("removes blob from both substrates", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, rec.Persist(ctx, "S1"))

		rec.Clear(ctx)

		_, err := plain.Get(ctx, blobKey)
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
		_, err = secure.Get(ctx, blobKey)
		assert.ErrorIs(t, err, kvstore.ErrNotFound)

		_, ok := rec.Read(ctx)
		assert.False(t, ok)
	})

	t.Run("partial failure still clears the other substrate", func(t *testing.T) {
		t.Parallel()

		rec, plain, secure := newReconciler(t, sessionstore.PrimaryPlaintext)
		require.NoError(t, rec.Persist(ctx, "S1"))
		plain.FailWith(errors.New("io error"))

		rec.Clear(ctx)

		_, err := secure.Get(ctx, blobKey)
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})
}
