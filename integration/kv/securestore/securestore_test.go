package securestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/integration/kv/securestore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	key, err := securestore.GenerateKey()
	require.NoError(t, err)

	t.Run("rejects empty path", func(t *testing.T) {
		t.Parallel()

		_, err := securestore.New("", key)
		assert.ErrorIs(t, err, securestore.ErrEmptyPath)
	})

	t.Run("rejects short key", func(t *testing.T) {
		t.Parallel()

		_, err := securestore.New(filepath.Join(t.TempDir(), "vault.bin"), []byte("too-short"))
		assert.ErrorIs(t, err, securestore.ErrInvalidKeySize)
	})
}

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	newStore := func(t *testing.T) (*securestore.Store, []byte) {
		t.Helper()
		key, err := securestore.GenerateKey()
		require.NoError(t, err)
		store, err := securestore.New(filepath.Join(t.TempDir(), "vault.bin"), key)
		require.NoError(t, err)
		return store, key
	}

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "auth_session", `{"access_token":"tok"}`))

		v, err := store.Get(ctx, "auth_session")
		require.NoError(t, err)
		assert.Equal(t, `{"access_token":"tok"}`, v)
	})

	t.Run("plaintext never touches disk", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "auth_session", "super-secret-token"))

		raw, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "super-secret-token")
		assert.NotContains(t, string(raw), "auth_session")
	})

	t.Run("values survive reopening with the same key", func(t *testing.T) {
		t.Parallel()

		store, key := newStore(t)
		require.NoError(t, store.Set(ctx, "k", "v"))

		reopened, err := securestore.New(store.Path(), key)
		require.NoError(t, err)

		v, err := reopened.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	})

	t.Run("wrong key reads as corrupt", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "k", "v"))

		other, err := securestore.GenerateKey()
		require.NoError(t, err)
		reopened, err := securestore.New(store.Path(), other)
		require.NoError(t, err)

		_, err = reopened.Get(ctx, "k")
		assert.ErrorIs(t, err, securestore.ErrCorruptFile)
	})

	t.Run("tampered file reads as corrupt", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "k", "v"))

		raw, err := os.ReadFile(store.Path())
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		require.NoError(t, os.WriteFile(store.Path(), raw, 0o600))

		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, securestore.ErrCorruptFile)
	})

	t.Run("empty value reads as absent", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "k", "v"))
		require.NoError(t, store.Set(ctx, "k", ""))

		_, err := store.Get(ctx, "k")
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("identical documents produce distinct ciphertext", func(t *testing.T) {
		t.Parallel()

		store, _ := newStore(t)
		require.NoError(t, store.Set(ctx, "k", "v"))
		first, err := os.ReadFile(store.Path())
		require.NoError(t, err)

		// Rewriting the same document reseals with a fresh nonce.
		require.NoError(t, store.Set(ctx, "k", "v"))
		second, err := os.ReadFile(store.Path())
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})
}
