package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/auth"
	"github.com/scriptorium/clientkit/core/event"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/session"
	"github.com/scriptorium/clientkit/core/sessionstore"
)

func newManager(t *testing.T) *session.Manager {
	t.Helper()

	rec, err := sessionstore.New(kvstore.NewMemory(), kvstore.NewMemory(), sessionstore.PrimaryPlaintext)
	require.NoError(t, err)
	return session.NewManager(rec)
}

func tokenHandler(t *testing.T, wantGrant string) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		if wantGrant != "" {
			assert.Equal(t, wantGrant, r.URL.Query().Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-1",
			"refresh_token": "rt-1",
			"expires_in":    3600,
			"user":          map[string]string{"id": "user-1"},
		})
	}
}

func TestSignInWithPassword(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("installs session and publishes SignedIn", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(tokenHandler(t, "password"))
		defer srv.Close()

		mgr := newManager(t)
		bus := event.NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		client := auth.New(srv.URL, "anon-key", mgr,
			auth.WithBus(bus),
			auth.WithClock(func() time.Time { return now }))

		sess, err := client.SignInWithPassword(ctx, "a@b.c", "secret")
		require.NoError(t, err)
		assert.Equal(t, "at-1", sess.AccessToken)
		assert.Equal(t, "user-1", sess.UserID)
		assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)

		current, ok := mgr.Current()
		require.True(t, ok)
		assert.Equal(t, sess, current)

		ev := <-sub.C
		assert.Equal(t, event.SignedIn, ev.Name)
	})

	t.Run("bad credentials surface authentication error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
		}))
		defer srv.Close()

		mgr := newManager(t)
		client := auth.New(srv.URL, "anon-key", mgr)

		_, err := client.SignInWithPassword(ctx, "a@b.c", "wrong")
		assert.ErrorIs(t, err, clientkit.ErrAuthentication)
		assert.ErrorContains(t, err, "Invalid login credentials")

		_, ok := mgr.Current()
		assert.False(t, ok)
	})

	t.Run("unreachable backend is a network error", func(t *testing.T) {
		t.Parallel()

		client := auth.New("http://127.0.0.1:1", "anon-key", newManager(t))
		_, err := client.SignInWithPassword(ctx, "a@b.c", "secret")
		assert.ErrorIs(t, err, clientkit.ErrNetwork)
	})
}

func TestSignInAnonymously(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	mgr := newManager(t)
	client := auth.New("http://unused", "anon-key", mgr)

	sess, err := client.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.True(t, sess.IsAnonymous)
	assert.False(t, sess.IsAuthenticated())

	current, ok := mgr.Current()
	require.True(t, ok)
	assert.True(t, current.IsAnonymous)
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("clears session and publishes one SignedOut", func(t *testing.T) {
		t.Parallel()

		var logoutHits int
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logoutHits++
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		mgr := newManager(t)
		require.NoError(t, mgr.Set(ctx, session.Session{
			AccessToken: "at-1",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		bus := event.NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		client := auth.New(srv.URL, "anon-key", mgr, auth.WithBus(bus))
		client.SignOut(ctx)

		assert.Equal(t, 1, logoutHits)
		_, ok := mgr.Current()
		assert.False(t, ok)

		ev := <-sub.C
		assert.Equal(t, event.SignedOut, ev.Name)
		assert.Equal(t, "user_initiated", ev.Reason)
	})

	t.Run("remote failure still signs out locally", func(t *testing.T) {
		t.Parallel()

		mgr := newManager(t)
		require.NoError(t, mgr.Set(ctx, session.Session{
			AccessToken: "at-1",
			ExpiresAt:   time.Now().Add(time.Hour),
		}))

		client := auth.New("http://127.0.0.1:1", "anon-key", mgr)
		client.SignOut(ctx)

		_, ok := mgr.Current()
		assert.False(t, ok)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("returns new session without installing it", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "rt-old", body["refresh_token"])

			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "at-new",
				"refresh_token": "rt-new",
				"expires_in":    3600,
				"user":          map[string]string{"id": "user-1"},
			})
		}))
		defer srv.Close()

		mgr := newManager(t)
		bus := event.NewBus()
		defer bus.Close()
		sub := bus.Subscribe()

		client := auth.New(srv.URL, "anon-key", mgr,
			auth.WithBus(bus),
			auth.WithClock(func() time.Time { return now }))

		sess, err := client.Refresh(ctx, "rt-old")
		require.NoError(t, err)
		assert.Equal(t, "at-new", sess.AccessToken)
		assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)

		// Installation is the monitor's job.
		_, ok := mgr.Current()
		assert.False(t, ok)

		ev := <-sub.C
		assert.Equal(t, event.SessionRefreshed, ev.Name)
	})

	t.Run("revoked refresh token fails", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"refresh token revoked","code":"401"}`))
		}))
		defer srv.Close()

		client := auth.New(srv.URL, "anon-key", newManager(t))
		_, err := client.Refresh(ctx, "rt-revoked")
		assert.ErrorIs(t, err, clientkit.ErrAuthentication)
		assert.ErrorContains(t, err, "revoked")
	})
}
