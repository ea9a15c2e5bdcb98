package prefs

import (
	"context"
	"fmt"
	"strings"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/prefcache"
)

// MaxDisplayNameLength bounds the profile display name.
const MaxDisplayNameLength = 64

// Profile resolves the user's display name with a short window so edits on
// another device show up within minutes.
type Profile struct {
	tier *prefcache.Tier[string]
}

func newProfile(store kvstore.Substrate, api API, s *settings) *Profile {
	fetch := func(ctx context.Context, subject string) (string, error) {
		resp, err := api.Get(ctx, "/functions/v1/profile", nil)
		if err != nil {
			return "", err
		}
		var out struct {
			DisplayName string `json:"display_name"`
		}
		if err := resp.DecodeData(&out); err != nil {
			return "", err
		}
		if out.DisplayName == "" {
			return "", fmt.Errorf("no display name stored for subject")
		}
		return out.DisplayName, nil
	}
	push := func(ctx context.Context, subject, name string) error {
		_, err := api.Post(ctx, "/functions/v1/profile", map[string]string{
			"display_name": name,
		}, nil)
		return err
	}

	return &Profile{
		tier: prefcache.New("profile", store, KeyProfile, VolatileWindow, "",
			prefcache.WithRemote(fetch, push),
			prefcache.WithLogger[string](s.logger),
			prefcache.WithClock[string](s.now)),
	}
}

// DisplayName resolves the display name. The fallback is empty: callers
// render a placeholder, not a fake name.
func (p *Profile) DisplayName(ctx context.Context, subject string) (string, prefcache.Source) {
	return p.tier.Get(ctx, subject)
}

// SetDisplayName validates and saves the display name.
func (p *Profile) SetDisplayName(ctx context.Context, subject, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: display name must not be empty", clientkit.ErrValidation)
	}
	if len(name) > MaxDisplayNameLength {
		return fmt.Errorf("%w: display name exceeds %d characters", clientkit.ErrValidation, MaxDisplayNameLength)
	}
	return p.tier.Set(ctx, subject, name)
}

// Invalidate clears the in-memory entry.
func (p *Profile) Invalidate() {
	p.tier.Invalidate()
}
