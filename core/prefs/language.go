package prefs

import (
	"context"
	"fmt"

	"golang.org/x/text/language"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/prefcache"
)

// DefaultLanguage is the tier fallback when nothing is resolvable.
const DefaultLanguage = "en"

// Language resolves and persists the user's selected interface language.
type Language struct {
	tier *prefcache.Tier[string]
}

func newLanguage(store kvstore.Substrate, api API, s *settings) *Language {
	fetch := func(ctx context.Context, subject string) (string, error) {
		resp, err := api.Get(ctx, "/functions/v1/preferences?key=language", nil)
		if err != nil {
			return "", err
		}
		var out struct {
			Language string `json:"language"`
		}
		if err := resp.DecodeData(&out); err != nil {
			return "", err
		}
		if out.Language == "" {
			return "", fmt.Errorf("no language preference stored for subject")
		}
		return out.Language, nil
	}
	push := func(ctx context.Context, subject, code string) error {
		_, err := api.Post(ctx, "/functions/v1/preferences", map[string]string{
			"key":   "language",
			"value": code,
		}, nil)
		return err
	}

	return &Language{
		tier: prefcache.New("language", store, KeyLanguage, ReferenceWindow, DefaultLanguage,
			prefcache.WithRemote(fetch, push),
			prefcache.WithLogger[string](s.logger),
			prefcache.WithClock[string](s.now)),
	}
}

// Get resolves the selected language for subject. Empty subject means
// anonymous: remote resolution is skipped.
func (l *Language) Get(ctx context.Context, subject string) (string, prefcache.Source) {
	return l.tier.Get(ctx, subject)
}

// Set validates and saves the language. The tag must parse as a BCP 47
// language tag; a malformed tag is rejected before any I/O.
func (l *Language) Set(ctx context.Context, subject, code string) error {
	tag, err := language.Parse(code)
	if err != nil {
		return fmt.Errorf("%w: unrecognized language tag %q: %w", clientkit.ErrValidation, code, err)
	}
	return l.tier.Set(ctx, subject, tag.String())
}

// Invalidate clears the in-memory entry.
func (l *Language) Invalidate() {
	l.tier.Invalidate()
}

// SelectionComplete reports whether the last Set was confirmed remotely.
// Onboarding routing gates on this.
func (l *Language) SelectionComplete() bool {
	return l.tier.Completed()
}
