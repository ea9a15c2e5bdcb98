package prefs

import (
	"context"

	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/prefcache"
)

// StudyMode holds the device-local study-mode default. It has no remote
// component: the flag is a per-device reading preference, not account state.
type StudyMode struct {
	tier *prefcache.Tier[bool]
}

func newStudyMode(store kvstore.Substrate, s *settings) *StudyMode {
	return &StudyMode{
		tier: prefcache.New("study_mode", store, KeyStudyMode, ReferenceWindow, false,
			prefcache.WithLogger[bool](s.logger),
			prefcache.WithClock[bool](s.now)),
	}
}

// Get resolves the study-mode flag.
func (m *StudyMode) Get(ctx context.Context) (bool, prefcache.Source) {
	return m.tier.Get(ctx, GlobalSubject)
}

// Set saves the flag locally.
func (m *StudyMode) Set(ctx context.Context, enabled bool) error {
	return m.tier.Set(ctx, GlobalSubject, enabled)
}

// Invalidate clears the in-memory entry.
func (m *StudyMode) Invalidate() {
	m.tier.Invalidate()
}
