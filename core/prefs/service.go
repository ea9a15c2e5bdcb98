package prefs

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/scriptorium/clientkit/core/apiclient"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/logger"
)

// Freshness windows per volatility class.
const (
	// VolatileWindow bounds tiers whose remote value can change under the
	// app at any time: plan, system config, profile.
	VolatileWindow = 5 * time.Minute

	// ReferenceWindow bounds tiers holding rarely-changing reference data:
	// selected language, study-mode default.
	ReferenceWindow = 30 * 24 * time.Hour
)

// Local store keys, one per tier.
const (
	KeyLanguage  = "selected_language"
	KeyStudyMode = "study_mode_enabled"
	KeyPlan      = "subscription_plan"
	KeySystem    = "system_config"
	KeyProfile   = "profile_display_name"
)

// Service bundles every preference tier.
type Service struct {
	Language  *Language
	StudyMode *StudyMode
	Plan      *Plan
	System    *System
	Profile   *Profile
}

// Option configures the Service and is forwarded to every tier.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
	now    func() time.Time
}

// WithLogger configures structured logging for all tiers.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithClock overrides the time source for all tiers. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// API is the subset of the request pipeline the preference tiers call.
// Satisfied by *apiclient.Client.
type API interface {
	Get(ctx context.Context, path string, header http.Header) (*apiclient.Response, error)
	Post(ctx context.Context, path string, body any, header http.Header) (*apiclient.Response, error)
}

// New wires all tiers over one local substrate and one request pipeline.
func New(store kvstore.Substrate, api API, opts ...Option) *Service {
	s := &settings{
		logger: logger.Discard(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return &Service{
		Language:  newLanguage(store, api, s),
		StudyMode: newStudyMode(store, s),
		Plan:      newPlan(store, api, s),
		System:    newSystem(store, api, s),
		Profile:   newProfile(store, api, s),
	}
}

// InvalidateAll clears every tier's in-memory state. Called on subject
// changes (sign-in, sign-out) so no tier serves the previous identity's
// values.
func (s *Service) InvalidateAll() {
	s.Language.tier.Invalidate()
	s.StudyMode.tier.Invalidate()
	s.Plan.tier.Invalidate()
	s.System.tier.Invalidate()
	s.Profile.tier.Invalidate()
}
