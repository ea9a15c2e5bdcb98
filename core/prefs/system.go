package prefs

import (
	"context"

	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/prefcache"
)

// GlobalSubject keys tiers whose value is device-wide rather than
// per-user. System config resolves remotely even for anonymous users, so it
// uses this constant instead of a user id.
const GlobalSubject = "global"

// SystemConfig is the backend-controlled runtime configuration.
type SystemConfig struct {
	MaintenanceMode    bool   `json:"maintenance_mode"`
	MaintenanceMessage string `json:"maintenance_message,omitempty"`
	MinSupportedBuild  int    `json:"min_supported_build,omitempty"`
}

// System resolves the system configuration with a short freshness window so
// a maintenance flag propagates within minutes.
type System struct {
	tier *prefcache.Tier[SystemConfig]
}

func newSystem(store kvstore.Substrate, api API, s *settings) *System {
	fetch := func(ctx context.Context, subject string) (SystemConfig, error) {
		resp, err := api.Get(ctx, "/functions/v1/system-config", nil)
		if err != nil {
			return SystemConfig{}, err
		}
		var cfg SystemConfig
		if err := resp.DecodeData(&cfg); err != nil {
			return SystemConfig{}, err
		}
		return cfg, nil
	}

	return &System{
		tier: prefcache.New("system_config", store, KeySystem, VolatileWindow, SystemConfig{},
			prefcache.WithRemote(fetch, nil),
			prefcache.WithLogger[SystemConfig](s.logger),
			prefcache.WithClock[SystemConfig](s.now)),
	}
}

// Get resolves the system configuration. The tier default — all flags off —
// keeps the app usable when the config endpoint has never been reachable.
func (s *System) Get(ctx context.Context) (SystemConfig, prefcache.Source) {
	return s.tier.Get(ctx, GlobalSubject)
}

// Invalidate clears the in-memory entry.
func (s *System) Invalidate() {
	s.tier.Invalidate()
}
