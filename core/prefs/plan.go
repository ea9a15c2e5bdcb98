package prefs

import (
	"context"
	"fmt"
	"slices"

	clientkit "github.com/scriptorium/clientkit"
	"github.com/scriptorium/clientkit/core/kvstore"
	"github.com/scriptorium/clientkit/core/prefcache"
)

// Plan codes the backend recognizes.
const (
	PlanFree     = "free"
	PlanMonthly  = "monthly"
	PlanYearly   = "yearly"
	PlanLifetime = "lifetime"
)

var validPlans = []string{PlanFree, PlanMonthly, PlanYearly, PlanLifetime}

// Plan resolves the subject's subscription plan. Pricing gates read through
// this tier so a flaky backend cannot flicker a paying user down to free.
type Plan struct {
	tier *prefcache.Tier[string]
}

func newPlan(store kvstore.Substrate, api API, s *settings) *Plan {
	fetch := func(ctx context.Context, subject string) (string, error) {
		resp, err := api.Get(ctx, "/functions/v1/subscription", nil)
		if err != nil {
			return "", err
		}
		var out struct {
			Plan string `json:"plan"`
		}
		if err := resp.DecodeData(&out); err != nil {
			return "", err
		}
		if !slices.Contains(validPlans, out.Plan) {
			return "", fmt.Errorf("backend returned unknown plan %q", out.Plan)
		}
		return out.Plan, nil
	}

	return &Plan{
		tier: prefcache.New("plan", store, KeyPlan, VolatileWindow, PlanFree,
			prefcache.WithRemote(fetch, nil),
			prefcache.WithLogger[string](s.logger),
			prefcache.WithClock[string](s.now)),
	}
}

// Get resolves the current plan code.
func (p *Plan) Get(ctx context.Context, subject string) (string, prefcache.Source) {
	return p.tier.Get(ctx, subject)
}

// Set records a plan locally after a purchase flow completes. The code must
// be one of the recognized plans; anything else is rejected before any I/O.
// Plan changes are written remotely by the payment backend, not by the
// client, so this tier has no push.
func (p *Plan) Set(ctx context.Context, subject, code string) error {
	if !slices.Contains(validPlans, code) {
		return fmt.Errorf("%w: unrecognized plan code %q", clientkit.ErrValidation, code)
	}
	return p.tier.Set(ctx, subject, code)
}

// Invalidate clears the in-memory entry, forcing a remote re-check. Called
// after purchase and restore flows.
func (p *Plan) Invalidate() {
	p.tier.Invalidate()
}
