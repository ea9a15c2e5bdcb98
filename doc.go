// Package clientkit is a client-side auth and preference toolkit for apps
// backed by a Supabase-style API: GoTrue-compatible auth endpoints, edge
// functions, and bearer-token authorization.
//
// The root package holds only the shared error taxonomy. Functionality lives
// in focused subpackages:
//
//   - core/kvstore: the Substrate storage interface and an in-memory store
//   - core/sessionstore: dual-substrate session persistence with reconciliation
//   - core/session: the session model, manager, and token-refresh monitor
//   - core/auth: sign-up, sign-in, sign-out, and token refresh
//   - core/apiclient: the authenticated request pipeline with bounded 401 retry
//   - core/prefcache: the generic tiered preference cache
//   - core/prefs: concrete preference tiers (language, plan, profile, ...)
//   - core/event: the auth lifecycle event bus
//   - core/config, core/logger, pkg/async: ambient infrastructure
//   - integration/kv: durable substrates (plain file, encrypted file, Redis)
//   - app/registry: one-call wiring of the whole stack
//
// # Error Taxonomy
//
// Every failure crossing a package boundary wraps one of four sentinels, so
// callers classify with errors.Is and nothing else:
//
//	_, err := reg.API.Get(ctx, "/functions/v1/profile", nil)
//	switch {
//	case errors.Is(err, clientkit.ErrAuthentication):
//		// session is gone; a SignedOut event has already been published
//	case errors.Is(err, clientkit.ErrNetwork):
//		// transient; safe to surface a retry affordance
//	case errors.Is(err, clientkit.ErrValidation):
//		// caller bug; fix the input
//	}
//
// ErrStorage never escapes to UI code: every storage failure inside the
// stack degrades to a fallback (the other substrate, the in-memory value, or
// the tier default).
package clientkit
