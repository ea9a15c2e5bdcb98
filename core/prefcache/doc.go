// Package prefcache implements the tiered resolution strategy shared by
// every preference service: selected language, study-mode default, plan,
// maintenance-mode config, profile fields.
//
// A Tier resolves a value through four levels, stopping at the first hit:
//
//  1. in-memory cache, when the entry is fresh and belongs to the active
//     subject
//  2. remote fetch, for authenticated subjects on tiers that have one
//  3. local durable store
//  4. the last known-good in-memory value, even when stale
//
// Only when every level comes up empty does Get return the tier's hardcoded
// default, and that default is never cached — a later successful resolution
// must not find a stale negative in its way. The same monotonicity rule
// protects known-good values: a failed remote fetch can never downgrade a
// value that previously resolved from remote or local.
//
// Freshness is the closed-open interval [fetchedAt, fetchedAt+window). The
// window is fixed per tier: minutes for volatile data (plan, system config),
// weeks for reference data that changes at most on reinstall.
//
// Set is write-through: memory and the local store are updated immediately
// and the caller's value is honored from then on; the remote push is awaited
// and only its confirmation flips the tier's completion flag, which routing
// logic consults. A failed push surfaces its error while the local value
// stands.
//
//	langTier := prefcache.New[string]("language", store, "selected_language",
//		30*24*time.Hour, "en",
//		prefcache.WithRemote(fetchLang, pushLang),
//	)
//
//	lang, src, _ := langTier.Get(ctx, userID)
package prefcache
