// Package kvstore defines the durable key-value substrate contract used for
// session persistence and local preference storage.
//
// A Substrate is one concrete storage backend: a plaintext application-scoped
// store, a platform-encrypted store, or a server-side store in web
// deployments. Substrates are intentionally minimal — string keys, string
// values, no TTL, no iteration — because every caller layers its own
// reconciliation and caching policy on top.
//
// Implementations may fail independently and silently lose data (the platform
// can wipe an encrypted store on OS upgrades, users can clear application
// data). Callers must treat every substrate operation as fallible and never
// let one substrate's error prevent another's operation from running.
//
// Usage:
//
//	store := kvstore.NewMemory()
//	if err := store.Set(ctx, "auth_session", blob); err != nil {
//		// log and fall back, never fatal
//	}
//
//	val, err := store.Get(ctx, "auth_session")
//	if errors.Is(err, kvstore.ErrNotFound) {
//		// no value persisted
//	}
//
// An absent key and an empty value are equivalent: both mean "no data".
// Implementations return ErrNotFound for both so callers have a single miss
// path.
package kvstore
