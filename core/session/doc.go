// Package session holds the in-memory auth session and decides when its
// access token must be refreshed.
//
// A Session is either authenticated (access token, refresh token, absolute
// expiry, user id) or anonymous (no token at all). The Manager owns the one
// current Session per process: it restores it from the dual-substrate store
// at startup, persists every mutation through it, and clears it on sign-out.
//
// The Monitor implements the refresh decision as a small state machine
// evaluated per request:
//
//	Valid       token expires beyond the lookahead window, proceed
//	NearExpiry  expiry inside the window (or past), refresh now
//	Refreshing  remote refresh in flight
//	Failed      refresh errored or returned an already-expired token
//	Anonymous   session has no access token, refresh never applies
//
// The Monitor performs at most one refresh attempt per call; retry policy
// belongs to the request pipeline. Concurrent callers needing a refresh at
// the same moment are collapsed into a single remote call.
package session
