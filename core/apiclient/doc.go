// Package apiclient is the authenticated request pipeline: every outbound
// backend call goes through it.
//
// For each request the pipeline ensures token freshness through the session
// monitor, attaches credentials (bearer token for authenticated sessions, the
// shared anon key plus a persisted per-install x-session-id for anonymous
// ones), applies the request timeout, and classifies failures.
//
// On a 401 the pipeline forces one token refresh and retries the request
// exactly once. If the retry is rejected again, the refresh fails, or no
// session exists, it escalates: the session is cleared, a single SignedOut
// event is published for the app shell, and the caller receives an error
// wrapping clientkit.ErrAuthentication. Non-401 failures (timeouts,
// connectivity, 5xx) are never retried and wrap clientkit.ErrNetwork.
//
// Backend error bodies arrive in two shapes, {"error":{"message","code"}}
// and {"message","code"} at the top level; both are decoded defensively into
// the same APIError.
package apiclient
