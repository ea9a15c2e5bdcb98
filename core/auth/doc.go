// Package auth talks to the GoTrue-style auth backend: sign-up, password and
// anonymous sign-in, sign-out, and token refresh.
//
// It deliberately does not go through the authenticated request pipeline —
// the pipeline depends on the session monitor, and the monitor depends on
// this package's Refresh. Auth calls authenticate with the shared anon key
// and carry their own timeout.
//
// Successful flows install the resulting session in the session manager and
// announce themselves on the event bus (SignedIn, SignedOut,
// SessionRefreshed), so the app shell reacts to identity changes from one
// place.
package auth
