package clientkit

import "errors"

// Error taxonomy shared across the client core. Component packages wrap these
// sentinels so callers can classify failures with errors.Is without depending
// on component internals.
var (
	// ErrStorage marks a durable-substrate failure. Always recovered
	// internally with a fallback path; it must never reach UI code.
	ErrStorage = errors.New("storage failure")

	// ErrAuthentication marks an unrecoverable auth failure: token refresh
	// failed or the retried request was rejected again. Triggers the
	// forced-logout escalation.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNetwork marks a timeout, connectivity loss, or non-auth HTTP
	// failure. Never retried automatically.
	ErrNetwork = errors.New("network failure")

	// ErrValidation marks malformed input rejected before any I/O, such as
	// an unrecognized plan code passed to a preference setter.
	ErrValidation = errors.New("validation failed")
)
