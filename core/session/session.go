package session

import (
	"encoding/json"
	"errors"
	"time"
)

// Session represents one authenticated or anonymous identity.
// At most one Session is current per process; the Manager owns it.
type Session struct {
	// AccessToken is the bearer credential for authenticated requests.
	// Empty for anonymous sessions. Treat as a secret: never logged.
	AccessToken string `json:"access_token,omitempty"`

	// RefreshToken is the credential presented to the refresh endpoint.
	RefreshToken string `json:"refresh_token,omitempty"`

	// UserID identifies the authenticated user, empty for anonymous.
	UserID string `json:"user_id,omitempty"`

	// ExpiresAt is the absolute UTC instant the access token expires.
	ExpiresAt time.Time `json:"expires_at,omitzero"`

	// IsAnonymous marks a session created without credentials.
	IsAnonymous bool `json:"is_anonymous,omitempty"`
}

// NewAnonymous creates a session with no access token. Anonymous sessions
// never expire and never refresh; their identity is the per-install
// x-session-id carried by the request pipeline.
func NewAnonymous() Session {
	return Session{IsAnonymous: true}
}

// IsAuthenticated reports whether the session carries a live access token.
func (s Session) IsAuthenticated() bool {
	return s.AccessToken != "" && !s.IsAnonymous
}

// ExpiresWithin reports whether the access token expires within the window
// measured from now, or has already expired.
func (s Session) ExpiresWithin(window time.Duration, now time.Time) bool {
	return !s.ExpiresAt.After(now.Add(window))
}

// Encode serializes the session to its persisted blob form.
func (s Session) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode deserializes a persisted session blob. An empty blob is not a
// session; it yields ErrDecodeSession.
func Decode(blob string) (Session, error) {
	if blob == "" {
		return Session{}, ErrDecodeSession
	}

	var s Session
	if err := json.Unmarshal([]byte(blob), &s); err != nil {
		return Session{}, errors.Join(ErrDecodeSession, err)
	}
	return s, nil
}
