package event

import (
	"time"

	"github.com/google/uuid"
)

// Event names published on the bus.
const (
	// SignedIn is published after a successful sign-in, sign-up, or
	// anonymous bootstrap.
	SignedIn = "SignedIn"

	// SignedOut is published exactly once per forced-logout escalation or
	// explicit sign-out.
	SignedOut = "SignedOut"

	// SessionRefreshed is published after a successful token refresh.
	SessionRefreshed = "SessionRefreshed"
)

// Event represents one auth lifecycle notification.
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason,omitempty"` // e.g. "refresh_failed", "user_initiated"
	CreatedAt time.Time `json:"created_at"`
}

// New creates an Event with a generated ID and timestamp.
func New(name, reason string) Event {
	return Event{
		ID:        uuid.New().String(),
		Name:      name,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
}
