package entities

import (
	"time"
)

// Identity represents the authenticated principal for the current session.
// Tokens are opaque beyond what the backend issues; ExpiresAt is decoded
// from the access token claims when available.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

// Expired reports whether the access token is past its decoded expiry.
// Identities without a decoded expiry are never considered expired locally.
func (i *Identity) Expired(now time.Time) bool {
	if i == nil || i.ExpiresAt.IsZero() {
		return false
	}
	return now.After(i.ExpiresAt)
}

// SessionEventType classifies auth-state-change notifications
type SessionEventType string

const (
	SessionEventSignedIn       SessionEventType = "SIGNED_IN"
	SessionEventSignedOut      SessionEventType = "SIGNED_OUT"
	SessionEventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
	SessionEventUserUpdated    SessionEventType = "USER_UPDATED"
)

// SessionEvent is an auth-state-change notification. Events carry the
// identity as reported by the backend (nil on sign-out); local state is
// updated to match whatever the event says, last writer wins.
type SessionEvent struct {
	Type     SessionEventType `json:"type"`
	Identity *Identity        `json:"identity,omitempty"`
	Origin   string           `json:"origin,omitempty"`
	At       time.Time        `json:"at"`
}
