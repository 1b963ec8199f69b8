package model

import "time"

// Session is a bearer credential established by magic-link verification.
// At most one live session exists per email; a new login replaces the old
// session in a single upsert.
type Session struct {
	ID        int64     `json:"-"`
	Token     string    `json:"session_token"`
	Email     string    `json:"email"`
	DeviceID  *string   `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// MagicLink is a single-use login token emailed to a subscriber.
type MagicLink struct {
	ID        int64
	Token     string
	Email     string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}
