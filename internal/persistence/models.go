package persistence

import "time"

// User represents an account that can sign in to the dashboard.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an authentication session persisted for a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// Meeting represents a row of the meetings table.
type Meeting struct {
	ID          string
	OwnerID     string
	Title       string
	MeetingDate time.Time
	Transcript  *string
	Summary     *string
	CreatedAt   time.Time
}
