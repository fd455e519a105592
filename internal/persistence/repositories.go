package persistence

import (
	"context"
	"time"
)

// UserRepository stores dashboard accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	UpdateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SessionRepository stores authentication session state.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// MeetingFilter narrows meeting listings to one owner and one window of rows.
type MeetingFilter struct {
	OwnerID string
	Offset  int
	Limit   int
}

// MeetingRepository stores meeting records. Records are insert-only.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) (Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	// ListMeetings returns rows ordered by meeting date descending together
	// with the exact number of rows matching the filter's owner.
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, int, error)
}
