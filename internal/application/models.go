package application

import "time"

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID    string
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// User represents a dashboard account exposed by the application services.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserCredentials models the authentication attributes persisted for a user.
type UserCredentials struct {
	User         User
	PasswordHash string
}

// Session represents an authenticated session issued to a user.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}

// SignUpParams captures the data required to register an account.
type SignUpParams struct {
	Email    string
	Password string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful authentication attempt.
type AuthenticateResult struct {
	User    User
	Session Session
}

// RefreshSessionParams captures the data required to refresh an existing session.
type RefreshSessionParams struct {
	Token string
}

// RefreshSessionResult captures the outcome of rotating a session token.
type RefreshSessionResult struct {
	Session       Session
	PreviousToken string
}

// UpdatePasswordParams wraps the data required to change the caller's password.
type UpdatePasswordParams struct {
	Principal Principal
	Password  string
}

// Meeting represents a stored meeting record. Transcript stays nil until the
// external transcription pipeline fills it in.
type Meeting struct {
	ID          string
	OwnerID     string
	Title       string
	MeetingDate time.Time
	Transcript  *string
	Summary     *string
	CreatedAt   time.Time
}

// HasTranscript reports whether a transcript is available for display. An
// empty transcript counts as still processing.
func (m Meeting) HasTranscript() bool {
	return m.Transcript != nil && *m.Transcript != ""
}

// MeetingInput captures caller provided meeting fields.
type MeetingInput struct {
	Title       string
	MeetingDate time.Time
	Transcript  *string
	Summary     *string
}

// CreateMeetingParams wraps the data required to create a meeting.
type CreateMeetingParams struct {
	Principal Principal
	Input     MeetingInput
}

// ListMeetingsParams wraps the data required to list one page of meetings.
type ListMeetingsParams struct {
	Principal Principal
	Page      int
	PageSize  int
}

// MeetingFilter narrows repository listings to one owner and one window.
type MeetingFilter struct {
	OwnerID string
	Offset  int
	Limit   int
}

// MeetingPage is one bounded window of meetings plus the exact total.
type MeetingPage struct {
	Meetings []Meeting
	Page     int
	PageSize int
	Total    int
}

// TotalPages returns the number of pages needed to show Total rows.
func (p MeetingPage) TotalPages() int {
	return TotalPages(p.Total, p.PageSize)
}

// TotalPages returns ceil(total/pageSize), or zero when either value is not positive.
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
