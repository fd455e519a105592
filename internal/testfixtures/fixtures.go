package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/persistence"
)

var (
	userCounter    uint64
	meetingCounter uint64
)

var referenceTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime is the instant fixtures and clocks start from.
func ReferenceTime() time.Time {
	return referenceTime
}

// UserFixture is a dashboard account with a precomputed password hash.
type UserFixture struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

type UserOption func(*UserFixture)

// NewUserFixture returns a unique account. The hash is not a valid argon2id
// encoding; tests that sign in must go through AuthService.SignUp.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	fixture := UserFixture{
		ID:           fmt.Sprintf("user-%03d", idx),
		Email:        fmt.Sprintf("user-%03d@example.com", idx),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(-time.Duration(idx) * time.Hour),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// Principal returns a signed-in identity for the fixture.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{
		UserID:    f.ID,
		Email:     f.Email,
		SessionID: "session-" + f.ID,
		ExpiresAt: referenceTime.Add(24 * time.Hour),
	}
}

// Persistence returns the fixture as a users row.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// MeetingFixture is a meeting owned by one user.
type MeetingFixture struct {
	ID          string
	OwnerID     string
	Title       string
	MeetingDate time.Time
	Transcript  *string
	CreatedAt   time.Time
}

type MeetingOption func(*MeetingFixture)

// NewMeetingFixture returns a transcript-less meeting dated one day before
// ReferenceTime per fixture created, so later fixtures sort further down.
func NewMeetingFixture(ownerID string, opts ...MeetingOption) MeetingFixture {
	idx := atomic.AddUint64(&meetingCounter, 1)
	fixture := MeetingFixture{
		ID:          fmt.Sprintf("meeting-%03d", idx),
		OwnerID:     ownerID,
		Title:       fmt.Sprintf("Meeting %03d", idx),
		MeetingDate: referenceTime.Add(-time.Duration(idx) * 24 * time.Hour),
		CreatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithMeetingTitle(title string) MeetingOption {
	return func(f *MeetingFixture) { f.Title = title }
}

func WithMeetingDate(date time.Time) MeetingOption {
	return func(f *MeetingFixture) { f.MeetingDate = date }
}

// WithTranscript attaches a transcript. An empty string still reads as
// processing on the dashboard.
func WithTranscript(text string) MeetingOption {
	return func(f *MeetingFixture) { f.Transcript = &text }
}

func (f MeetingFixture) Application() application.Meeting {
	return application.Meeting{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Title:       f.Title,
		MeetingDate: f.MeetingDate,
		Transcript:  cloneString(f.Transcript),
		CreatedAt:   f.CreatedAt,
	}
}

func (f MeetingFixture) Persistence() persistence.Meeting {
	return persistence.Meeting{
		ID:          f.ID,
		OwnerID:     f.OwnerID,
		Title:       f.Title,
		MeetingDate: f.MeetingDate,
		Transcript:  cloneString(f.Transcript),
		CreatedAt:   f.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
