package dashboard

import (
	"context"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
)

// Record is a meeting row as presented by the view models.
type Record = application.Meeting

// NewMeeting is the payload written by the create form. The store assigns
// the id and creation time.
type NewMeeting struct {
	Title       string
	MeetingDate time.Time
	Transcript  *string
	Summary     *string
}

// RecordStore is the typed accessor over the meetings table used by the view models.
type RecordStore interface {
	// List returns one page of records, newest meeting date first, and the
	// exact number of records available.
	List(ctx context.Context, page, pageSize int) ([]Record, int, error)
	GetByID(ctx context.Context, id string) (Record, error)
	Create(ctx context.Context, meeting NewMeeting) (Record, error)
}

// MeetingBackend is the subset of the meeting service a RecordStore needs.
type MeetingBackend interface {
	ListMeetings(ctx context.Context, params application.ListMeetingsParams) (application.MeetingPage, error)
	GetMeeting(ctx context.Context, principal application.Principal, id string) (application.Meeting, error)
	CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error)
}

// ServiceStore adapts the meeting service to RecordStore for one principal.
type ServiceStore struct {
	backend   MeetingBackend
	principal application.Principal
}

// NewRecordStore binds backend to principal. Every call is scoped to that principal.
func NewRecordStore(backend MeetingBackend, principal application.Principal) *ServiceStore {
	return &ServiceStore{backend: backend, principal: principal}
}

// List implements RecordStore.
func (s *ServiceStore) List(ctx context.Context, page, pageSize int) ([]Record, int, error) {
	result, err := s.backend.ListMeetings(ctx, application.ListMeetingsParams{
		Principal: s.principal,
		Page:      page,
		PageSize:  pageSize,
	})
	if err != nil {
		return nil, 0, err
	}
	return result.Meetings, result.Total, nil
}

// GetByID implements RecordStore.
func (s *ServiceStore) GetByID(ctx context.Context, id string) (Record, error) {
	return s.backend.GetMeeting(ctx, s.principal, id)
}

// Create implements RecordStore.
func (s *ServiceStore) Create(ctx context.Context, meeting NewMeeting) (Record, error) {
	return s.backend.CreateMeeting(ctx, application.CreateMeetingParams{
		Principal: s.principal,
		Input: application.MeetingInput{
			Title:       meeting.Title,
			MeetingDate: meeting.MeetingDate,
			Transcript:  meeting.Transcript,
			Summary:     meeting.Summary,
		},
	})
}
