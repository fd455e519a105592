package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultPageSize is used when a caller does not request a page size.
	DefaultPageSize = 20
	// MaxPageSize bounds a single listing request.
	MaxPageSize = 100
)

// MeetingRepository captures the persistence operations needed by the meeting service.
type MeetingRepository interface {
	CreateMeeting(ctx context.Context, meeting Meeting) (Meeting, error)
	GetMeeting(ctx context.Context, id string) (Meeting, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, int, error)
}

// MeetingService validates meeting input and scopes every read and write to
// the calling principal. Meetings are insert-only.
type MeetingService struct {
	meetings    MeetingRepository
	events      *EventBroker
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService wires dependencies for the meeting service.
func NewMeetingService(meetings MeetingRepository, events *EventBroker, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(meetings, events, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger wires dependencies for the meeting service with a logger.
func NewMeetingServiceWithLogger(meetings MeetingRepository, events *EventBroker, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &MeetingService{
		meetings:    meetings,
		events:      events,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// ListMeetings returns one page of the principal's meetings, newest meeting date first.
func (s *MeetingService) ListMeetings(ctx context.Context, params ListMeetingsParams) (page MeetingPage, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	pageNumber := params.Page
	if pageNumber < 1 {
		pageNumber = 1
	}
	size := params.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	logger := s.loggerWith(ctx, "ListMeetings",
		"principal_id", params.Principal.UserID,
		"page", pageNumber,
		"page_size", size,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list meetings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(page.Meetings), "total", page.Total).DebugContext(ctx, "meetings listed")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	page = MeetingPage{Page: pageNumber, PageSize: size}
	if s.meetings == nil {
		return
	}

	page.Meetings, page.Total, err = s.meetings.ListMeetings(ctx, MeetingFilter{
		OwnerID: params.Principal.UserID,
		Offset:  (pageNumber - 1) * size,
		Limit:   size,
	})
	if err != nil {
		page = MeetingPage{}
		err = fmt.Errorf("list meetings: %w", err)
	}
	return
}

// GetMeeting retrieves one of the principal's meetings. Meetings owned by
// someone else are reported as not found.
func (s *MeetingService) GetMeeting(ctx context.Context, principal Principal, id string) (Meeting, error) {
	if s == nil {
		return Meeting{}, fmt.Errorf("MeetingService is nil")
	}

	logger := s.loggerWith(ctx, "GetMeeting", "principal_id", principal.UserID, "meeting_id", id)

	if principal.UserID == "" {
		logger.WarnContext(ctx, "meeting lookup without principal", "error_kind", ErrorKind(ErrUnauthorized))
		return Meeting{}, ErrUnauthorized
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || s.meetings == nil {
		return Meeting{}, ErrNotFound
	}

	meeting, err := s.meetings.GetMeeting(ctx, trimmed)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.ErrorContext(ctx, "failed to load meeting", "error", err, "error_kind", ErrorKind(err))
		}
		return Meeting{}, err
	}
	if meeting.OwnerID != principal.UserID {
		return Meeting{}, ErrNotFound
	}
	return meeting, nil
}

// CreateMeeting validates input and stores a new meeting owned by the principal.
func (s *MeetingService) CreateMeeting(ctx context.Context, params CreateMeetingParams) (meeting Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateMeeting", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", meeting.ID).InfoContext(ctx, "meeting created")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}

	input := normalizeMeetingInput(params.Input)
	if vErr := validateMeetingInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	meeting = Meeting{
		ID:          s.idGenerator(),
		OwnerID:     params.Principal.UserID,
		Title:       input.Title,
		MeetingDate: input.MeetingDate,
		Transcript:  input.Transcript,
		Summary:     input.Summary,
		CreatedAt:   s.now().UTC(),
	}

	if s.meetings != nil {
		meeting, err = s.meetings.CreateMeeting(ctx, meeting)
		if err != nil {
			meeting = Meeting{}
			return
		}
	}

	s.events.Publish(ctx, Event{
		Kind:      EventMeetingCreated,
		UserID:    meeting.OwnerID,
		MeetingID: meeting.ID,
		At:        meeting.CreatedAt,
	})
	return
}

func normalizeMeetingInput(input MeetingInput) MeetingInput {
	input.Title = strings.TrimSpace(input.Title)
	if !input.MeetingDate.IsZero() {
		input.MeetingDate = input.MeetingDate.UTC()
	}
	return input
}

func validateMeetingInput(input MeetingInput) *ValidationError {
	vErr := &ValidationError{}
	if input.Title == "" {
		vErr.add("title", "title is required")
	}
	if input.MeetingDate.IsZero() {
		vErr.add("meeting_date", "meeting date is required")
	}
	return vErr
}
