package dashboard

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/example/meetings-dashboard/internal/application"
)

// recordStoreStub implements RecordStore in memory. A non-nil listGate
// entry blocks List for that page until the channel is closed.
type recordStoreStub struct {
	mu         sync.Mutex
	records    []Record
	created    []NewMeeting
	listCalls  []int
	listErr    error
	createErr  error
	listGate   map[int]chan struct{}
	listSeen   chan int
	createGate chan struct{}
	nextID     int
}

func newRecordStoreStub(records ...Record) *recordStoreStub {
	return &recordStoreStub{records: records}
}

func (s *recordStoreStub) List(ctx context.Context, page, pageSize int) ([]Record, int, error) {
	s.mu.Lock()
	s.listCalls = append(s.listCalls, page)
	gate := s.listGate[page]
	seen := s.listSeen
	s.mu.Unlock()

	if seen != nil {
		seen <- page
	}
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, 0, s.listErr
	}

	sorted := make([]Record, len(s.records))
	copy(sorted, s.records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MeetingDate.After(sorted[j].MeetingDate)
	})

	start := (page - 1) * pageSize
	if start >= len(sorted) {
		return []Record{}, len(sorted), nil
	}
	end := start + pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	return sorted[start:end], len(sorted), nil
}

func (s *recordStoreStub) GetByID(ctx context.Context, id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, record := range s.records {
		if record.ID == id {
			return record, nil
		}
	}
	return Record{}, application.ErrNotFound
}

func (s *recordStoreStub) Create(ctx context.Context, meeting NewMeeting) (Record, error) {
	s.mu.Lock()
	gate := s.createGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, meeting)
	if s.createErr != nil {
		return Record{}, s.createErr
	}
	s.nextID++
	record := Record{
		ID:          fmt.Sprintf("meeting-%d", s.nextID),
		Title:       meeting.Title,
		MeetingDate: meeting.MeetingDate,
		Transcript:  meeting.Transcript,
		Summary:     meeting.Summary,
	}
	s.records = append(s.records, record)
	return record, nil
}

func (s *recordStoreStub) createdCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.created)
}

func (s *recordStoreStub) listCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listCalls)
}

// sessionBackendStub resolves tokens from a map and publishes sign-out
// events through a real broker. While a validation gate is set, the next
// ValidateSession signals entered and blocks until the gate is closed.
type sessionBackendStub struct {
	mu        sync.Mutex
	tokens    map[string]application.Principal
	revokeErr error
	validated int
	broker    *application.EventBroker

	validateGate    chan struct{}
	validateEntered chan struct{}
}

func newSessionBackendStub() *sessionBackendStub {
	return &sessionBackendStub{
		tokens: make(map[string]application.Principal),
		broker: application.NewEventBroker(8, nil),
	}
}

func (s *sessionBackendStub) grant(token string, principal application.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = principal
}

func (s *sessionBackendStub) revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// holdValidation gates the next ValidateSession call. Passing nil clears
// the gate for later calls.
func (s *sessionBackendStub) holdValidation(gate, entered chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validateGate = gate
	s.validateEntered = entered
}

func (s *sessionBackendStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	s.mu.Lock()
	gate, entered := s.validateGate, s.validateEntered
	s.validateGate, s.validateEntered = nil, nil
	s.mu.Unlock()
	if gate != nil {
		close(entered)
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.validated++
	principal, ok := s.tokens[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

func (s *sessionBackendStub) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	if s.revokeErr != nil {
		s.mu.Unlock()
		return s.revokeErr
	}
	principal, ok := s.tokens[token]
	delete(s.tokens, token)
	s.mu.Unlock()

	if ok {
		s.broker.Publish(ctx, application.Event{
			Kind:      application.EventSignedOut,
			UserID:    principal.UserID,
			SessionID: principal.SessionID,
		})
	}
	return nil
}

func (s *sessionBackendStub) Subscribe(filter application.EventFilter) (<-chan application.Event, func()) {
	return s.broker.Subscribe(filter)
}

// meetingBackendStub records the principal each call was scoped to.
type meetingBackendStub struct {
	mu         sync.Mutex
	principals []application.Principal
	meetings   []application.Meeting
}

func (s *meetingBackendStub) record(principal application.Principal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.principals = append(s.principals, principal)
}

func (s *meetingBackendStub) ListMeetings(ctx context.Context, params application.ListMeetingsParams) (application.MeetingPage, error) {
	s.record(params.Principal)
	s.mu.Lock()
	defer s.mu.Unlock()
	return application.MeetingPage{
		Meetings: append([]application.Meeting(nil), s.meetings...),
		Page:     params.Page,
		PageSize: params.PageSize,
		Total:    len(s.meetings),
	}, nil
}

func (s *meetingBackendStub) GetMeeting(ctx context.Context, principal application.Principal, id string) (application.Meeting, error) {
	s.record(principal)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meeting := range s.meetings {
		if meeting.ID == id {
			return meeting, nil
		}
	}
	return application.Meeting{}, application.ErrNotFound
}

func (s *meetingBackendStub) CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error) {
	s.record(params.Principal)
	meeting := application.Meeting{
		ID:          "created",
		OwnerID:     params.Principal.UserID,
		Title:       params.Input.Title,
		MeetingDate: params.Input.MeetingDate,
		Transcript:  params.Input.Transcript,
	}
	s.mu.Lock()
	s.meetings = append(s.meetings, meeting)
	s.mu.Unlock()
	return meeting, nil
}
