package application

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"
)

func TestMeetingService_CreateMeeting(t *testing.T) {
	t.Parallel()

	owner := Principal{UserID: "user-1"}
	now := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

	t.Run("stores meeting owned by the principal", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepositoryStub()
		broker := NewEventBroker(4, nil)
		events, cancel := broker.Subscribe(EventFilter{UserID: "user-1"})
		defer cancel()

		svc := NewMeetingService(repo, broker, sequence("meeting-1"), func() time.Time { return now })

		local := time.FixedZone("CET", 60*60)
		meeting, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{
			Principal: owner,
			Input: MeetingInput{
				Title:       "  Standup ",
				MeetingDate: time.Date(2024, 3, 1, 9, 0, 0, 0, local),
			},
		})
		if err != nil {
			t.Fatalf("CreateMeeting failed: %v", err)
		}

		if meeting.ID != "meeting-1" || meeting.OwnerID != "user-1" || meeting.Title != "Standup" {
			t.Fatalf("unexpected meeting: %#v", meeting)
		}
		if meeting.MeetingDate.Location() != time.UTC || meeting.MeetingDate.Hour() != 8 {
			t.Fatalf("expected UTC meeting date, got %v", meeting.MeetingDate)
		}
		if meeting.Transcript != nil || !meeting.CreatedAt.Equal(now) {
			t.Fatalf("unexpected transcript or creation time: %#v", meeting)
		}
		if len(repo.created) != 1 {
			t.Fatalf("expected exactly one repository write, got %d", len(repo.created))
		}

		if event := <-events; event.Kind != EventMeetingCreated || event.MeetingID != "meeting-1" {
			t.Fatalf("unexpected event: %#v", event)
		}
	})

	t.Run("rejects missing fields without writing", func(t *testing.T) {
		t.Parallel()

		repo := newMeetingRepositoryStub()
		svc := NewMeetingService(repo, nil, sequence("meeting-1"), func() time.Time { return now })

		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Principal: owner, Input: MeetingInput{Title: "   "}})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if vErr.Field("title") == "" || vErr.Field("meeting_date") == "" {
			t.Fatalf("expected title and date errors, got %#v", vErr.FieldErrors)
		}
		if len(repo.created) != 0 {
			t.Fatalf("expected no repository write")
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		t.Parallel()

		svc := NewMeetingService(newMeetingRepositoryStub(), nil, nil, nil)
		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Input: MeetingInput{Title: "x", MeetingDate: now}})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		t.Parallel()

		expected := errors.New("disk full")
		repo := newMeetingRepositoryStub()
		repo.createErr = expected
		svc := NewMeetingService(repo, nil, sequence("meeting-1"), nil)

		_, err := svc.CreateMeeting(context.Background(), CreateMeetingParams{Principal: owner, Input: MeetingInput{Title: "x", MeetingDate: now}})
		if !errors.Is(err, expected) {
			t.Fatalf("expected %v, got %v", expected, err)
		}
	})
}

func TestMeetingService_ListMeetings(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := newMeetingRepositoryStub()
	for i := 0; i < 25; i++ {
		repo.seed(Meeting{ID: string(rune('a' + i)), OwnerID: "user-1", Title: "m", MeetingDate: base.Add(time.Duration(i) * time.Hour)})
	}
	repo.seed(Meeting{ID: "foreign", OwnerID: "user-2", Title: "m", MeetingDate: base})

	svc := NewMeetingService(repo, nil, nil, nil)
	ctx := context.Background()
	owner := Principal{UserID: "user-1"}

	t.Run("defaults page and size", func(t *testing.T) {
		page, err := svc.ListMeetings(ctx, ListMeetingsParams{Principal: owner})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if page.Page != 1 || page.PageSize != DefaultPageSize || page.Total != 25 || page.TotalPages() != 2 {
			t.Fatalf("unexpected page metadata: %+v", page)
		}
		if len(page.Meetings) != DefaultPageSize || page.Meetings[0].ID != string(rune('a'+24)) {
			t.Fatalf("expected newest meeting first, got %d rows starting with %q", len(page.Meetings), page.Meetings[0].ID)
		}
	})

	t.Run("translates page to offset", func(t *testing.T) {
		page, err := svc.ListMeetings(ctx, ListMeetingsParams{Principal: owner, Page: 2, PageSize: 10})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		last := repo.filters[len(repo.filters)-1]
		if last.Offset != 10 || last.Limit != 10 || last.OwnerID != "user-1" {
			t.Fatalf("unexpected filter: %+v", last)
		}
		if len(page.Meetings) != 10 {
			t.Fatalf("expected 10 rows, got %d", len(page.Meetings))
		}
	})

	t.Run("clamps out of range values", func(t *testing.T) {
		page, err := svc.ListMeetings(ctx, ListMeetingsParams{Principal: owner, Page: -3, PageSize: 1000})
		if err != nil {
			t.Fatalf("ListMeetings failed: %v", err)
		}
		if page.Page != 1 || page.PageSize != MaxPageSize {
			t.Fatalf("expected clamped values, got page %d size %d", page.Page, page.PageSize)
		}
	})

	t.Run("requires a principal", func(t *testing.T) {
		if _, err := svc.ListMeetings(ctx, ListMeetingsParams{}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestMeetingService_GetMeeting(t *testing.T) {
	t.Parallel()

	repo := newMeetingRepositoryStub()
	repo.seed(Meeting{ID: "m-1", OwnerID: "user-1", Title: "Standup"})
	svc := NewMeetingService(repo, nil, nil, nil)
	ctx := context.Background()

	meeting, err := svc.GetMeeting(ctx, Principal{UserID: "user-1"}, " m-1 ")
	if err != nil || meeting.Title != "Standup" {
		t.Fatalf("expected meeting, got %#v / %v", meeting, err)
	}

	if _, err := svc.GetMeeting(ctx, Principal{UserID: "user-2"}, "m-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected other owners to see ErrNotFound, got %v", err)
	}
	if _, err := svc.GetMeeting(ctx, Principal{UserID: "user-1"}, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetMeeting(ctx, Principal{}, "m-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	cases := []struct{ total, size, want int }{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d, want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

// meetingRepositoryStub implements MeetingRepository in memory.
type meetingRepositoryStub struct {
	meetings  map[string]Meeting
	created   []Meeting
	filters   []MeetingFilter
	createErr error
	listErr   error
}

func newMeetingRepositoryStub() *meetingRepositoryStub {
	return &meetingRepositoryStub{meetings: make(map[string]Meeting)}
}

func (s *meetingRepositoryStub) seed(meeting Meeting) {
	s.meetings[meeting.ID] = meeting
}

func (s *meetingRepositoryStub) CreateMeeting(ctx context.Context, meeting Meeting) (Meeting, error) {
	if s.createErr != nil {
		return Meeting{}, s.createErr
	}
	if _, exists := s.meetings[meeting.ID]; exists {
		return Meeting{}, ErrAlreadyExists
	}
	s.created = append(s.created, meeting)
	s.seed(meeting)
	return meeting, nil
}

func (s *meetingRepositoryStub) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	meeting, ok := s.meetings[id]
	if !ok {
		return Meeting{}, ErrNotFound
	}
	return meeting, nil
}

func (s *meetingRepositoryStub) ListMeetings(ctx context.Context, filter MeetingFilter) ([]Meeting, int, error) {
	s.filters = append(s.filters, filter)
	if s.listErr != nil {
		return nil, 0, s.listErr
	}

	var owned []Meeting
	for _, meeting := range s.meetings {
		if meeting.OwnerID == filter.OwnerID {
			owned = append(owned, meeting)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].MeetingDate.Equal(owned[j].MeetingDate) {
			return owned[i].MeetingDate.After(owned[j].MeetingDate)
		}
		return owned[i].ID < owned[j].ID
	})

	total := len(owned)
	if filter.Offset >= total {
		return nil, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return owned[filter.Offset:end], total, nil
}
