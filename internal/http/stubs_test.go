package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/dashboard"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// sessionBackendStub resolves tokens from a map.
type sessionBackendStub struct {
	mu        sync.Mutex
	tokens    map[string]application.Principal
	revokeErr error
	broker    *application.EventBroker
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

func (s *sessionBackendStub) ValidateSession(ctx context.Context, token string) (application.Principal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	principal, ok := s.tokens[token]
	if !ok {
		return application.Principal{}, application.ErrUnauthorized
	}
	return principal, nil
}

func (s *sessionBackendStub) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revokeErr != nil {
		return s.revokeErr
	}
	delete(s.tokens, token)
	return nil
}

func (s *sessionBackendStub) Subscribe(filter application.EventFilter) (<-chan application.Event, func()) {
	return s.broker.Subscribe(filter)
}

// meetingServiceStub is an owner-scoped in-memory meeting table.
type meetingServiceStub struct {
	mu       sync.Mutex
	meetings []application.Meeting
	creates  int
}

func (s *meetingServiceStub) seed(meetings ...application.Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings = append(s.meetings, meetings...)
}

func (s *meetingServiceStub) createCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creates
}

func (s *meetingServiceStub) ListMeetings(ctx context.Context, params application.ListMeetingsParams) (application.MeetingPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page, size := params.Page, params.PageSize
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = application.DefaultPageSize
	}

	var owned []application.Meeting
	for _, meeting := range s.meetings {
		if meeting.OwnerID == params.Principal.UserID {
			owned = append(owned, meeting)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].MeetingDate.After(owned[j].MeetingDate)
	})

	result := application.MeetingPage{Page: page, PageSize: size, Total: len(owned)}
	start := (page - 1) * size
	if start < len(owned) {
		end := min(start+size, len(owned))
		result.Meetings = owned[start:end]
	}
	return result, nil
}

func (s *meetingServiceStub) GetMeeting(ctx context.Context, principal application.Principal, id string) (application.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, meeting := range s.meetings {
		if meeting.ID == id && meeting.OwnerID == principal.UserID {
			return meeting, nil
		}
	}
	return application.Meeting{}, application.ErrNotFound
}

func (s *meetingServiceStub) CreateMeeting(ctx context.Context, params application.CreateMeetingParams) (application.Meeting, error) {
	if strings.TrimSpace(params.Input.Title) == "" || params.Input.MeetingDate.IsZero() {
		return application.Meeting{}, application.NewValidationError(map[string]string{"title": "title is required"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	meeting := application.Meeting{
		ID:          fmt.Sprintf("created-%d", s.creates),
		OwnerID:     params.Principal.UserID,
		Title:       strings.TrimSpace(params.Input.Title),
		MeetingDate: params.Input.MeetingDate.UTC(),
		Transcript:  params.Input.Transcript,
		CreatedAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	s.meetings = append(s.meetings, meeting)
	return meeting, nil
}

// authServiceStub signs users in against a password map and grants tokens
// through the session backend.
type authServiceStub struct {
	mu        sync.Mutex
	sessions  *sessionBackendStub
	passwords map[string]string
	signIns   int
}

func (s *authServiceStub) SignUp(ctx context.Context, params application.SignUpParams) (application.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(params.Password) < application.MinPasswordLength {
		return application.User{}, application.NewValidationError(map[string]string{"password": "password must be at least 8 characters"})
	}
	if _, exists := s.passwords[params.Email]; exists {
		return application.User{}, application.ErrAlreadyExists
	}
	s.passwords[params.Email] = params.Password
	return application.User{ID: "user-" + params.Email, Email: params.Email}, nil
}

func (s *authServiceStub) Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if password, ok := s.passwords[params.Email]; !ok || password != params.Password {
		return application.AuthenticateResult{}, application.ErrInvalidCredentials
	}
	s.signIns++
	token := fmt.Sprintf("token-%d", s.signIns)
	user := application.User{ID: "user-" + params.Email, Email: params.Email}
	s.sessions.grant(token, application.Principal{UserID: user.ID, Email: user.Email, SessionID: "session-" + token})
	return application.AuthenticateResult{
		User:    user,
		Session: application.Session{ID: "session-" + token, UserID: user.ID, Token: token, ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
	}, nil
}

func (s *authServiceStub) RefreshSession(ctx context.Context, params application.RefreshSessionParams) (application.RefreshSessionResult, error) {
	principal, err := s.sessions.ValidateSession(ctx, params.Token)
	if err != nil {
		return application.RefreshSessionResult{}, application.ErrSessionRevoked
	}
	next := params.Token + "-rotated"
	s.sessions.grant(next, principal)
	_ = s.sessions.RevokeSession(ctx, params.Token)
	return application.RefreshSessionResult{
		Session:       application.Session{ID: principal.SessionID, UserID: principal.UserID, Token: next, ExpiresAt: time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)},
		PreviousToken: params.Token,
	}, nil
}

func (s *authServiceStub) UpdatePassword(ctx context.Context, params application.UpdatePasswordParams) (application.User, error) {
	if len(params.Password) < application.MinPasswordLength {
		return application.User{}, application.NewValidationError(map[string]string{"password": "password must be at least 8 characters"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[params.Principal.Email] = params.Password
	return application.User{ID: params.Principal.UserID, Email: params.Principal.Email}, nil
}

type testServer struct {
	handler  http.Handler
	registry *dashboard.Registry
	sessions *sessionBackendStub
	meetings *meetingServiceStub
	auth     *authServiceStub
}

var alice = application.Principal{UserID: "user-1", Email: "alice@example.com", SessionID: "session-1"}

func newTestServer(t *testing.T, enforce bool) *testServer {
	t.Helper()

	sessions := newSessionBackendStub()
	meetings := &meetingServiceStub{}
	auth := &authServiceStub{sessions: sessions, passwords: map[string]string{"alice@example.com": "correct horse"}}

	registry, err := dashboard.NewRegistry(dashboard.RegistryConfig{
		Sessions: sessions,
		Meetings: meetings,
		PageSize: 2,
		Location: time.UTC,
		Size:     8,
		Logger:   testLogger,
	})
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(registry.Close)

	handler := NewRouter(RouterConfig{
		Auth:      NewAuthHandler(auth, registry, AuthOptions{Location: time.UTC}, testLogger),
		Dashboard: NewDashboardHandler(time.UTC, testLogger),
		Meetings:  NewMeetingAPIHandler(meetings, testLogger),
		Events:    NewEventsHandler(sessions.broker, true, testLogger),
		Health:    HealthHandler(nil),
		Static:    StaticHandler(),
		Middleware: []func(http.Handler) http.Handler{
			RequestLogger(testLogger),
			SessionGuard(registry, GuardPolicy{Enforce: enforce}, testLogger),
		},
	})

	return &testServer{handler: handler, registry: registry, sessions: sessions, meetings: meetings, auth: auth}
}

func (s *testServer) do(t *testing.T, method, target, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, req)
	return recorder
}

func stringPtr(value string) *string {
	return &value
}
