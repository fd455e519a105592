package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

// CredentialStore exposes the account operations required by the auth service.
type CredentialStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) (User, error)
	GetUserCredentialsByEmail(ctx context.Context, email string) (UserCredentials, error)
	GetUser(ctx context.Context, id string) (User, error)
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) (User, error)
}

// SessionRepository captures the persistence interactions for issued sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, token string) (Session, error)
	UpdateSession(ctx context.Context, session Session) (Session, error)
	RevokeSession(ctx context.Context, token string, revokedAt time.Time) (Session, error)
	DeleteExpiredSessions(ctx context.Context, reference time.Time) error
}

// AuthService coordinates account registration, sign-in, sign-out, and
// session refresh, and publishes the resulting auth events.
type AuthService struct {
	credentials    CredentialStore
	sessions       SessionRepository
	events         *EventBroker
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	limiter        *signInLimiter
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(credentials CredentialStore, sessions SessionRepository, events *EventBroker, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(credentials, sessions, events, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(credentials CredentialStore, sessions SessionRepository, events *EventBroker, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	logger = defaultLogger(logger)
	if events == nil {
		events = NewEventBroker(0, logger)
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		credentials:    credentials,
		sessions:       sessions,
		events:         events,
		hashPassword:   NewArgon2idHasher(DefaultArgon2idParams),
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         logger,
	}
}

// WithPasswordHashing replaces the argon2id defaults. Nil arguments keep the current function.
func (s *AuthService) WithPasswordHashing(hash PasswordHasher, verify PasswordVerifier) *AuthService {
	if hash != nil {
		s.hashPassword = hash
	}
	if verify != nil {
		s.verifyPassword = verify
	}
	return s
}

// WithSignInLimit throttles Authenticate to perMinute attempts per email.
// A non-positive value disables throttling.
func (s *AuthService) WithSignInLimit(perMinute int) *AuthService {
	if perMinute <= 0 {
		s.limiter = nil
		return s
	}
	s.limiter = newSignInLimiter(perMinute, 4096)
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Subscribe streams auth and meeting events that match filter.
func (s *AuthService) Subscribe(filter EventFilter) (<-chan Event, func()) {
	return s.events.Subscribe(filter)
}

// SignUp registers a new account.
func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "SignUp", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-up failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "account created")
	}()

	vErr := validateEmail(email)
	vErr.merge(validatePassword(params.Password))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.credentials.CreateUser(ctx, User{
		ID:        s.idGenerator(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}, hash)
	return
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.User.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	if s.limiter != nil && !s.limiter.allow(email, now) {
		err = ErrRateLimited
		return
	}

	var creds UserCredentials
	creds, err = s.credentials.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(creds.PasswordHash, params.Password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	id := s.idGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	session := Session{
		ID:        id,
		UserID:    creds.User.ID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	if s.sessions != nil {
		if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
			return
		}
		session, err = s.sessions.CreateSession(ctx, session)
		if err != nil {
			return
		}
	}

	s.events.Publish(ctx, Event{
		Kind:      EventSignedIn,
		UserID:    session.UserID,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		At:        now,
	})

	result = AuthenticateResult{User: creds.User, Session: session}
	return
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession", "token_provided", token != "")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"user_id", result.Session.UserID,
		).InfoContext(ctx, "session refreshed")
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.activeSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	now := s.now()
	newToken := s.tokenGenerator()
	if newToken == "" {
		newToken = session.Token
	}

	session.Token = newToken
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		return
	}

	s.events.Publish(ctx, Event{
		Kind:      EventTokenRefreshed,
		UserID:    session.UserID,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
		At:        now,
	})

	result = RefreshSessionResult{Session: session, PreviousToken: token}
	return
}

// RevokeSession signs a session out.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", true)
	now := s.now()

	revoked, err := s.sessions.RevokeSession(ctx, trimmed, now)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	s.events.Publish(ctx, Event{
		Kind:      EventSignedOut,
		UserID:    revoked.UserID,
		SessionID: revoked.ID,
		At:        now,
	})
	logger.With("session_id", revoked.ID, "user_id", revoked.UserID).InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active session and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	var session Session
	session, err = s.activeSession(ctx, trimmed)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	var user User
	user, err = s.credentials.GetUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}

	principal = Principal{
		UserID:    user.ID,
		Email:     user.Email,
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}
	return
}

// UpdatePassword replaces the caller's password.
func (s *AuthService) UpdatePassword(ctx context.Context, params UpdatePasswordParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.credentials == nil {
		err = fmt.Errorf("credential store not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdatePassword", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password update failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password updated")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthorized
		return
	}
	if vErr := validatePassword(params.Password); vErr.HasErrors() {
		err = vErr
		return
	}

	var hash string
	hash, err = s.hashPassword(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	user, err = s.credentials.UpdatePasswordHash(ctx, params.Principal.UserID, hash, now)
	if err != nil {
		return
	}

	s.events.Publish(ctx, Event{
		Kind:      EventUserUpdated,
		UserID:    user.ID,
		SessionID: params.Principal.SessionID,
		At:        now,
	})
	return
}

// activeSession loads the session for token and rejects revoked or expired ones.
func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return Session{}, err
	}

	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(s.now()) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) *ValidationError {
	vErr := &ValidationError{}
	if email == "" {
		vErr.add("email", "email is required")
		return vErr
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		vErr.add("email", "email must be a valid address")
	}
	return vErr
}

// signInLimiter keeps one token bucket per email in a bounded cache so a
// flood of distinct addresses cannot grow memory without limit.
type signInLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters *lru.Cache[string, *rate.Limiter]
}

func newSignInLimiter(perMinute, size int) *signInLimiter {
	cache, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		// Only reachable with a non-positive size.
		panic(err)
	}
	return &signInLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: cache,
	}
}

func (l *signInLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters.Add(key, limiter)
	}
	return limiter.AllowN(now, 1)
}
