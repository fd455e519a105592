package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/meetings-dashboard/internal/application"
)

// SessionBackend is the authentication service as seen by a SessionProvider.
type SessionBackend interface {
	ValidateSession(ctx context.Context, token string) (application.Principal, error)
	RevokeSession(ctx context.Context, token string) error
	Subscribe(filter application.EventFilter) (<-chan application.Event, func())
}

// SessionProvider tracks the authentication state of one browser session.
// The identity is written only by the provider itself in response to backend
// results and events.
type SessionProvider struct {
	backend SessionBackend
	logger  *slog.Logger

	mu        sync.RWMutex
	token     string
	identity  *application.Principal
	resolving bool
	cancel    func()
	closed    bool
}

// NewSessionProvider returns a provider for token that starts out
// unauthenticated and resolving.
func NewSessionProvider(backend SessionBackend, token string, logger *slog.Logger) *SessionProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionProvider{
		backend:   backend,
		logger:    logger.With("component", "SessionProvider"),
		token:     token,
		resolving: true,
	}
}

// Resolve asks the backend for the identity behind the current token. The
// previous identity is cleared before the backend is contacted so no caller
// can observe a stale identity while resolution is in flight. Any backend
// error leaves the session unauthenticated.
func (p *SessionProvider) Resolve(ctx context.Context) (application.Principal, bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return application.Principal{}, false
	}
	p.identity = nil
	p.resolving = true
	token := p.token
	p.mu.Unlock()

	principal, err := p.backend.ValidateSession(ctx, token)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolving = false
	if err != nil || p.closed || p.token != token {
		if err != nil {
			p.logger.DebugContext(ctx, "session unresolved", "error", err, "error_kind", application.ErrorKind(err))
		}
		return application.Principal{}, false
	}

	p.identity = &principal
	if p.cancel == nil {
		events, cancel := p.backend.Subscribe(application.EventFilter{
			UserID: principal.UserID,
			Kinds: []application.EventKind{
				application.EventSignedOut,
				application.EventTokenRefreshed,
				application.EventUserUpdated,
			},
		})
		p.cancel = cancel
		go p.watch(events)
	}
	return principal, true
}

// Identity returns the current identity, if any.
func (p *SessionProvider) Identity() (application.Principal, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.identity == nil {
		return application.Principal{}, false
	}
	return *p.identity, true
}

// Resolving reports whether the provider is waiting for the backend.
func (p *SessionProvider) Resolving() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.resolving
}

// Token returns the session token the provider currently represents.
func (p *SessionProvider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// SetToken records a rotated token for the same session.
func (p *SessionProvider) SetToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
}

// SignOut revokes the session. On failure the identity is left untouched and
// the error is returned for display. Navigation is left to the caller.
func (p *SessionProvider) SignOut(ctx context.Context) error {
	token := p.Token()
	if err := p.backend.RevokeSession(ctx, token); err != nil {
		p.logger.WarnContext(ctx, "sign-out failed", "error", err, "error_kind", application.ErrorKind(err))
		return err
	}

	p.mu.Lock()
	p.identity = nil
	p.mu.Unlock()
	return nil
}

// Apply updates the provider in response to a backend auth event. Events
// for other sessions of the same user are ignored, except user updates
// which affect every session.
func (p *SessionProvider) Apply(ctx context.Context, event application.Event) {
	p.mu.Lock()
	if p.identity == nil {
		p.mu.Unlock()
		return
	}
	sameSession := event.SessionID == "" || event.SessionID == p.identity.SessionID

	switch event.Kind {
	case application.EventSignedOut:
		if sameSession {
			p.identity = nil
		}
		p.mu.Unlock()
	case application.EventTokenRefreshed:
		if sameSession && !event.ExpiresAt.IsZero() {
			updated := *p.identity
			updated.ExpiresAt = event.ExpiresAt
			p.identity = &updated
		}
		p.mu.Unlock()
	case application.EventUserUpdated:
		p.mu.Unlock()
		p.Resolve(ctx)
	default:
		p.mu.Unlock()
	}
}

func (p *SessionProvider) watch(events <-chan application.Event) {
	for event := range events {
		p.Apply(context.Background(), event)
	}
}

// Close stops listening for auth events. The provider stays unauthenticated afterwards.
func (p *SessionProvider) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.closed = true
	p.identity = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
