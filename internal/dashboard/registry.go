package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/example/meetings-dashboard/internal/application"
)

// DefaultRegistrySize bounds the number of live workspaces when no size is configured.
const DefaultRegistrySize = 256

// Workspace bundles the view models of one signed-in browser session.
type Workspace struct {
	Session *SessionProvider
	List    *ListViewModel
	Detail  *DetailViewModel
	Form    *CreateForm

	formVisible atomic.Bool
}

// Principal returns the identity the workspace currently represents.
func (w *Workspace) Principal() (application.Principal, bool) {
	return w.Session.Identity()
}

// ShowForm opens the create modal.
func (w *Workspace) ShowForm() { w.formVisible.Store(true) }

// HideForm closes the create modal.
func (w *Workspace) HideForm() { w.formVisible.Store(false) }

// FormVisible reports whether the create modal is open.
func (w *Workspace) FormVisible() bool { return w.formVisible.Load() }

// Close releases the workspace's event subscription.
func (w *Workspace) Close() {
	w.Session.Close()
}

// RegistryConfig wires the backends shared by every workspace.
type RegistryConfig struct {
	Sessions SessionBackend
	Meetings MeetingBackend
	PageSize int
	Location *time.Location
	Size     int
	Logger   *slog.Logger
}

// Registry keeps the workspaces of recently active sessions keyed by session
// token. The least recently used workspace is closed when the cache is full.
type Registry struct {
	sessions SessionBackend
	meetings MeetingBackend
	pageSize int
	location *time.Location
	logger   *slog.Logger

	mu    sync.Mutex
	cache *lru.Cache[string, *Workspace]
}

// NewRegistry builds a registry from cfg.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Sessions == nil || cfg.Meetings == nil {
		return nil, fmt.Errorf("dashboard: registry requires session and meeting backends")
	}
	size := cfg.Size
	if size <= 0 {
		size = DefaultRegistrySize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Registry{
		sessions: cfg.Sessions,
		meetings: cfg.Meetings,
		pageSize: cfg.PageSize,
		location: cfg.Location,
		logger:   logger,
	}
	cache, err := lru.NewWithEvict(size, r.evicted)
	if err != nil {
		return nil, fmt.Errorf("dashboard: create workspace cache: %w", err)
	}
	r.cache = cache
	return r, nil
}

// evicted closes a workspace leaving the cache unless it was only re-keyed
// after a token rotation.
func (r *Registry) evicted(token string, ws *Workspace) {
	if ws.Session.Token() != token {
		return
	}
	ws.Close()
}

// Open returns the workspace for token, creating it on first use, together
// with the identity this call resolved. The session is resolved again on
// every call so revoked or expired sessions are dropped. Callers should use
// the returned principal rather than reading the workspace afterwards, since
// an overlapping Open on the same workspace may be mid-resolution. It reports
// false when the token does not resolve to an identity.
func (r *Registry) Open(ctx context.Context, token string) (*Workspace, application.Principal, bool) {
	if token == "" {
		return nil, application.Principal{}, false
	}

	if ws, ok := r.Get(token); ok {
		principal, ok := ws.Session.Resolve(ctx)
		if !ok {
			r.Remove(token)
			return nil, application.Principal{}, false
		}
		return ws, principal, true
	}

	provider := NewSessionProvider(r.sessions, token, r.logger)
	principal, ok := provider.Resolve(ctx)
	if !ok {
		provider.Close()
		return nil, application.Principal{}, false
	}
	ws := r.newWorkspace(provider, principal)

	r.mu.Lock()
	if existing, found := r.cache.Get(token); found {
		r.mu.Unlock()
		ws.Close()
		return existing, principal, true
	}
	r.cache.Add(token, ws)
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "workspace opened", "user_id", principal.UserID, "session_id", principal.SessionID)
	return ws, principal, true
}

func (r *Registry) newWorkspace(provider *SessionProvider, principal application.Principal) *Workspace {
	store := NewRecordStore(r.meetings, principal)
	ws := &Workspace{
		Session: provider,
		List:    NewListViewModel(store, r.pageSize, r.logger),
		Detail:  NewDetailViewModel(),
		Form:    NewCreateForm(store, r.location, r.logger),
	}
	ws.Form.OnAdded(ws.List.Refresh)
	ws.Form.OnDone(ws.HideForm)
	return ws
}

// Get returns the cached workspace for token without resolving it.
func (r *Registry) Get(token string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Get(token)
}

// Remove drops and closes the workspace for token.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Remove(token)
}

// Rotate re-keys the workspace of previous under next after the session
// token was refreshed. The workspace stays open.
func (r *Registry) Rotate(previous, next string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.cache.Peek(previous)
	if !ok {
		return false
	}
	ws.Session.SetToken(next)
	r.cache.Remove(previous)
	r.cache.Add(next, ws)
	return true
}

// Len returns the number of live workspaces.
func (r *Registry) Len() int {
	return r.cache.Len()
}

// Close closes every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
