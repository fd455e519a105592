package http

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/dashboard"
)

const (
	signInPath    = "/auth/sign-in"
	dashboardPath = "/dashboard"
)

// WorkspaceOpener resolves a session token to the caller's workspace.
type WorkspaceOpener interface {
	Open(ctx context.Context, token string) (*dashboard.Workspace, application.Principal, bool)
}

// GuardPolicy controls how the session guard treats unauthenticated and
// authenticated requests.
type GuardPolicy struct {
	// Enforce turns the redirects on. When false the guard only attaches the
	// workspace and handlers answer for missing sessions themselves.
	Enforce bool
}

// SessionGuard resolves the session token of every request into a
// workspace and applies the route policy:
//   - /healthz and /static/ pass through untouched
//   - signed-out requests outside /auth/ are redirected to the sign-in page,
//     or answered with 401 JSON for /api/ and /events
//   - signed-in requests to /auth/ pages are redirected to the dashboard
func SessionGuard(opener WorkspaceOpener, policy GuardPolicy, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if isExemptPath(path) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token := extractTokenFromRequest(r)
			var (
				ws            *dashboard.Workspace
				principal     application.Principal
				authenticated bool
			)
			if token != "" {
				ws, principal, authenticated = opener.Open(ctx, token)
			}
			if authenticated {
				ctx = ContextWithWorkspace(ctx, token, ws)
				ctx = ContextWithPrincipal(ctx, principal)
				r = r.WithContext(ctx)
			}

			if !policy.Enforce {
				next.ServeHTTP(w, r)
				return
			}

			switch {
			case isAuthPath(path):
				if authenticated && r.Method == http.MethodGet {
					http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
					return
				}
			case !authenticated && isAPIPath(path):
				handlerLogger(ctx, responder.logger, "SessionGuard", "Authorize", "path", path).
					WarnContext(ctx, "rejected unauthenticated request", "error_kind", "unauthorized")
				responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_REQUIRED",
					Message:   statusMessage(http.StatusUnauthorized),
				})
				return
			case !authenticated:
				http.Redirect(w, r, signInPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isExemptPath(path string) bool {
	return path == "/healthz" || strings.HasPrefix(path, "/static/")
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

func isAPIPath(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/events"
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

// statusRecorder remembers the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController and the websocket upgrade reach the
// underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}
