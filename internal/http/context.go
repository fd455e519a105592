package http

import (
	"context"
	"log/slog"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/dashboard"
	"github.com/example/meetings-dashboard/internal/logging"
)

type contextKey string

const (
	principalContextKey contextKey = "principal"
	workspaceContextKey contextKey = "workspace"
	tokenContextKey     contextKey = "session_token"
)

// ContextWithPrincipal returns a derived context containing the authenticated principal.
func ContextWithPrincipal(ctx context.Context, principal application.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the authenticated principal from context if available.
func PrincipalFromContext(ctx context.Context) (application.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(application.Principal)
	return principal, ok
}

// ContextWithWorkspace attaches the caller's workspace and the token it was opened with.
func ContextWithWorkspace(ctx context.Context, token string, ws *dashboard.Workspace) context.Context {
	ctx = context.WithValue(ctx, tokenContextKey, token)
	return context.WithValue(ctx, workspaceContextKey, ws)
}

// WorkspaceFromContext extracts the workspace resolved by the session guard.
func WorkspaceFromContext(ctx context.Context) (*dashboard.Workspace, bool) {
	ws, ok := ctx.Value(workspaceContextKey).(*dashboard.Workspace)
	return ws, ok && ws != nil
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey).(string)
	return token
}

// ContextWithLogger returns a derived context carrying the request logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request logger, or nil outside a request.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
