package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/meetings-dashboard/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// serviceLogger prefers the request logger carried by ctx and tags it with
// the service and operation.
func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = defaultLogger(base)
	}

	pairs := make([]any, 0, 4+len(attrs))
	pairs = append(pairs, "service", serviceName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	return logger.With(append(pairs, attrs...)...)
}

// errorKinds is checked in order; the first match wins.
var errorKinds = []struct {
	target error
	kind   string
}{
	{ErrUnauthorized, "unauthorized"},
	{ErrNotFound, "not_found"},
	{ErrAlreadyExists, "already_exists"},
	{ErrInvalidCredentials, "invalid_credentials"},
	{ErrSessionExpired, "session_expired"},
	{ErrSessionRevoked, "session_revoked"},
	{ErrRateLimited, "rate_limited"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "timeout"},
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorKinds {
		if errors.Is(err, entry.target) {
			return entry.kind
		}
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}
	return "unexpected"
}
