package http

import (
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

// handlerLogger prefers the request logger from ctx over fallback and tags
// it with the handler, the operation and, once the session guard has run,
// the signed-in user.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := LoggerFromContext(ctx)
	if logger == nil {
		logger = defaultLogger(fallback)
	}

	pairs := make([]any, 0, 6+len(attrs))
	pairs = append(pairs, "handler", handlerName)
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if principal, ok := PrincipalFromContext(ctx); ok && !hasKey(attrs, "user_id") {
		pairs = append(pairs, "user_id", principal.UserID)
	}
	return logger.With(append(pairs, attrs...)...)
}

func hasKey(attrs []any, key string) bool {
	for i := 0; i < len(attrs); i += 2 {
		if name, ok := attrs[i].(string); ok && name == key {
			return true
		}
	}
	return false
}
