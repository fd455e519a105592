package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/dashboard"
)

var (
	errBadRequestBody      = errors.New("The request body is malformed.")
	errInvalidMeetingID    = errors.New("The meeting id is invalid.")
	errMissingSessionToken = errors.New("A session token is required.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	status, body := describeError(err)
	r.writeJSON(ctx, w, status, body)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// describeError maps service errors onto a status code and a user-facing body.
// Unexpected errors never leak their text.
func describeError(err error) (int, errorResponse) {
	var vErr *application.ValidationError
	switch {
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   statusMessage(http.StatusUnprocessableEntity),
			Errors:    vErr.FieldErrors,
		}
	case errors.Is(err, application.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_INVALID_CREDENTIALS",
			Message:   "Invalid email or password.",
		}
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		return http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   "Your session has ended. Please sign in again.",
		}
	case errors.Is(err, application.ErrUnauthorized):
		return http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   statusMessage(http.StatusForbidden),
		}
	case errors.Is(err, application.ErrRateLimited):
		return http.StatusTooManyRequests, errorResponse{
			ErrorCode: "AUTH_RATE_LIMITED",
			Message:   "Too many sign-in attempts. Please wait a minute and try again.",
		}
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: statusMessage(http.StatusNotFound)}
	case errors.Is(err, application.ErrAlreadyExists):
		return http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "An account with this email already exists.",
		}
	case errors.Is(err, dashboard.ErrSubmitInProgress):
		return http.StatusConflict, errorResponse{Message: "A submission is already in progress."}
	default:
		return http.StatusInternalServerError, errorResponse{Message: statusMessage(http.StatusInternalServerError)}
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is invalid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You are not allowed to perform this action."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Some fields are invalid."
	case http.StatusTooManyRequests:
		return "Too many requests."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
