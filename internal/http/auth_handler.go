package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
)

const sessionCookieName = "session_token"

type authService interface {
	SignUp(ctx context.Context, params application.SignUpParams) (application.User, error)
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RefreshSession(ctx context.Context, params application.RefreshSessionParams) (application.RefreshSessionResult, error)
	UpdatePassword(ctx context.Context, params application.UpdatePasswordParams) (application.User, error)
}

type workspaceRegistry interface {
	Remove(token string)
	Rotate(previous, next string) bool
}

// AuthOptions tunes cookie and rendering behaviour of the AuthHandler.
type AuthOptions struct {
	CookieSecure bool
	Location     *time.Location
}

type AuthHandler struct {
	service   authService
	registry  workspaceRegistry
	options   AuthOptions
	pages     *pages
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, registry workspaceRegistry, options AuthOptions, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{
		service:   service,
		registry:  registry,
		options:   options,
		pages:     newPages(base),
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// SignInPage renders the sign-in form.
func (h *AuthHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	h.renderAuth(r.Context(), w, http.StatusOK, false, authView{})
}

// SignUpPage renders the registration form.
func (h *AuthHandler) SignUpPage(w http.ResponseWriter, r *http.Request) {
	h.renderAuth(r.Context(), w, http.StatusOK, true, authView{})
}

// SignIn authenticates form or JSON credentials and issues the session cookie.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	req, ok := h.decodeCredentials(w, r, "SignIn")
	if !ok {
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(ctx, "SignIn", "email", email)

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Email:    email,
		Password: req.Password,
	})
	if err != nil {
		logger.WarnContext(ctx, "authentication rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.fail(ctx, w, r, false, email, err)
		return
	}

	h.setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	logger.With("user_id", result.User.ID).InfoContext(ctx, "user authenticated")

	if wantsJSON(r) {
		w.Header().Set("X-Session-Token", result.Session.Token)
		h.responder.writeJSON(ctx, w, http.StatusCreated, sessionResponse{
			Token:     result.Session.Token,
			ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
			User:      toUserDTO(result.User),
		})
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// SignUp registers an account. Browser sign-ups are signed in right away.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	req, ok := h.decodeCredentials(w, r, "SignUp")
	if !ok {
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	logger := h.log(ctx, "SignUp", "email", email)

	user, err := h.service.SignUp(ctx, application.SignUpParams{Email: email, Password: req.Password})
	if err != nil {
		logger.WarnContext(ctx, "sign-up rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.fail(ctx, w, r, true, email, err)
		return
	}
	logger.With("user_id", user.ID).InfoContext(ctx, "user registered")

	if wantsJSON(r) {
		h.responder.writeJSON(ctx, w, http.StatusCreated, toUserDTO(user))
		return
	}

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{Email: email, Password: req.Password})
	if err != nil {
		logger.ErrorContext(ctx, "sign-in after sign-up failed", "error", err, "error_kind", application.ErrorKind(err))
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}
	h.setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// SignOut revokes the caller's session through its session provider. When
// the backend refuses, the dashboard is shown again with the error and the
// session stays signed in.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ws, ok := WorkspaceFromContext(ctx)
	if !ok {
		h.clearSessionCookie(w)
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return
	}

	token := tokenFromContext(ctx)
	logger := h.log(ctx, "SignOut", "token_present", token != "")

	if err := ws.Session.SignOut(ctx); err != nil {
		logger.ErrorContext(ctx, "failed to sign out", "error", err, "error_kind", application.ErrorKind(err))
		status, body := describeError(err)
		principal, _ := PrincipalFromContext(ctx)
		h.pages.render(ctx, w, status, "dashboard", pageView{
			Title:     "Meetings",
			Email:     principal.Email,
			Flash:     "Sign-out failed: " + body.Message,
			Dashboard: buildDashboardView(ws, h.options.Location),
		})
		return
	}

	if h.registry != nil {
		h.registry.Remove(token)
	}
	h.clearSessionCookie(w)
	logger.InfoContext(ctx, "session signed out")
	http.Redirect(w, r, signInPath, http.StatusSeeOther)
}

// RefreshSession rotates the caller's token and re-keys its workspace.
func (h *AuthHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	token := extractTokenFromRequest(r)
	if token == "" {
		h.log(ctx, "RefreshSession", "error_kind", "unauthorized").WarnContext(ctx, "missing session token for refresh")
		h.responder.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_SESSION_EXPIRED",
			Message:   errMissingSessionToken.Error(),
		})
		return
	}

	logger := h.log(ctx, "RefreshSession", "token_present", true)
	result, err := h.service.RefreshSession(ctx, application.RefreshSessionParams{Token: token})
	if err != nil {
		logger.WarnContext(ctx, "failed to refresh session", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	if h.registry != nil {
		h.registry.Rotate(result.PreviousToken, result.Session.Token)
	}
	h.setSessionCookie(w, result.Session.Token, result.Session.ExpiresAt)
	w.Header().Set("X-Session-Token", result.Session.Token)
	logger.With("session_id", result.Session.ID).InfoContext(ctx, "session refreshed")

	h.responder.writeJSON(ctx, w, http.StatusOK, sessionResponse{
		Token:     result.Session.Token,
		ExpiresAt: result.Session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
}

// UpdatePassword changes the caller's password.
func (h *AuthHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingSessionToken)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "UpdatePassword", "error_kind", "bad_request").WarnContext(ctx, "failed to decode password request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(ctx, "UpdatePassword", "user_id", principal.UserID)
	if _, err := h.service.UpdatePassword(ctx, application.UpdatePasswordParams{Principal: principal, Password: req.Password}); err != nil {
		logger.WarnContext(ctx, "failed to update password", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	logger.InfoContext(ctx, "password updated")
	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request, operation string) (credentialsRequest, bool) {
	var req credentialsRequest
	if wantsJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode credentials", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return req, false
		}
		return req, true
	}

	if err := r.ParseForm(); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").WarnContext(r.Context(), "failed to parse credentials form", "error", err)
		h.renderAuth(r.Context(), w, http.StatusBadRequest, operation == "SignUp", authView{Error: errBadRequestBody.Error()})
		return req, false
	}
	req.Email = r.PostFormValue("email")
	req.Password = r.PostFormValue("password")
	return req, true
}

// fail answers a rejected sign-in or sign-up in the caller's format.
func (h *AuthHandler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, signUp bool, email string, err error) {
	if wantsJSON(r) {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	status, body := describeError(err)
	message := body.Message
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		message = ""
	}
	h.renderAuth(ctx, w, status, signUp, authView{Email: email, Error: message, FieldErrors: body.Errors})
}

func (h *AuthHandler) renderAuth(ctx context.Context, w http.ResponseWriter, status int, signUp bool, view authView) {
	view.SignUp = signUp
	title := "Sign in"
	view.Action = signInPath
	if signUp {
		title = "Create account"
		view.Action = "/auth/sign-up"
	}
	h.pages.render(ctx, w, status, "auth", pageView{Title: title, Auth: &view})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   h.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.options.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordRequest struct {
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expires_at"`
	User      *userDTO `json:"user,omitempty"`
}

type userDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

func toUserDTO(user application.User) *userDTO {
	return &userDTO{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.HasPrefix(strings.TrimSpace(r.Header.Get("Content-Type")), "application/json")
}

func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(header, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(header, prefix))
		}
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}
