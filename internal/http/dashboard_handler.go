package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/dashboard"
)

// DashboardHandler serves the server-rendered dashboard. All state lives in
// the caller's workspace; the handler only translates requests into view
// model operations and renders the result.
type DashboardHandler struct {
	location *time.Location
	pages    *pages
	logger   *slog.Logger
}

func NewDashboardHandler(location *time.Location, logger *slog.Logger) *DashboardHandler {
	base := defaultLogger(logger)
	if location == nil {
		location = time.Local
	}
	return &DashboardHandler{location: location, pages: newPages(base), logger: base}
}

func (h *DashboardHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "DashboardHandler", operation, attrs...)
}

// Index shows one page of meetings and clears the selection.
func (h *DashboardHandler) Index(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	ws.Detail.Clear()
	ws.HideForm()
	ws.List.Load(ctx, pageParam(r, ws.List.Page()))
	h.render(ctx, w, http.StatusOK, ws, "")
}

// Show opens the detail drawer for a meeting on the current page.
func (h *DashboardHandler) Show(w http.ResponseWriter, r *http.Request, id string) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	ws.HideForm()
	h.ensurePage(ctx, r, ws)

	if !ws.Detail.SelectByID(ws.List, id) {
		// The record may have arrived since the page was loaded.
		ws.List.Refresh(ctx)
		if !ws.Detail.SelectByID(ws.List, id) {
			h.log(ctx, "Show", "meeting_id", id).InfoContext(ctx, "meeting not on current page")
			ws.Detail.Clear()
			h.render(ctx, w, http.StatusNotFound, ws, "That meeting is not on this page.")
			return
		}
	}
	h.render(ctx, w, http.StatusOK, ws, "")
}

// New opens the create modal over the list.
func (h *DashboardHandler) New(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	h.ensurePage(ctx, r, ws)
	ws.ShowForm()
	h.render(ctx, w, http.StatusOK, ws, "")
}

// Create submits the create form. On success the list has already been
// refreshed and the modal closed by the form callbacks.
func (h *DashboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	logger := h.log(ctx, "Create")

	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "failed to parse meeting form", "error", err, "error_kind", "bad_request")
		h.render(ctx, w, http.StatusBadRequest, ws, errBadRequestBody.Error())
		return
	}

	ws.ShowForm()
	err := ws.Form.SetFields(dashboard.FormFields{
		Title:      r.PostFormValue("title"),
		Date:       r.PostFormValue("date"),
		Time:       r.PostFormValue("time"),
		Transcript: r.PostFormValue("transcript"),
		Summary:    r.PostFormValue("summary"),
	})
	if err == nil {
		_, err = ws.Form.Submit(ctx)
	}
	if err != nil {
		status, body := describeError(err)
		flash := ""
		if errors.Is(err, dashboard.ErrSubmitInProgress) {
			flash = body.Message
		}
		logger.WarnContext(ctx, "meeting not created", "status", status, "error_kind", application.ErrorKind(err))
		h.render(ctx, w, status, ws, flash)
		return
	}

	http.Redirect(w, r, dashboardURL(ws.List.Page()), http.StatusSeeOther)
}

// Reset discards the form input and closes the modal.
func (h *DashboardHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if err := ws.Form.Reset(); err != nil {
		status, body := describeError(err)
		h.render(ctx, w, status, ws, body.Message)
		return
	}
	ws.HideForm()
	http.Redirect(w, r, dashboardURL(ws.List.Page()), http.StatusSeeOther)
}

// ensurePage loads the page named in the query when it is not the one
// already held, or when nothing was loaded yet.
func (h *DashboardHandler) ensurePage(ctx context.Context, r *http.Request, ws *dashboard.Workspace) {
	current := ws.List.Page()
	page := pageParam(r, current)
	if page != current || !ws.List.Loaded() {
		ws.List.Load(ctx, page)
	}
}

func (h *DashboardHandler) workspace(w http.ResponseWriter, r *http.Request) (*dashboard.Workspace, bool) {
	ws, ok := WorkspaceFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, signInPath, http.StatusSeeOther)
		return nil, false
	}
	return ws, true
}

func (h *DashboardHandler) render(ctx context.Context, w http.ResponseWriter, status int, ws *dashboard.Workspace, flash string) {
	principal, _ := PrincipalFromContext(ctx)
	h.pages.render(ctx, w, status, "dashboard", pageView{
		Title:     "Meetings",
		Email:     principal.Email,
		Flash:     flash,
		Dashboard: buildDashboardView(ws, h.location),
	})
}

func pageParam(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("page"))
	if raw == "" {
		return fallback
	}
	page, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return page
}

func dashboardURL(page int) string {
	if page <= 1 {
		return dashboardPath
	}
	return dashboardPath + "?page=" + strconv.Itoa(page)
}
