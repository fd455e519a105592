package http

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/meetings-dashboard/internal/dashboard"
)

// summaryVisible gates rendering of meeting summaries in the detail drawer.
const summaryVisible = false

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticHandler serves the embedded stylesheet under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("http: embedded static assets: %v", err))
	}
	return http.StripPrefix("/static/", http.FileServerFS(sub))
}

type pages struct {
	templates map[string]*template.Template
	logger    *slog.Logger
}

// newPages parses the embedded templates. They ship with the binary, so a
// parse failure is a programming error.
func newPages(logger *slog.Logger) *pages {
	p := &pages{templates: make(map[string]*template.Template), logger: defaultLogger(logger)}
	for _, name := range []string{"auth", "dashboard"} {
		p.templates[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	return p
}

func (p *pages) render(ctx context.Context, w http.ResponseWriter, status int, name string, view pageView) {
	tmpl, ok := p.templates[name]
	if !ok {
		http.Error(w, statusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", view); err != nil {
		logger := LoggerFromContext(ctx)
		if logger == nil {
			logger = p.logger
		}
		logger.ErrorContext(ctx, "failed to render page", "page", name, "error", err)
		http.Error(w, statusMessage(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageView is the data handed to the layout template.
type pageView struct {
	Title     string
	Email     string
	Flash     string
	Auth      *authView
	Dashboard *dashboardView
}

type authView struct {
	Action      string
	SignUp      bool
	Email       string
	Error       string
	FieldErrors map[string]string
}

type dashboardView struct {
	List         dashboard.ListSnapshot
	Rows         []meetingRow
	PreviousPage int
	NextPage     int
	Detail       *detailView
	Form         *dashboard.FormSnapshot
}

type meetingRow struct {
	ID       string
	Title    string
	Date     string
	Time     string
	State    dashboard.TranscriptState
	Badge    string
	Href     string
	Selected bool
}

type detailView struct {
	ID         string
	Title      string
	Day        string
	Clock      string
	Created    string
	State      dashboard.TranscriptState
	Badge      string
	Paragraphs []string
	Summary    []string
}

// buildDashboardView assembles the dashboard page from a workspace's view models.
func buildDashboardView(ws *dashboard.Workspace, location *time.Location) *dashboardView {
	if location == nil {
		location = time.Local
	}
	list := ws.List.Snapshot()
	selected, hasSelection := ws.Detail.Selected()

	view := &dashboardView{
		List:         list,
		PreviousPage: list.Page - 1,
		NextPage:     list.Page + 1,
	}
	for _, record := range list.Records {
		date, clock := dashboard.FormatLocal(record.MeetingDate, location)
		state := transcriptState(record)
		view.Rows = append(view.Rows, meetingRow{
			ID:       record.ID,
			Title:    record.Title,
			Date:     date,
			Time:     clock,
			State:    state,
			Badge:    state.Label(),
			Href:     "/dashboard/meetings/" + record.ID + "?page=" + strconv.Itoa(list.Page),
			Selected: hasSelection && record.ID == selected.ID,
		})
	}

	if hasSelection {
		state := ws.Detail.State()
		local := selected.MeetingDate.In(location)
		detail := &detailView{
			ID:      selected.ID,
			Title:   selected.Title,
			Day:     local.Format("Monday, January 2, 2006"),
			Clock:   local.Format("03:04 PM MST"),
			Created: selected.CreatedAt.In(location).Format("Jan 2, 2006, 03:04 PM"),
			State:   state,
			Badge:   state.Label(),
		}
		if state == dashboard.StateAvailable {
			detail.Paragraphs = paragraphs(*selected.Transcript)
		}
		if summaryVisible && selected.Summary != nil {
			detail.Summary = paragraphs(*selected.Summary)
		}
		view.Detail = detail
	}

	if ws.FormVisible() {
		form := ws.Form.Snapshot()
		view.Form = &form
	}
	return view
}

func transcriptState(record dashboard.Record) dashboard.TranscriptState {
	if record.HasTranscript() {
		return dashboard.StateAvailable
	}
	return dashboard.StateProcessing
}

// paragraphs splits text on newlines, one paragraph per line.
func paragraphs(text string) []string {
	return strings.Split(text, "\n")
}
