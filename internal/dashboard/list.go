package dashboard

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/meetings-dashboard/internal/application"
)

// ListSnapshot is a consistent copy of the list state for rendering.
type ListSnapshot struct {
	Records    []Record `json:"records"`
	Page       int      `json:"page"`
	PageSize   int      `json:"page_size"`
	Total      int      `json:"total"`
	TotalPages int      `json:"total_pages"`
	Loading    bool     `json:"loading"`
	Error      string   `json:"error,omitempty"`
}

// HasPrevious reports whether a page before the current one exists.
func (s ListSnapshot) HasPrevious() bool { return s.Page > 1 }

// HasNext reports whether a page after the current one exists.
func (s ListSnapshot) HasNext() bool { return s.Page < s.TotalPages }

// ListViewModel owns the pagination state and fetch lifecycle of the meeting list.
type ListViewModel struct {
	store    RecordStore
	pageSize int
	logger   *slog.Logger

	mu      sync.Mutex
	page    int
	shown   int // page the records belong to
	records []Record
	total   int
	loading bool
	err     error
	issued  uint64
	loaded  bool
}

// NewListViewModel creates a list positioned on page 1. No fetch happens until Load.
func NewListViewModel(store RecordStore, pageSize int, logger *slog.Logger) *ListViewModel {
	if pageSize <= 0 {
		pageSize = application.DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ListViewModel{
		store:    store,
		pageSize: pageSize,
		logger:   logger.With("component", "ListViewModel"),
		page:     1,
		shown:    1,
	}
}

// Load fetches exactly one page. Pages below 1 are clamped to 1. Each call
// is numbered; a response that is not from the most recently issued call is
// discarded. Store failures are recorded in the error field and never
// returned; the list then stays on the page its records came from.
func (m *ListViewModel) Load(ctx context.Context, page int) {
	if page < 1 {
		page = 1
	}

	m.mu.Lock()
	m.issued++
	seq := m.issued
	m.page = page
	m.loading = true
	m.err = nil
	m.mu.Unlock()

	records, total, err := m.store.List(ctx, page, m.pageSize)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.issued {
		m.logger.DebugContext(ctx, "discarding superseded page", "page", page, "sequence", seq, "latest", m.issued)
		return
	}

	m.loading = false
	m.loaded = true
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to load meetings", "page", page, "error", err, "error_kind", application.ErrorKind(err))
		m.err = err
		m.page = m.shown
		return
	}
	m.page = page
	m.shown = page
	m.records = records
	m.total = total
}

// Refresh re-fetches the current page.
func (m *ListViewModel) Refresh(ctx context.Context) {
	m.Load(ctx, m.Page())
}

// Page returns the current 1-based page.
func (m *ListViewModel) Page() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

// Loaded reports whether any load has completed.
func (m *ListViewModel) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// PageSize returns the fixed page size.
func (m *ListViewModel) PageSize() int {
	return m.pageSize
}

// Find looks a record up on the current page only.
func (m *ListViewModel) Find(id string) (Record, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.records {
		if record.ID == id {
			return record, true
		}
	}
	return Record{}, false
}

// Snapshot returns a copy of the current state.
func (m *ListViewModel) Snapshot() ListSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := make([]Record, len(m.records))
	copy(records, m.records)

	snapshot := ListSnapshot{
		Records:    records,
		Page:       m.page,
		PageSize:   m.pageSize,
		Total:      m.total,
		TotalPages: application.TotalPages(m.total, m.pageSize),
		Loading:    m.loading,
	}
	if m.err != nil {
		snapshot.Error = m.err.Error()
	}
	return snapshot
}
