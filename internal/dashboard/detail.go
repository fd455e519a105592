package dashboard

import "sync"

// TranscriptState describes what the detail panel shows for the selection.
type TranscriptState string

const (
	StateAbsent     TranscriptState = "absent"
	StateProcessing TranscriptState = "processing"
	StateAvailable  TranscriptState = "available"
)

// Label returns the badge text for the state.
func (s TranscriptState) Label() string {
	switch s {
	case StateAvailable:
		return "Available"
	case StateProcessing:
		return "Processing"
	default:
		return ""
	}
}

// DetailViewModel owns the record selected for the detail panel. Selecting a
// record never fetches; the record comes from the list page.
type DetailViewModel struct {
	mu       sync.RWMutex
	selected *Record
}

// NewDetailViewModel returns a view model with nothing selected.
func NewDetailViewModel() *DetailViewModel {
	return &DetailViewModel{}
}

// Select makes record the current selection.
func (d *DetailViewModel) Select(record Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = &record
}

// SelectByID selects the record with id from the list's current page. It
// reports false and leaves the selection untouched when the id is not on that page.
func (d *DetailViewModel) SelectByID(list *ListViewModel, id string) bool {
	record, ok := list.Find(id)
	if !ok {
		return false
	}
	d.Select(record)
	return true
}

// Clear removes the selection.
func (d *DetailViewModel) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = nil
}

// Selected returns the selected record, if any.
func (d *DetailViewModel) Selected() (Record, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.selected == nil {
		return Record{}, false
	}
	return *d.selected, true
}

// State reports whether a record is selected and whether its transcript has arrived.
// A missing or empty transcript is still being processed, never an error.
func (d *DetailViewModel) State() TranscriptState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	switch {
	case d.selected == nil:
		return StateAbsent
	case !d.selected.HasTranscript():
		return StateProcessing
	default:
		return StateAvailable
	}
}
