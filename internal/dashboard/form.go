package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
)

// summaryEnabled gates sending the summary field to the store. Summaries are
// collected by the form but not persisted yet.
const summaryEnabled = false

const (
	// DateLayout is the layout of the form's date field.
	DateLayout = "2006-01-02"
	// TimeLayout is the layout of the form's time field.
	TimeLayout = "15:04"

	missingFieldsMessage = "Please fill in all required fields"
)

var (
	// ErrSubmitInProgress is returned when a submission or edit arrives while another submission is in flight.
	ErrSubmitInProgress = errors.New("dashboard: submission already in progress")
)

// FormFields are the raw values typed into the create form.
type FormFields struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Transcript string `json:"transcript"`
	Summary    string `json:"summary"`
}

// FormSnapshot is a consistent copy of the form state for rendering.
type FormSnapshot struct {
	Fields      FormFields        `json:"fields"`
	Submitting  bool              `json:"submitting"`
	Error       string            `json:"error,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

// CreateForm owns the create-meeting form: its fields, validation, and
// submission lifecycle. A successful submission calls the added callback and
// then the done callback.
type CreateForm struct {
	store    RecordStore
	location *time.Location
	logger   *slog.Logger

	mu         sync.Mutex
	fields     FormFields
	submitting bool
	err        error
	onAdded    func(context.Context)
	onDone     func()
}

// NewCreateForm creates an empty form that interprets date and time in location.
func NewCreateForm(store RecordStore, location *time.Location, logger *slog.Logger) *CreateForm {
	if location == nil {
		location = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CreateForm{
		store:    store,
		location: location,
		logger:   logger.With("component", "CreateForm"),
	}
}

// OnAdded registers the callback run after a record was stored.
func (f *CreateForm) OnAdded(fn func(context.Context)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onAdded = fn
}

// OnDone registers the callback run after OnAdded, typically closing the modal.
func (f *CreateForm) OnDone(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onDone = fn
}

// SetFields replaces the field values. Edits are refused while a submission is in flight.
func (f *CreateForm) SetFields(fields FormFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmitInProgress
	}
	f.fields = fields
	return nil
}

// Submit validates the fields and writes one record through the store.
// Missing title, date, or time yields a validation error without a store
// call. On store failure the store's message is kept in the error field and
// the fields are left intact. On success the fields are cleared and the
// callbacks run. There are no retries.
func (f *CreateForm) Submit(ctx context.Context) (Record, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return Record{}, ErrSubmitInProgress
	}

	fields := f.fields
	meeting, vErr := f.buildMeeting(fields)
	if vErr != nil {
		f.err = vErr
		f.mu.Unlock()
		return Record{}, vErr
	}
	f.submitting = true
	f.err = nil
	f.mu.Unlock()

	record, err := f.store.Create(ctx, meeting)

	f.mu.Lock()
	f.submitting = false
	if err != nil {
		f.err = err
		f.mu.Unlock()
		f.logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", application.ErrorKind(err))
		return Record{}, err
	}
	f.fields = FormFields{}
	f.err = nil
	onAdded, onDone := f.onAdded, f.onDone
	f.mu.Unlock()

	f.logger.InfoContext(ctx, "meeting added", "meeting_id", record.ID)
	if onAdded != nil {
		onAdded(ctx)
	}
	if onDone != nil {
		onDone()
	}
	return record, nil
}

// buildMeeting turns the raw fields into a store payload. Date and time are
// read in the form's location and stored as a UTC instant.
func (f *CreateForm) buildMeeting(fields FormFields) (NewMeeting, *application.ValidationError) {
	title := strings.TrimSpace(fields.Title)
	date := strings.TrimSpace(fields.Date)
	clock := strings.TrimSpace(fields.Time)

	missing := map[string]string{}
	if title == "" {
		missing["title"] = "Title is required"
	}
	if date == "" {
		missing["date"] = "Date is required"
	}
	if clock == "" {
		missing["time"] = "Time is required"
	}
	if len(missing) > 0 {
		return NewMeeting{}, application.NewValidationError(missing)
	}

	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+clock, f.location)
	if err != nil {
		return NewMeeting{}, application.NewValidationError(map[string]string{
			"date": "Date and time must look like 2024-03-01 and 14:30",
		})
	}

	meeting := NewMeeting{Title: title, MeetingDate: at.UTC()}
	if strings.TrimSpace(fields.Transcript) != "" {
		transcript := fields.Transcript
		meeting.Transcript = &transcript
	}
	if summaryEnabled && strings.TrimSpace(fields.Summary) != "" {
		summary := fields.Summary
		meeting.Summary = &summary
	}
	return meeting, nil
}

// Reset clears the fields and the error. It is refused while submitting.
func (f *CreateForm) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmitInProgress
	}
	f.fields = FormFields{}
	f.err = nil
	return nil
}

// Submitting reports whether a submission is in flight.
func (f *CreateForm) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Snapshot returns a copy of the current state.
func (f *CreateForm) Snapshot() FormSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := FormSnapshot{Fields: f.fields, Submitting: f.submitting}
	if f.err == nil {
		return snapshot
	}

	var vErr *application.ValidationError
	if errors.As(f.err, &vErr) {
		snapshot.Error = missingFieldsMessage
		snapshot.FieldErrors = make(map[string]string, len(vErr.FieldErrors))
		for field, msg := range vErr.FieldErrors {
			snapshot.FieldErrors[field] = msg
		}
		return snapshot
	}
	snapshot.Error = f.err.Error()
	return snapshot
}

// FormatLocal renders t as the form's date and time fields in location.
func FormatLocal(t time.Time, location *time.Location) (date, clock string) {
	if location == nil {
		location = time.Local
	}
	local := t.In(location)
	return local.Format(DateLayout), local.Format(TimeLayout)
}
