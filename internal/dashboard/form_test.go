package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meetings-dashboard/internal/application"
)

func TestCreateForm_SubmitStoresOneRecord(t *testing.T) {
	t.Parallel()

	store := newRecordStoreStub()
	form := NewCreateForm(store, time.UTC, nil)

	var calls []string
	form.OnAdded(func(context.Context) { calls = append(calls, "added") })
	form.OnDone(func() { calls = append(calls, "done") })

	require.NoError(t, form.SetFields(FormFields{Title: "Standup", Date: "2024-03-01", Time: "09:00", Transcript: ""}))

	record, err := form.Submit(context.Background())
	require.NoError(t, err)

	require.Len(t, store.created, 1)
	created := store.created[0]
	assert.Equal(t, "Standup", created.Title)
	assert.True(t, created.MeetingDate.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))
	assert.Nil(t, created.Transcript, "blank transcript is stored as absent")
	assert.Nil(t, created.Summary)

	assert.Equal(t, "Standup", record.Title)
	assert.Equal(t, []string{"added", "done"}, calls)

	snapshot := form.Snapshot()
	assert.Equal(t, FormFields{}, snapshot.Fields)
	assert.Empty(t, snapshot.Error)
	assert.False(t, snapshot.Submitting)
}

func TestCreateForm_LocalTimeRoundTrip(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	store := newRecordStoreStub()
	form := NewCreateForm(store, tokyo, nil)

	require.NoError(t, form.SetFields(FormFields{Title: "Review", Date: "2024-03-01", Time: "14:30", Transcript: "hello\nworld"}))
	_, err := form.Submit(context.Background())
	require.NoError(t, err)

	created := store.created[0]
	assert.Equal(t, time.UTC, created.MeetingDate.Location())
	assert.Equal(t, time.Date(2024, 3, 1, 5, 30, 0, 0, time.UTC), created.MeetingDate)
	require.NotNil(t, created.Transcript)
	assert.Equal(t, "hello\nworld", *created.Transcript)

	date, clock := FormatLocal(created.MeetingDate, tokyo)
	assert.Equal(t, "2024-03-01", date)
	assert.Equal(t, "14:30", clock)
}

func TestCreateForm_RejectsMissingFields(t *testing.T) {
	t.Parallel()

	cases := map[string]FormFields{
		"title": {Date: "2024-03-01", Time: "09:00"},
		"date":  {Title: "Standup", Time: "09:00"},
		"time":  {Title: "Standup", Date: "2024-03-01"},
	}

	for field, fields := range cases {
		t.Run(field, func(t *testing.T) {
			t.Parallel()

			store := newRecordStoreStub()
			form := NewCreateForm(store, time.UTC, nil)
			added := 0
			form.OnAdded(func(context.Context) { added++ })
			require.NoError(t, form.SetFields(fields))

			_, err := form.Submit(context.Background())

			var vErr *application.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Field(field))
			assert.Zero(t, store.createdCount(), "no store call for invalid input")
			assert.Zero(t, added)

			snapshot := form.Snapshot()
			assert.Equal(t, "Please fill in all required fields", snapshot.Error)
			assert.Equal(t, fields, snapshot.Fields)
		})
	}
}

func TestCreateForm_RejectsMalformedDate(t *testing.T) {
	t.Parallel()

	store := newRecordStoreStub()
	form := NewCreateForm(store, time.UTC, nil)
	require.NoError(t, form.SetFields(FormFields{Title: "x", Date: "03/01/2024", Time: "9am"}))

	_, err := form.Submit(context.Background())
	var vErr *application.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.Field("date"))
	assert.Zero(t, store.createdCount())
}

func TestCreateForm_StoreFailureKeepsFields(t *testing.T) {
	t.Parallel()

	store := newRecordStoreStub()
	store.createErr = errors.New("permission denied for table meetings")
	form := NewCreateForm(store, time.UTC, nil)
	done := false
	form.OnDone(func() { done = true })

	fields := FormFields{Title: "Standup", Date: "2024-03-01", Time: "09:00"}
	require.NoError(t, form.SetFields(fields))

	_, err := form.Submit(context.Background())
	require.Error(t, err)

	snapshot := form.Snapshot()
	assert.Equal(t, "permission denied for table meetings", snapshot.Error)
	assert.Equal(t, fields, snapshot.Fields)
	assert.False(t, snapshot.Submitting)
	assert.False(t, done)
	assert.Equal(t, 1, store.createdCount(), "no retries")
}

func TestCreateForm_RejectsConcurrentSubmission(t *testing.T) {
	t.Parallel()

	store := newRecordStoreStub()
	store.createGate = make(chan struct{})
	form := NewCreateForm(store, time.UTC, nil)
	require.NoError(t, form.SetFields(FormFields{Title: "Standup", Date: "2024-03-01", Time: "09:00"}))

	result := make(chan error, 1)
	go func() {
		_, err := form.Submit(context.Background())
		result <- err
	}()

	require.Eventually(t, form.Submitting, time.Second, time.Millisecond)

	_, err := form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, form.SetFields(FormFields{Title: "edited"}), ErrSubmitInProgress)
	assert.ErrorIs(t, form.Reset(), ErrSubmitInProgress)

	close(store.createGate)
	require.NoError(t, <-result)
	assert.Equal(t, 1, store.createdCount())
	assert.False(t, form.Submitting())
}

func TestCreateForm_SummaryIsNotSent(t *testing.T) {
	t.Parallel()

	store := newRecordStoreStub()
	form := NewCreateForm(store, time.UTC, nil)
	require.NoError(t, form.SetFields(FormFields{Title: "x", Date: "2024-03-01", Time: "09:00", Summary: "notes"}))

	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Nil(t, store.created[0].Summary)
}

func TestCreateForm_Reset(t *testing.T) {
	t.Parallel()

	form := NewCreateForm(newRecordStoreStub(), time.UTC, nil)
	require.NoError(t, form.SetFields(FormFields{Title: "draft"}))
	_, _ = form.Submit(context.Background())
	require.NotEmpty(t, form.Snapshot().Error)

	require.NoError(t, form.Reset())
	assert.Equal(t, FormSnapshot{}, form.Snapshot())
}
