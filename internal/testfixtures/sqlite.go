package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/meetings-dashboard/internal/persistence"
	"github.com/example/meetings-dashboard/internal/persistence/sqlite"
)

// SQLiteHarness is a migrated database in the test's temp directory.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Users    persistence.UserRepository
	Sessions persistence.SessionRepository
	Meetings persistence.MeetingRepository
}

// NewSQLiteHarness opens and migrates a fresh database. It is closed by
// tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	storage, err := sqlite.Open(filepath.Join(tb.TempDir(), "dashboard.db"))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	if err := storage.Migrate(context.Background()); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	return &SQLiteHarness{
		Storage:  storage,
		Users:    storage,
		Sessions: storage,
		Meetings: storage,
	}
}

// SeedUser inserts the fixture's row.
func (h *SQLiteHarness) SeedUser(tb testing.TB, user UserFixture) {
	tb.Helper()
	if err := h.Users.CreateUser(context.Background(), user.Persistence()); err != nil {
		tb.Fatalf("failed to seed user %s: %v", user.ID, err)
	}
}

// SeedMeetings inserts each fixture's row in order.
func (h *SQLiteHarness) SeedMeetings(tb testing.TB, meetings ...MeetingFixture) {
	tb.Helper()
	for _, meeting := range meetings {
		if _, err := h.Meetings.CreateMeeting(context.Background(), meeting.Persistence()); err != nil {
			tb.Fatalf("failed to seed meeting %s: %v", meeting.ID, err)
		}
	}
}
