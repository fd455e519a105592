package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/meetings-dashboard/internal/persistence"
)

// MeetingRepository implements persistence.MeetingRepository using SQLite
type MeetingRepository struct {
	pool *ConnectionPool
}

// NewMeetingRepository creates a new SQLite meeting repository
func NewMeetingRepository(pool *ConnectionPool) *MeetingRepository {
	return &MeetingRepository{pool: pool}
}

const meetingColumns = `id, owner_id, title, meeting_date, transcript, summary, created_at`

// CreateMeeting inserts a meeting and returns the stored row.
func (r *MeetingRepository) CreateMeeting(ctx context.Context, meeting persistence.Meeting) (persistence.Meeting, error) {
	if meeting.ID == "" || meeting.OwnerID == "" {
		return persistence.Meeting{}, persistence.ErrConstraintViolation
	}

	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO meetings (`+meetingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		meeting.ID,
		meeting.OwnerID,
		meeting.Title,
		formatTime(meeting.MeetingDate),
		nullString(meeting.Transcript),
		nullString(meeting.Summary),
		formatTime(meeting.CreatedAt),
	)
	if err != nil {
		return persistence.Meeting{}, mapError(err)
	}
	return r.GetMeeting(ctx, meeting.ID)
}

// GetMeeting retrieves a meeting by ID.
func (r *MeetingRepository) GetMeeting(ctx context.Context, id string) (persistence.Meeting, error) {
	row := r.pool.DB().QueryRowContext(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = ?`, id)
	return scanMeeting(row)
}

// ListMeetings returns one window of the owner's meetings, newest meeting
// date first, with created_at and id as tie-breakers, plus the exact total.
func (r *MeetingRepository) ListMeetings(ctx context.Context, filter persistence.MeetingFilter) ([]persistence.Meeting, int, error) {
	if filter.Limit <= 0 {
		return nil, 0, fmt.Errorf("sqlite: list meetings: limit must be positive")
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var (
		meetings []persistence.Meeting
		total    int
	)
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM meetings WHERE owner_id = ?`, filter.OwnerID).Scan(&total); err != nil {
			return mapError(err)
		}

		rows, err := tx.QueryContext(ctx, `
			SELECT `+meetingColumns+`
			FROM meetings
			WHERE owner_id = ?
			ORDER BY meeting_date DESC, created_at DESC, id ASC
			LIMIT ? OFFSET ?
		`, filter.OwnerID, filter.Limit, filter.Offset)
		if err != nil {
			return mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			meeting, err := scanMeeting(rows)
			if err != nil {
				return err
			}
			meetings = append(meetings, meeting)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return meetings, total, nil
}

func scanMeeting(row rowScanner) (persistence.Meeting, error) {
	var (
		meeting                persistence.Meeting
		meetingDate, createdAt string
		transcript, summary    sql.NullString
	)
	err := row.Scan(&meeting.ID, &meeting.OwnerID, &meeting.Title, &meetingDate, &transcript, &summary, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Meeting{}, persistence.ErrNotFound
		}
		return persistence.Meeting{}, mapError(err)
	}

	if meeting.MeetingDate, err = parseTime(meetingDate); err != nil {
		return persistence.Meeting{}, err
	}
	if meeting.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Meeting{}, err
	}
	meeting.Transcript = stringPtr(transcript)
	meeting.Summary = stringPtr(summary)
	return meeting, nil
}
