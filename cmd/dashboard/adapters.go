package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
	"github.com/example/meetings-dashboard/internal/persistence"
)

// translateStoreError maps persistence sentinels onto the application ones
// the services branch on. Other errors pass through unchanged.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", application.ErrNotFound, err)
	case errors.Is(err, persistence.ErrAlreadyExists):
		return fmt.Errorf("%w: %v", application.ErrAlreadyExists, err)
	default:
		return err
	}
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) CreateUser(ctx context.Context, user application.User, passwordHash string) (application.User, error) {
	model := toPersistenceUser(user, passwordHash)
	if err := a.repo.CreateUser(ctx, model); err != nil {
		return application.User{}, translateStoreError(err)
	}
	return a.GetUser(ctx, user.ID)
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, translateStoreError(err)
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, translateStoreError(err)
	}
	return toApplicationUser(stored), nil
}

func (a *credentialStoreAdapter) UpdatePasswordHash(ctx context.Context, userID, passwordHash string, updatedAt time.Time) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, userID)
	if err != nil {
		return application.User{}, translateStoreError(err)
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = updatedAt
	if err := a.repo.UpdateUser(ctx, stored); err != nil {
		return application.User{}, translateStoreError(err)
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, translateStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, translateStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.UpdateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, translateStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, translateStoreError(err)
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return translateStoreError(a.repo.DeleteExpiredSessions(ctx, reference))
}

type meetingRepositoryAdapter struct {
	repo persistence.MeetingRepository
}

func newMeetingRepositoryAdapter(repo persistence.MeetingRepository) *meetingRepositoryAdapter {
	return &meetingRepositoryAdapter{repo: repo}
}

func (a *meetingRepositoryAdapter) CreateMeeting(ctx context.Context, meeting application.Meeting) (application.Meeting, error) {
	stored, err := a.repo.CreateMeeting(ctx, toPersistenceMeeting(meeting))
	if err != nil {
		return application.Meeting{}, translateStoreError(err)
	}
	return toApplicationMeeting(stored), nil
}

func (a *meetingRepositoryAdapter) GetMeeting(ctx context.Context, id string) (application.Meeting, error) {
	stored, err := a.repo.GetMeeting(ctx, id)
	if err != nil {
		return application.Meeting{}, translateStoreError(err)
	}
	return toApplicationMeeting(stored), nil
}

func (a *meetingRepositoryAdapter) ListMeetings(ctx context.Context, filter application.MeetingFilter) ([]application.Meeting, int, error) {
	rows, total, err := a.repo.ListMeetings(ctx, persistence.MeetingFilter{
		OwnerID: filter.OwnerID,
		Offset:  filter.Offset,
		Limit:   filter.Limit,
	})
	if err != nil {
		return nil, 0, translateStoreError(err)
	}
	meetings := make([]application.Meeting, 0, len(rows))
	for _, row := range rows {
		meetings = append(meetings, toApplicationMeeting(row))
	}
	return meetings, total, nil
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:        model.ID,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceUser(user application.User, passwordHash string) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Email:        user.Email,
		PasswordHash: passwordHash,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func toApplicationMeeting(model persistence.Meeting) application.Meeting {
	return application.Meeting{
		ID:          model.ID,
		OwnerID:     model.OwnerID,
		Title:       model.Title,
		MeetingDate: model.MeetingDate,
		Transcript:  cloneString(model.Transcript),
		Summary:     cloneString(model.Summary),
		CreatedAt:   model.CreatedAt,
	}
}

func toPersistenceMeeting(meeting application.Meeting) persistence.Meeting {
	return persistence.Meeting{
		ID:          meeting.ID,
		OwnerID:     meeting.OwnerID,
		Title:       meeting.Title,
		MeetingDate: meeting.MeetingDate,
		Transcript:  cloneString(meeting.Transcript),
		Summary:     cloneString(meeting.Summary),
		CreatedAt:   meeting.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
