package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
)

// GetOrCreateUser returns the internal identity for an OS uid, creating one
// the first time it is seen. It is idempotent under concurrent callers: a
// unique constraint on os_uid means a racing insert simply loses and falls
// back to the read.
func (s *Store) GetOrCreateUser(ctx context.Context, osUID uint32) (*models.User, error) {
	user, err := s.findUserByOSUID(ctx, osUID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	newUser := &models.User{
		ID:        uuid.New(),
		OSUID:     osUID,
		CreatedAt: time.Now().UTC(),
	}

	query := "INSERT INTO users (id, os_uid, created_at) VALUES (" +
		s.placeholder(1) + ", " + s.placeholder(2) + ", " + s.placeholder(3) + ")"
	if _, err := s.DB.ExecContext(ctx, query, newUser.ID.String(), newUser.OSUID, newUser.CreatedAt); err != nil {
		// Lost the create race; whoever won already has a row for this uid.
		if existing, findErr := s.findUserByOSUID(ctx, osUID); findErr == nil {
			return existing, nil
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}

	return newUser, nil
}

func (s *Store) findUserByOSUID(ctx context.Context, osUID uint32) (*models.User, error) {
	query := "SELECT id, os_uid, created_at FROM users WHERE os_uid = " + s.placeholder(1)
	row := s.DB.QueryRowContext(ctx, query, osUID)

	var user models.User
	var id string
	if err := row.Scan(&id, &user.OSUID, &user.CreatedAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	user.ID = parsed
	return &user, nil
}
