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

// CreateChat inserts a new chat for the given user, or returns the existing
// live chat of the same name unchanged (CreateChat is idempotent by name,
// matching the original interface's "return existing id if found" rule).
func (s *Store) CreateChat(ctx context.Context, userID uuid.UUID, name, description string) (*models.Chat, error) {
	existing, err := s.FindChatByName(ctx, userID, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	now := time.Now().UTC()
	chat := &models.Chat{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := "INSERT INTO chats (id, user_id, name, description, created_at, updated_at) VALUES (" +
		s.placeholder(1) + ", " + s.placeholder(2) + ", " + s.placeholder(3) + ", " +
		s.placeholder(4) + ", " + s.placeholder(5) + ", " + s.placeholder(6) + ")"
	if _, err := s.DB.ExecContext(ctx, query,
		chat.ID.String(), chat.UserID.String(), chat.Name, chat.Description, chat.CreatedAt, chat.UpdatedAt,
	); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	return chat, nil
}

// FindChatByName returns the caller's live (non-deleted) chat with the given
// name. Returns sql.ErrNoRows when none exists.
func (s *Store) FindChatByName(ctx context.Context, userID uuid.UUID, name string) (*models.Chat, error) {
	query := "SELECT id, user_id, name, description, created_at, updated_at, deleted_at FROM chats " +
		"WHERE user_id = " + s.placeholder(1) + " AND name = " + s.placeholder(2) + " AND deleted_at IS NULL"
	return s.scanChat(s.DB.QueryRowContext(ctx, query, userID.String(), name))
}

// FindChatByID returns the caller's live (non-deleted) chat with the given
// id. Returns sql.ErrNoRows if the chat doesn't exist or isn't owned by
// userID, so a caller can't probe for another user's chat ids.
func (s *Store) FindChatByID(ctx context.Context, userID, chatID uuid.UUID) (*models.Chat, error) {
	query := "SELECT id, user_id, name, description, created_at, updated_at, deleted_at FROM chats " +
		"WHERE id = " + s.placeholder(1) + " AND user_id = " + s.placeholder(2) + " AND deleted_at IS NULL"
	return s.scanChat(s.DB.QueryRowContext(ctx, query, chatID.String(), userID.String()))
}

// ListLiveChats returns every non-deleted chat belonging to the user,
// ordered oldest created first.
func (s *Store) ListLiveChats(ctx context.Context, userID uuid.UUID) ([]models.Chat, error) {
	query := "SELECT id, user_id, name, description, created_at, updated_at, deleted_at FROM chats " +
		"WHERE user_id = " + s.placeholder(1) + " AND deleted_at IS NULL ORDER BY created_at ASC"
	rows, err := s.DB.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	defer rows.Close()

	var chats []models.Chat
	for rows.Next() {
		chat, err := s.scanChatRow(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *chat)
	}
	return chats, rows.Err()
}

// LatestChat returns the most recently created live chat for the user.
func (s *Store) LatestChat(ctx context.Context, userID uuid.UUID) (*models.Chat, error) {
	query := "SELECT id, user_id, name, description, created_at, updated_at, deleted_at FROM chats " +
		"WHERE user_id = " + s.placeholder(1) + " AND deleted_at IS NULL ORDER BY created_at DESC LIMIT 1"
	return s.scanChat(s.DB.QueryRowContext(ctx, query, userID.String()))
}

// SoftDeleteChat marks a chat and all of its interactions deleted inside a
// single transaction, so a reader never observes a chat without its
// interactions or vice versa.
func (s *Store) SoftDeleteChat(ctx context.Context, userID, chatID uuid.UUID) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()

		res, err := tx.ExecContext(ctx,
			"UPDATE chats SET deleted_at = "+s.placeholder(1)+" WHERE id = "+s.placeholder(2)+
				" AND user_id = "+s.placeholder(3)+" AND deleted_at IS NULL",
			now, chatID.String(), userID.String())
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageError)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageError)
		}
		if affected == 0 {
			return apperrors.New(apperrors.CodeChatNotFound, "chat not found")
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE interactions SET deleted_at = "+s.placeholder(1)+" WHERE chat_id = "+s.placeholder(2)+
				" AND deleted_at IS NULL",
			now, chatID.String()); err != nil {
			return apperrors.Wrap(err, apperrors.CodeStorageError)
		}
		return nil
	})
}

// SoftDeleteAllChats deletes every live chat (and its interactions) for the
// user. Returns CodeChatNotFound if the user had no live chats.
func (s *Store) SoftDeleteAllChats(ctx context.Context, userID uuid.UUID) error {
	chats, err := s.ListLiveChats(ctx, userID)
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		return apperrors.New(apperrors.CodeChatNotFound, "no chats found for user")
	}
	for _, chat := range chats {
		if err := s.SoftDeleteChat(ctx, userID, chat.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) scanChat(row *sql.Row) (*models.Chat, error) {
	var chat models.Chat
	var id, userID string
	if err := row.Scan(&id, &userID, &chat.Name, &chat.Description, &chat.CreatedAt, &chat.UpdatedAt, &chat.DeletedAt); err != nil {
		return nil, err
	}
	return finishChatScan(&chat, id, userID)
}

func (s *Store) scanChatRow(rows *sql.Rows) (*models.Chat, error) {
	var chat models.Chat
	var id, userID string
	if err := rows.Scan(&id, &userID, &chat.Name, &chat.Description, &chat.CreatedAt, &chat.UpdatedAt, &chat.DeletedAt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	return finishChatScan(&chat, id, userID)
}

func finishChatScan(chat *models.Chat, id, userID string) (*models.Chat, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	parsedUserID, err := uuid.Parse(userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	chat.ID = parsedID
	chat.UserID = parsedUserID
	return chat, nil
}
