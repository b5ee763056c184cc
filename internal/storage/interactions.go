package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
)

// InsertInteraction records a question/response pair against a chat.
func (s *Store) InsertInteraction(ctx context.Context, chatID uuid.UUID, question, response string) (*models.Interaction, error) {
	interaction := &models.Interaction{
		ID:        uuid.New(),
		ChatID:    chatID,
		Question:  question,
		Response:  response,
		CreatedAt: time.Now().UTC(),
	}

	query := "INSERT INTO interactions (id, chat_id, question, response, created_at) VALUES (" +
		s.placeholder(1) + ", " + s.placeholder(2) + ", " + s.placeholder(3) + ", " +
		s.placeholder(4) + ", " + s.placeholder(5) + ")"
	if _, err := s.DB.ExecContext(ctx, query,
		interaction.ID.String(), interaction.ChatID.String(), interaction.Question, interaction.Response, interaction.CreatedAt,
	); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	return interaction, nil
}

// ListInteractionsForUser returns every live interaction across all of the
// user's live chats, oldest first.
func (s *Store) ListInteractionsForUser(ctx context.Context, userID uuid.UUID) ([]models.Interaction, error) {
	query := "SELECT i.id, i.chat_id, i.question, i.response, i.created_at, i.deleted_at " +
		"FROM interactions i JOIN chats c ON c.id = i.chat_id " +
		"WHERE c.user_id = " + s.placeholder(1) + " AND i.deleted_at IS NULL AND c.deleted_at IS NULL " +
		"ORDER BY i.created_at ASC"
	rows, err := s.DB.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		interaction, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		interactions = append(interactions, *interaction)
	}
	return interactions, rows.Err()
}

// FilterInteractionsForUser returns the subset of the user's interactions
// whose question or response contains keyword as a case-sensitive
// substring, matching the original history filter's semantics exactly.
func (s *Store) FilterInteractionsForUser(ctx context.Context, userID uuid.UUID, keyword string) ([]models.Interaction, error) {
	all, err := s.ListInteractionsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var filtered []models.Interaction
	for _, interaction := range all {
		if strings.Contains(interaction.Question, keyword) || strings.Contains(interaction.Response, keyword) {
			filtered = append(filtered, interaction)
		}
	}
	return filtered, nil
}

// ClearInteractionsForUser soft-deletes every live interaction belonging to
// the user without touching the chats themselves.
func (s *Store) ClearInteractionsForUser(ctx context.Context, userID uuid.UUID) error {
	now := time.Now().UTC()
	query := "UPDATE interactions SET deleted_at = " + s.placeholder(1) +
		" WHERE chat_id IN (SELECT id FROM chats WHERE user_id = " + s.placeholder(2) + ") AND deleted_at IS NULL"
	if _, err := s.DB.ExecContext(ctx, query, now, userID.String()); err != nil {
		return apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	return nil
}

func scanInteraction(rows *sql.Rows) (*models.Interaction, error) {
	var interaction models.Interaction
	var id, chatID string
	if err := rows.Scan(&id, &chatID, &interaction.Question, &interaction.Response, &interaction.CreatedAt, &interaction.DeletedAt); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	parsedChatID, err := uuid.Parse(chatID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError)
	}
	interaction.ID = parsedID
	interaction.ChatID = parsedChatID
	return &interaction, nil
}
