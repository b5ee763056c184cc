package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Interaction is an immutable question/response pair recorded against a
// chat. Only soft-deletion may mutate a row after it is written.
type Interaction struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	ChatID    uuid.UUID    `json:"chat_id" db:"chat_id"`
	Question  string       `json:"question" db:"question"`
	Response  string       `json:"response" db:"response"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	DeletedAt sql.NullTime `json:"deleted_at,omitempty" db:"deleted_at"`
}

// HistoryEntry is the bus-facing value object for a single interaction.
type HistoryEntry struct {
	Question  string `json:"question"`
	Response  string `json:"response"`
	CreatedAt string `json:"created_at"`
}

// ToEntry converts an Interaction row into its bus-facing representation.
func (i Interaction) ToEntry() HistoryEntry {
	return HistoryEntry{
		Question:  i.Question,
		Response:  i.Response,
		CreatedAt: i.CreatedAt.UTC().Format(time.RFC3339),
	}
}
