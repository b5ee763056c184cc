package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Chat is a named conversation container belonging to one user. Soft
// deletion is represented by a non-null DeletedAt; the row itself is never
// physically removed, preserving audit lineage.
type Chat struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	UserID      uuid.UUID    `json:"user_id" db:"user_id"`
	Name        string       `json:"name" db:"name"`
	Description string       `json:"description" db:"description"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
	DeletedAt   sql.NullTime `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsLive reports whether the chat has not been soft-deleted.
func (c Chat) IsLive() bool {
	return !c.DeletedAt.Valid
}

// ChatEntry is the bus-facing value object for a single chat, matching the
// DBus ChatEntry shape used by the original source's chat structures.
type ChatEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	DeletedAt   string `json:"deleted_at"`
}

// ToEntry converts a Chat row into its bus-facing representation.
func (c Chat) ToEntry() ChatEntry {
	deletedAt := ""
	if c.DeletedAt.Valid {
		deletedAt = c.DeletedAt.Time.UTC().Format(time.RFC3339)
	}
	return ChatEntry{
		ID:          c.ID.String(),
		Name:        c.Name,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   c.UpdatedAt.UTC().Format(time.RFC3339),
		DeletedAt:   deletedAt,
	}
}
