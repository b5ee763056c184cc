package models

import (
	"time"

	"github.com/google/uuid"
)

// User maps a stable internal identity to the OS uid the daemon first saw it
// under. Rows are created lazily by the session service and are never
// deleted by the application.
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OSUID     uint32    `json:"os_uid" db:"os_uid"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
