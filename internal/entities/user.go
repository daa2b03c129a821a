package entities

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal slice of the account table this subsystem needs:
// webhook payloads carry an email address, not our user id.
type User struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	Email     string    `gorm:"uniqueIndex"`
	CreatedAt time.Time
}

// NotificationChannel links a user to an external delivery channel for
// pending-event notifications.
type NotificationChannel struct {
	UserID         uuid.UUID `gorm:"type:text;primaryKey"`
	TelegramChatID int64
	CreatedAt      time.Time
}
