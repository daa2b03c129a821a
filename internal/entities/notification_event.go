package entities

import (
	"time"

	"github.com/google/uuid"
)

// NotificationEvent records every mailbox message the pipeline has seen.
// The unique (user, message) index is what makes reprocessing after an
// at-least-once webhook delivery a no-op.
type NotificationEvent struct {
	ID              uuid.UUID `gorm:"type:text;primaryKey"`
	UserID          uuid.UUID `gorm:"type:text;index:idx_notification_user_message,unique"`
	MessageID       string    `gorm:"index:idx_notification_user_message,unique"`
	HistoryID       uint64
	EmailSubject    string
	EmailSender     string
	ProcessedByAI   bool
	ProcessingError string
	CreatedAt       time.Time
}
