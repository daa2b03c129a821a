package entities

import (
	"time"

	"github.com/google/uuid"
)

// WatchSubscription is a registration for mailbox push notifications.
// At most one row per user may have IsActive = true; HistoryID is the
// provider-assigned cursor and only moves forward.
type WatchSubscription struct {
	ID         uuid.UUID `gorm:"type:text;primaryKey"`
	UserID     uuid.UUID `gorm:"type:text;index"`
	HistoryID  uint64
	Expiration time.Time
	IsActive   bool `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (s *WatchSubscription) Expired() bool {
	return s.Expiration.Before(time.Now())
}
