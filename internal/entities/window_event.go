package entities

import "time"

// WindowEvent is one admitted request inside a sliding rate-limit window.
// Not a business entity, purely an accounting row with its own expiry.
type WindowEvent struct {
	ID        int64  `gorm:"primaryKey"`
	Key       string `gorm:"index"`
	Timestamp time.Time
}
