package entities

import "time"

// ScheduledJob is a deferred callback that must survive restarts,
// e.g. the interview-feedback request fired when an interview ends.
type ScheduledJob struct {
	ID        string `gorm:"primaryKey"`
	TriggerAt time.Time
	Payload   []byte
	CreatedAt time.Time
}
