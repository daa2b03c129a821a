package entities

import (
	"time"

	"github.com/google/uuid"
)

type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "SCHEDULED"
	InterviewCompleted InterviewStatus = "COMPLETED"
	InterviewCancelled InterviewStatus = "CANCELLED"
	InterviewNoShow    InterviewStatus = "NO_SHOW"
)

func (s InterviewStatus) Finished() bool {
	return s == InterviewCompleted || s == InterviewCancelled || s == InterviewNoShow
}

type Interview struct {
	ID               uuid.UUID `gorm:"type:text;primaryKey"`
	UserID           uuid.UUID `gorm:"type:text;index"`
	VacancyID        uuid.UUID `gorm:"type:text;index"`
	ScheduledAt      time.Time
	DurationMinutes  int
	Type             string
	Status           InterviewStatus
	Location         string
	MeetingLink      string
	InterviewerName  string
	InterviewerEmail string
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
