package entities

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventInterviewFeedback  EventType = "INTERVIEW_FEEDBACK"
	EventAIStatusChange     EventType = "AI_STATUS_CHANGE"
	EventAIInterview        EventType = "AI_INTERVIEW_SCHEDULED"
	EventAIVacancyCreation  EventType = "AI_VACANCY_CREATION"
	EventSystemNotification EventType = "SYSTEM_NOTIFICATION"
)

// defaultPriorities maps event type to its default priority,
// 1 = most urgent. Adding a new type means one constant and one row here.
var defaultPriorities = map[EventType]int{
	EventInterviewFeedback:  1,
	EventAIStatusChange:     2,
	EventAIInterview:        2,
	EventAIVacancyCreation:  2,
	EventSystemNotification: 3,
}

func (t EventType) DefaultPriority() int {
	if p, ok := defaultPriorities[t]; ok {
		return p
	}
	return 2
}

func (t EventType) DisplayName() string {
	switch t {
	case EventInterviewFeedback:
		return "Interview Feedback Required"
	case EventAIStatusChange:
		return "Application Status Update"
	case EventAIInterview:
		return "Interview Scheduled"
	case EventAIVacancyCreation:
		return "New Vacancy Detected"
	case EventSystemNotification:
		return "System Notification"
	}
	return string(t)
}

// PendingEvent is a user-facing confirmation item. For a given
// (user, type, interview, vacancy) at most one unresolved row exists;
// creation reuses the existing one instead of duplicating.
type PendingEvent struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	UserID       uuid.UUID `gorm:"type:text;index"`
	EventType    EventType
	EventSubtype string
	Title        string
	Description  string
	Priority     int
	InterviewID  *uuid.UUID `gorm:"type:text"`
	VacancyID    *uuid.UUID `gorm:"type:text"`
	Metadata     string     // json blob from the classifier
	IsResolved   bool       `gorm:"index"`
	ScheduledFor *time.Time
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
