package models

import "time"

type ChangeType string

const (
	ChangeUpdated ChangeType = "UPDATED"
	ChangeAdded   ChangeType = "ADDED"
	ChangeRemoved ChangeType = "REMOVED"
)

// FieldChange is one field-name/new-value pair produced by classifying
// unstructured email text.
type FieldChange struct {
	FieldName  string     `json:"fieldName"`
	OldValue   string     `json:"oldValue"`
	NewValue   string     `json:"newValue"`
	ChangeType ChangeType `json:"changeType"`
}

// ProposedInterview is an interview the classifier believes the email
// announces. It is a suggestion, not a command.
type ProposedInterview struct {
	ScheduledAt      time.Time `json:"scheduledAt"`
	DurationMinutes  int       `json:"duration"`
	Type             string    `json:"type"`
	Location         string    `json:"location"`
	MeetingLink      string    `json:"meetingLink"`
	InterviewerName  string    `json:"interviewerName"`
	InterviewerEmail string    `json:"interviewerEmail"`
	Notes            string    `json:"notes"`
}

// ChangeSet is the structured output of one email classification.
// VacancyID may be empty or garbage since it comes from a probabilistic
// model; consumers must treat it as a hint.
type ChangeSet struct {
	IsJobRelated      bool               `json:"isJobRelated"`
	VacancyID         string             `json:"vacancyId"`
	Changes           []FieldChange      `json:"changes"`
	ProposedInterview *ProposedInterview `json:"proposedInterview,omitempty"`
}

// MessageSummary is the header-only view of one new mailbox message
// produced by a history diff.
type MessageSummary struct {
	ID        string
	Subject   string
	Sender    string
	HistoryID uint64
}
