package entities

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditCreated  AuditAction = "CREATED"
	AuditUpdated  AuditAction = "UPDATED"
	AuditArchived AuditAction = "ARCHIVED"
)

// VacancyAudit is append-only: one row per effective state change,
// never mutated or deleted by business flow.
type VacancyAudit struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	VacancyID uuid.UUID `gorm:"type:text;index"`
	UserID    uuid.UUID `gorm:"type:text"`
	Action    AuditAction
	FieldName string
	OldValue  string
	NewValue  string
	Changes   string
	Reason    string
	Timestamp time.Time
}
