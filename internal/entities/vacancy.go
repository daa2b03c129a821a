package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type VacancyStatus string

const (
	StatusApplied     VacancyStatus = "APPLIED"
	StatusViewed      VacancyStatus = "VIEWED"
	StatusPhoneScreen VacancyStatus = "PHONE_SCREEN"
	StatusInterview   VacancyStatus = "INTERVIEW"
	StatusOffer       VacancyStatus = "OFFER"
	StatusRejected    VacancyStatus = "REJECTED"
	StatusArchived    VacancyStatus = "ARCHIVED"
)

func ToVacancyStatus(s string) (VacancyStatus, error) {
	switch VacancyStatus(strings.ToUpper(s)) {
	case StatusApplied, StatusViewed, StatusPhoneScreen, StatusInterview,
		StatusOffer, StatusRejected, StatusArchived:
		return VacancyStatus(strings.ToUpper(s)), nil
	default:
		return "", errors.New("invalid vacancy status")
	}
}

// Vacancy is the tracked job application the pipeline mutates.
type Vacancy struct {
	ID              uuid.UUID `gorm:"type:text;primaryKey"`
	UserID          uuid.UUID `gorm:"type:text;index"`
	Title           string
	Company         string
	Location        string
	Description     string
	Status          VacancyStatus
	Remoteness      string
	ExperienceLevel string
	JobType         string
	Url             string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
