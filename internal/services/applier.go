package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type vacancyUpdatesRepository interface {
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*entities.Vacancy, error)
	Update(ctx context.Context, vacancy entities.Vacancy) error
}

type auditsRepository interface {
	Add(ctx context.Context, audit entities.VacancyAudit) error
	GetByVacancy(ctx context.Context, vacancyID uuid.UUID) ([]entities.VacancyAudit, error)
}

type interviewCreator interface {
	CreateFromProposal(ctx context.Context, vacancy entities.Vacancy, userID uuid.UUID,
		proposal models.ProposedInterview) (*entities.Interview, error)
}

// fieldMutator applies one confirmed field change to the vacancy and
// reports the previous value and whether anything actually changed.
type fieldMutator func(v *entities.Vacancy, newValue string) (old string, changed bool)

// mutators is the full set of updatable fields, keyed by the lowercased
// field name the classifier emits. Both underscore and collapsed spellings
// are accepted where the classifier is known to produce either.
var mutators = map[string]fieldMutator{
	"status": func(v *entities.Vacancy, newValue string) (string, bool) {
		status, err := entities.ToVacancyStatus(newValue)
		if err != nil {
			log.Warnf("skipping unknown vacancy status %q", newValue)
			return "", false
		}
		old := string(v.Status)
		if v.Status == status {
			return old, false
		}
		v.Status = status
		return old, true
	},
	"location": func(v *entities.Vacancy, newValue string) (string, bool) {
		old := v.Location
		v.Location = newValue
		return old, old != newValue
	},
	"jobtitle": setTitle,
	"title":    setTitle,
	"description": func(v *entities.Vacancy, newValue string) (string, bool) {
		old := v.Description
		v.Description = newValue
		return old, old != newValue
	},
	"remoteness": func(v *entities.Vacancy, newValue string) (string, bool) {
		old := v.Remoteness
		v.Remoteness = newValue
		return old, old != newValue
	},
	"experiencelevel":  setExperienceLevel,
	"experience_level": setExperienceLevel,
	"jobtype":          setJobType,
	"job_type":         setJobType,
}

func setTitle(v *entities.Vacancy, newValue string) (string, bool) {
	old := v.Title
	v.Title = newValue
	return old, old != newValue
}

func setExperienceLevel(v *entities.Vacancy, newValue string) (string, bool) {
	old := v.ExperienceLevel
	v.ExperienceLevel = newValue
	return old, old != newValue
}

func setJobType(v *entities.Vacancy, newValue string) (string, bool) {
	old := v.JobType
	v.JobType = newValue
	return old, old != newValue
}

// VacancyUpdateService applies confirmed change sets to vacancies and
// keeps the audit trail faithful to what actually changed.
type VacancyUpdateService struct {
	vacancies  vacancyUpdatesRepository
	audits     auditsRepository
	interviews interviewCreator
}

func NewVacancyUpdateService(vacancies vacancyUpdatesRepository, audits auditsRepository,
	interviews interviewCreator) *VacancyUpdateService {

	return &VacancyUpdateService{vacancies: vacancies, audits: audits, interviews: interviews}
}

// ApplyChanges mutates the vacancy with every recognized, effective field
// change from the set. Unknown fields and invalid values are skipped, not
// fatal. One audit row summarizes the effective changes; an all-noop set
// writes nothing. A proposed interview is created independently, so an
// interview failure never rolls back applied field changes.
func (s *VacancyUpdateService) ApplyChanges(ctx context.Context, vacancyID, userID uuid.UUID,
	changeSet models.ChangeSet) error {

	vacancy, err := s.vacancies.GetByIDAndUser(ctx, vacancyID, userID)
	if err != nil {
		return err
	}
	if vacancy == nil {
		return errors.Errorf("vacancy %v not found for user %v", vacancyID, userID)
	}

	var applied []string
	for _, change := range changeSet.Changes {

		mutate, ok := mutators[strings.ToLower(change.FieldName)]
		if !ok {
			log.Warnf("skipping unknown vacancy field %q", change.FieldName)
			continue
		}
		old, changed := mutate(vacancy, change.NewValue)
		if !changed {
			continue
		}
		applied = append(applied, fmt.Sprintf("%s: '%s' -> '%s'", strings.ToLower(change.FieldName), old, change.NewValue))
	}

	if len(applied) > 0 {
		if err = s.vacancies.Update(ctx, *vacancy); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to update vacancy %v: %v", vacancy.ID, err)
			return err
		}
		if err = s.audits.Add(ctx, entities.VacancyAudit{
			ID:        uuid.New(),
			VacancyID: vacancy.ID,
			UserID:    userID,
			Action:    entities.AuditUpdated,
			Changes:   strings.Join(applied, "; "),
			Reason:    "email confirmation",
			Timestamp: time.Now(),
		}); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to record audit for vacancy %v: %v", vacancy.ID, err)
			return err
		}
		log.Infof("applied %d changes to vacancy %v", len(applied), vacancy.ID)
	} else {
		log.Debugf("change set for vacancy %v had no effect", vacancy.ID)
	}

	if changeSet.ProposedInterview != nil {
		if _, err := s.interviews.CreateFromProposal(ctx, *vacancy, userID, *changeSet.ProposedInterview); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to create interview for vacancy %v: %v", vacancy.ID, err)
		}
	}
	return nil
}

// AuditTrail returns the vacancy's change history, oldest first.
func (s *VacancyUpdateService) AuditTrail(ctx context.Context, vacancyID, userID uuid.UUID) ([]entities.VacancyAudit, error) {

	vacancy, err := s.vacancies.GetByIDAndUser(ctx, vacancyID, userID)
	if err != nil {
		return nil, err
	}
	if vacancy == nil {
		return nil, errors.Errorf("vacancy %v not found for user %v", vacancyID, userID)
	}
	return s.audits.GetByVacancy(ctx, vacancyID)
}
