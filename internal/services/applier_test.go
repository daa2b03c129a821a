package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockVacancyUpdates struct {
	mock.Mock
}

func (m *mockVacancyUpdates) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*entities.Vacancy, error) {
	args := m.Called(ctx, id, userID)
	vacancy, _ := args.Get(0).(*entities.Vacancy)
	return vacancy, args.Error(1)
}

func (m *mockVacancyUpdates) Update(ctx context.Context, vacancy entities.Vacancy) error {
	return m.Called(ctx, vacancy).Error(0)
}

type mockAudits struct {
	mock.Mock
}

func (m *mockAudits) Add(ctx context.Context, audit entities.VacancyAudit) error {
	return m.Called(ctx, audit).Error(0)
}

func (m *mockAudits) GetByVacancy(ctx context.Context, vacancyID uuid.UUID) ([]entities.VacancyAudit, error) {
	args := m.Called(ctx, vacancyID)
	audits, _ := args.Get(0).([]entities.VacancyAudit)
	return audits, args.Error(1)
}

type mockInterviewCreator struct {
	mock.Mock
}

func (m *mockInterviewCreator) CreateFromProposal(ctx context.Context, vacancy entities.Vacancy,
	userID uuid.UUID, proposal models.ProposedInterview) (*entities.Interview, error) {
	args := m.Called(ctx, vacancy, userID, proposal)
	interview, _ := args.Get(0).(*entities.Interview)
	return interview, args.Error(1)
}

func trackedVacancy(userID uuid.UUID) *entities.Vacancy {
	return &entities.Vacancy{
		ID:       uuid.New(),
		UserID:   userID,
		Title:    "Go developer",
		Status:   entities.StatusApplied,
		Location: "Berlin",
	}
}

func Test_ApplyChanges_AppliesKnownFieldsAndAuditsOnce(t *testing.T) {

	userID := uuid.New()
	vacancy := trackedVacancy(userID)

	vacancies := &mockVacancyUpdates{}
	vacancies.On("GetByIDAndUser", mock.Anything, vacancy.ID, userID).Return(vacancy, nil)
	vacancies.On("Update", mock.Anything, mock.MatchedBy(func(updated entities.Vacancy) bool {
		return updated.Status == entities.StatusInterview && updated.Location == "Remote"
	})).Return(nil)

	audits := &mockAudits{}
	audits.On("Add", mock.Anything, mock.MatchedBy(func(audit entities.VacancyAudit) bool {
		return audit.Action == entities.AuditUpdated &&
			strings.Contains(audit.Changes, "status: 'APPLIED' -> 'INTERVIEW'") &&
			strings.Contains(audit.Changes, "location: 'Berlin' -> 'Remote'")
	})).Return(nil).Once()

	service := NewVacancyUpdateService(vacancies, audits, &mockInterviewCreator{})
	err := service.ApplyChanges(context.Background(), vacancy.ID, userID, models.ChangeSet{
		Changes: []models.FieldChange{
			{FieldName: "Status", NewValue: "INTERVIEW"},
			{FieldName: "location", NewValue: "Remote"},
		},
	})

	assert.NoError(t, err)
	vacancies.AssertExpectations(t)
	audits.AssertExpectations(t)
}

func Test_ApplyChanges_SkipsUnknownFieldAndInvalidStatus(t *testing.T) {

	userID := uuid.New()
	vacancy := trackedVacancy(userID)

	vacancies := &mockVacancyUpdates{}
	vacancies.On("GetByIDAndUser", mock.Anything, vacancy.ID, userID).Return(vacancy, nil)
	vacancies.On("Update", mock.Anything, mock.MatchedBy(func(updated entities.Vacancy) bool {
		return updated.Location == "Munich" && updated.Status == entities.StatusApplied
	})).Return(nil)

	audits := &mockAudits{}
	audits.On("Add", mock.Anything, mock.MatchedBy(func(audit entities.VacancyAudit) bool {
		return !strings.Contains(audit.Changes, "salary") && !strings.Contains(audit.Changes, "status")
	})).Return(nil)

	service := NewVacancyUpdateService(vacancies, audits, &mockInterviewCreator{})
	err := service.ApplyChanges(context.Background(), vacancy.ID, userID, models.ChangeSet{
		Changes: []models.FieldChange{
			{FieldName: "salary", NewValue: "100k"},
			{FieldName: "status", NewValue: "GHOSTED"},
			{FieldName: "location", NewValue: "Munich"},
		},
	})

	assert.NoError(t, err)
	vacancies.AssertExpectations(t)
}

func Test_ApplyChanges_NoopSetWritesNothing(t *testing.T) {

	userID := uuid.New()
	vacancy := trackedVacancy(userID)

	vacancies := &mockVacancyUpdates{}
	vacancies.On("GetByIDAndUser", mock.Anything, vacancy.ID, userID).Return(vacancy, nil)

	audits := &mockAudits{}

	service := NewVacancyUpdateService(vacancies, audits, &mockInterviewCreator{})
	err := service.ApplyChanges(context.Background(), vacancy.ID, userID, models.ChangeSet{
		Changes: []models.FieldChange{
			{FieldName: "location", NewValue: "Berlin"}, // unchanged
			{FieldName: "unknown_field", NewValue: "whatever"},
		},
	})

	assert.NoError(t, err)
	vacancies.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	audits.AssertNotCalled(t, "Add", mock.Anything, mock.Anything)
}

func Test_ApplyChanges_AcceptsUnderscoreFieldSpellings(t *testing.T) {

	userID := uuid.New()
	vacancy := trackedVacancy(userID)

	vacancies := &mockVacancyUpdates{}
	vacancies.On("GetByIDAndUser", mock.Anything, vacancy.ID, userID).Return(vacancy, nil)
	vacancies.On("Update", mock.Anything, mock.MatchedBy(func(updated entities.Vacancy) bool {
		return updated.ExperienceLevel == "Senior" && updated.JobType == "Full-time"
	})).Return(nil)

	audits := &mockAudits{}
	audits.On("Add", mock.Anything, mock.Anything).Return(nil)

	service := NewVacancyUpdateService(vacancies, audits, &mockInterviewCreator{})
	err := service.ApplyChanges(context.Background(), vacancy.ID, userID, models.ChangeSet{
		Changes: []models.FieldChange{
			{FieldName: "experience_level", NewValue: "Senior"},
			{FieldName: "jobtype", NewValue: "Full-time"},
		},
	})

	assert.NoError(t, err)
	vacancies.AssertExpectations(t)
}

func Test_ApplyChanges_InterviewFailureDoesNotRollBackFieldChanges(t *testing.T) {

	userID := uuid.New()
	vacancy := trackedVacancy(userID)
	proposal := models.ProposedInterview{ScheduledAt: time.Now().Add(24 * time.Hour)}

	vacancies := &mockVacancyUpdates{}
	vacancies.On("GetByIDAndUser", mock.Anything, vacancy.ID, userID).Return(vacancy, nil)
	vacancies.On("Update", mock.Anything, mock.Anything).Return(nil)

	audits := &mockAudits{}
	audits.On("Add", mock.Anything, mock.Anything).Return(nil)

	interviews := &mockInterviewCreator{}
	interviews.On("CreateFromProposal", mock.Anything, mock.Anything, userID, proposal).
		Return(nil, errors.New("db is down"))

	service := NewVacancyUpdateService(vacancies, audits, interviews)
	err := service.ApplyChanges(context.Background(), vacancy.ID, userID, models.ChangeSet{
		Changes:           []models.FieldChange{{FieldName: "status", NewValue: "interview"}},
		ProposedInterview: &proposal,
	})

	assert.NoError(t, err)
	vacancies.AssertExpectations(t)
	interviews.AssertExpectations(t)
}
