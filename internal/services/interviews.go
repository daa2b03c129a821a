package services

import (
	"context"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type interviewsRepository interface {
	Add(ctx context.Context, interview *entities.Interview) error
	Update(ctx context.Context, interview entities.Interview) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Interview, error)
}

type feedbackScheduler interface {
	ScheduleInterviewFeedback(ctx context.Context, interview entities.Interview) error
	CancelInterviewFeedback(ctx context.Context, interviewID uuid.UUID) error
}

// InterviewService persists interviews and arranges the follow-up
// feedback request that fires once the interview should be over.
type InterviewService struct {
	interviews interviewsRepository
	feedback   feedbackScheduler
}

func NewInterviewService(interviews interviewsRepository, feedback feedbackScheduler) *InterviewService {
	return &InterviewService{interviews: interviews, feedback: feedback}
}

// CreateFromProposal saves the interview a classified email proposed and
// schedules its feedback job. A scheduling failure is logged, not fatal:
// the interview row is the source of truth.
func (s *InterviewService) CreateFromProposal(ctx context.Context, vacancy entities.Vacancy,
	userID uuid.UUID, proposal models.ProposedInterview) (*entities.Interview, error) {

	interview := entities.Interview{
		ID:               uuid.New(),
		UserID:           userID,
		VacancyID:        vacancy.ID,
		ScheduledAt:      proposal.ScheduledAt,
		DurationMinutes:  proposal.DurationMinutes,
		Type:             proposal.Type,
		Location:         proposal.Location,
		MeetingLink:      proposal.MeetingLink,
		InterviewerName:  proposal.InterviewerName,
		InterviewerEmail: proposal.InterviewerEmail,
		Notes:            proposal.Notes,
	}

	if err := s.interviews.Add(ctx, &interview); err != nil {
		return nil, err
	}
	log.Infof("created interview %v for vacancy %v at %v", interview.ID, vacancy.ID, interview.ScheduledAt)

	if err := s.feedback.ScheduleInterviewFeedback(ctx, interview); err != nil {
		log.Errorf("failed to schedule feedback for interview %v: %v", interview.ID, err)
	}
	return &interview, nil
}

// Cancel marks the interview cancelled and drops its pending feedback job.
func (s *InterviewService) Cancel(ctx context.Context, interviewID uuid.UUID) error {

	interview, err := s.interviews.GetByID(ctx, interviewID)
	if err != nil {
		return err
	}
	if interview == nil {
		return nil
	}

	interview.Status = entities.InterviewCancelled
	if err = s.interviews.Update(ctx, *interview); err != nil {
		return err
	}
	return s.feedback.CancelInterviewFeedback(ctx, interviewID)
}
