package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/events"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrEventNotOwned is returned when a user tries to resolve an event that
// belongs to someone else.
var ErrEventNotOwned = errors.New("pending event belongs to another user")

type pendingEventsRepository interface {
	Create(ctx context.Context, event entities.PendingEvent) (entities.PendingEvent, error)
	FindExistingUnresolved(ctx context.Context, userID uuid.UUID, eventType entities.EventType,
		interviewID, vacancyID *uuid.UUID) (*entities.PendingEvent, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PendingEvent, error)
	GetUnresolvedByUser(ctx context.Context, userID uuid.UUID) ([]entities.PendingEvent, error)
	CountUnresolvedByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Resolve(ctx context.Context, id uuid.UUID) error
	ResolveManyOwned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error)
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type vacancyFinder interface {
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*entities.Vacancy, error)
}

type interviewFinder interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Interview, error)
}

type jobScheduler interface {
	Schedule(ctx context.Context, id string, triggerAt time.Time, payload []byte) error
	Cancel(ctx context.Context, id string) error
}

type eventPublisher interface {
	Publish(topic string, args ...interface{})
}

// CreateEventInput carries everything needed to raise one pending event.
// Priority zero means "use the default for the type".
type CreateEventInput struct {
	UserID       uuid.UUID
	EventType    entities.EventType
	EventSubtype string
	Title        string
	Description  string
	Priority     int
	InterviewID  *uuid.UUID
	VacancyID    *uuid.UUID
	Metadata     string
	ScheduledFor *time.Time
}

type feedbackPayload struct {
	InterviewID uuid.UUID `json:"interviewId"`
	VacancyID   uuid.UUID `json:"vacancyId"`
	UserID      uuid.UUID `json:"userId"`
}

// PendingEventService owns the ledger of items waiting for the user's
// confirmation. Creation is deduplicating, resolution is idempotent and
// bulk resolution is all-or-nothing.
type PendingEventService struct {
	events     pendingEventsRepository
	vacancies  vacancyFinder
	interviews interviewFinder
	scheduler  jobScheduler
	bus        eventPublisher
}

func NewPendingEventService(events pendingEventsRepository, vacancies vacancyFinder,
	interviews interviewFinder, scheduler jobScheduler, bus eventPublisher) *PendingEventService {

	return &PendingEventService{
		events:     events,
		vacancies:  vacancies,
		interviews: interviews,
		scheduler:  scheduler,
		bus:        bus,
	}
}

// Create raises a pending event unless an unresolved one with the same
// user, type and links already exists, in which case the existing row is
// returned untouched.
func (s *PendingEventService) Create(ctx context.Context, input CreateEventInput) (entities.PendingEvent, error) {

	existing, err := s.events.FindExistingUnresolved(ctx, input.UserID, input.EventType,
		input.InterviewID, input.VacancyID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to query existing pending events: %v", err)
		return entities.PendingEvent{}, err
	}
	if existing != nil {
		log.Debugf("pending event %v already covers this change, reusing it", existing.ID)
		return *existing, nil
	}

	priority := input.Priority
	if priority == 0 {
		priority = input.EventType.DefaultPriority()
	}
	title := input.Title
	if title == "" {
		title = input.EventType.DisplayName()
	}

	created, err := s.events.Create(ctx, entities.PendingEvent{
		ID:           uuid.New(),
		UserID:       input.UserID,
		EventType:    input.EventType,
		EventSubtype: input.EventSubtype,
		Title:        title,
		Description:  input.Description,
		Priority:     priority,
		InterviewID:  input.InterviewID,
		VacancyID:    input.VacancyID,
		Metadata:     input.Metadata,
		ScheduledFor: input.ScheduledFor,
	})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to create pending event: %v", err)
		return entities.PendingEvent{}, err
	}

	log.Infof("created pending event %v of type %s for user %v", created.ID, created.EventType, created.UserID)
	s.bus.Publish(events.PendingEventCreatedTopic, events.PendingEventCreated{Event: created})
	return created, nil
}

// ListUnresolved returns the user's open items, most urgent first and
// oldest first within a priority.
func (s *PendingEventService) ListUnresolved(ctx context.Context, userID uuid.UUID) ([]entities.PendingEvent, error) {
	return s.events.GetUnresolvedByUser(ctx, userID)
}

// GroupByVacancy buckets the user's open items by the vacancy they link
// to. Events without a vacancy land under uuid.Nil.
func (s *PendingEventService) GroupByVacancy(ctx context.Context, userID uuid.UUID) (map[uuid.UUID][]entities.PendingEvent, error) {

	unresolved, err := s.events.GetUnresolvedByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	grouped := make(map[uuid.UUID][]entities.PendingEvent)
	for _, event := range unresolved {
		key := uuid.Nil
		if event.VacancyID != nil {
			key = *event.VacancyID
		}
		grouped[key] = append(grouped[key], event)
	}
	return grouped, nil
}

func (s *PendingEventService) CountUnresolved(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.events.CountUnresolvedByUser(ctx, userID)
}

// Get returns the event when it exists and belongs to the user.
func (s *PendingEventService) Get(ctx context.Context, id, userID uuid.UUID) (*entities.PendingEvent, error) {

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, nil
	}
	if event.UserID != userID {
		return nil, errors.Wrapf(ErrEventNotOwned, "event %v", id)
	}
	return event, nil
}

// Resolve marks one event handled. Resolving an already resolved event is
// a no-op; resolving someone else's event is an error.
func (s *PendingEventService) Resolve(ctx context.Context, id, userID uuid.UUID) error {

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if event == nil {
		return errors.Errorf("pending event %v not found", id)
	}
	if event.UserID != userID {
		return errors.Wrapf(ErrEventNotOwned, "event %v", id)
	}
	return s.events.Resolve(ctx, id)
}

// ResolveMany resolves the whole batch or nothing: when any id is missing
// or belongs to another user, no event is touched.
func (s *PendingEventService) ResolveMany(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) error {

	if len(ids) == 0 {
		return nil
	}
	affected, err := s.events.ResolveManyOwned(ctx, ids, userID)
	if err != nil {
		return err
	}
	log.Infof("resolved %d pending events for user %v", affected, userID)
	return nil
}

// PurgeResolvedOlderThan removes resolved events whose resolution is older
// than the retention window and reports how many were removed.
func (s *PendingEventService) PurgeResolvedOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return s.events.DeleteResolvedBefore(ctx, time.Now().Add(-retention))
}

// CreateChangeSetConfirmation turns one classified email into the pending
// event the user will act on. A change set that names no resolvable
// vacancy becomes a vacancy-creation proposal instead of an update.
func (s *PendingEventService) CreateChangeSetConfirmation(ctx context.Context, userID uuid.UUID,
	message models.MessageSummary, changeSet models.ChangeSet) error {

	metadata, err := json.Marshal(changeSet)
	if err != nil {
		return errors.Wrap(err, "failed to serialize change set")
	}

	vacancy, err := s.resolveVacancy(ctx, userID, changeSet.VacancyID)
	if err != nil {
		return err
	}

	if vacancy == nil {
		_, err = s.Create(ctx, CreateEventInput{
			UserID:      userID,
			EventType:   entities.EventAIVacancyCreation,
			Description: fmt.Sprintf("Email %q looks like a new application", message.Subject),
			Metadata:    string(metadata),
		})
		return err
	}

	vacancyID := vacancy.ID
	if len(changeSet.Changes) > 0 {
		_, err = s.Create(ctx, CreateEventInput{
			UserID:      userID,
			EventType:   entities.EventAIStatusChange,
			Description: fmt.Sprintf("Email %q suggests changes to %s", message.Subject, vacancy.Title),
			VacancyID:   &vacancyID,
			Metadata:    string(metadata),
		})
		if err != nil {
			return err
		}
	}

	if changeSet.ProposedInterview != nil {
		_, err = s.Create(ctx, CreateEventInput{
			UserID:       userID,
			EventType:    entities.EventAIInterview,
			Description:  fmt.Sprintf("Email %q mentions an interview for %s", message.Subject, vacancy.Title),
			VacancyID:    &vacancyID,
			Metadata:     string(metadata),
			ScheduledFor: &changeSet.ProposedInterview.ScheduledAt,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveVacancy maps the classifier's vacancy hint to an owned row.
// Blank or malformed ids and ids the user does not own all resolve to nil.
func (s *PendingEventService) resolveVacancy(ctx context.Context, userID uuid.UUID, hint string) (*entities.Vacancy, error) {

	if hint == "" {
		return nil, nil
	}
	id, err := uuid.Parse(hint)
	if err != nil {
		log.Warnf("classifier produced unparseable vacancy id %q, treating as unknown", hint)
		return nil, nil
	}
	vacancy, err := s.vacancies.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to look up vacancy %v: %v", id, err)
		return nil, err
	}
	return vacancy, nil
}

// ScheduleInterviewFeedback enqueues a durable one-shot job that fires
// once the interview should be over. Interviews already in the past get
// no job.
func (s *PendingEventService) ScheduleInterviewFeedback(ctx context.Context, interview entities.Interview) error {

	triggerAt := interview.ScheduledAt.Add(time.Duration(interview.DurationMinutes) * time.Minute)
	if triggerAt.Before(time.Now()) {
		log.Debugf("interview %v already ended, skipping feedback job", interview.ID)
		return nil
	}

	payload, err := json.Marshal(feedbackPayload{
		InterviewID: interview.ID,
		VacancyID:   interview.VacancyID,
		UserID:      interview.UserID,
	})
	if err != nil {
		return errors.Wrap(err, "failed to serialize feedback payload")
	}
	return s.scheduler.Schedule(ctx, feedbackJobID(interview.ID), triggerAt, payload)
}

func (s *PendingEventService) CancelInterviewFeedback(ctx context.Context, interviewID uuid.UUID) error {
	return s.scheduler.Cancel(ctx, feedbackJobID(interviewID))
}

// HandleFeedbackDue runs when a feedback job fires. Interviews that were
// deleted or finished in the meantime produce no event.
func (s *PendingEventService) HandleFeedbackDue(ctx context.Context, payload []byte) error {

	var job feedbackPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return errors.Wrap(err, "failed to parse feedback payload")
	}

	interview, err := s.interviews.GetByID(ctx, job.InterviewID)
	if err != nil {
		return err
	}
	if interview == nil || interview.Status.Finished() {
		log.Debugf("interview %v is gone or finished, no feedback requested", job.InterviewID)
		return nil
	}

	interviewID := interview.ID
	vacancyID := interview.VacancyID
	_, err = s.Create(ctx, CreateEventInput{
		UserID:      job.UserID,
		EventType:   entities.EventInterviewFeedback,
		Description: "How did the interview go?",
		InterviewID: &interviewID,
		VacancyID:   &vacancyID,
	})
	return err
}

func feedbackJobID(interviewID uuid.UUID) string {
	return "interview-feedback-" + interviewID.String()
}
