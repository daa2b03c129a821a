package services

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockNotificationLog struct {
	mock.Mock
}

func (m *mockNotificationLog) Add(ctx context.Context, event *entities.NotificationEvent) error {
	args := m.Called(ctx, event)
	if args.Error(0) == nil {
		event.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockNotificationLog) MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	return m.Called(ctx, id, processingError).Error(0)
}

type mockQuotaChecker struct {
	mock.Mock
}

func (m *mockQuotaChecker) CheckLimit(ctx context.Context, userID uuid.UUID, operationType string) (AILimitResult, error) {
	args := m.Called(ctx, userID, operationType)
	return args.Get(0).(AILimitResult), args.Error(1)
}

type mockEmailClassifier struct {
	mock.Mock
}

func (m *mockEmailClassifier) ClassifyEmail(ctx context.Context, subject, sender, body string) (models.ChangeSet, error) {
	args := m.Called(ctx, subject, sender, body)
	return args.Get(0).(models.ChangeSet), args.Error(1)
}

type mockConfirmationCreator struct {
	mock.Mock
}

func (m *mockConfirmationCreator) CreateChangeSetConfirmation(ctx context.Context, userID uuid.UUID,
	message models.MessageSummary, changeSet models.ChangeSet) error {
	return m.Called(ctx, userID, message, changeSet).Error(0)
}

func newProcessor(t *testing.T, notifications *mockNotificationLog, quota *mockQuotaChecker,
	classifier *mockEmailClassifier, confirmations *mockConfirmationCreator) *ChangeProcessor {

	processor, err := NewChangeProcessor(EventBus.New(), &mockHistoryDiffer{}, notifications,
		quota, classifier, confirmations)
	assert.NoError(t, err)
	return processor
}

func Test_ProcessMessage_DuplicateDeliveryIsSkippedEntirely(t *testing.T) {

	userID := uuid.New()
	notifications := &mockNotificationLog{}
	notifications.On("Add", mock.Anything, mock.Anything).Return(repositories.ErrDuplicateMessage)

	quota := &mockQuotaChecker{}
	classifier := &mockEmailClassifier{}

	processor := newProcessor(t, notifications, quota, classifier, &mockConfirmationCreator{})
	processor.processMessage(context.Background(), userID, models.MessageSummary{ID: "msg-1"})

	quota.AssertNotCalled(t, "CheckLimit", mock.Anything, mock.Anything, mock.Anything)
	classifier.AssertNotCalled(t, "ClassifyEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_ProcessMessage_QuotaRejectionSkipsClassification(t *testing.T) {

	userID := uuid.New()
	notifications := &mockNotificationLog{}
	notifications.On("Add", mock.Anything, mock.Anything).Return(nil)
	notifications.On("MarkProcessed", mock.Anything, mock.Anything, "Daily AI limit exceeded (20/day)").Return(nil)

	quota := &mockQuotaChecker{}
	quota.On("CheckLimit", mock.Anything, userID, classificationOperation).
		Return(AILimitResult{Allowed: false, LimitType: "daily", Message: "Daily AI limit exceeded (20/day)"}, nil)

	classifier := &mockEmailClassifier{}

	processor := newProcessor(t, notifications, quota, classifier, &mockConfirmationCreator{})
	processor.processMessage(context.Background(), userID, models.MessageSummary{ID: "msg-1", Subject: "Offer"})

	classifier.AssertNotCalled(t, "ClassifyEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifications.AssertExpectations(t)
}

func Test_ProcessMessage_JobRelatedEmailRaisesConfirmation(t *testing.T) {

	userID := uuid.New()
	message := models.MessageSummary{ID: "msg-1", Subject: "Interview invitation", Sender: "hr@example.com"}
	changeSet := models.ChangeSet{
		IsJobRelated: true,
		VacancyID:    uuid.New().String(),
		Changes:      []models.FieldChange{{FieldName: "status", NewValue: "INTERVIEW"}},
	}

	notifications := &mockNotificationLog{}
	notifications.On("Add", mock.Anything, mock.Anything).Return(nil)
	notifications.On("MarkProcessed", mock.Anything, mock.Anything, "").Return(nil)

	quota := &mockQuotaChecker{}
	quota.On("CheckLimit", mock.Anything, userID, classificationOperation).
		Return(AILimitResult{Allowed: true}, nil)

	classifier := &mockEmailClassifier{}
	classifier.On("ClassifyEmail", mock.Anything, message.Subject, message.Sender, mock.Anything).
		Return(changeSet, nil)

	confirmations := &mockConfirmationCreator{}
	confirmations.On("CreateChangeSetConfirmation", mock.Anything, userID, message, changeSet).Return(nil)

	processor := newProcessor(t, notifications, quota, classifier, confirmations)
	processor.processMessage(context.Background(), userID, message)

	confirmations.AssertExpectations(t)
	notifications.AssertExpectations(t)
}

func Test_ProcessMessage_RepeatedContentSkipsSecondClassification(t *testing.T) {

	userID := uuid.New()
	notifications := &mockNotificationLog{}
	notifications.On("Add", mock.Anything, mock.Anything).Return(nil)
	notifications.On("MarkProcessed", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	quota := &mockQuotaChecker{}
	quota.On("CheckLimit", mock.Anything, userID, classificationOperation).
		Return(AILimitResult{Allowed: true}, nil)

	classifier := &mockEmailClassifier{}
	classifier.On("ClassifyEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.ChangeSet{IsJobRelated: false}, nil)

	processor := newProcessor(t, notifications, quota, classifier, &mockConfirmationCreator{})
	processor.processMessage(context.Background(), userID,
		models.MessageSummary{ID: "msg-1", Subject: "Offer", Sender: "hr@example.com"})
	processor.processMessage(context.Background(), userID,
		models.MessageSummary{ID: "msg-2", Subject: "Offer", Sender: "hr@example.com"})

	classifier.AssertNumberOfCalls(t, "ClassifyEmail", 1)
}

func Test_ProcessMessage_NonJobEmailCreatesNoConfirmation(t *testing.T) {

	userID := uuid.New()
	notifications := &mockNotificationLog{}
	notifications.On("Add", mock.Anything, mock.Anything).Return(nil)
	notifications.On("MarkProcessed", mock.Anything, mock.Anything, "").Return(nil)

	quota := &mockQuotaChecker{}
	quota.On("CheckLimit", mock.Anything, userID, classificationOperation).
		Return(AILimitResult{Allowed: true}, nil)

	classifier := &mockEmailClassifier{}
	classifier.On("ClassifyEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(models.ChangeSet{IsJobRelated: false}, nil)

	confirmations := &mockConfirmationCreator{}

	processor := newProcessor(t, notifications, quota, classifier, confirmations)
	processor.processMessage(context.Background(), userID,
		models.MessageSummary{ID: "msg-1", Subject: "Newsletter", Sender: "news@example.com"})

	confirmations.AssertNotCalled(t, "CreateChangeSetConfirmation",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	notifications.AssertExpectations(t)
}
