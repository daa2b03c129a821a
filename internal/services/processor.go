package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/events"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/compahunt/mailsync/internal/metrics"
	"github.com/compahunt/mailsync/internal/repositories"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const classificationOperation = "email_classification"

type mailboxWatcher interface {
	HandleNotification(ctx context.Context, userID uuid.UUID, newCursor uint64) ([]models.MessageSummary, error)
}

type notificationLog interface {
	Add(ctx context.Context, event *entities.NotificationEvent) error
	MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error
}

type quotaChecker interface {
	CheckLimit(ctx context.Context, userID uuid.UUID, operationType string) (AILimitResult, error)
}

type emailClassifier interface {
	ClassifyEmail(ctx context.Context, subject, sender, body string) (models.ChangeSet, error)
}

type confirmationCreator interface {
	CreateChangeSetConfirmation(ctx context.Context, userID uuid.UUID,
		message models.MessageSummary, changeSet models.ChangeSet) error
}

// ChangeProcessor drives one mailbox notification end to end: diff the
// history, record each message exactly once, classify the new ones within
// quota and raise pending events for whatever the classifier found.
type ChangeProcessor struct {
	bus           EventBus.Bus
	watcher       mailboxWatcher
	notifications notificationLog
	quota         quotaChecker
	classifier    emailClassifier
	confirmations confirmationCreator
	seenContent   *gocache.Cache
}

func NewChangeProcessor(bus EventBus.Bus, watcher mailboxWatcher, notifications notificationLog,
	quota quotaChecker, classifier emailClassifier, confirmations confirmationCreator) (*ChangeProcessor, error) {

	processor := &ChangeProcessor{
		bus:           bus,
		watcher:       watcher,
		notifications: notifications,
		quota:         quota,
		classifier:    classifier,
		confirmations: confirmations,
		seenContent:   gocache.New(24*time.Hour, time.Hour),
	}

	err := bus.SubscribeAsync(events.MailboxChangedTopic, processor.onMailboxChanged, false)
	if err != nil {
		return nil, errors.Wrap(err, "failed to subscribe to mailbox changes")
	}
	return processor, nil
}

func (p *ChangeProcessor) onMailboxChanged(event events.MailboxChanged) {

	ctx := context.Background()

	summaries, err := p.watcher.HandleNotification(ctx, event.UserID, event.HistoryID)
	if err != nil {
		if errors.Is(err, ErrNoValidToken) {
			log.Warnf("user %v has no valid token, mailbox change left for retry", event.UserID)
			return
		}
		log.Errorf("failed to handle mailbox change for user %v: %v", event.UserID, err)
		return
	}

	for _, message := range summaries {
		p.processMessage(ctx, event.UserID, message)
	}
}

func (p *ChangeProcessor) processMessage(ctx context.Context, userID uuid.UUID, message models.MessageSummary) {

	record := entities.NotificationEvent{
		UserID:       userID,
		MessageID:    message.ID,
		HistoryID:    message.HistoryID,
		EmailSubject: message.Subject,
		EmailSender:  message.Sender,
	}
	if err := p.notifications.Add(ctx, &record); err != nil {
		if errors.Is(err, repositories.ErrDuplicateMessage) {
			log.Debugf("message %v already recorded for user %v, skipping", message.ID, userID)
			return
		}
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to record message %v: %v", message.ID, err)
		return
	}

	contentID := contentCacheID(userID, message.Subject, message.Sender)
	if _, seen := p.seenContent.Get(contentID); seen {
		log.Debugf("message %v duplicates recently classified content, skipping AI", message.ID)
		p.markProcessed(ctx, record.ID, "duplicate content")
		return
	}

	quota, err := p.quota.CheckLimit(ctx, userID, classificationOperation)
	if err != nil {
		log.Errorf("quota check failed for user %v: %v", userID, err)
		p.markProcessed(ctx, record.ID, "quota check failed")
		return
	}
	if !quota.Allowed {
		metrics.QuotaRejectionsCounter.WithLabelValues(quota.LimitType).Inc()
		log.Infof("user %v hit the %s AI limit, message %v not classified", userID, quota.LimitType, message.ID)
		p.markProcessed(ctx, record.ID, quota.Message)
		return
	}

	start := time.Now()
	changeSet, err := p.classifier.ClassifyEmail(ctx, message.Subject, message.Sender, "")
	metrics.PipelineStepDuration.WithLabelValues("ai_classification").Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeAiApi).
			Errorf("failed to classify message %v: %v", message.ID, err)
		p.markProcessed(ctx, record.ID, err.Error())
		return
	}
	metrics.ClassifiedMessagesCounter.Inc()

	if cacheErr := p.seenContent.Add(contentID, struct{}{}, gocache.DefaultExpiration); cacheErr != nil {
		log.Errorf("failed to cache message content id: %v", cacheErr)
	}

	if !changeSet.IsJobRelated {
		log.Debugf("message %v is not job related", message.ID)
		p.markProcessed(ctx, record.ID, "")
		return
	}

	if err = p.confirmations.CreateChangeSetConfirmation(ctx, userID, message, changeSet); err != nil {
		log.Errorf("failed to raise confirmation for message %v: %v", message.ID, err)
		p.markProcessed(ctx, record.ID, err.Error())
		return
	}
	p.markProcessed(ctx, record.ID, "")
}

func (p *ChangeProcessor) markProcessed(ctx context.Context, id uuid.UUID, processingError string) {
	if err := p.notifications.MarkProcessed(ctx, id, processingError); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to mark notification %v processed: %v", id, err)
	}
}

func contentCacheID(userID uuid.UUID, subject, sender string) string {
	hash := sha256.Sum256([]byte(userID.String() + "|" + subject + "|" + sender))
	return hex.EncodeToString(hash[:])
}
