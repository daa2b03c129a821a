package services

import (
	"context"
	"sync"
	"time"

	"github.com/compahunt/mailsync/internal/clients/gmail"
	"github.com/compahunt/mailsync/internal/domain/models"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/compahunt/mailsync/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrNoValidToken is reported when the user has to re-authorize mailbox
// access before a subscription can be created.
var ErrNoValidToken = errors.New("no valid mailbox token, reauthorization required")

type watchClient interface {
	Watch(accessToken, topic string, labelIDs []string) (gmail.WatchResult, error)
	Stop(accessToken string) error
}

type subscriptionRepository interface {
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*entities.WatchSubscription, error)
	SwapActive(ctx context.Context, sub entities.WatchSubscription) error
	Deactivate(ctx context.Context, userID uuid.UUID) error
	AdvanceCursor(ctx context.Context, subID uuid.UUID, historyID uint64) error
	GetExpiringBefore(ctx context.Context, deadline time.Time) ([]entities.WatchSubscription, error)
}

type tokenProvider interface {
	GetValidToken(ctx context.Context, userID uuid.UUID) (string, error)
}

type historyDiffer interface {
	Diff(accessToken string, fromCursor, toCursor uint64) []models.MessageSummary
}

// WatchService owns the per-user push subscription lifecycle and the
// monotonic cursor that positions diffs in the mailbox change stream.
type WatchService struct {
	subscriptions subscriptionRepository
	tokens        tokenProvider
	client        watchClient
	history       historyDiffer
	topic         string
	watchLabel    string

	userLocks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewWatchService(subscriptions subscriptionRepository, tokens tokenProvider,
	client watchClient, history historyDiffer, topic, watchLabel string) *WatchService {

	if watchLabel == "" {
		watchLabel = "INBOX"
	}
	return &WatchService{
		subscriptions: subscriptions,
		tokens:        tokens,
		client:        client,
		history:       history,
		topic:         topic,
		watchLabel:    watchLabel,
	}
}

func (s *WatchService) lockUser(userID uuid.UUID) func() {
	value, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Enable creates a push subscription for the user. Idempotent: an active,
// non-expired subscription is left untouched. On any failure the prior
// state stays intact, so there is never a moment with two active rows.
func (s *WatchService) Enable(ctx context.Context, userID uuid.UUID) error {
	defer s.lockUser(userID)()

	existing, err := s.subscriptions.GetActiveByUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load active subscription")
	}
	if existing != nil && !existing.Expired() {
		log.Infof("user %v already has active watch subscription with cursor %v", userID, existing.HistoryID)
		return nil
	}

	token, err := s.tokens.GetValidToken(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "failed to load token")
	}
	if token == "" {
		return ErrNoValidToken
	}

	result, err := s.client.Watch(token, s.topic, []string{s.watchLabel})
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeGmailApi).
			Errorf("failed to create watch for user %v: %v", userID, err)
		return errors.Wrap(err, "watch request failed")
	}

	err = s.subscriptions.SwapActive(ctx, entities.WatchSubscription{
		UserID:     userID,
		HistoryID:  result.HistoryID,
		Expiration: result.Expiration,
	})
	if err != nil {
		return errors.Wrap(err, "failed to persist subscription")
	}

	log.Infof("enabled watch subscription for user %v, cursor %v, expires %v",
		userID, result.HistoryID, result.Expiration)
	return nil
}

// Disable stops pushes. The remote stop is best-effort: local state is
// deactivated even when the provider call fails, so a broken remote can
// not leave the row stuck active.
func (s *WatchService) Disable(ctx context.Context, userID uuid.UUID) error {
	defer s.lockUser(userID)()

	token, err := s.tokens.GetValidToken(ctx, userID)
	if err == nil && token != "" {
		if stopErr := s.client.Stop(token); stopErr != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeGmailApi).
				Errorf("failed to stop watch for user %v: %v", userID, stopErr)
		}
	}

	if err := s.subscriptions.Deactivate(ctx, userID); err != nil {
		return errors.Wrap(err, "failed to deactivate subscription")
	}

	log.Infof("disabled watch subscription for user %v", userID)
	return nil
}

// RenewExpiring re-enables every active subscription expiring within the
// horizon. Failures are per-user: one broken mailbox never aborts the
// sweep for everyone else.
func (s *WatchService) RenewExpiring(ctx context.Context, horizon time.Duration) {

	expiring, err := s.subscriptions.GetExpiringBefore(ctx, time.Now().Add(horizon))
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load expiring subscriptions: %v", err)
		return
	}

	for _, sub := range expiring {
		log.Infof("renewing watch subscription for user %v", sub.UserID)
		if err := s.Enable(ctx, sub.UserID); err != nil {
			metrics.RenewalsCounter.WithLabelValues("failure").Inc()
			log.Errorf("failed to renew watch subscription for user %v: %v", sub.UserID, err)
			continue
		}
		metrics.RenewalsCounter.WithLabelValues("success").Inc()
	}
}

// HandleNotification turns one push notification into the set of new
// message summaries between the stored cursor and newCursor.
//
// Webhook delivery is at-least-once and may reorder: a cursor that is not
// strictly newer is a silent no-op. The stored cursor advances even when
// the diff comes back empty or failed, otherwise a permanently failing
// window would be reprocessed forever.
func (s *WatchService) HandleNotification(ctx context.Context, userID uuid.UUID, newCursor uint64) ([]models.MessageSummary, error) {
	defer s.lockUser(userID)()

	sub, err := s.subscriptions.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load active subscription")
	}
	if sub == nil {
		log.Warnf("no active watch subscription for user %v, skipping notification", userID)
		return nil, nil
	}

	if newCursor <= sub.HistoryID {
		metrics.StaleNotificationsCounter.Inc()
		log.Debugf("cursor %v is not newer than stored %v for user %v", newCursor, sub.HistoryID, userID)
		return nil, nil
	}

	token, err := s.tokens.GetValidToken(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load token")
	}
	if token == "" {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeOAuth).
			Errorf("no valid token for user %v during notification processing", userID)
		return nil, ErrNoValidToken
	}

	summaries := s.history.Diff(token, sub.HistoryID, newCursor)

	if err := s.subscriptions.AdvanceCursor(ctx, sub.ID, newCursor); err != nil {
		return summaries, errors.Wrap(err, "failed to advance cursor")
	}

	return summaries, nil
}
