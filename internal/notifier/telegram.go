package notifier

import (
	"context"
	"fmt"

	"github.com/asaskevich/EventBus"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/events"
	"github.com/compahunt/mailsync/internal/logger"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type apiInterface interface {
	Send(c botApi.Chattable) (botApi.Message, error)
}

type channelsRepository interface {
	GetNotificationChannel(ctx context.Context, userID uuid.UUID) (*entities.NotificationChannel, error)
}

// TelegramNotifier pushes a short message to the user's linked chat every
// time a pending event is created. Users without a linked chat are
// silently skipped.
type TelegramNotifier struct {
	api      apiInterface
	channels channelsRepository
}

func New(token string, bus EventBus.Bus, channels channelsRepository) (*TelegramNotifier, error) {

	api, err := botApi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	notifier := &TelegramNotifier{api: api, channels: channels}
	if err = bus.Subscribe(events.PendingEventCreatedTopic, notifier.onPendingEventCreated); err != nil {
		return nil, err
	}
	return notifier, nil
}

func (n *TelegramNotifier) onPendingEventCreated(event events.PendingEventCreated) {

	channel, err := n.channels.GetNotificationChannel(context.Background(), event.Event.UserID)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to look up notification channel for user %v: %v", event.Event.UserID, err)
		return
	}
	if channel == nil {
		log.Debugf("user %v has no telegram chat linked, skipping notification", event.Event.UserID)
		return
	}

	msg := botApi.NewMessage(channel.TelegramChatID,
		fmt.Sprintf("%v\n%v", event.Event.EventType.DisplayName(), event.Event.Description))
	if _, err := n.api.Send(msg); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
}
