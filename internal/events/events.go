package events

import (
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
)

var MailboxChangedTopic = "MailboxChangedEvent"

// MailboxChanged is published by the webhook handler once a push
// notification passed the subscription check; the pipeline processor
// consumes it asynchronously.
type MailboxChanged struct {
	UserID    uuid.UUID
	HistoryID uint64
}

var PendingEventCreatedTopic = "PendingEventCreatedEvent"

type PendingEventCreated struct {
	Event entities.PendingEvent
}
