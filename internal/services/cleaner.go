package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type eventPurger interface {
	PurgeResolvedOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// EventsCleaner removes resolved pending events once they are older than
// the retention window. Unresolved events are never touched.
type EventsCleaner struct {
	events          eventPurger
	cron            *cron.Cron
	retentionInDays int
}

func NewEventsCleaner(events eventPurger, retentionInDays int) (*EventsCleaner, error) {

	if retentionInDays <= 0 {
		return nil, errors.New("retention in days must be greater than zero")
	}

	ec := &EventsCleaner{
		events:          events,
		cron:            cron.New(),
		retentionInDays: retentionInDays,
	}

	_, err := ec.cron.AddFunc("0 3 * * *", ec.cleanResolvedEvents)
	if err != nil {
		return nil, err
	}

	ec.cron.Start()
	log.Infof("events cleaner started, retention in days: %d", ec.retentionInDays)
	return ec, nil
}

func (ec *EventsCleaner) Stop() {
	ec.cron.Stop()
}

func (ec *EventsCleaner) cleanResolvedEvents() {
	retention := time.Duration(ec.retentionInDays) * 24 * time.Hour
	rowsAffected, err := ec.events.PurgeResolvedOlderThan(context.Background(), retention)
	if err != nil {
		log.Errorf("Failed to clean resolved events: %v", err)
	} else {
		log.Infof("Resolved events were cleaned at %v, affected rows: %v", time.Now(), rowsAffected)
	}
}
