package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type subscriptionRenewer interface {
	RenewExpiring(ctx context.Context, horizon time.Duration)
}

// WatchRenewer keeps mailbox subscriptions alive by renewing every active
// one that would expire within the horizon.
type WatchRenewer struct {
	watch   subscriptionRenewer
	cron    *cron.Cron
	horizon time.Duration
}

func NewWatchRenewer(watch subscriptionRenewer, horizon time.Duration) (*WatchRenewer, error) {

	if horizon <= 0 {
		return nil, errors.New("renewal horizon must be greater than zero")
	}

	wr := &WatchRenewer{
		watch:   watch,
		cron:    cron.New(),
		horizon: horizon,
	}

	_, err := wr.cron.AddFunc("0 * * * *", wr.renewExpiring)
	if err != nil {
		return nil, err
	}

	wr.cron.Start()
	log.Infof("watch renewer started, horizon: %v", wr.horizon)
	return wr, nil
}

func (wr *WatchRenewer) Stop() {
	wr.cron.Stop()
}

func (wr *WatchRenewer) renewExpiring() {
	wr.watch.RenewExpiring(context.Background(), wr.horizon)
}
