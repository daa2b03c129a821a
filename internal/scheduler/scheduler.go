package scheduler

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/compahunt/mailsync/internal/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

type jobsRepository interface {
	Save(ctx context.Context, id string, triggerAt time.Time, payload []byte) error
	DueBefore(ctx context.Context, deadline time.Time) ([]entities.ScheduledJob, error)
	Remove(ctx context.Context, id string) error
}

// Handler runs one due job. A returned error keeps the job stored so the
// next tick retries it.
type Handler func(ctx context.Context, payload []byte) error

// Scheduler is a durable one-shot job queue backed by the database. Jobs
// survive restarts; firing times are minute-granular.
type Scheduler struct {
	jobs    jobsRepository
	cron    *cron.Cron
	handler Handler
}

func New(jobs jobsRepository, handler Handler) (*Scheduler, error) {

	if handler == nil {
		return nil, errors.New("scheduler handler must not be nil")
	}

	s := &Scheduler{
		jobs:    jobs,
		cron:    cron.New(),
		handler: handler,
	}

	_, err := s.cron.AddFunc("* * * * *", s.fireDueJobs)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Start fires anything that came due while the process was down, then
// begins the minute tick.
func (s *Scheduler) Start() {
	s.fireDueJobs()
	s.cron.Start()
	log.Info("job scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Schedule stores or reschedules the job under its id. Saving an existing
// id moves its firing time.
func (s *Scheduler) Schedule(ctx context.Context, id string, triggerAt time.Time, payload []byte) error {
	if err := s.jobs.Save(ctx, id, triggerAt, payload); err != nil {
		return errors.Wrapf(err, "failed to schedule job %v", id)
	}
	log.Debugf("scheduled job %v for %v", id, triggerAt)
	return nil
}

// Cancel drops the job. Cancelling an unknown id is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, id string) error {
	return s.jobs.Remove(ctx, id)
}

func (s *Scheduler) fireDueJobs() {

	ctx := context.Background()

	due, err := s.jobs.DueBefore(ctx, time.Now())
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to load due jobs: %v", err)
		return
	}

	for _, job := range due {
		if err := s.handler(ctx, job.Payload); err != nil {
			log.Errorf("job %v failed, will retry next tick: %v", job.ID, err)
			continue
		}
		if err := s.jobs.Remove(ctx, job.ID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("failed to remove finished job %v: %v", job.ID, err)
		}
	}
}
