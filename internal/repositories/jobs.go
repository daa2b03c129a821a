package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"gorm.io/gorm"
)

// Jobs persists deferred callbacks so scheduled work survives restarts.
type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

func (repo *Jobs) Save(ctx context.Context, id string, triggerAt time.Time, payload []byte) error {
	return repo.db.WithContext(ctx).Save(&entities.ScheduledJob{
		ID:        id,
		TriggerAt: triggerAt,
		Payload:   payload,
		CreatedAt: time.Now(),
	}).Error
}

func (repo *Jobs) DueBefore(ctx context.Context, deadline time.Time) ([]entities.ScheduledJob, error) {

	var jobs []entities.ScheduledJob
	err := repo.db.WithContext(ctx).
		Where("trigger_at <= ?", deadline).
		Order("trigger_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (repo *Jobs) Remove(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Delete(&entities.ScheduledJob{}, "id = ?", id).Error
}
