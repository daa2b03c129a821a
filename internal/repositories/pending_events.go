package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrNotOwned is returned when a bulk resolve contains at least one event
// that does not belong to the caller; nothing is resolved in that case.
var ErrNotOwned = errors.New("event does not belong to user")

type PendingEvents struct {
	db *gorm.DB
}

func NewPendingEventsRepository(db *gorm.DB) *PendingEvents {
	return &PendingEvents{db: db}
}

func (repo *PendingEvents) Create(ctx context.Context, event entities.PendingEvent) (entities.PendingEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	err := repo.db.WithContext(ctx).Create(&event).Error
	return event, err
}

// FindExistingUnresolved treats a nil interview or vacancy link as a match
// criterion itself: an event with no links only matches other events with
// no links.
func (repo *PendingEvents) FindExistingUnresolved(ctx context.Context, userID uuid.UUID,
	eventType entities.EventType, interviewID, vacancyID *uuid.UUID) (*entities.PendingEvent, error) {

	query := repo.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ? AND is_resolved = ?", userID, eventType, false)

	if interviewID == nil {
		query = query.Where("interview_id IS NULL")
	} else {
		query = query.Where("interview_id = ?", *interviewID)
	}

	if vacancyID == nil {
		query = query.Where("vacancy_id IS NULL")
	} else {
		query = query.Where("vacancy_id = ?", *vacancyID)
	}

	var event entities.PendingEvent
	err := query.First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (repo *PendingEvents) GetByID(ctx context.Context, id uuid.UUID) (*entities.PendingEvent, error) {

	var event entities.PendingEvent
	err := repo.db.WithContext(ctx).First(&event, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &event, nil
}

func (repo *PendingEvents) GetUnresolvedByUser(ctx context.Context, userID uuid.UUID) ([]entities.PendingEvent, error) {

	var pendingEvents []entities.PendingEvent
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND is_resolved = ?", userID, false).
		Order("priority ASC, created_at ASC").
		Find(&pendingEvents).Error
	if err != nil {
		return nil, err
	}
	return pendingEvents, nil
}

func (repo *PendingEvents) CountUnresolvedByUser(ctx context.Context, userID uuid.UUID) (int64, error) {

	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.PendingEvent{}).
		Where("user_id = ? AND is_resolved = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (repo *PendingEvents) Resolve(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return repo.db.WithContext(ctx).Model(&entities.PendingEvent{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]any{"is_resolved": true, "resolved_at": now, "updated_at": now}).Error
}

// ResolveManyOwned marks the events resolved only if every id belongs to
// the user; a single foreign id rejects the whole batch.
func (repo *PendingEvents) ResolveManyOwned(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (int64, error) {

	var resolved int64
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned int64
		if err := tx.Model(&entities.PendingEvent{}).
			Where("id IN ? AND user_id = ?", ids, userID).
			Count(&owned).Error; err != nil {
			return err
		}
		if owned != int64(len(ids)) {
			return ErrNotOwned
		}

		now := time.Now()
		res := tx.Model(&entities.PendingEvent{}).
			Where("id IN ? AND is_resolved = ?", ids, false).
			Updates(map[string]any{"is_resolved": true, "resolved_at": now, "updated_at": now})
		resolved = res.RowsAffected
		return res.Error
	})
	return resolved, err
}

func (repo *PendingEvents) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := repo.db.WithContext(ctx).
		Delete(&entities.PendingEvent{}, "is_resolved = ? AND resolved_at < ?", true, cutoff)
	return res.RowsAffected, res.Error
}
