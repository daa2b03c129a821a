package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptionsRepository(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

func (repo *Subscriptions) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*entities.WatchSubscription, error) {

	var sub entities.WatchSubscription
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

// SwapActive deactivates every active subscription of the user and inserts
// the new active row within one transaction. This is the only way an
// active row is ever created, which keeps the one-active-row invariant.
func (repo *Subscriptions) SwapActive(ctx context.Context, sub entities.WatchSubscription) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if err := tx.Model(&entities.WatchSubscription{}).
			Where("user_id = ? AND is_active = ?", sub.UserID, true).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error; err != nil {
			return err
		}

		if sub.ID == uuid.Nil {
			sub.ID = uuid.New()
		}
		sub.IsActive = true
		sub.CreatedAt = now
		sub.UpdatedAt = now
		return tx.Create(&sub).Error
	})
}

func (repo *Subscriptions) Deactivate(ctx context.Context, userID uuid.UUID) error {
	return repo.db.WithContext(ctx).Model(&entities.WatchSubscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()}).Error
}

// AdvanceCursor moves the stored history cursor forward. The guard in the
// WHERE clause makes a concurrent or out-of-order advance a no-op instead
// of a rollback.
func (repo *Subscriptions) AdvanceCursor(ctx context.Context, subID uuid.UUID, historyID uint64) error {
	return repo.db.WithContext(ctx).Model(&entities.WatchSubscription{}).
		Where("id = ? AND history_id < ?", subID, historyID).
		Updates(map[string]any{"history_id": historyID, "updated_at": time.Now()}).Error
}

func (repo *Subscriptions) GetExpiringBefore(ctx context.Context, deadline time.Time) ([]entities.WatchSubscription, error) {

	var subs []entities.WatchSubscription
	err := repo.db.WithContext(ctx).
		Where("is_active = ? AND expiration <= ?", true, deadline).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (repo *Subscriptions) CountActiveByUser(ctx context.Context, userID uuid.UUID) (int64, error) {

	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.WatchSubscription{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(&count).Error
	return count, err
}
