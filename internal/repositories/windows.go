package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"gorm.io/gorm"
)

// WindowResult is the outcome of one atomic check-and-consume against a
// sliding window.
type WindowResult struct {
	Allowed   bool
	Remaining int64
	Total     int64
	ResetTime *time.Time
}

type Windows struct {
	db *gorm.DB
}

func NewWindowsRepository(db *gorm.DB) *Windows {
	return &Windows{db: db}
}

// CheckAndConsume trims events older than the window, reads the surviving
// count and admits the increment only if it fits — all inside one storage
// transaction. Two concurrent callers on the same key can never both pass
// a check that only one of them should have passed.
func (repo *Windows) CheckAndConsume(ctx context.Context, key string, window time.Duration,
	maxRequests, increment int64) (WindowResult, error) {

	result := WindowResult{Total: maxRequests}

	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		cutoff := now.Add(-window)

		if err := tx.Delete(&entities.WindowEvent{}, "key = ? AND timestamp < ?", key, cutoff).Error; err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&entities.WindowEvent{}).Where("key = ?", key).Count(&count).Error; err != nil {
			return err
		}

		if count+increment > maxRequests {
			result.Allowed = false
			result.Remaining = maxRequests - count
			if result.Remaining < 0 {
				result.Remaining = 0
			}

			var oldest entities.WindowEvent
			if err := tx.Where("key = ?", key).Order("timestamp ASC").First(&oldest).Error; err == nil {
				reset := oldest.Timestamp.Add(window)
				result.ResetTime = &reset
			}
			return nil
		}

		newEvents := make([]entities.WindowEvent, increment)
		for i := range newEvents {
			// spread sub-millisecond so ordering inside one call stays stable
			newEvents[i] = entities.WindowEvent{Key: key, Timestamp: now.Add(time.Duration(i) * time.Microsecond)}
		}
		if err := tx.Create(&newEvents).Error; err != nil {
			return err
		}

		result.Allowed = true
		result.Remaining = maxRequests - (count + increment)
		return nil
	})

	if err != nil {
		// fail closed: a broken counter store must never admit requests
		return WindowResult{Allowed: false, Total: maxRequests}, err
	}
	return result, nil
}

// CurrentUsage reports the live count inside the window without consuming.
func (repo *Windows) CurrentUsage(ctx context.Context, key string, window time.Duration) (int64, error) {

	cutoff := time.Now().Add(-window)

	var count int64
	err := repo.db.WithContext(ctx).Model(&entities.WindowEvent{}).
		Where("key = ? AND timestamp >= ?", key, cutoff).
		Count(&count).Error
	return count, err
}
