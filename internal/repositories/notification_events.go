package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ErrDuplicateMessage signals that another delivery already recorded this
// (user, message) pair; callers treat it as "already processed".
var ErrDuplicateMessage = errors.New("message already recorded for user")

type NotificationEvents struct {
	db *gorm.DB
}

func NewNotificationEventsRepository(db *gorm.DB) *NotificationEvents {
	return &NotificationEvents{db: db}
}

func (repo *NotificationEvents) Add(ctx context.Context, event *entities.NotificationEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.CreatedAt = time.Now()
	err := repo.db.WithContext(ctx).Create(event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateMessage
		}
		return err
	}
	return nil
}

func (repo *NotificationEvents) MarkProcessed(ctx context.Context, id uuid.UUID, processingError string) error {
	return repo.db.WithContext(ctx).Model(&entities.NotificationEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{"processed_by_ai": true, "processing_error": processingError}).Error
}
