package repositories

import (
	"context"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Users struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (repo *Users) FindIDByEmail(ctx context.Context, email string) (uuid.UUID, error) {

	var user entities.User
	err := repo.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, nil
		}
		return uuid.Nil, err
	}
	return user.ID, nil
}

func (repo *Users) GetNotificationChannel(ctx context.Context, userID uuid.UUID) (*entities.NotificationChannel, error) {

	var channel entities.NotificationChannel
	err := repo.db.WithContext(ctx).First(&channel, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &channel, nil
}
