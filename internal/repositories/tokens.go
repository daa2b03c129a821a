package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Tokens struct {
	db *gorm.DB
}

func NewTokensRepository(db *gorm.DB) *Tokens {
	return &Tokens{db: db}
}

func (repo *Tokens) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*entities.OAuthToken, error) {

	var token entities.OAuthToken
	err := repo.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

// Replace deletes any prior row for (user, provider) and inserts a fresh
// one in the same transaction, so a stale token is never readable
// mid-refresh.
func (repo *Tokens) Replace(ctx context.Context, token entities.OAuthToken) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&entities.OAuthToken{},
			"user_id = ? AND provider = ?", token.UserID, token.Provider).Error; err != nil {
			return err
		}

		if token.ID == uuid.Nil {
			token.ID = uuid.New()
		}
		token.CreatedAt = time.Now()
		return tx.Create(&token).Error
	})
}

func (repo *Tokens) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	return repo.db.WithContext(ctx).
		Delete(&entities.OAuthToken{}, "user_id = ? AND provider = ?", userID, provider).Error
}
