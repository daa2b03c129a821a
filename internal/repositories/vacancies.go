package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Vacancies struct {
	db *gorm.DB
}

func NewVacanciesRepository(db *gorm.DB) *Vacancies {
	return &Vacancies{db: db}
}

func (repo *Vacancies) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*entities.Vacancy, error) {

	var vacancy entities.Vacancy
	err := repo.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&vacancy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &vacancy, nil
}

func (repo *Vacancies) Add(ctx context.Context, vacancy *entities.Vacancy) error {
	if vacancy.ID == uuid.Nil {
		vacancy.ID = uuid.New()
	}
	now := time.Now()
	vacancy.CreatedAt = now
	vacancy.UpdatedAt = now
	return repo.db.WithContext(ctx).Create(vacancy).Error
}

func (repo *Vacancies) Update(ctx context.Context, vacancy entities.Vacancy) error {
	vacancy.UpdatedAt = time.Now()
	return repo.db.WithContext(ctx).Save(&vacancy).Error
}
