package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Interviews struct {
	db *gorm.DB
}

func NewInterviewsRepository(db *gorm.DB) *Interviews {
	return &Interviews{db: db}
}

func (repo *Interviews) Add(ctx context.Context, interview *entities.Interview) error {
	if interview.ID == uuid.Nil {
		interview.ID = uuid.New()
	}
	now := time.Now()
	interview.CreatedAt = now
	interview.UpdatedAt = now
	if interview.Status == "" {
		interview.Status = entities.InterviewScheduled
	}
	return repo.db.WithContext(ctx).Create(interview).Error
}

func (repo *Interviews) Update(ctx context.Context, interview entities.Interview) error {
	interview.UpdatedAt = time.Now()
	return repo.db.WithContext(ctx).Save(&interview).Error
}

func (repo *Interviews) GetByID(ctx context.Context, id uuid.UUID) (*entities.Interview, error) {

	var interview entities.Interview
	err := repo.db.WithContext(ctx).First(&interview, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &interview, nil
}
