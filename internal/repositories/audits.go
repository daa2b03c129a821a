package repositories

import (
	"context"
	"time"

	"github.com/compahunt/mailsync/internal/entities"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Audits struct {
	db *gorm.DB
}

func NewAuditsRepository(db *gorm.DB) *Audits {
	return &Audits{db: db}
}

func (repo *Audits) Add(ctx context.Context, audit entities.VacancyAudit) error {
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.Timestamp.IsZero() {
		audit.Timestamp = time.Now()
	}
	return repo.db.WithContext(ctx).Create(&audit).Error
}

func (repo *Audits) GetByVacancy(ctx context.Context, vacancyID uuid.UUID) ([]entities.VacancyAudit, error) {

	var audits []entities.VacancyAudit
	err := repo.db.WithContext(ctx).
		Where("vacancy_id = ?", vacancyID).
		Order("timestamp ASC").
		Find(&audits).Error
	if err != nil {
		return nil, err
	}
	return audits, nil
}
