package repositories

import (
	"fmt"
	"github.com/compahunt/mailsync/internal/entities"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {

	toMigrate := []struct {
		name  string
		model any
	}{
		{"User", entities.User{}},
		{"NotificationChannel", entities.NotificationChannel{}},
		{"OAuthToken", entities.OAuthToken{}},
		{"WatchSubscription", entities.WatchSubscription{}},
		{"PendingEvent", entities.PendingEvent{}},
		{"Vacancy", entities.Vacancy{}},
		{"VacancyAudit", entities.VacancyAudit{}},
		{"Interview", entities.Interview{}},
		{"NotificationEvent", entities.NotificationEvent{}},
		{"WindowEvent", entities.WindowEvent{}},
		{"ScheduledJob", entities.ScheduledJob{}},
	}

	for _, m := range toMigrate {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	if err := c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_window_events_key_ts ON window_events (key, timestamp); " +
		"CREATE INDEX IF NOT EXISTS idx_subscriptions_active_expiration ON watch_subscriptions (is_active, expiration);").
		Error; err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
