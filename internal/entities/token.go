package entities

import (
	"time"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

// OAuthToken holds one provider grant per user. A refresh replaces the
// whole row instead of patching it, so a reader never sees a half-updated
// token.
type OAuthToken struct {
	ID           uuid.UUID `gorm:"type:text;primaryKey"`
	UserID       uuid.UUID `gorm:"type:text;index:idx_token_user_provider,unique"`
	Provider     string    `gorm:"index:idx_token_user_provider,unique"`
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scopes       string
	CreatedAt    time.Time
}

// IsExpired reports expiry with a 5 minute buffer so a token about to die
// is refreshed before an API call fails with it.
func (t *OAuthToken) IsExpired() bool {
	return t.ExpiresAt.Before(time.Now().Add(5 * time.Minute))
}
