package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Config_EnvironmentOverrideWorksCorrect(t *testing.T) {

	os.Setenv("MODE", "test")
	os.Setenv("DB_CONNECTION_STRING", "override.db")
	os.Setenv("GOOGLE_CLIENT_ID", "override-client-id")
	os.Setenv("GOOGLE_CLIENT_SECRET", "override-client-secret")
	os.Setenv("GOOGLE_PUBSUB_TOPIC", "projects/override/topics/gmail-push")
	os.Setenv("AI_KEY", "override-ai-key")
	os.Setenv("PORT", "9090")
	os.Setenv("TELEGRAM_TOKEN", "override-tg-token")
	os.Setenv("LOG_LEVEL", "DEBUG")

	cfg := Get()

	assert.Equal(t, "override.db", cfg.DB.ConnectionString)
	assert.Equal(t, "override-client-id", cfg.Google.ClientID)
	assert.Equal(t, "override-client-secret", cfg.Google.ClientSecret)
	assert.Equal(t, "projects/override/topics/gmail-push", cfg.Google.PubSubTopic)
	assert.Equal(t, "override-ai-key", cfg.AI.Key)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "override-tg-token", cfg.Server.TelegramToken)
	assert.Equal(t, LevelDebug, cfg.Logger.LogLevel)
}
