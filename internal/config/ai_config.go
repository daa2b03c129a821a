package config

import (
	"fmt"
	"github.com/spf13/viper"
)

type AIConfig struct {
	Key                  string  `mapstructure:"key"`
	MaxRequestsPerMinute float32 `mapstructure:"max_requests_per_minute"`
	MaxRequestsPerDay    float32 `mapstructure:"max_requests_per_day"`
	DailyUserLimit       int64   `mapstructure:"daily_user_limit"`
	WeeklyUserLimit      int64   `mapstructure:"weekly_user_limit"`
}

func (config AIConfig) validate() error {
	if config.Key == "" {
		return fmt.Errorf("missing variable: ai key")
	}
	return nil
}

func (config AIConfig) bindEnvironmentVariables() error {
	return viper.BindEnv("ai.key", "AI_KEY")
}
