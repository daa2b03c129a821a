package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
)

type GoogleConfig struct {
	ClientID          string  `mapstructure:"client_id"`
	ClientSecret      string  `mapstructure:"client_secret"`
	PubSubTopic       string  `mapstructure:"pubsub_topic"`
	WatchLabel        string  `mapstructure:"watch_label"`
	MaxRequestsPerSec float32 `mapstructure:"max_requests_per_second"`
}

func (config GoogleConfig) validate() error {
	var errs []error

	if config.ClientID == "" {
		errs = append(errs, fmt.Errorf("missing variable: client_id"))
	}
	if config.ClientSecret == "" {
		errs = append(errs, fmt.Errorf("missing variable: client_secret"))
	}
	if config.PubSubTopic == "" {
		errs = append(errs, fmt.Errorf("missing variable: pubsub_topic"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config GoogleConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	if err != nil {
		return err
	}

	err = viper.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	if err != nil {
		return err
	}

	return viper.BindEnv("google.pubsub_topic", "GOOGLE_PUBSUB_TOPIC")
}
