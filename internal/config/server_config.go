package config

import (
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	TelegramToken string `mapstructure:"telegram_token"`
}

func (config ServerConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("server.port", "PORT")
	if err != nil {
		return err
	}

	return viper.BindEnv("server.telegram_token", "TELEGRAM_TOKEN")
}
