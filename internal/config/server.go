package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	AdminAPIKey string `env:"ADMIN_API_KEY"`

	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	AllowUnverifiedTG bool   `env:"ALLOW_UNVERIFIED_INITDATA" envDefault:"false"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
