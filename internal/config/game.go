package config

import "github.com/caarlos0/env/v11"

type GameConfig struct {
	CountdownSeconds int `env:"COUNTDOWN_SECONDS" envDefault:"60"`
	ResetDwellSecs   int `env:"RESET_DWELL_SECONDS" envDefault:"8"`
	MinParticipants  int `env:"MIN_PARTICIPANTS" envDefault:"2"`
	SweepIntervalMS  int `env:"SWEEP_INTERVAL_MS" envDefault:"500"`
}

func LoadGame() (GameConfig, error) {
	var cfg GameConfig
	err := env.Parse(&cfg)
	return cfg, err
}
