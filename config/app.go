package config

import "time"

type App struct {
	Port          string        `mapstructure:"APP_PORT"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	JWTSecret     string        `mapstructure:"JWT_SECRET"`
	Env           string        `mapstructure:"APP_ENV"`
	SweepInterval time.Duration `mapstructure:"RESERVATION_SWEEP_INTERVAL"`
}
