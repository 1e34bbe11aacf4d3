package config

import (
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

func Load() App {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("JWT_SECRET", "local_dev_secret")
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("RESERVATION_SWEEP_INTERVAL", 10*time.Minute)

	cfg := App{
		Port:          v.GetString("APP_PORT"),
		DatabaseURL:   v.GetString("DATABASE_URL"),
		JWTSecret:     v.GetString("JWT_SECRET"),
		Env:           v.GetString("APP_ENV"),
		SweepInterval: v.GetDuration("RESERVATION_SWEEP_INTERVAL"),
	}
	if cfg.DatabaseURL == "" {
		slog.Error("required env missing", "key", "DATABASE_URL")
		panic("missing env DATABASE_URL")
	}
	return cfg
}
