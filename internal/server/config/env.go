package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dmitrijs2005/usermanager/internal/timex"
	"github.com/joho/godotenv"
)

// dotenvFile is loaded, if present, before the environment is read.
// Variables already set in the process environment win.
var dotenvFile = ".env"

type envConfig struct {
	HTTPAddr              string         `env:"HTTP_ADDR"`
	Port                  string         `env:"PORT"`
	DatabaseDSN           string         `env:"DATABASE_DSN"`
	DatabaseURL           string         `env:"DB_URL"`
	SecretKey             string         `env:"JWT_SECRET"`
	TokenValidityDuration timex.Duration `env:"JWT_EXPIRES_IN"`
	BcryptCost            int            `env:"BCRYPT_COST"`
	AdminIDs              []string       `env:"ADMIN_IDS" envSeparator:","`
	KafkaBrokers          []string       `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic            string         `env:"KAFKA_TOPIC"`
	Environment           string         `env:"APP_ENV"`
	FrontendURL           string         `env:"FRONTEND_URL"`
	RateLimitWindowMS     int64          `env:"RATE_LIMIT_WINDOW_MS"`
	RateLimitMax          int            `env:"RATE_LIMIT_MAX_REQUESTS"`
}

// parseEnv overlays values from environment variables.
//
// PORT is accepted for platforms that only hand out a port number; it is
// overridden by HTTP_ADDR. DB_URL is accepted as an alias of DATABASE_DSN.
// RATE_LIMIT_WINDOW_MS is in milliseconds.
func parseEnv(config *Config) error {
	if err := godotenv.Load(dotenvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	e := envConfig{
		HTTPAddr:              config.HTTPAddr,
		DatabaseDSN:           config.DatabaseDSN,
		SecretKey:             config.SecretKey,
		TokenValidityDuration: timex.Duration{Duration: config.TokenValidityDuration},
		BcryptCost:            config.BcryptCost,
		AdminIDs:              config.AdminIDs,
		KafkaBrokers:          config.KafkaBrokers,
		KafkaTopic:            config.KafkaTopic,
		Environment:           config.Environment,
		FrontendURL:           config.FrontendURL,
		RateLimitWindowMS:     config.RateLimitWindow.Milliseconds(),
		RateLimitMax:          config.RateLimitMax,
	}
	if err := env.Parse(&e); err != nil {
		return err
	}

	config.HTTPAddr = e.HTTPAddr
	if _, set := os.LookupEnv("HTTP_ADDR"); !set && e.Port != "" {
		config.HTTPAddr = ":" + e.Port
	}
	config.DatabaseDSN = e.DatabaseDSN
	if _, set := os.LookupEnv("DATABASE_DSN"); !set && e.DatabaseURL != "" {
		config.DatabaseDSN = e.DatabaseURL
	}
	config.SecretKey = e.SecretKey
	config.TokenValidityDuration = e.TokenValidityDuration.Duration
	config.BcryptCost = e.BcryptCost
	config.AdminIDs = e.AdminIDs
	config.KafkaBrokers = e.KafkaBrokers
	config.KafkaTopic = e.KafkaTopic
	config.Environment = e.Environment
	config.FrontendURL = e.FrontendURL
	config.RateLimitWindow = time.Duration(e.RateLimitWindowMS) * time.Millisecond
	config.RateLimitMax = e.RateLimitMax
	return nil
}
