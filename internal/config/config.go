package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const devSessionSecret = "dev-secret-change-in-production"

var ErrInsecureSecret = errors.New("SESSION_SECRET must be set in production environment")

type Config struct {
	Port           string
	Env            string
	LogLevel       zerolog.Level
	SessionSecret  string
	SessionTTL     time.Duration
	TokenExpiry    time.Duration
	ConfigFile     string
	RateLimitRPS   float64
	RateLimitBurst int
	Generator      GeneratorDefaults
}

// Load reads .env when present, then the environment, then the optional
// generator defaults file named by CONFIG_FILE.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       parseLevel(getEnv("LOG_LEVEL", "info")),
		SessionSecret:  getEnv("SESSION_SECRET", devSessionSecret),
		SessionTTL:     getDuration("SESSION_TTL", 30*time.Minute),
		TokenExpiry:    getDuration("TOKEN_EXPIRY", 24*time.Hour),
		ConfigFile:     getEnv("CONFIG_FILE", ""),
		RateLimitRPS:   getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getInt("RATE_LIMIT_BURST", 10),
	}

	if cfg.IsProduction() && cfg.SessionSecret == devSessionSecret {
		return Config{}, ErrInsecureSecret
	}

	if cfg.ConfigFile != "" {
		defaults, err := LoadGeneratorDefaults(cfg.ConfigFile)
		if err != nil {
			return Config{}, errors.Wrap(err, "load generator defaults")
		}
		cfg.Generator = defaults
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func parseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}
