package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the process-level settings read from the environment.
// Secrets and addresses come from env vars (a .env file is loaded in cmd/main);
// behavioral tunables live in the constants below.
type Config struct {
	HTTPAddr  string
	DBDSN     string
	RedisAddr string
	JWTSecret string

	// DirectoryMatching enables the directory-augmented candidate pool:
	// online profiles from the directory join the waiting queue as candidates.
	DirectoryMatching bool

	// Telegram admin alerting; alerts are disabled when the token is empty.
	TelegramToken     string
	TelegramAdminChat string
}

// Load builds a Config from environment variables, applying defaults
// suitable for local development.
func Load() Config {
	cfg := Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		DirectoryMatching: os.Getenv("DIRECTORY_MATCHING") == "true",
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramAdminChat: os.Getenv("TELEGRAM_ADMIN_CHAT"),
	}
	cfg.DBDSN = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "user"),
		getEnv("DB_PASSWORD", "password"),
		getEnv("DB_NAME", "pairgodb"),
		getEnv("DB_PORT", "5432"),
	)
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

const (
	// DirectoryTimeout bounds every directory or match-record round-trip made
	// while a registry lock is released. On expiry the attempt fails as
	// retryable and the requester stays queued.
	DirectoryTimeout = 3 * time.Second

	// Reputation
	InitialReputation     = 1000
	MaxReputation         = 1000
	MinReputation         = 0
	ConfirmedReportReward = 50

	// Ban
	BanThresholdReputation = 500
	BanThresholdFrequency  = 5
	BanFrequencyWindow     = 24 * time.Hour
	BanLevel1Duration      = 30 * time.Minute
	BanLevel2Duration      = 6 * time.Hour
	BanLevel3Duration      = 24 * time.Hour
)

// ReportWeights maps a report reason class to its reputation penalty.
var ReportWeights = map[string]int{
	"Low":      5,
	"Medium":   50,
	"Critical": 250,
}
