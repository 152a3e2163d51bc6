package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	RedisAddr   string

	SessionTTL time.Duration

	DocumentDir string

	MailProvider string
	MailFrom     string

	DunningDailyCron  string
	DunningBackupCron string
	SendCheckDelay    time.Duration

	RateLimitPerMinute       int
	RateLimitBurst           int
	AgencyRateLimitPerMinute int
	AgencyRateLimitBurst     int
}

func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:        port,
		DatabaseURL: os.Getenv("DB_DSN"),
		RedisAddr:   readString("REDIS_ADDR", "localhost:6379"),

		SessionTTL: readDurationSeconds("SESSION_TTL_SECONDS", 8*3600),

		DocumentDir: readString("DOCUMENT_DIR", "documents"),

		MailProvider: os.Getenv("MAIL_PROVIDER"),
		MailFrom:     readString("MAIL_FROM", "noreply@mwolo.energy"),

		DunningDailyCron:  readString("DUNNING_DAILY_CRON", "0 9 * * *"),
		DunningBackupCron: readString("DUNNING_BACKUP_CRON", "0 */6 * * *"),
		SendCheckDelay:    readDurationSeconds("SEND_CHECK_DELAY_SECONDS", 60),

		RateLimitPerMinute:       readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:           readInt("RATE_LIMIT_BURST", 30),
		AgencyRateLimitPerMinute: readInt("AGENCY_RATE_LIMIT_PER_MIN", 600),
		AgencyRateLimitBurst:     readInt("AGENCY_RATE_LIMIT_BURST", 120),
	}
}

func readString(key, fallback string) string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	return raw
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
