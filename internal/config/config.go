package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the collector's configuration, read from the environment.
type Config struct {
	Addr           string   // API bind address, e.g., ":8080"
	LogDir         string   // logs directory
	DatabaseURL    string   // empty means use the in-memory store
	PublicAPIKeys  []string // keys for read routes
	AdminAPIKeys   []string // keys for registration/deletion
	AllowedOrigins []string // CORS allow-list; empty allows all

	PublicRPM   int
	PublicBurst int
	AdminRPM    int
	AdminBurst  int

	SlackWebhook      string
	AlertOnRecovery   bool
	AlertCooldown     time.Duration
	AlertPollInterval time.Duration

	TickRetentionDays int // 0 disables eviction
}

func FromEnv() Config {
	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = "127.0.0.1:8080"
	}

	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "logs"
	}

	return Config{
		Addr:           addr,
		LogDir:         logDir,
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		PublicAPIKeys:  splitList(os.Getenv("PUBLIC_API_KEYS")),
		AdminAPIKeys:   splitList(os.Getenv("ADMIN_API_KEYS")),
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),

		PublicRPM:   envInt("PUBLIC_RPM", 120),
		PublicBurst: envInt("PUBLIC_BURST", 60),
		AdminRPM:    envInt("ADMIN_RPM", 60),
		AdminBurst:  envInt("ADMIN_BURST", 30),

		SlackWebhook:      os.Getenv("SLACK_WEBHOOK"),
		AlertOnRecovery:   envBool("ALERT_ON_RECOVERY", true),
		AlertCooldown:     envDurationMS("ALERT_COOLDOWN_MS", 15*time.Minute),
		AlertPollInterval: envDurationMS("ALERT_POLL_MS", 30*time.Second),

		TickRetentionDays: envInt("TICK_RETENTION_DAYS", 0),
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationMS(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}
