// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config is the process configuration, read from the environment. A .env file is loaded
// first by the godotenv autoload import in cmd/.
type Config struct {
	Port     string
	LogLevel logrus.Level

	AdminPassword     string
	AdminPasswordHash string
	SeatTokenTTL      time.Duration // 0 => tokens never expire

	RedisAddr  string // empty disables the audit publisher
	RedisDB    int
	AuditQueue string

	DatabaseURL       string
	HistorianBatch    int
	HistorianFlush    time.Duration
	HistorianIdleGame time.Duration

	MessagesPerSec rate.Limit
	MessageBurst   int

	TargetScore int
	MaxPlayers  int
}

// Load reads the configuration. Malformed values are reported rather than silently defaulted.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		AuditQueue:        getEnv("AUDIT_QUEUE_NAME", "flip_audit"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
	}

	var err error
	if cfg.LogLevel, err = logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.SeatTokenTTL, err = parseTTL(getEnv("SEAT_TOKEN_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("SEAT_TOKEN_TTL: %w", err)
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.HistorianBatch, err = getEnvInt("HISTORIAN_BATCH_SIZE", 20); err != nil {
		return nil, err
	}
	flushMs, err := getEnvInt("HISTORIAN_FLUSH_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.HistorianFlush = time.Duration(flushMs) * time.Millisecond
	idleSec, err := getEnvInt("GAME_INACTIVITY_TIMEOUT_SEC", 600)
	if err != nil {
		return nil, err
	}
	cfg.HistorianIdleGame = time.Duration(idleSec) * time.Second

	perSec, err := getEnvInt("WS_MESSAGES_PER_SEC", 20)
	if err != nil {
		return nil, err
	}
	if perSec <= 0 {
		cfg.MessagesPerSec = rate.Inf
	} else {
		cfg.MessagesPerSec = rate.Limit(perSec)
	}
	cfg.MessageBurst = perSec
	if cfg.MessageBurst < 1 {
		cfg.MessageBurst = 1
	}

	if cfg.TargetScore, err = getEnvInt("TARGET_SCORE", 200); err != nil {
		return nil, err
	}
	if cfg.MaxPlayers, err = getEnvInt("MAX_PLAYERS", 18); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// RulesOverrides returns the environment's house-rule settings in the shape accepted by
// game.HouseRules.Update.
func (c *Config) RulesOverrides() map[string]interface{} {
	return map[string]interface{}{
		"targetScore": c.TargetScore,
		"maxPlayers":  c.MaxPlayers,
	}
}

func parseTTL(s string) (time.Duration, error) {
	if s == "never" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else returns the default.
func getEnvInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
