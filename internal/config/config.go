package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	BotToken          string
	ModerationChannel int64
	DatabaseURL       string
	AdminIDs          []int64
	RedisAddr         string
	NATSURL           string // empty disables event publishing
	MetricsAddr       string
	StrictRateLimit   bool // gate actions with ratelimit.RuleStrict
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		BotToken:    os.Getenv("BOT_TOKEN"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		NATSURL:     os.Getenv("NATS_URL"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
	}

	// Validate required fields
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	channel := os.Getenv("MODERATION_CHANNEL_ID")
	if channel == "" {
		return nil, fmt.Errorf("MODERATION_CHANNEL_ID is required")
	}
	id, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MODERATION_CHANNEL_ID must be an integer: %w", err)
	}
	cfg.ModerationChannel = id
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	admins, err := parseIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS: %w", err)
	}
	cfg.AdminIDs = admins

	if raw := os.Getenv("STRICT_RATE_LIMIT"); raw != "" {
		strict, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("STRICT_RATE_LIMIT must be a boolean: %w", err)
		}
		cfg.StrictRateLimit = strict
	}

	return cfg, nil
}

// IsAdmin reports whether userID is listed in ADMIN_IDS.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIDs parses a comma-separated list of user IDs. Blank items are skipped.
func parseIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
