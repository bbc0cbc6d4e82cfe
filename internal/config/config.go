// Package config loads service configuration from the environment,
// optionally seeded from local .env files.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Config holds everything the service needs to run. All values come
// from the environment; nothing here is mutated after startup.
type Config struct {
	ListenAddr string
	WebAppURL  string

	RedisURL string

	// Ordered RPC endpoint list: primary first, then fallbacks.
	RPCEndpoints []string
	RPCTimeout   time.Duration

	// Gated token: mint address, human-denominated threshold, display
	// ticker for user-facing replies.
	TokenMint      string
	TokenThreshold decimal.Decimal
	TokenTicker    string

	SessionSecret string
	SessionTTL    time.Duration

	BotToken     string
	BotName      string
	GroupID      int64
	LinkStateTTL time.Duration

	ReconcileConcurrency int
}

// LoadEnv loads .env files into the process environment. Missing files
// are fine; the deployed environment provides everything directly.
func LoadEnv(logger *logrus.Logger) {
	for _, file := range []string{".env", ".env.local"} {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Overload(file); err != nil {
			logger.WithError(err).Warnf("failed to load %s", file)
		}
	}
}

// Load reads and validates the full configuration.
func Load() (*Config, error) {
	threshold, err := decimal.NewFromString(getEnv("TOKEN_AMOUNT", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_AMOUNT: %w", err)
	}
	if threshold.IsNegative() {
		return nil, fmt.Errorf("TOKEN_AMOUNT must not be negative")
	}

	groupID, err := strconv.ParseInt(getEnv("TELEGRAM_GROUP_ID", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_GROUP_ID: %w", err)
	}

	cfg := &Config{
		ListenAddr:           getEnv("LISTEN_ADDR", ":9000"),
		WebAppURL:            getEnv("WEBAPP_URL", ""),
		RedisURL:             getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RPCEndpoints:         splitList(getEnv("RPC_ENDPOINTS", "")),
		RPCTimeout:           getEnvDuration("RPC_TIMEOUT", 5*time.Second),
		TokenMint:            getEnv("TOKEN_MINT", ""),
		TokenThreshold:       threshold,
		TokenTicker:          getEnv("TOKEN_TICKER", ""),
		SessionSecret:        getEnv("SESSION_SECRET", ""),
		SessionTTL:           getEnvDuration("SESSION_TTL", 24*time.Hour),
		BotToken:             getEnv("TELEGRAM_BOT_TOKEN", ""),
		BotName:              getEnv("TELEGRAM_BOT_NAME", ""),
		GroupID:              groupID,
		LinkStateTTL:         getEnvDuration("LINK_STATE_TTL", 5*time.Minute),
		ReconcileConcurrency: getEnvInt("RECONCILE_CONCURRENCY", 8),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if len(cfg.RPCEndpoints) == 0 {
		return nil, fmt.Errorf("RPC_ENDPOINTS is required")
	}
	if cfg.TokenMint == "" {
		return nil, fmt.Errorf("TOKEN_MINT is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
