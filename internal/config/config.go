package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL         string
	AuthToken         string
	CacheFile         string
	DialTimeout       time.Duration
	ReconnectDelay    time.Duration
	ReconnectAttempts int
	TypingIdle        time.Duration
	AckTTL            time.Duration
}

func Load() (*Config, error) {
	// Optional .env for local development; real deployments set the
	// environment directly.
	_ = godotenv.Load()

	dialTimeout, err := time.ParseDuration(getEnv("DIAL_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("DIAL_TIMEOUT: %w", err)
	}
	reconnectDelay, err := time.ParseDuration(getEnv("RECONNECT_DELAY", "1s"))
	if err != nil {
		return nil, fmt.Errorf("RECONNECT_DELAY: %w", err)
	}
	typingIdle, err := time.ParseDuration(getEnv("TYPING_IDLE", "3s"))
	if err != nil {
		return nil, fmt.Errorf("TYPING_IDLE: %w", err)
	}
	ackTTL, err := time.ParseDuration(getEnv("ACK_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("ACK_TTL: %w", err)
	}
	attempts, err := strconv.Atoi(getEnv("RECONNECT_ATTEMPTS", "10"))
	if err != nil {
		return nil, fmt.Errorf("RECONNECT_ATTEMPTS: %w", err)
	}

	cfg := &Config{
		ServerURL:         getEnv("PIXELCHAT_URL", "ws://localhost:4444/ws"),
		AuthToken:         os.Getenv("PIXELCHAT_TOKEN"),
		CacheFile:         getEnv("PIXELCHAT_CACHE", "pixelchat.db"),
		DialTimeout:       dialTimeout,
		ReconnectDelay:    reconnectDelay,
		ReconnectAttempts: attempts,
		TypingIdle:        typingIdle,
		AckTTL:            ackTTL,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.AuthToken == "" {
		return fmt.Errorf("PIXELCHAT_TOKEN is required")
	}

	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY must be greater than 0")
	}

	if c.ReconnectAttempts <= 0 {
		return fmt.Errorf("RECONNECT_ATTEMPTS must be greater than 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
