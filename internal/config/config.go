package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Web Server
	WebBind string

	// Database (optional; empty runs demo mode on the in-memory directory)
	DatabaseURL string

	// Session
	JWTSecret string

	// ClearNode settlement gateway (optional; empty uses the simulated gateway)
	ClearNodeURL string

	// OpenAI task execution (optional; empty uses the static executor)
	OpenAIKey string

	// Payments
	PoolAddress    string
	DefaultFunding float64
	SettleTimeout  time.Duration
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		WebBind:      getEnvDefault("WEB_BIND", "0.0.0.0:5000"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		ClearNodeURL: os.Getenv("CLEARNODE_URL"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		PoolAddress:  getEnvDefault("POOL_ADDRESS", "0xpool"),
	}

	funding, err := getEnvFloat("DEFAULT_FUNDING", 1.0)
	if err != nil {
		return nil, err
	}
	cfg.DefaultFunding = funding

	timeoutSec, err := getEnvFloat("SETTLE_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	cfg.SettleTimeout = time.Duration(timeoutSec * float64(time.Second))

	if cfg.PoolAddress == "" {
		return nil, fmt.Errorf("POOL_ADDRESS must not be empty")
	}
	if cfg.DefaultFunding < 0 {
		return nil, fmt.Errorf("DEFAULT_FUNDING must not be negative")
	}
	if cfg.SettleTimeout <= 0 {
		return nil, fmt.Errorf("SETTLE_TIMEOUT_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return f, nil
}
