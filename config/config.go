package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the settings read from the environment at startup.
type Config struct {
	DatabaseURL        string
	Port               string
	JWTSecret          []byte
	FrontendURL        string
	EncryptionKey      []byte
	RateLimitPerMinute int
	Env                string
	LogLevel           string
}

// Load reads a .env file when one exists, then the process environment.
// DATABASE_URL and JWT_SECRET are required.
func Load() (*Config, error) {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.JWTSecret = []byte(secret)

	key, err := parseKey(os.Getenv("DATA_ENCRYPTION_KEY"))
	if err != nil {
		return nil, err
	}
	cfg.EncryptionKey = key

	limit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_MINUTE", "100"))
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_PER_MINUTE must be a positive integer")
	}
	cfg.RateLimitPerMinute = limit

	return cfg, nil
}

// IsProduction reports whether the service runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || os.Getenv("GIN_MODE") == "release"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// parseKey accepts a raw 32-byte key or its base64 encoding. An empty value
// disables audit payload encryption.
func parseKey(value string) ([]byte, error) {
	if value == "" {
		return nil, nil
	}
	if len(value) == 32 {
		return []byte(value), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil || len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes or their base64 encoding")
	}
	return decoded, nil
}
