// Package config resolves process configuration from the environment. The
// signing secret is validated here so a misconfigured process fails at
// startup, not on the first request.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

const minSecretBytes = 32

type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       []byte
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	GoogleClientID  string
	RateLimitStore  string // "memory" or "postgres"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s, using default: %v", key, err)
		return def
	}
	return i
}

// Load reads the environment. It fails when the signing secret is absent or
// shorter than 32 bytes, or when no database URL is set.
func Load() (*Config, error) {
	secret := os.Getenv("JWT_SECRET")
	if len(secret) < minSecretBytes {
		return nil, fmt.Errorf("JWT_SECRET must be at least %d bytes, got %d", minSecretBytes, len(secret))
	}

	dbURL := databaseURL()
	if dbURL == "" {
		return nil, fmt.Errorf("database configuration missing: set DATABASE_URL or POSTGRES_* variables")
	}

	refreshHours := getInt("REFRESH_TOKEN_TTL_HOURS", 7*24)
	// Policy bounds: a refresh token lives between 7 and 30 days.
	if refreshHours < 7*24 {
		refreshHours = 7 * 24
	}
	if refreshHours > 30*24 {
		refreshHours = 30 * 24
	}

	return &Config{
		Addr:            getenv("ADDR", "0.0.0.0:8080"),
		DatabaseURL:     dbURL,
		JWTSecret:       []byte(secret),
		AccessTokenTTL:  time.Duration(getInt("ACCESS_TOKEN_TTL_MINUTES", 15)) * time.Minute,
		RefreshTokenTTL: time.Duration(refreshHours) * time.Hour,
		GoogleClientID:  getenv("GOOGLE_CLIENT_ID", ""),
		RateLimitStore:  getenv("RATE_LIMIT_STORE", "memory"),
	}, nil
}

func databaseURL() string {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		return v
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("POSTGRES_USER"),
		os.Getenv("POSTGRES_PASSWORD"),
		host,
		getenv("POSTGRES_PORT", "5432"),
		os.Getenv("POSTGRES_DB"),
	)
}
