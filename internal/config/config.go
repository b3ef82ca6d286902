// Package config reads runtime settings from the environment (and a .env file
// when present).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Config holds every setting the binaries read.
type Config struct {
	StoreBackend        string
	DatabaseURL         string
	FirestoreProjectID  string
	FirestoreCredential string
	RedisAddress        string
	RedisPassword       string
	LockTTL             time.Duration
	ServerPort          string
	AllowedOrigins      string
	OpenAIAPIKey        string
	LogLevel            string
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		FirestoreProjectID:  os.Getenv("FIRESTORE_PROJECT_ID"),
		FirestoreCredential: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		RedisAddress:        os.Getenv("REDIS_ADDRESS"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		LockTTL:             30 * time.Second,
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:      os.Getenv("ALLOWED_ORIGINS"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
	}

	if v := os.Getenv("LOCK_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid LOCK_TTL %q: %w", v, err)
		}
		cfg.LockTTL = d
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable not set")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID environment variable not set")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want postgres, firestore or memory)", c.StoreBackend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
