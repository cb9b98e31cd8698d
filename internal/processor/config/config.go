// Package config loads the Processor's environment-variable configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment option the Processor recognizes (§6).
type Config struct {
	DatabaseURL string
	TCPPort     string
	WSPort      string
	MaxFixtures int
}

// Load reads the Processor's configuration from the environment. The
// only fatal condition is a missing DATABASE_URL.
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		DatabaseURL: dbURL,
		TCPPort:     getEnv("TCP_PORT", "9000"),
		WSPort:      getEnv("WS_PORT", "8081"),
		MaxFixtures: getEnvInt("MAX_FIXTURES", 1000),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}
