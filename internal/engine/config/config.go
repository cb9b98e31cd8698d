// Package config loads the Engine's environment-variable configuration,
// in the style of ws-broadcaster/internal/config: getEnv with a
// default, explicit bool parsing, one required value that's fatal if
// missing.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds every environment option the Engine recognizes (§6).
type Config struct {
	DatabaseURL string

	Port string

	MonacoBaseURL   string
	MonacoStreamURL string
	MonacoAppID     string
	MonacoAPIKey    string

	PinnacleBaseURL string
	PinnacleAPIKey  string
	PinnacleLeagues string

	RedisURL string // empty disables Pinnacle dedup suppression

	MonacoOdds   bool
	PinnacleOdds bool

	ProcessorEnabled bool
	ProcessorHost    string
	ProcessorPort    string
}

// Load reads the Engine's configuration from the environment. It
// returns an error only for the one fatal condition: a missing
// DATABASE_URL (§7 "the only fatal path is configuration").
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return &Config{
		DatabaseURL:      dbURL,
		Port:             getEnv("PORT", "8080"),
		MonacoBaseURL:    getEnv("MONACO_BASE_URL", ""),
		MonacoStreamURL:  getEnv("MONACO_STREAM_URL", ""),
		MonacoAppID:      getEnv("MONACO_APP_ID", ""),
		MonacoAPIKey:     getEnv("MONACO_API_KEY", ""),
		PinnacleBaseURL:  getEnv("PINNACLE_BASE_URL", ""),
		PinnacleAPIKey:   getEnv("PINNACLE_API_KEY", ""),
		PinnacleLeagues:  getEnv("PINNACLE_KNOWN_LEAGUES", ""),
		RedisURL:         getEnv("REDIS_URL", ""),
		MonacoOdds:       getEnvBool("MONACO_ODDS", true),
		PinnacleOdds:     getEnvBool("PINNACLE_ODDS", true),
		ProcessorEnabled: getEnvBool("PROCESSOR_ENABLED", true),
		ProcessorHost:    getEnv("PROCESSOR_HOST", "localhost"),
		ProcessorPort:    getEnv("PROCESSOR_PORT", "9000"),
	}, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}
