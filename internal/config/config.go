package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"

	"featuregraph/internal/errors"
)

// Config is the complete application configuration
type Config struct {
	Search   SearchConfig
	Learn    LearnConfig
	Database DatabaseConfig
	Output   OutputConfig
	LogLevel string
}

// SearchConfig holds the defaults of a transformation search run
type SearchConfig struct {
	Budget  int
	Ranking string
	Folds   int
	Seed    int64
}

// LearnConfig holds random forest settings
type LearnConfig struct {
	Trees    int
	MaxDepth int // 0 means unlimited
	MinLeaf  int
	Workers  int
}

// DatabaseConfig holds connection settings. An empty URL disables run
// persistence.
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Enabled reports whether runs are persisted
func (d DatabaseConfig) Enabled() bool { return d.URL != "" }

// OutputConfig holds where artifacts are written by default
type OutputConfig struct {
	Dir    string
	Report bool
}

// Load reads the configuration from the environment and validates it
func Load() (*Config, error) {
	cfg := &Config{
		Search: SearchConfig{
			Budget:  getEnvIntOrDefault("SEARCH_BUDGET", 50),
			Ranking: getEnvOrDefault("SEARCH_RANKING", "reward"),
			Folds:   getEnvIntOrDefault("SEARCH_FOLDS", 10),
			Seed:    int64(getEnvIntOrDefault("SEARCH_SEED", 0)),
		},
		Learn: LearnConfig{
			Trees:    getEnvIntOrDefault("FOREST_TREES", 100),
			MaxDepth: getEnvIntOrDefault("FOREST_MAX_DEPTH", 0),
			MinLeaf:  getEnvIntOrDefault("FOREST_MIN_LEAF", 1),
			Workers:  getEnvIntOrDefault("FOREST_WORKERS", runtime.GOMAXPROCS(0)),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
		},
		Output: OutputConfig{
			Dir:    getEnvOrDefault("OUTPUT_DIR", "."),
			Report: getEnvBoolOrDefault("OUTPUT_REPORT", true),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Search.Budget <= 0 {
		return errors.ConfigInvalid("SEARCH_BUDGET must be positive")
	}
	if cfg.Search.Folds < 2 {
		return errors.ConfigInvalid("SEARCH_FOLDS must be at least 2")
	}
	switch strings.ToLower(cfg.Search.Ranking) {
	case "reward", "cumulative", "improvement":
	default:
		return errors.ConfigInvalid("SEARCH_RANKING must be reward, cumulative or improvement")
	}
	if cfg.Learn.Trees <= 0 {
		return errors.ConfigInvalid("FOREST_TREES must be positive")
	}
	if cfg.Learn.MinLeaf <= 0 {
		return errors.ConfigInvalid("FOREST_MIN_LEAF must be positive")
	}
	if cfg.Learn.Workers <= 0 {
		cfg.Learn.Workers = 1
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
