package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"
)

// AppConfig holds all process configuration loaded from environment
// variables. These are populated at startup by the LoadConfig function.
var (
	// LogLevel controls global logging verbosity ("debug", "info", "warn", "error").
	LogLevel string

	// StrategyName selects a built-in preset, unless a strategy file is given.
	StrategyName string
	// StrategyFile optionally points at a YAML strategy definition and
	// overrides StrategyName when set.
	StrategyFile string

	// SnapshotCSVPath is the historical snapshot file a backtest replays.
	// When empty, snapshots are loaded from the database instead.
	SnapshotCSVPath string

	// InitialCapitalUSD is the starting capital for a backtest run.
	InitialCapitalUSD float64
	// BacktestStepHours thins the snapshot feed to at most one tick per this
	// many hours. Zero processes every distinct timestamp.
	BacktestStepHours uint64

	// DatabaseEnabled turns the persistence layer on. The engine itself
	// never touches storage; this only controls the caller-side stores.
	DatabaseEnabled bool

	// WebPort starts the read-only results API when non-empty. Requires
	// DatabaseEnabled.
	WebPort string
)

// LoadConfig loads configuration from environment variables and sets the
// global config vars.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	LogLevel = getEnvOr("LPRISK_LOG_LEVEL", "info")
	StrategyName = getEnvOr("LPRISK_STRATEGY", "balanced")
	StrategyFile = getEnvOr("LPRISK_STRATEGY_FILE", "")
	SnapshotCSVPath = getEnvOr("LPRISK_SNAPSHOT_CSV", "")
	DatabaseEnabled = getEnvOr("LPRISK_DB_ENABLED", "false") == "true"
	WebPort = getEnvOr("LPRISK_WEB_PORT", "")

	InitialCapitalUSD, err = getEnvAsFloat64("LPRISK_INITIAL_CAPITAL_USD")
	if err != nil {
		return err
	}
	if InitialCapitalUSD <= 0 {
		return errors.New("LPRISK_INITIAL_CAPITAL_USD must be positive")
	}

	if raw := getEnvOr("LPRISK_STEP_HOURS", "0"); raw != "" {
		BacktestStepHours, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return errors.New("LPRISK_STEP_HOURS must be a valid uint64, got: " + raw)
		}
	}

	log.Debug().
		Str("Strategy", StrategyName).
		Str("StrategyFile", StrategyFile).
		Float64("InitialCapitalUSD", InitialCapitalUSD).
		Bool("DatabaseEnabled", DatabaseEnabled).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOr retrieves a string environment variable with a fallback default.
func getEnvOr(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsFloat64 retrieves an environment variable as a float64. Returns error if not set or invalid.
func getEnvAsFloat64(key string) (float64, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid float64, got: " + valueStr)
	}
	return value, nil
}
