package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/solyield/lprisk/internal/backtest"
	"github.com/solyield/lprisk/internal/config"
	"github.com/solyield/lprisk/internal/datafeed"
	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/state"
	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
	"github.com/solyield/lprisk/internal/web"
)

// main wires the engine to its inputs: a strategy, a snapshot feed, and an
// optional database for persisting results.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("LP risk engine starting...")

	if config.DatabaseEnabled {
		dbCfg := state.DBConfig{
			Host: getEnvOr("DB_HOST", "localhost"), Port: mustAtoi(os.Getenv("DB_PORT"), 5432),
			User: os.Getenv("DB_USER"), Password: os.Getenv("DB_PASSWORD"),
			DBName: os.Getenv("DB_NAME"), SSLMode: getEnvOr("DB_SSLMODE", "disable"),
		}
		if err := state.InitDB(dbCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(); err != nil {
			log.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	if config.WebPort != "" {
		if !config.DatabaseEnabled {
			log.Fatal().Msg("LPRISK_WEB_PORT requires LPRISK_DB_ENABLED=true")
		}
		webServer := web.NewWebServer(config.WebPort)
		go func() {
			log.Info().Str("port", config.WebPort).Msg("Starting results API")
			if err := webServer.Start(); err != nil {
				log.Error().Err(err).Msg("Web server failed to start")
			}
		}()
	}

	// --- 2. Strategy Selection ---
	var (
		strategy types.StrategyConfig
		err      error
	)
	if config.StrategyFile != "" {
		strategy, err = config.LoadStrategyFile(config.StrategyFile)
	} else {
		strategy, err = config.LoadStrategy(config.StrategyName)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load strategy")
	}
	log.Info().Str("strategy", strategy.Name).Msg("Strategy loaded")

	// --- 3. Snapshot Feed ---
	var snapshots []types.MarketSnapshot
	if config.SnapshotCSVPath != "" {
		snapshots, err = datafeed.LoadCSV(config.SnapshotCSVPath)
	} else if config.DatabaseEnabled {
		snapshots, err = state.LoadMarketSnapshots(time.Time{}, time.Now().UTC())
	} else {
		log.Fatal().Msg("No snapshot source configured. Set LPRISK_SNAPSHOT_CSV or enable the database.")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load snapshots")
	}

	// --- 4. Run the Backtest ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initialCapital, err := utils.DecFromFloat(config.InitialCapitalUSD)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid initial capital")
	}

	result, err := backtest.Run(ctx, snapshots, strategy, backtest.Config{
		InitialCapitalUSD: initialCapital,
		StepSize:          time.Duration(config.BacktestStepHours) * time.Hour,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Backtest failed")
	}

	backtest.RenderReport(result, os.Stdout)

	if config.DatabaseEnabled {
		if err := state.SaveBacktestResult(*result); err != nil {
			log.Error().Err(err).Msg("Failed to persist backtest result")
		}
	}

	log.Info().Str("result_id", result.ID).Msg("Run complete")
}

func getEnvOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// Helper to convert string to int with a default value
func mustAtoi(s string, defaultValue int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return i
}
