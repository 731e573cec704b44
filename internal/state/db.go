// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS positions (
			position_id VARCHAR(64) PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			protocol VARCHAR(64) NOT NULL,
			token_a VARCHAR(32) NOT NULL,
			token_b VARCHAR(32) NOT NULL,
			status VARCHAR(16) NOT NULL,
			entered_at TIMESTAMPTZ NOT NULL,
			entry_value_usd DECIMAL(30, 18) NOT NULL,
			current_value_usd DECIMAL(30, 18) NOT NULL,
			fees_earned_usd DECIMAL(30, 18) NOT NULL,
			costs_usd DECIMAL(30, 18) NOT NULL,
			pnl_usd DECIMAL(30, 18) NOT NULL,
			pnl_percent DECIMAL(30, 18) NOT NULL,
			il_percent DECIMAL(30, 18) NOT NULL,
			exited_at TIMESTAMPTZ,
			exit_reason VARCHAR(40),
			exit_detail TEXT,
			position_json JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
		CREATE INDEX IF NOT EXISTS idx_positions_pool_id ON positions(pool_id);
		CREATE INDEX IF NOT EXISTS idx_positions_entered_at ON positions(entered_at DESC);

		CREATE TABLE IF NOT EXISTS market_snapshots (
			snapshot_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			protocol VARCHAR(64) NOT NULL,
			token_a VARCHAR(32) NOT NULL,
			token_b VARCHAR(32) NOT NULL,
			snapshot_timestamp TIMESTAMPTZ NOT NULL,
			price_a DECIMAL(30, 18) NOT NULL,
			price_b DECIMAL(30, 18) NOT NULL,
			tvl_usd DECIMAL(30, 18) NOT NULL,
			volume_24h_usd DECIMAL(30, 18) NOT NULL,
			apy DECIMAL(12, 4) NOT NULL,
			fee_tier_bps BIGINT NOT NULL,
			pool_age_hours DECIMAL(14, 4) NOT NULL,
			risk_score DECIMAL(7, 3) NOT NULL,
			sustainability_score DECIMAL(6, 3) NOT NULL,
			CONSTRAINT uq_market_snapshots_pool_time UNIQUE (pool_id, snapshot_timestamp)
		);
		CREATE INDEX IF NOT EXISTS idx_market_snapshots_time ON market_snapshots(snapshot_timestamp);
		CREATE INDEX IF NOT EXISTS idx_market_snapshots_pool ON market_snapshots(pool_id, snapshot_timestamp);

		CREATE TABLE IF NOT EXISTS backtest_results (
			result_id VARCHAR(64) PRIMARY KEY,
			strategy_name VARCHAR(128) NOT NULL,
			started_at TIMESTAMPTZ NOT NULL,
			ended_at TIMESTAMPTZ NOT NULL,
			initial_capital_usd DECIMAL(30, 18) NOT NULL,
			final_value_usd DECIMAL(30, 18) NOT NULL,
			total_trades INTEGER NOT NULL,
			win_rate DECIMAL(8, 6) NOT NULL,
			max_drawdown_percent DECIMAL(10, 4) NOT NULL,
			sharpe_ratio DECIMAL(10, 4) NOT NULL,
			cancelled BOOLEAN NOT NULL DEFAULT FALSE,
			result_json JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_backtest_results_strategy ON backtest_results(strategy_name, created_at DESC);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
