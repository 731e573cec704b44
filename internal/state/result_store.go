// ./internal/state/result_store.go
package state

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solyield/lprisk/internal/types"
)

// SaveBacktestResult persists a completed run. The flat columns cover the
// headline numbers for comparison queries; the full result rides along as
// JSONB for replay and reporting.
func SaveBacktestResult(result types.BacktestResult) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result %s: %w", result.ID, err)
	}

	query := `
		INSERT INTO backtest_results (
			result_id, strategy_name, started_at, ended_at,
			initial_capital_usd, final_value_usd, total_trades,
			win_rate, max_drawdown_percent, sharpe_ratio, cancelled, result_json
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (result_id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			final_value_usd = EXCLUDED.final_value_usd,
			total_trades = EXCLUDED.total_trades,
			win_rate = EXCLUDED.win_rate,
			max_drawdown_percent = EXCLUDED.max_drawdown_percent,
			sharpe_ratio = EXCLUDED.sharpe_ratio,
			cancelled = EXCLUDED.cancelled,
			result_json = EXCLUDED.result_json;
	`

	_, err = DB.Exec(query,
		result.ID, result.StrategyName, result.StartedAt, result.EndedAt,
		result.InitialCapitalUSD.String(), result.FinalValueUSD.String(), result.Stats.TotalTrades,
		result.Stats.WinRate, result.Stats.MaxDrawdownPercent, result.Stats.SharpeRatio,
		result.Cancelled, resultJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save backtest result %s: %w", result.ID, err)
	}

	log.Info().
		Str("result_id", result.ID).
		Str("strategy", result.StrategyName).
		Int("trades", result.Stats.TotalTrades).
		Msg("Backtest result saved to database")
	return nil
}

// GetRecentBacktestResults retrieves the most recent runs, newest first.
func GetRecentBacktestResults(limit int) ([]types.BacktestResult, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	rows, err := DB.Query(
		`SELECT result_json FROM backtest_results ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var results []types.BacktestResult
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan backtest result row: %w", err)
		}
		var result types.BacktestResult
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal backtest result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("backtest result iteration failed: %w", err)
	}
	return results, nil
}

// GetBacktestResultByID retrieves one run by its result id.
func GetBacktestResultByID(resultID string) (*types.BacktestResult, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	var raw []byte
	err := DB.QueryRow(
		`SELECT result_json FROM backtest_results WHERE result_id = $1`,
		resultID,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load backtest result %s: %w", resultID, err)
	}

	var result types.BacktestResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest result %s: %w", resultID, err)
	}
	return &result, nil
}
