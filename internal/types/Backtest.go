/*

This file contains the backtest result types: closed trades, equity-curve
samples, skipped-tick diagnostics, and the summary statistics block.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Trade is the immutable history record produced when a position closes.
type Trade struct {
	ID            string            `json:"id"` // uuid, same as the position id
	PoolID        PoolID            `json:"pool_id"`
	Protocol      string            `json:"protocol"`
	Pair          string            `json:"pair"`
	EnteredAt     time.Time         `json:"entered_at"`
	ExitedAt      time.Time         `json:"exited_at"`
	HoursHeld     float64           `json:"hours_held"`
	EntryValueUSD sdkmath.LegacyDec `json:"entry_value_usd"`
	ExitValueUSD  sdkmath.LegacyDec `json:"exit_value_usd"`
	FeesEarnedUSD sdkmath.LegacyDec `json:"fees_earned_usd"`
	CostsUSD      sdkmath.LegacyDec `json:"costs_usd"`
	PnLUSD        sdkmath.LegacyDec `json:"pnl_usd"`
	PnLPercent    sdkmath.LegacyDec `json:"pnl_percent"`
	ILPercent     sdkmath.LegacyDec `json:"il_percent"`
	ExitReason    ExitReason        `json:"exit_reason"`
	ExitDetail    string            `json:"exit_detail,omitempty"`
}

// EquityPoint is one equity-curve sample, recorded once per backtest tick.
type EquityPoint struct {
	Timestamp     time.Time         `json:"timestamp"`
	TotalValueUSD sdkmath.LegacyDec `json:"total_value_usd"`
	OpenPositions int               `json:"open_positions"`
}

// SkippedTick records a tick the simulator could not process. One bad
// historical data point must not abort a multi-year replay; it is reported
// here instead.
type SkippedTick struct {
	Timestamp time.Time `json:"timestamp"`
	PoolID    PoolID    `json:"pool_id,omitempty"`
	Reason    string    `json:"reason"`
}

// SummaryStats are computed once over the full trade list and equity curve.
// Every ratio guards divide-by-zero with a defined sentinel: ratios default
// to 0 when their denominator is 0, and an all-win run sets
// ProfitFactorInfinite instead of leaking +Inf into reports.
type SummaryStats struct {
	TotalTrades          int     `json:"total_trades"`
	WinningTrades        int     `json:"winning_trades"`
	LosingTrades         int     `json:"losing_trades"`
	WinRate              float64 `json:"win_rate"` // 0..1
	AvgWinUSD            float64 `json:"avg_win_usd"`
	AvgLossUSD           float64 `json:"avg_loss_usd"` // reported as a positive magnitude
	ProfitFactor         float64 `json:"profit_factor"`
	ProfitFactorInfinite bool    `json:"profit_factor_infinite"` // wins with zero losses
	TotalPnLUSD          float64 `json:"total_pnl_usd"`
	TotalReturnPercent   float64 `json:"total_return_percent"`
	MaxDrawdownPercent   float64 `json:"max_drawdown_percent"` // positive magnitude
	SharpeRatio          float64 `json:"sharpe_ratio"`
	SortinoRatio         float64 `json:"sortino_ratio"`
	CalmarRatio          float64 `json:"calmar_ratio"`
}

// BacktestResult is the derived, read-only report of one simulator run.
type BacktestResult struct {
	ID                string         `json:"id"` // uuid
	StrategyName      string         `json:"strategy_name"`
	Config            StrategyConfig `json:"config"`
	StartedAt         time.Time      `json:"started_at"` // first snapshot timestamp
	EndedAt           time.Time      `json:"ended_at"`   // last processed snapshot timestamp
	InitialCapitalUSD sdkmath.LegacyDec `json:"initial_capital_usd"`
	FinalValueUSD     sdkmath.LegacyDec `json:"final_value_usd"`
	Trades            []Trade        `json:"trades"`
	EquityCurve       []EquityPoint  `json:"equity_curve"`
	SkippedTicks      []SkippedTick  `json:"skipped_ticks,omitempty"`
	Stats             SummaryStats   `json:"stats"`
	Cancelled         bool           `json:"cancelled"` // cooperative cancellation fired between ticks
}
