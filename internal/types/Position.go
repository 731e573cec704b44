/*

This file contains the position type and its lifecycle enums. A position
carries everything needed to value it at any later snapshot without touching
external state: the full entry snapshot plus running valuation fields.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PositionStatus is the lifecycle state of a position.
type PositionStatus string

const (
	StatusPending PositionStatus = "PENDING" // created, not yet through risk checks
	StatusActive  PositionStatus = "ACTIVE"  // holding liquidity, revalued every tick
	StatusExited  PositionStatus = "EXITED"  // closed, terminal
	StatusFailed  PositionStatus = "FAILED"  // entry rejected or failed, terminal
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitStopLoss          ExitReason = "STOP_LOSS"
	ExitTakeProfit        ExitReason = "TAKE_PROFIT"
	ExitTimeLimit         ExitReason = "TIME_LIMIT"
	ExitILThreshold       ExitReason = "IMPERMANENT_LOSS_THRESHOLD"
	ExitRiskIncrease      ExitReason = "RISK_INCREASE"
	ExitAPYDrop           ExitReason = "APY_DROP"
	ExitRugDetected       ExitReason = "RUG_DETECTED"
	ExitLowLiquidity      ExitReason = "LOW_LIQUIDITY"
	ExitBetterOpportunity ExitReason = "BETTER_OPPORTUNITY"
	ExitManual            ExitReason = "MANUAL"
)

// Position is an LP position in a single pool. Monetary fields are decimals;
// float64 appears only for score-shaped values carried over from snapshots.
type Position struct {
	ID       string         `json:"id"` // uuid
	PoolID   PoolID         `json:"pool_id"`
	Protocol string         `json:"protocol"`
	TokenA   string         `json:"token_a"`
	TokenB   string         `json:"token_b"`
	Status   PositionStatus `json:"status"`

	// Entry snapshot. EntryTVL and EntryVolume24h are retained so that rug
	// detection can compare against conditions at entry, not a rolling window.
	EnteredAt      time.Time         `json:"entered_at"`
	EntryPriceA    sdkmath.LegacyDec `json:"entry_price_a"`
	EntryPriceB    sdkmath.LegacyDec `json:"entry_price_b"`
	EntryAmountA   sdkmath.LegacyDec `json:"entry_amount_a"`
	EntryAmountB   sdkmath.LegacyDec `json:"entry_amount_b"`
	EntryValueUSD  sdkmath.LegacyDec `json:"entry_value_usd"`
	EntryTVL       sdkmath.LegacyDec `json:"entry_tvl"`
	EntryVolume24h sdkmath.LegacyDec `json:"entry_volume_24h"`
	EntryAPY       float64           `json:"entry_apy"`
	EntryRiskScore float64           `json:"entry_risk_score"`
	FeeTierBps     int64             `json:"fee_tier_bps"`

	// Running state, updated by Revalue.
	CurrentValueUSD sdkmath.LegacyDec `json:"current_value_usd"` // includes accrued fees
	FeesEarnedUSD   sdkmath.LegacyDec `json:"fees_earned_usd"`
	CostsUSD        sdkmath.LegacyDec `json:"costs_usd"` // gas + entry/exit costs, cumulative
	PnLUSD          sdkmath.LegacyDec `json:"pnl_usd"`
	PnLPercent      sdkmath.LegacyDec `json:"pnl_percent"`
	ILPercent       sdkmath.LegacyDec `json:"il_percent"`    // <= 0 by construction
	PeakPnLPercent  sdkmath.LegacyDec `json:"peak_pnl_percent"` // high-water mark for the trailing stop
	LastValuedAt    time.Time         `json:"last_valued_at"`

	// Exit snapshot, populated on close.
	ExitedAt   time.Time  `json:"exited_at,omitempty"`
	ExitReason ExitReason `json:"exit_reason,omitempty"`
	ExitDetail string     `json:"exit_detail,omitempty"`
}

// IsTerminal reports whether the position can never change state again.
func (p *Position) IsTerminal() bool {
	return p.Status == StatusExited || p.Status == StatusFailed
}

// HoursHeld returns the holding duration in hours relative to the given
// time. Clock time never enters the engine; callers pass the snapshot
// timestamp so backtests stay deterministic.
func (p *Position) HoursHeld(at time.Time) float64 {
	if p.EnteredAt.IsZero() || at.Before(p.EnteredAt) {
		return 0
	}
	return at.Sub(p.EnteredAt).Hours()
}

// Pair returns the token pair label for logging and reports.
func (p *Position) Pair() string {
	return p.TokenA + "-" + p.TokenB
}
