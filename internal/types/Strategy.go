/*

This file contains the strategy configuration bundle: entry rules, exit
rules, position sizing, portfolio risk limits, and opportunity-score weights.
A StrategyConfig is immutable for the lifetime of a portfolio run; changing
strategy means building a new config, never mutating fields in place.

*/

package types

import (
	"errors"
	"fmt"
	"math"
)

// SizingMethod selects how new positions are sized.
type SizingMethod string

const (
	SizingFixed            SizingMethod = "fixed"             // constant configured amount
	SizingPortfolioPercent SizingMethod = "portfolio_percent" // percentage of current portfolio value
	SizingRiskAdjusted     SizingMethod = "risk_adjusted"     // fixed size scaled down by pool risk score
	SizingKelly            SizingMethod = "kelly"             // Kelly fraction from the portfolio's own trade history
)

// EntryRules filter which pools are eligible for a new position.
type EntryRules struct {
	MinAPY                 float64  `yaml:"min_apy" json:"min_apy"`                                   // Minimum pool APY in percent; below this the yield does not cover risk.
	MaxAPY                 float64  `yaml:"max_apy" json:"max_apy"`                                   // Maximum pool APY in percent; above this the yield is assumed unsustainable.
	MinTVLUSD              float64  `yaml:"min_tvl_usd" json:"min_tvl_usd"`                           // Minimum pool TVL in USD.
	MinVolume24hUSD        float64  `yaml:"min_volume_24h_usd" json:"min_volume_24h_usd"`             // Minimum trailing 24h volume in USD.
	MinVolumeTVLRatio      float64  `yaml:"min_volume_tvl_ratio" json:"min_volume_tvl_ratio"`         // Lower bound of the volume/TVL band; below it the pool is starved.
	MaxVolumeTVLRatio      float64  `yaml:"max_volume_tvl_ratio" json:"max_volume_tvl_ratio"`         // Upper bound of the volume/TVL band; above it wash trading is suspected.
	MaxRiskScore           float64  `yaml:"max_risk_score" json:"max_risk_score"`                     // Maximum external risk score (0..100) accepted at entry.
	MinSustainabilityScore float64  `yaml:"min_sustainability_score" json:"min_sustainability_score"` // Minimum sustainability score (0..10) accepted at entry.
	MinPoolAgeHours        float64  `yaml:"min_pool_age_hours" json:"min_pool_age_hours"`             // Minimum pool age; very new pools carry rug risk.
	BlockedTokens          []string `yaml:"blocked_tokens" json:"blocked_tokens"`                     // Token symbols never to enter, regardless of score.
}

// ExitRules decide when an open position must be closed. Percent thresholds
// follow sign conventions: stop-loss and IL thresholds are negative, take
// profit is positive.
type ExitRules struct {
	StopLossPercent      float64 `yaml:"stop_loss_percent" json:"stop_loss_percent"`             // Exit when pnl percent falls to or below this (negative) value.
	TrailingStopPercent  float64 `yaml:"trailing_stop_percent" json:"trailing_stop_percent"`     // Once in profit, exit when pnl falls this many points below its peak. 0 disables.
	TakeProfitPercent    float64 `yaml:"take_profit_percent" json:"take_profit_percent"`         // Exit when pnl percent reaches this (positive) value.
	MaxPositionHours     float64 `yaml:"max_position_hours" json:"max_position_hours"`           // Exit when the position has been held at least this long.
	MaxILPercent         float64 `yaml:"max_il_percent" json:"max_il_percent"`                   // Exit when impermanent loss falls to or below this (negative) value.
	MaxRiskScoreIncrease float64 `yaml:"max_risk_score_increase" json:"max_risk_score_increase"` // Exit when the risk score has risen more than this many points since entry.
	MinAPYFloor          float64 `yaml:"min_apy_floor" json:"min_apy_floor"`                     // Exit when the current APY drops below this floor.
	RugTVLDropPercent    float64 `yaml:"rug_tvl_drop_percent" json:"rug_tvl_drop_percent"`       // Exit when TVL has dropped at least this much since entry (negative, e.g. -50).
	RugVolumeDropPercent float64 `yaml:"rug_volume_drop_percent" json:"rug_volume_drop_percent"` // Exit when 24h volume has dropped at least this much since entry (negative).
}

// PositionSizing controls how large new positions are.
type PositionSizing struct {
	Method              SizingMethod `yaml:"method" json:"method"`                                 // fixed | portfolio_percent | risk_adjusted | kelly
	FixedSizeUSD        float64      `yaml:"fixed_size_usd" json:"fixed_size_usd"`                 // Base size for fixed and risk_adjusted methods, and the Kelly fallback.
	MinPositionSizeUSD  float64      `yaml:"min_position_size_usd" json:"min_position_size_usd"`   // Lower clamp applied after the method computes a raw size.
	MaxPositionSizeUSD  float64      `yaml:"max_position_size_usd" json:"max_position_size_usd"`   // Upper clamp applied after the method computes a raw size.
	MaxPortfolioPercent float64      `yaml:"max_portfolio_percent" json:"max_portfolio_percent"`   // Fraction of portfolio value (0..1] used by portfolio_percent sizing.
	RiskMultiplier      float64      `yaml:"risk_multiplier" json:"risk_multiplier"`               // Scale factor applied on top of the risk discount in risk_adjusted sizing.
	KellyFraction       float64      `yaml:"kelly_fraction" json:"kelly_fraction"`                 // Fraction of full Kelly to bet (e.g. 0.5 for half-Kelly).
	GasCostPerActionUSD float64      `yaml:"gas_cost_per_action_usd" json:"gas_cost_per_action_usd"` // Flat cost charged once on entry and once on exit.
}

// RiskLimits are portfolio-wide caps enforced before any position opens.
type RiskLimits struct {
	MaxTotalPositions        int     `yaml:"max_total_positions" json:"max_total_positions"`                 // Maximum concurrently open positions.
	MaxPositionsPerProtocol  int     `yaml:"max_positions_per_protocol" json:"max_positions_per_protocol"`   // Maximum open positions on a single protocol.
	MaxPositionsPerToken     int     `yaml:"max_positions_per_token" json:"max_positions_per_token"`         // Maximum open positions containing a single token.
	MaxTotalExposureUSD      float64 `yaml:"max_total_exposure_usd" json:"max_total_exposure_usd"`           // Maximum sum of open entry values.
	MaxAvgPortfolioRiskScore float64 `yaml:"max_avg_portfolio_risk_score" json:"max_avg_portfolio_risk_score"` // Maximum average risk score across open positions after entry.
	MaxDailyLossPercent      float64 `yaml:"max_daily_loss_percent" json:"max_daily_loss_percent"`           // Halt new entries after losing this much of equity in a day (negative).
	MinCashReservePercent    float64 `yaml:"min_cash_reserve_percent" json:"min_cash_reserve_percent"`       // Fraction of portfolio value (0..1) never deployed into positions.
	RebalanceTriggerPercent  float64 `yaml:"rebalance_trigger_percent" json:"rebalance_trigger_percent"`     // Flag a position for trimming when its share of open value exceeds this (0..1, 0 disables).
}

// OpportunityWeights reweight the components of the opportunity score so
// strategy presets can shift emphasis without code changes.
type OpportunityWeights struct {
	APY            float64 `yaml:"apy" json:"apy"`                       // Weight of the capped APY component.
	Risk           float64 `yaml:"risk" json:"risk"`                     // Weight of the inverse risk-score component.
	Sustainability float64 `yaml:"sustainability" json:"sustainability"` // Weight of the sustainability component.
	VolumeTVL      float64 `yaml:"volume_tvl" json:"volume_tvl"`         // Weight of the banded volume/TVL component.
	TVL            float64 `yaml:"tvl" json:"tvl"`                       // Weight of the log-scaled TVL size component.
}

// StrategyConfig is the full immutable configuration bundle for one
// portfolio run.
type StrategyConfig struct {
	Name    string             `yaml:"name" json:"name"`
	Entry   EntryRules         `yaml:"entry" json:"entry"`
	Exit    ExitRules          `yaml:"exit" json:"exit"`
	Sizing  PositionSizing     `yaml:"sizing" json:"sizing"`
	Limits  RiskLimits         `yaml:"limits" json:"limits"`
	Weights OpportunityWeights `yaml:"weights" json:"weights"`
}

// Validate enforces the cross-field invariants a config must satisfy before
// any portfolio run. Failures wrap ErrInvalidInput.
func (c StrategyConfig) Validate() error {
	if c.Name == "" {
		return errors.Join(ErrInvalidInput, errors.New("strategy name is required"))
	}
	for _, f := range []struct {
		value float64
		name  string
	}{
		{c.Entry.MinAPY, "entry.min_apy"},
		{c.Entry.MaxAPY, "entry.max_apy"},
		{c.Exit.StopLossPercent, "exit.stop_loss_percent"},
		{c.Exit.TakeProfitPercent, "exit.take_profit_percent"},
		{c.Sizing.FixedSizeUSD, "sizing.fixed_size_usd"},
		{c.Sizing.MaxPortfolioPercent, "sizing.max_portfolio_percent"},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Join(ErrInvalidInput, fmt.Errorf("%s must be finite", f.name))
		}
	}
	if c.Entry.MinAPY >= c.Entry.MaxAPY {
		return errors.Join(ErrInvalidInput, fmt.Errorf("min APY (%.2f) must be below max APY (%.2f)", c.Entry.MinAPY, c.Entry.MaxAPY))
	}
	if c.Exit.StopLossPercent >= 0 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("stop-loss percent must be negative, got %.2f", c.Exit.StopLossPercent))
	}
	if c.Exit.TakeProfitPercent <= 0 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("take-profit percent must be positive, got %.2f", c.Exit.TakeProfitPercent))
	}
	if c.Sizing.MaxPortfolioPercent <= 0 || c.Sizing.MaxPortfolioPercent > 1 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("max portfolio percent must be within (0,1], got %.4f", c.Sizing.MaxPortfolioPercent))
	}
	switch c.Sizing.Method {
	case SizingFixed, SizingPortfolioPercent, SizingRiskAdjusted, SizingKelly:
	default:
		return errors.Join(ErrInvalidInput, fmt.Errorf("unknown sizing method %q", c.Sizing.Method))
	}
	if c.Sizing.MinPositionSizeUSD < 0 || c.Sizing.MaxPositionSizeUSD <= 0 {
		return errors.Join(ErrInvalidInput, errors.New("position size bounds must be positive"))
	}
	if c.Sizing.MinPositionSizeUSD > c.Sizing.MaxPositionSizeUSD {
		return errors.Join(ErrInvalidInput, fmt.Errorf("min position size (%.2f) exceeds max (%.2f)", c.Sizing.MinPositionSizeUSD, c.Sizing.MaxPositionSizeUSD))
	}
	if c.Limits.MaxTotalPositions <= 0 {
		return errors.Join(ErrInvalidInput, errors.New("max total positions must be positive"))
	}
	if c.Limits.MinCashReservePercent < 0 || c.Limits.MinCashReservePercent >= 1 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("min cash reserve percent must be within [0,1), got %.4f", c.Limits.MinCashReservePercent))
	}
	if c.Limits.RebalanceTriggerPercent < 0 || c.Limits.RebalanceTriggerPercent > 1 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("rebalance trigger percent must be within [0,1], got %.4f", c.Limits.RebalanceTriggerPercent))
	}
	return nil
}

// IsTokenBlocked reports whether either token of a candidate pool is on the
// blocklist.
func (r EntryRules) IsTokenBlocked(tokenA, tokenB string) (string, bool) {
	for _, blocked := range r.BlockedTokens {
		if blocked == tokenA || blocked == tokenB {
			return blocked, true
		}
	}
	return "", false
}
