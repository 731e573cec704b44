/*

This file contains the built-in strategy presets.

Each value has been chosen to balance risk management with return
optimization at its risk tier. Presets are starting points: a YAML strategy
file can replace any of them without code changes.

*/

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solyield/lprisk/internal/types"
)

// ConservativeStrategy prioritizes capital preservation over yield.
var ConservativeStrategy = types.StrategyConfig{
	Name: "conservative",

	Entry: types.EntryRules{
		MinAPY: 15, // Below 15% the yield does not cover IL risk plus gas.
		MaxAPY: 150,
		// Rationale: triple-digit APYs on established pools are almost always
		// emissions-driven and collapse within days. Capping entry APY keeps
		// this preset out of farm-and-dump pools entirely.

		MinTVLUSD:       500_000,
		MinVolume24hUSD: 100_000,
		// Rationale: deep pools mean exits do not move the price. Half a
		// million TVL is the floor at which a few-thousand-dollar position
		// exits cleanly even in a drawdown.

		MinVolumeTVLRatio: 0.05,
		MaxVolumeTVLRatio: 2.0,

		MaxRiskScore:           40,
		MinSustainabilityScore: 6,
		MinPoolAgeHours:        24 * 14, // Two weeks of history before trusting a pool.
	},

	Exit: types.ExitRules{
		StopLossPercent:     -5,
		TrailingStopPercent: 3,
		TakeProfitPercent:   15,
		// Rationale: small, frequent wins. A tight stop preserves capital and
		// the trailing stop locks in profit once a position has worked.

		MaxPositionHours:     24 * 14,
		MaxILPercent:         -3,
		MaxRiskScoreIncrease: 10,
		MinAPYFloor:          8,
		RugTVLDropPercent:    -30,
		RugVolumeDropPercent: -50,
		// Rationale: conservative rug triggers fire early. A 30% TVL drop on
		// a mature pool is already abnormal; waiting for -50% costs half the
		// recoverable value.
	},

	Sizing: types.PositionSizing{
		Method:              types.SizingRiskAdjusted,
		FixedSizeUSD:        500,
		MinPositionSizeUSD:  100,
		MaxPositionSizeUSD:  1_000,
		MaxPortfolioPercent: 0.1,
		RiskMultiplier:      0.8,
		KellyFraction:       0.25,
		GasCostPerActionUSD: 1.5,
	},

	Limits: types.RiskLimits{
		MaxTotalPositions:        4,
		MaxPositionsPerProtocol:  2,
		MaxPositionsPerToken:     2,
		MaxTotalExposureUSD:      4_000,
		MaxAvgPortfolioRiskScore: 35,
		MaxDailyLossPercent:      -3,
		MinCashReservePercent:    0.3,
		RebalanceTriggerPercent:  0.35,
		// Rationale: a 30% cash reserve means a full drawdown on every open
		// position still leaves capital to redeploy at the bottom.
	},

	Weights: types.OpportunityWeights{
		APY:            0.15,
		Risk:           0.35, // Safety dominates the ranking at this tier.
		Sustainability: 0.25,
		VolumeTVL:      0.15,
		TVL:            0.10,
	},
}

// BalancedStrategy is the default: meaningful yield with guarded downside.
var BalancedStrategy = types.StrategyConfig{
	Name: "balanced",

	Entry: types.EntryRules{
		MinAPY:                 25,
		MaxAPY:                 400,
		MinTVLUSD:              100_000,
		MinVolume24hUSD:        50_000,
		MinVolumeTVLRatio:      0.1,
		MaxVolumeTVLRatio:      3.0,
		MaxRiskScore:           60,
		MinSustainabilityScore: 4,
		MinPoolAgeHours:        72,
	},

	Exit: types.ExitRules{
		StopLossPercent:      -10,
		TrailingStopPercent:  5,
		TakeProfitPercent:    30,
		MaxPositionHours:     24 * 10,
		MaxILPercent:         -7,
		MaxRiskScoreIncrease: 20,
		MinAPYFloor:          12,
		RugTVLDropPercent:    -50,
		RugVolumeDropPercent: -70,
	},

	Sizing: types.PositionSizing{
		Method:              types.SizingPortfolioPercent,
		FixedSizeUSD:        1_000,
		MinPositionSizeUSD:  200,
		MaxPositionSizeUSD:  2_500,
		MaxPortfolioPercent: 0.2,
		RiskMultiplier:      1.0,
		KellyFraction:       0.5,
		GasCostPerActionUSD: 1.5,
	},

	Limits: types.RiskLimits{
		MaxTotalPositions:        6,
		MaxPositionsPerProtocol:  3,
		MaxPositionsPerToken:     3,
		MaxTotalExposureUSD:      15_000,
		MaxAvgPortfolioRiskScore: 50,
		MaxDailyLossPercent:      -6,
		MinCashReservePercent:    0.15,
		RebalanceTriggerPercent:  0.4,
	},

	Weights: types.OpportunityWeights{
		APY:            0.30,
		Risk:           0.25,
		Sustainability: 0.15,
		VolumeTVL:      0.15,
		TVL:            0.15,
	},
}

// AggressiveStrategy chases yield in young, volatile pools. Expect deep
// drawdowns; the rug triggers and the daily-loss halt are the only brakes.
var AggressiveStrategy = types.StrategyConfig{
	Name: "aggressive",

	Entry: types.EntryRules{
		MinAPY:                 50,
		MaxAPY:                 2_000,
		MinTVLUSD:              25_000,
		MinVolume24hUSD:        10_000,
		MinVolumeTVLRatio:      0.2,
		MaxVolumeTVLRatio:      10.0,
		MaxRiskScore:           80,
		MinSustainabilityScore: 2,
		MinPoolAgeHours:        6,
		// Rationale: the edge at this tier is being early. Six hours filters
		// only the instant rugs; everything else is a risk-score problem.
	},

	Exit: types.ExitRules{
		StopLossPercent:      -20,
		TrailingStopPercent:  10,
		TakeProfitPercent:    75,
		MaxPositionHours:     24 * 3,
		MaxILPercent:         -15,
		MaxRiskScoreIncrease: 30,
		MinAPYFloor:          25,
		RugTVLDropPercent:    -60,
		RugVolumeDropPercent: -80,
	},

	Sizing: types.PositionSizing{
		Method:              types.SizingKelly,
		FixedSizeUSD:        500, // Kelly fallback while the trade sample is thin.
		MinPositionSizeUSD:  100,
		MaxPositionSizeUSD:  5_000,
		MaxPortfolioPercent: 0.25,
		RiskMultiplier:      1.2,
		KellyFraction:       0.5,
		GasCostPerActionUSD: 1.5,
	},

	Limits: types.RiskLimits{
		MaxTotalPositions:        10,
		MaxPositionsPerProtocol:  5,
		MaxPositionsPerToken:     4,
		MaxTotalExposureUSD:      50_000,
		MaxAvgPortfolioRiskScore: 70,
		MaxDailyLossPercent:      -12,
		MinCashReservePercent:    0.05,
		RebalanceTriggerPercent:  0.5,
	},

	Weights: types.OpportunityWeights{
		APY:            0.45,
		Risk:           0.10,
		Sustainability: 0.10,
		VolumeTVL:      0.20,
		TVL:            0.15,
	},
}

// LoadStrategy resolves a preset by name.
func LoadStrategy(name string) (types.StrategyConfig, error) {
	switch name {
	case "conservative":
		return ConservativeStrategy, nil
	case "balanced":
		return BalancedStrategy, nil
	case "aggressive":
		return AggressiveStrategy, nil
	default:
		return types.StrategyConfig{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("unknown strategy preset %q", name))
	}
}

// LoadStrategyFile reads a strategy definition from a YAML file. Missing
// fields stay at their zero values, so files should be complete; the config
// is validated before it is returned.
func LoadStrategyFile(path string) (types.StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.StrategyConfig{}, fmt.Errorf("reading strategy file %s: %w", path, err)
	}

	var cfg types.StrategyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return types.StrategyConfig{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("parsing strategy file %s: %w", path, err))
	}
	if err := cfg.Validate(); err != nil {
		return types.StrategyConfig{}, err
	}
	return cfg, nil
}
