package backtest

import (
	"context"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyield/lprisk/internal/types"
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

var start = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func poolSnapshot(pool types.PoolID, day int, priceA string) types.MarketSnapshot {
	return types.MarketSnapshot{
		PoolID:              pool,
		Protocol:            "raydium",
		TokenA:              "SOL",
		TokenB:              "USDC",
		Timestamp:           start.AddDate(0, 0, day),
		PriceA:              dec(priceA),
		PriceB:              dec("1"),
		TVLUSD:              dec("500000"),
		Volume24hUSD:        dec("250000"),
		APY:                 80,
		FeeTierBps:          30,
		PoolAgeHours:        720,
		RiskScore:           35,
		SustainabilityScore: 7,
	}
}

// Ten days, two pools, pool 2's price drifting up slowly.
func fixtureSnapshots() []types.MarketSnapshot {
	prices := []string{"150", "151", "152", "153", "154", "155", "156", "157", "158", "159"}
	var out []types.MarketSnapshot
	for day := 0; day < 10; day++ {
		out = append(out, poolSnapshot(1, day, "150"))
		out = append(out, poolSnapshot(2, day, prices[day]))
	}
	return out
}

func fixtureStrategy() types.StrategyConfig {
	return types.StrategyConfig{
		Name: "fixture",
		Entry: types.EntryRules{
			MinAPY: 10, MaxAPY: 500,
			MinTVLUSD: 50_000, MinVolume24hUSD: 10_000,
			MaxRiskScore: 70, MinSustainabilityScore: 3,
		},
		Exit: types.ExitRules{
			StopLossPercent: -10, TakeProfitPercent: 30,
			MaxPositionHours: 24 * 30, MaxILPercent: -8,
			MaxRiskScoreIncrease: 20,
			RugTVLDropPercent:    -50, RugVolumeDropPercent: -70,
		},
		Sizing: types.PositionSizing{
			Method:       types.SizingFixed,
			FixedSizeUSD: 1000, MinPositionSizeUSD: 100, MaxPositionSizeUSD: 5000,
			MaxPortfolioPercent: 0.2, RiskMultiplier: 1, KellyFraction: 0.5,
			GasCostPerActionUSD: 1,
		},
		Limits: types.RiskLimits{
			MaxTotalPositions: 2, MaxPositionsPerProtocol: 2, MaxPositionsPerToken: 2,
			MaxTotalExposureUSD: 50_000, MinCashReservePercent: 0,
		},
		Weights: types.OpportunityWeights{APY: 0.3, Risk: 0.25, Sustainability: 0.15, VolumeTVL: 0.15, TVL: 0.15},
	}
}

func runFixture(t *testing.T) *types.BacktestResult {
	t.Helper()
	result, err := Run(context.Background(), fixtureSnapshots(), fixtureStrategy(), Config{
		InitialCapitalUSD: dec("10000"),
	})
	require.NoError(t, err)
	return result
}

func TestRun_OpensAndForceClosesAtEnd(t *testing.T) {
	result := runFixture(t)

	require.NotEmpty(t, result.Trades)
	assert.Len(t, result.EquityCurve, 10, "one equity sample per tick")

	for _, trade := range result.Trades {
		if trade.ExitReason == types.ExitManual {
			assert.Equal(t, "backtest_end", trade.ExitDetail)
		}
	}
	// Positions were open through the final tick, so the force close runs.
	last := result.Trades[len(result.Trades)-1]
	assert.Equal(t, types.ExitManual, last.ExitReason)
	assert.Equal(t, "backtest_end", last.ExitDetail)
}

func TestRun_Deterministic(t *testing.T) {
	first := runFixture(t)
	second := runFixture(t)

	require.Equal(t, first.Trades, second.Trades)
	require.Equal(t, first.EquityCurve, second.EquityCurve)
	require.Equal(t, first.Stats, second.Stats)
}

func TestRun_SkipsBadSnapshots(t *testing.T) {
	snapshots := fixtureSnapshots()
	bad := poolSnapshot(3, 5, "150")
	bad.TVLUSD = dec("-1")
	snapshots = append(snapshots, bad)

	result, err := Run(context.Background(), snapshots, fixtureStrategy(), Config{
		InitialCapitalUSD: dec("10000"),
	})
	require.NoError(t, err, "one bad data point must not abort the run")

	require.Len(t, result.SkippedTicks, 1)
	assert.Equal(t, types.PoolID(3), result.SkippedTicks[0].PoolID)
	assert.Len(t, result.EquityCurve, 10)
}

func TestRun_CancelledBetweenTicks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := Run(ctx, fixtureSnapshots(), fixtureStrategy(), Config{
		InitialCapitalUSD: dec("10000"),
	})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.Empty(t, result.EquityCurve, "cancellation before the first tick processes nothing")
	assert.Empty(t, result.Trades)
}

func TestRun_RejectsEmptyInput(t *testing.T) {
	_, err := Run(context.Background(), nil, fixtureStrategy(), Config{InitialCapitalUSD: dec("10000")})
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, err = Run(context.Background(), fixtureSnapshots(), fixtureStrategy(), Config{InitialCapitalUSD: dec("0")})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestRun_StepSizeSkipsDenseTicks(t *testing.T) {
	result, err := Run(context.Background(), fixtureSnapshots(), fixtureStrategy(), Config{
		InitialCapitalUSD: dec("10000"),
		StepSize:          48 * time.Hour,
	})
	require.NoError(t, err)
	assert.Len(t, result.EquityCurve, 5, "daily data at a 48h step processes every other tick")
}

func TestRun_ForceCloseUsesNewestSnapshot(t *testing.T) {
	// At a 48h step over daily data the final tick (day 9) is stepped over;
	// the force close must still price positions off it, not off day 8.
	result, err := Run(context.Background(), fixtureSnapshots(), fixtureStrategy(), Config{
		InitialCapitalUSD: dec("10000"),
		StepSize:          48 * time.Hour,
	})
	require.NoError(t, err)

	finalDay := start.AddDate(0, 0, 9)
	forced := 0
	for _, trade := range result.Trades {
		if trade.ExitReason != types.ExitManual {
			continue
		}
		forced++
		assert.Equal(t, finalDay, trade.ExitedAt)
	}
	require.NotZero(t, forced, "positions held through the end must be force closed")
}
