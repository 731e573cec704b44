package exitrule

import (
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

var entryTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func activePosition() *types.Position {
	return &types.Position{
		ID:             "pos-1",
		PoolID:         42,
		Protocol:       "raydium",
		TokenA:         "SOL",
		TokenB:         "USDC",
		Status:         types.StatusActive,
		EnteredAt:      entryTime,
		EntryPriceA:    dec("150"),
		EntryPriceB:    dec("1"),
		EntryValueUSD:  dec("1000"),
		EntryTVL:       dec("200000"),
		EntryVolume24h: dec("100000"),
		EntryAPY:       80,
		EntryRiskScore: 35,
		PnLPercent:     dec("2"),
		ILPercent:      dec("-0.5"),
		PeakPnLPercent: dec("2"),
	}
}

func snapshotAt(hoursLater float64) types.MarketSnapshot {
	return types.MarketSnapshot{
		PoolID:              42,
		Protocol:            "raydium",
		TokenA:              "SOL",
		TokenB:              "USDC",
		Timestamp:           entryTime.Add(time.Duration(hoursLater * float64(time.Hour))),
		PriceA:              dec("150"),
		PriceB:              dec("1"),
		TVLUSD:              dec("200000"),
		Volume24hUSD:        dec("100000"),
		APY:                 80,
		FeeTierBps:          30,
		PoolAgeHours:        1000,
		RiskScore:           35,
		SustainabilityScore: 7,
	}
}

func testRules() types.ExitRules {
	return types.ExitRules{
		StopLossPercent:      -10,
		TrailingStopPercent:  5,
		TakeProfitPercent:    30,
		MaxPositionHours:     24 * 14,
		MaxILPercent:         -8,
		MaxRiskScoreIncrease: 20,
		MinAPYFloor:          10,
		RugTVLDropPercent:    -50,
		RugVolumeDropPercent: -70,
	}
}

func evalAt(t *testing.T, pos *types.Position, snap types.MarketSnapshot, rules types.ExitRules) Decision {
	t.Helper()
	decision, err := Evaluate(Inputs{Position: pos, Snapshot: snap}, rules)
	require.NoError(t, err)
	return decision
}

func TestEvaluate_Hold(t *testing.T) {
	decision := evalAt(t, activePosition(), snapshotAt(12), testRules())
	assert.False(t, decision.Exit)
}

func TestEvaluate_StopLoss(t *testing.T) {
	pos := activePosition()
	pos.PnLPercent = dec("-12")
	decision := evalAt(t, pos, snapshotAt(12), testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitStopLoss, decision.Reason)
}

func TestEvaluate_TrailingStop(t *testing.T) {
	pos := activePosition()
	pos.PnLPercent = dec("4")
	pos.PeakPnLPercent = dec("12")
	decision := evalAt(t, pos, snapshotAt(12), testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitStopLoss, decision.Reason)
	assert.Contains(t, decision.Detail, "peak")
}

func TestEvaluate_TakeProfit(t *testing.T) {
	// Entry $1,000, pnl 32% against a 30% target.
	pos := activePosition()
	pos.PnLPercent = dec("32")
	pos.PeakPnLPercent = dec("32")
	pos.CurrentValueUSD = dec("1320")

	decision := evalAt(t, pos, snapshotAt(240), testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitTakeProfit, decision.Reason)
}

func TestEvaluate_TimeLimit(t *testing.T) {
	decision := evalAt(t, activePosition(), snapshotAt(24*15), testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitTimeLimit, decision.Reason)
}

func TestEvaluate_ILThreshold(t *testing.T) {
	pos := activePosition()
	pos.ILPercent = dec("-9")
	decision := evalAt(t, pos, snapshotAt(12), testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitILThreshold, decision.Reason)
}

func TestEvaluate_RiskIncrease(t *testing.T) {
	snap := snapshotAt(12)
	snap.RiskScore = 60 // +25 over entry, limit is +20
	decision := evalAt(t, activePosition(), snap, testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitRiskIncrease, decision.Reason)
}

func TestEvaluate_APYDrop(t *testing.T) {
	snap := snapshotAt(12)
	snap.APY = 4
	decision := evalAt(t, activePosition(), snap, testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitAPYDrop, decision.Reason)
}

func TestEvaluate_RugDetected(t *testing.T) {
	// Entry TVL $200k, now $80k (-60%) against a -50% trigger.
	pos := activePosition()
	snap := snapshotAt(12)
	snap.TVLUSD = dec("80000")

	decision := evalAt(t, pos, snap, testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitRugDetected, decision.Reason)
}

func TestEvaluate_RugOutranksLowLiquidity(t *testing.T) {
	snap := snapshotAt(12)
	snap.TVLUSD = dec("8000") // -96% since entry AND below the absolute floor
	decision := evalAt(t, activePosition(), snap, testRules())
	assert.Equal(t, types.ExitRugDetected, decision.Reason, "priority order puts rug detection ahead of the liquidity floor")
}

func TestEvaluate_LowLiquidity(t *testing.T) {
	pos := activePosition()
	pos.EntryTVL = dec("9000") // entered small, no rug delta
	pos.EntryVolume24h = dec("100000")
	snap := snapshotAt(12)
	snap.TVLUSD = dec("8000")

	decision := evalAt(t, pos, snap, testRules())
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitLowLiquidity, decision.Reason)
}

func TestEvaluate_BetterOpportunity(t *testing.T) {
	in := Inputs{
		Position:             activePosition(),
		Snapshot:             snapshotAt(12),
		PortfolioAtCap:       true,
		CurrentPositionScore: 40,
		BestCandidateScore:   65,
	}
	decision, err := Evaluate(in, testRules())
	require.NoError(t, err)
	assert.True(t, decision.Exit)
	assert.Equal(t, types.ExitBetterOpportunity, decision.Reason)

	in.PortfolioAtCap = false
	decision, err = Evaluate(in, testRules())
	require.NoError(t, err)
	assert.False(t, decision.Exit, "capital is not recycled while the portfolio has room")

	in.PortfolioAtCap = true
	in.BestCandidateScore = 55 // below 1.5x
	decision, err = Evaluate(in, testRules())
	require.NoError(t, err)
	assert.False(t, decision.Exit)
}

func TestEvaluate_RejectsTerminalPosition(t *testing.T) {
	pos := activePosition()
	pos.Status = types.StatusExited
	_, err := Evaluate(Inputs{Position: pos, Snapshot: snapshotAt(12)}, testRules())
	assert.ErrorIs(t, err, types.ErrInvalidStateTransition)
}
