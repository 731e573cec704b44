package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solyield/lprisk/internal/types"
)

func trade(pnl string) types.Trade {
	return types.Trade{PnLUSD: dec(pnl)}
}

func equity(day int, value string) types.EquityPoint {
	return types.EquityPoint{
		Timestamp:     start.AddDate(0, 0, day),
		TotalValueUSD: dec(value),
	}
}

func TestComputeStats_WinLoss(t *testing.T) {
	trades := []types.Trade{trade("100"), trade("-50"), trade("300"), trade("-25")}
	stats := ComputeStats(trades, nil, dec("10000"))

	assert.Equal(t, 4, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinningTrades)
	assert.Equal(t, 2, stats.LosingTrades)
	assert.InDelta(t, 0.5, stats.WinRate, 0.001)
	assert.InDelta(t, 200, stats.AvgWinUSD, 0.001)
	assert.InDelta(t, 37.5, stats.AvgLossUSD, 0.001)
	assert.InDelta(t, 400.0/75.0, stats.ProfitFactor, 0.001)
	assert.False(t, stats.ProfitFactorInfinite)
	assert.InDelta(t, 325, stats.TotalPnLUSD, 0.001)
}

func TestComputeStats_ProfitFactorInfiniteSentinel(t *testing.T) {
	stats := ComputeStats([]types.Trade{trade("100"), trade("50")}, nil, dec("10000"))
	assert.True(t, stats.ProfitFactorInfinite, "all wins sets the sentinel instead of leaking +Inf")
	assert.Equal(t, 0.0, stats.ProfitFactor)
}

func TestComputeStats_NoTrades(t *testing.T) {
	stats := ComputeStats(nil, nil, dec("10000"))
	assert.Equal(t, 0, stats.TotalTrades)
	assert.Equal(t, 0.0, stats.WinRate)
	assert.False(t, stats.ProfitFactorInfinite)
}

func TestComputeStats_MaxDrawdown(t *testing.T) {
	curve := []types.EquityPoint{
		equity(0, "10000"),
		equity(1, "12000"), // peak
		equity(2, "9000"),  // -25% from peak
		equity(3, "11000"),
	}
	stats := ComputeStats(nil, curve, dec("10000"))
	assert.InDelta(t, 25, stats.MaxDrawdownPercent, 0.001)
	assert.InDelta(t, 10, stats.TotalReturnPercent, 0.001)
}

func TestComputeStats_FlatCurveSentinels(t *testing.T) {
	curve := []types.EquityPoint{
		equity(0, "10000"),
		equity(1, "10000"),
		equity(2, "10000"),
	}
	stats := ComputeStats(nil, curve, dec("10000"))

	assert.Equal(t, 0.0, stats.SharpeRatio, "zero deviation yields the 0 sentinel, not NaN")
	assert.Equal(t, 0.0, stats.SortinoRatio)
	assert.Equal(t, 0.0, stats.CalmarRatio, "zero drawdown yields the 0 sentinel")
	assert.Equal(t, 0.0, stats.MaxDrawdownPercent)
}

func TestComputeStats_SortinoUsesDownsideOnly(t *testing.T) {
	curve := []types.EquityPoint{
		equity(0, "10000"),
		equity(1, "10500"),
		equity(2, "10200"),
		equity(3, "10900"),
		equity(4, "10600"),
		equity(5, "11400"),
	}
	stats := ComputeStats(nil, curve, dec("10000"))

	assert.NotEqual(t, 0.0, stats.SharpeRatio)
	assert.NotEqual(t, 0.0, stats.SortinoRatio)
	assert.NotEqual(t, stats.SharpeRatio, stats.SortinoRatio)
}

func TestComputeStats_IntradayResampling(t *testing.T) {
	// Two samples in the same UTC day: only the later one feeds daily returns.
	curve := []types.EquityPoint{
		equity(0, "10000"),
		{Timestamp: start.AddDate(0, 0, 1).Add(6 * time.Hour), TotalValueUSD: dec("10100")},
		{Timestamp: start.AddDate(0, 0, 1).Add(18 * time.Hour), TotalValueUSD: dec("10300")},
	}
	returns := dailyReturns(curve)
	assert.Len(t, returns, 1)
	assert.InDelta(t, 0.03, returns[0], 0.0001)
}
