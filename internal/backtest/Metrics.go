/*

This file contains the summary statistics computed once over a finished
run's trade list and equity curve. Every ratio has an explicit
divide-by-zero sentinel; NaN and Inf never leave this file.

*/

package backtest

import (
	"math"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
)

const annualizationDays = 365

// ComputeStats summarizes a finished run. It never fails: unrepresentable
// values degrade to the documented sentinels.
func ComputeStats(trades []types.Trade, curve []types.EquityPoint, initialCapitalUSD sdkmath.LegacyDec) types.SummaryStats {
	stats := types.SummaryStats{TotalTrades: len(trades)}

	var winSum, lossSum, pnlSum float64
	for _, trade := range trades {
		f, err := utils.DecToFloat(trade.PnLUSD)
		if err != nil {
			continue
		}
		pnlSum += f
		if f > 0 {
			stats.WinningTrades++
			winSum += f
		} else if f < 0 {
			stats.LosingTrades++
			lossSum += -f
		}
	}
	stats.TotalPnLUSD = pnlSum

	if stats.TotalTrades > 0 {
		stats.WinRate = float64(stats.WinningTrades) / float64(stats.TotalTrades)
	}
	if stats.WinningTrades > 0 {
		stats.AvgWinUSD = winSum / float64(stats.WinningTrades)
	}
	if stats.LosingTrades > 0 {
		stats.AvgLossUSD = lossSum / float64(stats.LosingTrades)
	}

	switch {
	case lossSum > 0:
		stats.ProfitFactor = winSum / lossSum
	case winSum > 0:
		stats.ProfitFactorInfinite = true
	}

	if len(curve) == 0 {
		return stats
	}

	initial, err := utils.DecToFloat(initialCapitalUSD)
	if err == nil && initial > 0 {
		if final, err := utils.DecToFloat(curve[len(curve)-1].TotalValueUSD); err == nil {
			stats.TotalReturnPercent = (final - initial) / initial * 100
		}
	}

	stats.MaxDrawdownPercent = maxDrawdown(curve)

	daily := dailyReturns(curve)
	stats.SharpeRatio = sharpe(daily)
	stats.SortinoRatio = sortino(daily)
	stats.CalmarRatio = calmar(stats.TotalReturnPercent, stats.MaxDrawdownPercent, curve)

	return stats
}

// maxDrawdown is the largest peak-to-trough decline over the equity curve,
// as a positive percentage.
func maxDrawdown(curve []types.EquityPoint) float64 {
	peak := 0.0
	maxDD := 0.0
	for _, point := range curve {
		value, err := utils.DecToFloat(point.TotalValueUSD)
		if err != nil {
			continue
		}
		if value > peak {
			peak = value
		}
		if peak > 0 {
			if dd := (peak - value) / peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD * 100
}

// dailyReturns resamples the equity curve to one value per UTC day (the
// last sample of each day) and returns day-over-day simple returns.
func dailyReturns(curve []types.EquityPoint) []float64 {
	var days []time.Time
	lastOfDay := make(map[time.Time]float64)
	for _, point := range curve {
		value, err := utils.DecToFloat(point.TotalValueUSD)
		if err != nil {
			continue
		}
		day := point.Timestamp.UTC().Truncate(24 * time.Hour)
		if _, seen := lastOfDay[day]; !seen {
			days = append(days, day)
		}
		lastOfDay[day] = value
	}

	var returns []float64
	for i := 1; i < len(days); i++ {
		prev := lastOfDay[days[i-1]]
		cur := lastOfDay[days[i]]
		if prev > 0 {
			returns = append(returns, cur/prev-1)
		}
	}
	return returns
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n

	var sumSq float64
	for _, v := range values {
		sumSq += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sumSq / n)
}

// sharpe is mean(dailyReturns)/std(dailyReturns) * sqrt(365), 0 when the
// deviation is 0.
func sharpe(daily []float64) float64 {
	mean, std := meanStd(daily)
	if std == 0 {
		return 0
	}
	return finiteOrZero(mean / std * math.Sqrt(annualizationDays))
}

// sortino replaces the denominator with the deviation of negative returns
// only.
func sortino(daily []float64) float64 {
	mean, _ := meanStd(daily)

	var negatives []float64
	for _, r := range daily {
		if r < 0 {
			negatives = append(negatives, r)
		}
	}
	_, downside := meanStd(negatives)
	if downside == 0 {
		return 0
	}
	return finiteOrZero(mean / downside * math.Sqrt(annualizationDays))
}

// calmar is annualized return over max drawdown, 0 when drawdown is 0.
func calmar(totalReturnPercent, maxDrawdownPercent float64, curve []types.EquityPoint) float64 {
	if maxDrawdownPercent == 0 || len(curve) < 2 {
		return 0
	}
	days := curve[len(curve)-1].Timestamp.Sub(curve[0].Timestamp).Hours() / 24
	if days <= 0 {
		return 0
	}
	annualized := totalReturnPercent * annualizationDays / days
	return finiteOrZero(annualized / maxDrawdownPercent)
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
