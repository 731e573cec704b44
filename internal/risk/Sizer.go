/*

This file contains position sizing. Four methods share a common tail: clamp
to the configured bounds, then cap by the capital actually deployable after
the cash reserve.

*/

package risk

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
)

// minKellyTrades is the smallest trade history Kelly sizing will act on.
// Below it the estimate of win rate and average win/loss is noise, so the
// sizer falls back to the fixed size instead of returning a silent zero.
const minKellyTrades = 10

// SizePosition computes how much capital to commit to a candidate pool.
// The result is clamped to [MinPositionSizeUSD, MaxPositionSizeUSD] and
// further capped by available capital net of the cash reserve.
func SizePosition(book BookView, candidate types.MarketSnapshot, cfg types.StrategyConfig) (sdkmath.LegacyDec, error) {
	zero := sdkmath.LegacyZeroDec()

	raw, err := rawSize(book, candidate, cfg.Sizing)
	if err != nil {
		return zero, err
	}

	minSize, err := utils.DecFromFloat(cfg.Sizing.MinPositionSizeUSD)
	if err != nil {
		return zero, errors.Join(types.ErrInvalidInput, fmt.Errorf("min position size: %w", err))
	}
	maxSize, err := utils.DecFromFloat(cfg.Sizing.MaxPositionSizeUSD)
	if err != nil {
		return zero, errors.Join(types.ErrInvalidInput, fmt.Errorf("max position size: %w", err))
	}

	size := utils.ClampDec(raw, minSize, maxSize)

	// Cap by what is deployable after reserving cash.
	reserveFrac, err := utils.DecFromFloat(cfg.Limits.MinCashReservePercent)
	if err != nil {
		return zero, errors.Join(types.ErrInvalidInput, fmt.Errorf("cash reserve percent: %w", err))
	}
	reserve := book.PortfolioValueUSD.Mul(reserveFrac)
	deployable := book.AvailableCapitalUSD.Sub(reserve)
	if deployable.IsNegative() {
		deployable = zero
	}
	if size.GT(deployable) {
		size = deployable
	}

	riskLogger.Debug().
		Uint64("pool_id", uint64(candidate.PoolID)).
		Str("method", string(cfg.Sizing.Method)).
		Str("raw_size_usd", raw.String()).
		Str("final_size_usd", size.String()).
		Msg("Position sized")

	return size, nil
}

func rawSize(book BookView, candidate types.MarketSnapshot, sizing types.PositionSizing) (sdkmath.LegacyDec, error) {
	switch sizing.Method {
	case types.SizingFixed:
		return utils.DecFromFloat(sizing.FixedSizeUSD)

	case types.SizingPortfolioPercent:
		frac, err := utils.DecFromFloat(sizing.MaxPortfolioPercent)
		if err != nil {
			return sdkmath.LegacyZeroDec(), err
		}
		return book.PortfolioValueUSD.Mul(frac), nil

	case types.SizingRiskAdjusted:
		// Higher risk score shrinks the size toward zero.
		discount := (100 - candidate.RiskScore) / 100
		if discount < 0 {
			discount = 0
		}
		return utils.DecFromFloat(sizing.FixedSizeUSD * discount * sizing.RiskMultiplier)

	case types.SizingKelly:
		return kellySize(book, sizing)

	default:
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, fmt.Errorf("unknown sizing method %q", sizing.Method))
	}
}

// kellySize bets a configured fraction of the Kelly-optimal percentage of
// portfolio value, computed from the portfolio's own trade history:
//
//	kellyPercent = (winRate*avgWin - (1-winRate)*avgLoss) / avgWin
//
// clamped to [0, 1]. An insufficient sample falls back to the fixed size.
func kellySize(book BookView, sizing types.PositionSizing) (sdkmath.LegacyDec, error) {
	stats := book.Trades
	if stats.Count < minKellyTrades || stats.AvgWinUSD <= 0 {
		riskLogger.Debug().
			Int("trades", stats.Count).
			Int("required", minKellyTrades).
			Msg("Insufficient trade history for Kelly sizing, using fixed fallback")
		return utils.DecFromFloat(sizing.FixedSizeUSD)
	}

	kellyPercent := (stats.WinRate*stats.AvgWinUSD - (1-stats.WinRate)*stats.AvgLossUSD) / stats.AvgWinUSD
	kellyPercent = math.Max(0, math.Min(1, kellyPercent))

	frac, err := utils.DecFromFloat(sizing.KellyFraction * kellyPercent)
	if err != nil {
		return sdkmath.LegacyZeroDec(), err
	}
	return book.PortfolioValueUSD.Mul(frac), nil
}
