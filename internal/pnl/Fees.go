/*

This file contains fee-income estimation and the combined net PnL valuation.

*/

package pnl

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/types"
)

// PnLResult is the combined valuation of a position at one snapshot.
type PnLResult struct {
	CurrentValueUSD sdkmath.LegacyDec `json:"current_value_usd"` // valueInPool + fees earned
	PnLUSD          sdkmath.LegacyDec `json:"pnl_usd"`
	PnLPercent      sdkmath.LegacyDec `json:"pnl_percent"`
}

// PositionShare returns the position's fraction of pool TVL, clamped to
// [0, 1]. A zero-TVL pool yields share 0 rather than a division error.
func PositionShare(positionValueUSD, poolTVLUSD sdkmath.LegacyDec) sdkmath.LegacyDec {
	if positionValueUSD.IsNil() || poolTVLUSD.IsNil() || !poolTVLUSD.IsPositive() {
		return sdkmath.LegacyZeroDec()
	}
	share := positionValueUSD.Quo(poolTVLUSD)
	if share.IsNegative() {
		return sdkmath.LegacyZeroDec()
	}
	if share.GT(sdkmath.LegacyOneDec()) {
		return sdkmath.LegacyOneDec()
	}
	return share
}

// FeesEarned estimates one day of fee income for a position:
// volume24h * feeTier * positionShare.
func FeesEarned(poolVolume24hUSD, poolTVLUSD, positionValueUSD sdkmath.LegacyDec, feeTierBps int64) (sdkmath.LegacyDec, error) {
	if poolVolume24hUSD.IsNil() || poolTVLUSD.IsNil() || positionValueUSD.IsNil() {
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, errors.New("fee inputs cannot be nil"))
	}
	if poolVolume24hUSD.IsNegative() {
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, fmt.Errorf("24h volume cannot be negative, got %s", poolVolume24hUSD))
	}
	if feeTierBps < 0 {
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, fmt.Errorf("fee tier cannot be negative, got %d bps", feeTierBps))
	}

	share := PositionShare(positionValueUSD, poolTVLUSD)
	feeRate := sdkmath.LegacyNewDec(feeTierBps).QuoInt64(10_000)
	dailyFees := poolVolume24hUSD.Mul(feeRate).Mul(share)

	pnlLogger.Debug().
		Str("share", share.String()).
		Int64("fee_tier_bps", feeTierBps).
		Str("daily_fees_usd", dailyFees.String()).
		Msg("Daily fee income estimated")

	return dailyFees, nil
}

// NetPnL combines in-pool value, accrued fees, and cumulative costs into the
// position's current value and profit. A zero entry value is a documented
// degenerate case: the percent is 0, never a division error.
func NetPnL(entryValueUSD, valueInPoolUSD, feesEarnedUSD, costsUSD sdkmath.LegacyDec) (PnLResult, error) {
	for _, d := range []struct {
		value sdkmath.LegacyDec
		name  string
	}{
		{entryValueUSD, "entry value"},
		{valueInPoolUSD, "value in pool"},
		{feesEarnedUSD, "fees earned"},
		{costsUSD, "costs"},
	} {
		if d.value.IsNil() {
			return PnLResult{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("%s is nil", d.name))
		}
	}
	if entryValueUSD.IsNegative() || valueInPoolUSD.IsNegative() || feesEarnedUSD.IsNegative() || costsUSD.IsNegative() {
		return PnLResult{}, errors.Join(types.ErrInvalidInput, errors.New("net PnL inputs cannot be negative"))
	}

	currentValue := valueInPoolUSD.Add(feesEarnedUSD)
	pnlUSD := currentValue.Sub(entryValueUSD).Sub(costsUSD)

	pnlPercent := sdkmath.LegacyZeroDec()
	if !entryValueUSD.IsZero() {
		pnlPercent = pnlUSD.Quo(entryValueUSD).MulInt64(100)
	}

	return PnLResult{
		CurrentValueUSD: currentValue,
		PnLUSD:          pnlUSD,
		PnLPercent:      pnlPercent,
	}, nil
}
