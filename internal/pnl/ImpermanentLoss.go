/*

This file contains the constant-product impermanent loss calculation. Pure
functions over decimal inputs; no I/O, no hidden state.

*/

package pnl

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/types"
)

var pnlLogger = logger.GetForComponent("pnl_calculator")

// ILResult is the output of an impermanent-loss valuation.
type ILResult struct {
	ILPercent   sdkmath.LegacyDec `json:"il_percent"`    // <= 0 always; -100 is the total-loss guard
	ILUSD       sdkmath.LegacyDec `json:"il_usd"`        // valueInPool - valueIfHeld, <= 0
	ValueIfHeld sdkmath.LegacyDec `json:"value_if_held"` // value of the entry amounts held outside the pool
	ValueInPool sdkmath.LegacyDec `json:"value_in_pool"` // value of the rebalanced amounts inside the pool
}

// ImpermanentLoss values a constant-product LP position against simply
// holding the entry amounts. The pool invariant k = entryAmtA * entryAmtB
// determines the rebalanced amounts at the current price ratio:
//
//	newAmtA = sqrt(k * curPriceB / curPriceA)
//	newAmtB = sqrt(k * curPriceA / curPriceB)
//
// and the headline percentage follows the closed form
// (2*sqrt(r)/(1+r) - 1) * 100 with r the price-ratio change since entry.
// A non-positive r is the total-loss guard: ILPercent is exactly -100 and
// the in-pool value is zero, never a sqrt of a negative or a divide by zero.
func ImpermanentLoss(entryPriceA, entryPriceB, curPriceA, curPriceB, entryAmtA, entryAmtB sdkmath.LegacyDec) (ILResult, error) {
	for _, d := range []struct {
		value sdkmath.LegacyDec
		name  string
	}{
		{entryPriceA, "entry price A"},
		{entryPriceB, "entry price B"},
		{curPriceA, "current price A"},
		{curPriceB, "current price B"},
		{entryAmtA, "entry amount A"},
		{entryAmtB, "entry amount B"},
	} {
		if d.value.IsNil() {
			return ILResult{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("%s is nil", d.name))
		}
	}
	if !entryPriceA.IsPositive() || !entryPriceB.IsPositive() {
		return ILResult{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("entry prices must be positive, got a=%s b=%s", entryPriceA, entryPriceB))
	}
	if entryAmtA.IsNegative() || entryAmtB.IsNegative() {
		return ILResult{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("entry amounts cannot be negative, got a=%s b=%s", entryAmtA, entryAmtB))
	}

	valueIfHeld := entryAmtA.Mul(curPriceA).Add(entryAmtB.Mul(curPriceB))
	if valueIfHeld.IsNegative() {
		valueIfHeld = sdkmath.LegacyZeroDec()
	}

	// Total-loss guard: a price ratio that is zero or negative means one side
	// of the pair has no market. The position is written down to zero.
	if !curPriceA.IsPositive() || !curPriceB.IsPositive() {
		return ILResult{
			ILPercent:   sdkmath.LegacyNewDec(-100),
			ILUSD:       valueIfHeld.Neg(),
			ValueIfHeld: valueIfHeld,
			ValueInPool: sdkmath.LegacyZeroDec(),
		}, nil
	}

	entryRatio := entryPriceA.Quo(entryPriceB)
	curRatio := curPriceA.Quo(curPriceB)
	r := curRatio.Quo(entryRatio)

	sqrtR, err := r.ApproxSqrt()
	if err != nil {
		return ILResult{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt of price-ratio change %s: %w", r, err))
	}

	// il% = (2*sqrt(r) / (1+r) - 1) * 100
	ilPercent := sqrtR.MulInt64(2).Quo(sdkmath.LegacyOneDec().Add(r)).Sub(sdkmath.LegacyOneDec()).MulInt64(100)

	// Rebalanced pool amounts at the current price ratio.
	k := entryAmtA.Mul(entryAmtB)
	newAmtASq := k.Mul(curPriceB).Quo(curPriceA)
	newAmtBSq := k.Mul(curPriceA).Quo(curPriceB)
	newAmtA, err := newAmtASq.ApproxSqrt()
	if err != nil {
		return ILResult{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt for rebalanced amount A: %w", err))
	}
	newAmtB, err := newAmtBSq.ApproxSqrt()
	if err != nil {
		return ILResult{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt for rebalanced amount B: %w", err))
	}

	valueInPool := newAmtA.Mul(curPriceA).Add(newAmtB.Mul(curPriceB))
	ilUSD := valueInPool.Sub(valueIfHeld)

	pnlLogger.Debug().
		Str("price_ratio_change", r.String()).
		Str("il_percent", ilPercent.String()).
		Str("value_if_held", valueIfHeld.String()).
		Str("value_in_pool", valueInPool.String()).
		Msg("Impermanent loss computed")

	return ILResult{
		ILPercent:   ilPercent,
		ILUSD:       ilUSD,
		ValueIfHeld: valueIfHeld,
		ValueInPool: valueInPool,
	}, nil
}
