/*

This file contains the concentrated-liquidity range math: liquidity from
token amounts and the inverse mapping back to amounts at a given price.
The formulas work in sqrt-price space and must stay stable near the range
boundaries, so degenerate ranges are rejected up front.

*/

package pnl

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/types"
)

// rangeEpsilon is the minimum allowed sqrt-price width of a range. Anything
// narrower makes the L formulas divide by a vanishing denominator.
var rangeEpsilon = sdkmath.LegacyNewDecWithPrec(1, 9) // 1e-9

type sqrtRange struct {
	lower, upper, price sdkmath.LegacyDec
}

func sqrtRangeFor(priceLower, priceUpper, currentPrice sdkmath.LegacyDec) (sqrtRange, error) {
	if priceLower.IsNil() || priceUpper.IsNil() || currentPrice.IsNil() {
		return sqrtRange{}, errors.Join(types.ErrInvalidInput, errors.New("range prices cannot be nil"))
	}
	if !priceLower.IsPositive() || !priceUpper.IsPositive() || !currentPrice.IsPositive() {
		return sqrtRange{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("range prices must be positive, got lower=%s upper=%s current=%s", priceLower, priceUpper, currentPrice))
	}
	if priceLower.GTE(priceUpper) {
		return sqrtRange{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("price lower bound %s must be below upper bound %s", priceLower, priceUpper))
	}

	sqrtLower, err := priceLower.ApproxSqrt()
	if err != nil {
		return sqrtRange{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt of lower bound: %w", err))
	}
	sqrtUpper, err := priceUpper.ApproxSqrt()
	if err != nil {
		return sqrtRange{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt of upper bound: %w", err))
	}
	sqrtPrice, err := currentPrice.ApproxSqrt()
	if err != nil {
		return sqrtRange{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("sqrt of current price: %w", err))
	}

	if sqrtUpper.Sub(sqrtLower).LT(rangeEpsilon) {
		return sqrtRange{}, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("range [%s, %s] is too narrow in sqrt-price space", priceLower, priceUpper))
	}

	return sqrtRange{lower: sqrtLower, upper: sqrtUpper, price: sqrtPrice}, nil
}

// LiquidityFromAmounts computes the liquidity L implied by token amounts at
// the current price. Three cases, following the position of the price
// relative to the range:
//
//	price <= lower: the position is entirely token B
//	price >= upper: the position is entirely token A
//	in range:       L is the smaller of the two single-sided implied values
func LiquidityFromAmounts(amountA, amountB, priceLower, priceUpper, currentPrice sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if amountA.IsNil() || amountB.IsNil() {
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, errors.New("amounts cannot be nil"))
	}
	if amountA.IsNegative() || amountB.IsNegative() {
		return sdkmath.LegacyZeroDec(), errors.Join(types.ErrInvalidInput, fmt.Errorf("amounts cannot be negative, got a=%s b=%s", amountA, amountB))
	}

	sr, err := sqrtRangeFor(priceLower, priceUpper, currentPrice)
	if err != nil {
		return sdkmath.LegacyZeroDec(), err
	}

	switch {
	case sr.price.LTE(sr.lower):
		// All token B: L = amountB / (sqrtUpper - sqrtLower)
		return amountB.Quo(sr.upper.Sub(sr.lower)), nil

	case sr.price.GTE(sr.upper):
		// All token A: L = amountA * (sqrtLower * sqrtUpper) / (sqrtUpper - sqrtLower)
		return amountA.Mul(sr.lower).Mul(sr.upper).Quo(sr.upper.Sub(sr.lower)), nil

	default:
		denomA := sr.upper.Sub(sr.price)
		denomB := sr.price.Sub(sr.lower)
		if denomA.LT(rangeEpsilon) || denomB.LT(rangeEpsilon) {
			return sdkmath.LegacyZeroDec(), errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("current price %s is too close to a range boundary", currentPrice))
		}
		liquidityA := amountA.Mul(sr.price).Mul(sr.upper).Quo(denomA)
		liquidityB := amountB.Quo(denomB)
		if liquidityA.LT(liquidityB) {
			return liquidityA, nil
		}
		return liquidityB, nil
	}
}

// AmountsAtPrice is the inverse of LiquidityFromAmounts: the token amounts a
// position of liquidity L holds at the given price.
func AmountsAtPrice(liquidity, priceLower, priceUpper, price sdkmath.LegacyDec) (amountA, amountB sdkmath.LegacyDec, err error) {
	zero := sdkmath.LegacyZeroDec()
	if liquidity.IsNil() {
		return zero, zero, errors.Join(types.ErrInvalidInput, errors.New("liquidity cannot be nil"))
	}
	if liquidity.IsNegative() {
		return zero, zero, errors.Join(types.ErrInvalidInput, fmt.Errorf("liquidity cannot be negative, got %s", liquidity))
	}

	sr, err := sqrtRangeFor(priceLower, priceUpper, price)
	if err != nil {
		return zero, zero, err
	}

	switch {
	case sr.price.LTE(sr.lower):
		amountB = liquidity.Mul(sr.upper.Sub(sr.lower))
		return zero, amountB, nil

	case sr.price.GTE(sr.upper):
		amountA = liquidity.Mul(sr.upper.Sub(sr.lower)).Quo(sr.lower.Mul(sr.upper))
		return amountA, zero, nil

	default:
		amountA = liquidity.Mul(sr.upper.Sub(sr.price)).Quo(sr.price.Mul(sr.upper))
		amountB = liquidity.Mul(sr.price.Sub(sr.lower))
		return amountA, amountB, nil
	}
}

// defaultRangeRebalanceThreshold flags a position once the price has covered
// 80% of the distance to a range boundary.
const defaultRangeRebalanceThreshold = 0.8

// ShouldRebalanceRange reports whether a concentrated position's range needs
// resetting around the current price, with a human-readable reason. A price
// outside the range always needs it; inside the range, the position is
// flagged once the price sits within (1 - threshold) of either boundary.
// A non-positive threshold uses the default.
func ShouldRebalanceRange(priceLower, priceUpper, currentPrice sdkmath.LegacyDec, threshold float64) (bool, string, error) {
	if threshold <= 0 {
		threshold = defaultRangeRebalanceThreshold
	}
	if threshold <= 0.5 || threshold > 1 {
		return false, "", errors.Join(types.ErrInvalidInput, fmt.Errorf("rebalance threshold must be within (0.5, 1], got %.4f", threshold))
	}

	if priceLower.IsNil() || priceUpper.IsNil() || currentPrice.IsNil() {
		return false, "", errors.Join(types.ErrInvalidInput, errors.New("range prices cannot be nil"))
	}
	if !priceLower.IsPositive() || !priceUpper.IsPositive() || !currentPrice.IsPositive() {
		return false, "", errors.Join(types.ErrInvalidInput, fmt.Errorf("range prices must be positive, got lower=%s upper=%s current=%s", priceLower, priceUpper, currentPrice))
	}
	if priceLower.GTE(priceUpper) {
		return false, "", errors.Join(types.ErrInvalidInput, fmt.Errorf("price lower bound %s must be below upper bound %s", priceLower, priceUpper))
	}

	if currentPrice.LTE(priceLower) {
		return true, "price below range", nil
	}
	if currentPrice.GTE(priceUpper) {
		return true, "price above range", nil
	}

	// Fraction of the range covered: 0 at the lower bound, 1 at the upper.
	inRange := currentPrice.Sub(priceLower).Quo(priceUpper.Sub(priceLower))
	upperTrigger, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf("%.12f", threshold))
	if err != nil {
		return false, "", errors.Join(types.ErrInvalidInput, fmt.Errorf("rebalance threshold: %w", err))
	}
	lowerTrigger := sdkmath.LegacyOneDec().Sub(upperTrigger)

	switch {
	case inRange.LTE(lowerTrigger):
		return true, fmt.Sprintf("price near lower bound (%s of range)", inRange.String()), nil
	case inRange.GTE(upperTrigger):
		return true, fmt.Sprintf("price near upper bound (%s of range)", inRange.String()), nil
	default:
		return false, fmt.Sprintf("position healthy (%s of range)", inRange.String()), nil
	}
}
