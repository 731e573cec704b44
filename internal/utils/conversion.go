/*
This file contains common utility functions for converting between float64
and SDK decimal values, with strict finite-value handling at every boundary.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrValueNil         = errors.New("decimal value is nil")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// DecFromFloat converts a float64 to a LegacyDec. Goes through a string
// representation to avoid binary floating point artifacts in the decimal.
func DecFromFloat(value float64) (sdkmath.LegacyDec, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: value is %f", ErrNotFinite, value)
	}

	dec, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf("%.12f", value))
	if err != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	return dec, nil
}

// DecToFloat converts a LegacyDec to float64, rejecting nil decimals and
// non-finite results.
func DecToFloat(value sdkmath.LegacyDec) (float64, error) {
	if value.IsNil() {
		return 0, ErrValueNil
	}

	result, err := value.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}

// ClampDec bounds value to [low, high].
func ClampDec(value, low, high sdkmath.LegacyDec) sdkmath.LegacyDec {
	if value.LT(low) {
		return low
	}
	if value.GT(high) {
		return high
	}
	return value
}

// PercentChange returns (current - base) / base * 100. A zero base is a
// documented degenerate case yielding 0 rather than a division error.
func PercentChange(base, current sdkmath.LegacyDec) sdkmath.LegacyDec {
	if base.IsNil() || current.IsNil() || base.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	return current.Sub(base).Quo(base).MulInt64(100)
}
