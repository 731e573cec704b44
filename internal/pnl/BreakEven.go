/*

This file contains the break-even time estimate: how many more days of fee
income are needed before accrued fees cover the impermanent loss.

*/

package pnl

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/types"
)

// BreakEvenResult reports how far a position is from covering its IL with
// fees. Infinite is the sentinel for "never at the current fee rate", as
// a defined flag rather than +Inf leaking into callers.
type BreakEvenResult struct {
	Days          sdkmath.LegacyDec `json:"days"` // 0 when already profitable or Infinite is set
	Infinite      bool              `json:"infinite"`
	ProfitableNow bool              `json:"profitable_now"`
}

// BreakEven estimates the days of fee income still required to cover the
// impermanent loss. ilUSD is the signed loss from ImpermanentLoss (<= 0);
// its magnitude is what fees must cover.
func BreakEven(ilUSD, dailyFeesUSD, feesAlreadyEarnedUSD sdkmath.LegacyDec) (BreakEvenResult, error) {
	if ilUSD.IsNil() || dailyFeesUSD.IsNil() || feesAlreadyEarnedUSD.IsNil() {
		return BreakEvenResult{}, errors.Join(types.ErrInvalidInput, errors.New("break-even inputs cannot be nil"))
	}
	if dailyFeesUSD.IsNegative() || feesAlreadyEarnedUSD.IsNegative() {
		return BreakEvenResult{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("fee inputs cannot be negative, got daily=%s earned=%s", dailyFeesUSD, feesAlreadyEarnedUSD))
	}

	shortfall := ilUSD.Abs().Sub(feesAlreadyEarnedUSD)
	if !shortfall.IsPositive() {
		return BreakEvenResult{Days: sdkmath.LegacyZeroDec(), ProfitableNow: true}, nil
	}
	if dailyFeesUSD.IsZero() {
		return BreakEvenResult{Days: sdkmath.LegacyZeroDec(), Infinite: true}, nil
	}
	return BreakEvenResult{Days: shortfall.Quo(dailyFeesUSD)}, nil
}

// APYFromFees annualizes a daily fee yield with daily compounding:
// ((1 + daily)^365 - 1) * 100. A non-positive position value yields 0.
func APYFromFees(dailyFeesUSD, positionValueUSD sdkmath.LegacyDec) (float64, error) {
	if dailyFeesUSD.IsNil() || positionValueUSD.IsNil() {
		return 0, errors.Join(types.ErrInvalidInput, errors.New("APY inputs cannot be nil"))
	}
	if dailyFeesUSD.IsNegative() {
		return 0, errors.Join(types.ErrInvalidInput, fmt.Errorf("daily fees cannot be negative, got %s", dailyFeesUSD))
	}
	if !positionValueUSD.IsPositive() {
		return 0, nil
	}

	dailyRate, err := dailyFeesUSD.Quo(positionValueUSD).Float64()
	if err != nil {
		return 0, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("daily rate conversion: %w", err))
	}

	apy := (math.Pow(1+dailyRate, 365) - 1) * 100
	if math.IsNaN(apy) || math.IsInf(apy, 0) {
		return 0, errors.Join(types.ErrArithmeticDegenerate, fmt.Errorf("annualized yield is not finite for daily rate %f", dailyRate))
	}
	return apy, nil
}
