package pnl

import (
	"fmt"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/solyield/lprisk/internal/types"
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

func decF(t *testing.T, d sdkmath.LegacyDec) float64 {
	f, err := d.Float64()
	require.NoError(t, err)
	return f
}

func TestImpermanentLoss_UnchangedPrices(t *testing.T) {
	res, err := ImpermanentLoss(dec("100"), dec("1"), dec("100"), dec("1"), dec("10"), dec("1000"))
	require.NoError(t, err)

	assert.True(t, res.ILPercent.IsZero(), "IL must be exactly zero when prices are unchanged, got %s", res.ILPercent)
	assert.Equal(t, res.ValueIfHeld.String(), res.ValueInPool.String())
}

func TestImpermanentLoss_PriceDoubles(t *testing.T) {
	// r = 2: il% = (2*sqrt(2)/3 - 1) * 100 ~= -5.719
	res, err := ImpermanentLoss(dec("100"), dec("1"), dec("200"), dec("1"), dec("10"), dec("1000"))
	require.NoError(t, err)

	assert.InDelta(t, -5.719, decF(t, res.ILPercent), 0.01)
	assert.True(t, res.ILUSD.IsNegative())
	assert.True(t, res.ValueInPool.LT(res.ValueIfHeld))
}

func TestImpermanentLoss_TotalLossGuard(t *testing.T) {
	res, err := ImpermanentLoss(dec("100"), dec("1"), dec("0"), dec("1"), dec("10"), dec("1000"))
	require.NoError(t, err)

	assert.Equal(t, "-100.000000000000000000", res.ILPercent.String())
	assert.True(t, res.ValueInPool.IsZero())
}

func TestImpermanentLoss_RejectsInvalidInputs(t *testing.T) {
	_, err := ImpermanentLoss(dec("0"), dec("1"), dec("100"), dec("1"), dec("10"), dec("1000"))
	assert.ErrorIs(t, err, types.ErrInvalidInput, "zero entry price must be rejected")

	_, err = ImpermanentLoss(dec("100"), dec("1"), dec("100"), dec("1"), dec("-10"), dec("1000"))
	assert.ErrorIs(t, err, types.ErrInvalidInput, "negative entry amount must be rejected")
}

func TestImpermanentLoss_NeverPositive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		entryPrice := rapid.Float64Range(0.01, 10_000).Draw(rt, "entryPrice")
		curPrice := rapid.Float64Range(0.0001, 100_000).Draw(rt, "curPrice")
		amtA := rapid.Float64Range(0.1, 1_000_000).Draw(rt, "amtA")
		amtB := rapid.Float64Range(0.1, 1_000_000).Draw(rt, "amtB")

		res, err := ImpermanentLoss(
			floatDec(rt, entryPrice), dec("1"),
			floatDec(rt, curPrice), dec("1"),
			floatDec(rt, amtA), floatDec(rt, amtB),
		)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		// ApproxSqrt leaves a little slack around zero.
		if res.ILPercent.GT(dec("0.000001")) {
			rt.Fatalf("IL must never be a gain, got %s", res.ILPercent)
		}
	})
}

func floatDec(rt *rapid.T, f float64) sdkmath.LegacyDec {
	d, err := sdkmath.LegacyNewDecFromStr(fmt.Sprintf("%.12f", f))
	if err != nil {
		rt.Fatalf("building decimal from %f: %v", f, err)
	}
	return d
}
