package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/solyield/lprisk/internal/types"
)

func TestLiquidityFromAmounts_BelowRange(t *testing.T) {
	// Price below the range: the position is entirely token B, amountA is ignored.
	l, err := LiquidityFromAmounts(dec("0"), dec("100"), dec("4"), dec("9"), dec("1"))
	require.NoError(t, err)

	// L = 100 / (3-2) = 100
	assert.InDelta(t, 100, decF(t, l), 0.001)
}

func TestLiquidityFromAmounts_AboveRange(t *testing.T) {
	// Price above the range: the position is entirely token A.
	l, err := LiquidityFromAmounts(dec("100"), dec("0"), dec("4"), dec("9"), dec("16"))
	require.NoError(t, err)

	// L = 100 * (2*3)/(3-2) = 600
	assert.InDelta(t, 600, decF(t, l), 0.001)
}

func TestLiquidityFromAmounts_InRange(t *testing.T) {
	// price 6.25 (sqrt 2.5) inside [4, 9]:
	// La = a * (2.5*3)/(3-2.5) = a*15, Lb = b/(2.5-2) = 2b
	l, err := LiquidityFromAmounts(dec("10"), dec("100"), dec("4"), dec("9"), dec("6.25"))
	require.NoError(t, err)

	assert.InDelta(t, 150, decF(t, l), 0.001, "in range L is the min of the two implied values")
}

func TestLiquidityFromAmounts_DegenerateRange(t *testing.T) {
	_, err := LiquidityFromAmounts(dec("10"), dec("100"), dec("4"), dec("4.0000000000000001"), dec("4"))
	assert.ErrorIs(t, err, types.ErrArithmeticDegenerate)

	_, err = LiquidityFromAmounts(dec("10"), dec("100"), dec("9"), dec("4"), dec("6"))
	assert.ErrorIs(t, err, types.ErrInvalidInput, "inverted bounds are invalid input, not a degenerate range")
}

func TestAmountsAtPrice_SingleSided(t *testing.T) {
	a, b, err := AmountsAtPrice(dec("100"), dec("4"), dec("9"), dec("1"))
	require.NoError(t, err)
	assert.True(t, a.IsZero())
	assert.InDelta(t, 100, decF(t, b), 0.001, "below range the position holds only token B")

	a, b, err = AmountsAtPrice(dec("600"), dec("4"), dec("9"), dec("16"))
	require.NoError(t, err)
	assert.InDelta(t, 100, decF(t, a), 0.001, "above range the position holds only token A")
	assert.True(t, b.IsZero())
}

func TestShouldRebalanceRange(t *testing.T) {
	tests := []struct {
		name   string
		price  string
		exit   bool
		reason string
	}{
		{"below range", "3", true, "price below range"},
		{"above range", "10", true, "price above range"},
		{"near lower bound", "4.5", true, "near lower bound"},
		{"near upper bound", "8.5", true, "near upper bound"},
		{"mid range", "6.5", false, "position healthy"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			needs, reason, err := ShouldRebalanceRange(dec("4"), dec("9"), dec(tc.price), 0.8)
			require.NoError(t, err)
			assert.Equal(t, tc.exit, needs)
			assert.Contains(t, reason, tc.reason)
		})
	}
}

func TestShouldRebalanceRange_BadInputs(t *testing.T) {
	_, _, err := ShouldRebalanceRange(dec("9"), dec("4"), dec("6"), 0.8)
	assert.ErrorIs(t, err, types.ErrInvalidInput)

	_, _, err = ShouldRebalanceRange(dec("4"), dec("9"), dec("6"), 0.4)
	assert.ErrorIs(t, err, types.ErrInvalidInput, "a threshold at or below 0.5 makes both triggers overlap")

	// Zero threshold falls back to the default instead of erroring.
	needs, _, err := ShouldRebalanceRange(dec("4"), dec("9"), dec("6.5"), 0)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestConcentrated_RoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		liquidity := rapid.Float64Range(1, 1_000_000).Draw(rt, "liquidity")
		lower := rapid.Float64Range(0.5, 100).Draw(rt, "lower")
		width := rapid.Float64Range(1.5, 10).Draw(rt, "width")
		frac := rapid.Float64Range(0.15, 0.85).Draw(rt, "frac")

		upper := lower * width
		price := lower + (upper-lower)*frac

		lowerDec := floatDec(rt, lower)
		upperDec := floatDec(rt, upper)
		priceDec := floatDec(rt, price)

		amtA, amtB, err := AmountsAtPrice(floatDec(rt, liquidity), lowerDec, upperDec, priceDec)
		if err != nil {
			rt.Fatalf("amounts at price: %v", err)
		}

		back, err := LiquidityFromAmounts(amtA, amtB, lowerDec, upperDec, priceDec)
		if err != nil {
			rt.Fatalf("liquidity from amounts: %v", err)
		}

		got, err := back.Float64()
		if err != nil {
			rt.Fatalf("decimal conversion: %v", err)
		}
		if rel := (got - liquidity) / liquidity; rel > 1e-6 || rel < -1e-6 {
			rt.Fatalf("round trip drifted: want L=%f got %f", liquidity, got)
		}
	})
}
