package pnl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyield/lprisk/internal/types"
)

func TestPositionShare_Clamped(t *testing.T) {
	assert.Equal(t, "0.010000000000000000", PositionShare(dec("10000"), dec("1000000")).String())
	assert.True(t, PositionShare(dec("10000"), dec("0")).IsZero(), "zero TVL yields zero share, not a division error")
	assert.Equal(t, "1.000000000000000000", PositionShare(dec("2000000"), dec("1000000")).String(), "share is clamped to 1")
	assert.True(t, PositionShare(dec("-5"), dec("1000000")).IsZero())
}

func TestFeesEarned_Basic(t *testing.T) {
	// $1M volume at 30 bps with a 1% share: 1,000,000 * 0.003 * 0.01 = $30/day
	fees, err := FeesEarned(dec("1000000"), dec("1000000"), dec("10000"), 30)
	require.NoError(t, err)
	assert.Equal(t, "30.000000000000000000", fees.String())
}

func TestFeesEarned_RejectsNegativeVolume(t *testing.T) {
	_, err := FeesEarned(dec("-1"), dec("1000000"), dec("10000"), 30)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestNetPnL_Basic(t *testing.T) {
	res, err := NetPnL(dec("1000"), dec("980"), dec("50"), dec("10"))
	require.NoError(t, err)

	assert.Equal(t, "1030.000000000000000000", res.CurrentValueUSD.String())
	assert.Equal(t, "20.000000000000000000", res.PnLUSD.String())
	assert.Equal(t, "2.000000000000000000", res.PnLPercent.String())
}

func TestNetPnL_ZeroEntryValue(t *testing.T) {
	res, err := NetPnL(dec("0"), dec("0"), dec("0"), dec("0"))
	require.NoError(t, err)
	assert.True(t, res.PnLPercent.IsZero(), "zero entry value yields 0%%, never a division error")
}

func TestNetPnL_RejectsNegativeInputs(t *testing.T) {
	_, err := NetPnL(dec("-1"), dec("0"), dec("0"), dec("0"))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
