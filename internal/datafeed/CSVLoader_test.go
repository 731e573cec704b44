package datafeed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyield/lprisk/internal/types"
)

const csvHeader = "pool_id,protocol,token_a,token_b,timestamp,price_a,price_b,tvl_usd,volume_24h_usd,apy,fee_tier_bps,pool_age_hours,risk_score,sustainability_score"

func writeCSV(t *testing.T, rows ...string) string {
	t.Helper()
	body := csvHeader + "\n" + strings.Join(rows, "\n") + "\n"
	path := filepath.Join(t.TempDir(), "snapshots.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t,
		"42,raydium,SOL,USDC,2025-06-01T12:00:00Z,150,1,500000,250000,80,30,720,35,7",
		"43,orca,BONK,USDC,2025-06-01T12:00:00Z,0.00002,1,120000,90000,210,25,96,62,3.5",
	)

	snapshots, err := LoadCSV(path)
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	first := snapshots[0]
	assert.Equal(t, types.PoolID(42), first.PoolID)
	assert.Equal(t, "raydium", first.Protocol)
	assert.Equal(t, "SOL-USDC", first.Pair())
	assert.Equal(t, "150.000000000000000000", first.PriceA.String())
	assert.Equal(t, int64(30), first.FeeTierBps)
	assert.InDelta(t, 80, first.APY, 0.001)
	assert.NoError(t, first.Validate())

	assert.Equal(t, "0.000020000000000000", snapshots[1].PriceA.String())
}

func TestLoadCSV_RejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

	_, err := LoadCSV(path)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLoadCSV_RejectsMalformedRow(t *testing.T) {
	path := writeCSV(t, "notanumber,raydium,SOL,USDC,2025-06-01T12:00:00Z,150,1,500000,250000,80,30,720,35,7")
	_, err := LoadCSV(path)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLoadCSV_RejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvHeader+"\n"), 0o644))

	_, err := LoadCSV(path)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
