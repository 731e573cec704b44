/*

This file contains the offline snapshot feed: historical market snapshots
loaded from a CSV export. The engine itself never fetches data; this loader
is the caller-side bridge between recorded market history and a backtest.

*/

package datafeed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/types"
)

var feedLogger = logger.GetForComponent("datafeed")

// csvColumns is the required header, in order.
var csvColumns = []string{
	"pool_id", "protocol", "token_a", "token_b", "timestamp",
	"price_a", "price_b", "tvl_usd", "volume_24h_usd",
	"apy", "fee_tier_bps", "pool_age_hours", "risk_score", "sustainability_score",
}

// LoadCSV reads historical snapshots from a CSV file. Rows that fail to
// parse are reported; rows that parse but fail snapshot validation are left
// in, because the simulator records them as skipped-tick diagnostics
// instead of silently dropping history.
func LoadCSV(path string) ([]types.MarketSnapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file %s: %w", path, err)
	}
	defer file.Close()

	snapshots, err := parseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parsing snapshot file %s: %w", path, err)
	}

	feedLogger.Info().
		Str("path", path).
		Int("snapshots", len(snapshots)).
		Msg("Historical snapshots loaded")
	return snapshots, nil
}

func parseCSV(r io.Reader) ([]types.MarketSnapshot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("reading header: %w", err))
	}
	if len(header) != len(csvColumns) {
		return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("expected %d columns, got %d", len(csvColumns), len(header)))
	}
	for i, want := range csvColumns {
		if header[i] != want {
			return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("column %d must be %q, got %q", i, want, header[i]))
		}
	}

	var snapshots []types.MarketSnapshot
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("line %d: %w", line, err))
		}

		snap, err := parseRecord(record)
		if err != nil {
			return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("line %d: %w", line, err))
		}
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) == 0 {
		return nil, errors.Join(types.ErrInvalidInput, errors.New("snapshot file contains no data rows"))
	}
	return snapshots, nil
}

func parseRecord(record []string) (types.MarketSnapshot, error) {
	poolID, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("pool_id %q: %w", record[0], err)
	}

	timestamp, err := time.Parse(time.RFC3339, record[4])
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("timestamp %q: %w", record[4], err)
	}

	decs := make([]sdkmath.LegacyDec, 4)
	for i, idx := range []int{5, 6, 7, 8} {
		d, err := sdkmath.LegacyNewDecFromStr(record[idx])
		if err != nil {
			return types.MarketSnapshot{}, fmt.Errorf("%s %q: %w", csvColumns[idx], record[idx], err)
		}
		decs[i] = d
	}

	floats := make([]float64, 3)
	for i, idx := range []int{9, 11, 12} {
		f, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return types.MarketSnapshot{}, fmt.Errorf("%s %q: %w", csvColumns[idx], record[idx], err)
		}
		floats[i] = f
	}
	sustainability, err := strconv.ParseFloat(record[13], 64)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("sustainability_score %q: %w", record[13], err)
	}

	feeTier, err := strconv.ParseInt(record[10], 10, 64)
	if err != nil {
		return types.MarketSnapshot{}, fmt.Errorf("fee_tier_bps %q: %w", record[10], err)
	}

	return types.MarketSnapshot{
		PoolID:              types.PoolID(poolID),
		Protocol:            record[1],
		TokenA:              record[2],
		TokenB:              record[3],
		Timestamp:           timestamp,
		PriceA:              decs[0],
		PriceB:              decs[1],
		TVLUSD:              decs[2],
		Volume24hUSD:        decs[3],
		APY:                 floats[0],
		FeeTierBps:          feeTier,
		PoolAgeHours:        floats[1],
		RiskScore:           floats[2],
		SustainabilityScore: sustainability,
	}, nil
}
