// ./internal/state/snapshot_store.go
package state

import (
	"fmt"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/solyield/lprisk/internal/types"
)

// SaveMarketSnapshots bulk-inserts historical snapshots. Duplicate
// (pool, timestamp) pairs are ignored so re-imports are safe to repeat.
func SaveMarketSnapshots(snapshots []types.MarketSnapshot) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO market_snapshots (
			pool_id, protocol, token_a, token_b, snapshot_timestamp,
			price_a, price_b, tvl_usd, volume_24h_usd,
			apy, fee_tier_bps, pool_age_hours, risk_score, sustainability_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (pool_id, snapshot_timestamp) DO NOTHING;
	`

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snapshots {
		_, err := stmt.Exec(
			int64(snap.PoolID), snap.Protocol, snap.TokenA, snap.TokenB, snap.Timestamp,
			snap.PriceA.String(), snap.PriceB.String(), snap.TVLUSD.String(), snap.Volume24hUSD.String(),
			snap.APY, snap.FeeTierBps, snap.PoolAgeHours, snap.RiskScore, snap.SustainabilityScore,
		)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot for pool %d at %s: %w", snap.PoolID, snap.Timestamp, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot transaction: %w", err)
	}

	log.Info().Int("count", len(snapshots)).Msg("Market snapshots saved to database")
	return nil
}

// LoadMarketSnapshots returns all snapshots within [from, to] in ascending
// timestamp order, ready to feed a backtest.
func LoadMarketSnapshots(from, to time.Time) ([]types.MarketSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT pool_id, protocol, token_a, token_b, snapshot_timestamp,
		       price_a, price_b, tvl_usd, volume_24h_usd,
		       apy, fee_tier_bps, pool_age_hours, risk_score, sustainability_score
		FROM market_snapshots
		WHERE snapshot_timestamp >= $1 AND snapshot_timestamp <= $2
		ORDER BY snapshot_timestamp, pool_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.MarketSnapshot
	for rows.Next() {
		var (
			snap                                types.MarketSnapshot
			poolID                              int64
			priceA, priceB, tvl, volume         string
			apy, age, riskScore, sustainability float64
		)
		err := rows.Scan(
			&poolID, &snap.Protocol, &snap.TokenA, &snap.TokenB, &snap.Timestamp,
			&priceA, &priceB, &tvl, &volume,
			&apy, &snap.FeeTierBps, &age, &riskScore, &sustainability,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		snap.PoolID = types.PoolID(poolID)
		snap.APY = apy
		snap.PoolAgeHours = age
		snap.RiskScore = riskScore
		snap.SustainabilityScore = sustainability
		if snap.PriceA, err = parseDec(priceA); err != nil {
			return nil, err
		}
		if snap.PriceB, err = parseDec(priceB); err != nil {
			return nil, err
		}
		if snap.TVLUSD, err = parseDec(tvl); err != nil {
			return nil, err
		}
		if snap.Volume24hUSD, err = parseDec(volume); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot row iteration failed: %w", err)
	}

	log.Info().
		Int("count", len(snapshots)).
		Time("from", from).
		Time("to", to).
		Msg("Market snapshots loaded from database")
	return snapshots, nil
}

// parseDec tolerates plain float formatting left behind by manual imports.
func parseDec(raw string) (sdkmath.LegacyDec, error) {
	dec, err := sdkmath.LegacyNewDecFromStr(raw)
	if err == nil {
		return dec, nil
	}
	f, ferr := strconv.ParseFloat(raw, 64)
	if ferr != nil {
		return sdkmath.LegacyZeroDec(), fmt.Errorf("failed to parse decimal %q: %w", raw, err)
	}
	return sdkmath.LegacyNewDecFromStr(strconv.FormatFloat(f, 'f', 18, 64))
}
