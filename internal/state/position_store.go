// ./internal/state/position_store.go
package state

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solyield/lprisk/internal/types"
)

// SavePosition upserts one position. The full struct rides along as JSONB
// so restarts can restore exact engine state; the flat columns exist for
// querying.
func SavePosition(position types.Position) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	positionJSON, err := json.Marshal(position)
	if err != nil {
		return fmt.Errorf("failed to marshal position %s: %w", position.ID, err)
	}

	query := `
		INSERT INTO positions (
			position_id, pool_id, protocol, token_a, token_b, status,
			entered_at, entry_value_usd, current_value_usd, fees_earned_usd,
			costs_usd, pnl_usd, pnl_percent, il_percent,
			exited_at, exit_reason, exit_detail, position_json, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, CURRENT_TIMESTAMP)
		ON CONFLICT (position_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_value_usd = EXCLUDED.current_value_usd,
			fees_earned_usd = EXCLUDED.fees_earned_usd,
			costs_usd = EXCLUDED.costs_usd,
			pnl_usd = EXCLUDED.pnl_usd,
			pnl_percent = EXCLUDED.pnl_percent,
			il_percent = EXCLUDED.il_percent,
			exited_at = EXCLUDED.exited_at,
			exit_reason = EXCLUDED.exit_reason,
			exit_detail = EXCLUDED.exit_detail,
			position_json = EXCLUDED.position_json,
			updated_at = CURRENT_TIMESTAMP;
	`

	var exitedAt sql.NullTime
	if !position.ExitedAt.IsZero() {
		exitedAt = sql.NullTime{Time: position.ExitedAt, Valid: true}
	}

	_, err = DB.Exec(query,
		position.ID, int64(position.PoolID), position.Protocol, position.TokenA, position.TokenB, string(position.Status),
		position.EnteredAt, position.EntryValueUSD.String(), position.CurrentValueUSD.String(), position.FeesEarnedUSD.String(),
		position.CostsUSD.String(), position.PnLUSD.String(), position.PnLPercent.String(), position.ILPercent.String(),
		exitedAt, string(position.ExitReason), position.ExitDetail, positionJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save position %s: %w", position.ID, err)
	}

	log.Debug().
		Str("position_id", position.ID).
		Str("status", string(position.Status)).
		Msg("Position saved to database")
	return nil
}

// LoadOpenPositions returns every ACTIVE position, for re-seeding a
// portfolio after a restart.
func LoadOpenPositions() ([]*types.Position, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(
		`SELECT position_json FROM positions WHERE status = $1 ORDER BY entered_at`,
		string(types.StatusActive),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query open positions: %w", err)
	}
	defer rows.Close()

	var positions []*types.Position
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		var position types.Position
		if err := json.Unmarshal(raw, &position); err != nil {
			return nil, fmt.Errorf("failed to unmarshal position: %w", err)
		}
		positions = append(positions, &position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("position row iteration failed: %w", err)
	}

	log.Info().Int("count", len(positions)).Msg("Open positions loaded from database")
	return positions, nil
}
