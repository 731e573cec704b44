package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyield/lprisk/internal/types"
)

func TestPresets_AllValid(t *testing.T) {
	for _, name := range []string{"conservative", "balanced", "aggressive"} {
		cfg, err := LoadStrategy(name)
		require.NoError(t, err, name)
		assert.NoError(t, cfg.Validate(), name)
		assert.Equal(t, name, cfg.Name)
	}
}

func TestLoadStrategy_Unknown(t *testing.T) {
	_, err := LoadStrategy("yolo")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestPresets_RiskOrdering(t *testing.T) {
	assert.Less(t, ConservativeStrategy.Entry.MaxRiskScore, BalancedStrategy.Entry.MaxRiskScore)
	assert.Less(t, BalancedStrategy.Entry.MaxRiskScore, AggressiveStrategy.Entry.MaxRiskScore)
	assert.Greater(t, ConservativeStrategy.Exit.StopLossPercent, AggressiveStrategy.Exit.StopLossPercent)
	assert.Greater(t, ConservativeStrategy.Limits.MinCashReservePercent, AggressiveStrategy.Limits.MinCashReservePercent)
}

func TestLoadStrategyFile(t *testing.T) {
	yamlBody := `
name: custom
entry:
  min_apy: 20
  max_apy: 300
  min_tvl_usd: 100000
  min_volume_24h_usd: 50000
  max_risk_score: 55
  min_sustainability_score: 4
exit:
  stop_loss_percent: -8
  take_profit_percent: 25
  max_position_hours: 240
  max_il_percent: -6
  rug_tvl_drop_percent: -50
  rug_volume_drop_percent: -70
sizing:
  method: fixed
  fixed_size_usd: 750
  min_position_size_usd: 100
  max_position_size_usd: 2000
  max_portfolio_percent: 0.2
  gas_cost_per_action_usd: 1.5
limits:
  max_total_positions: 5
  min_cash_reserve_percent: 0.2
weights:
  apy: 0.3
  risk: 0.3
  sustainability: 0.2
  volume_tvl: 0.1
  tvl: 0.1
`
	path := filepath.Join(t.TempDir(), "strategy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	cfg, err := LoadStrategyFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Name)
	assert.Equal(t, types.SizingFixed, cfg.Sizing.Method)
	assert.InDelta(t, 750, cfg.Sizing.FixedSizeUSD, 0.001)
}

func TestLoadStrategyFile_InvalidRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\n"), 0o644))

	_, err := LoadStrategyFile(path)
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}
