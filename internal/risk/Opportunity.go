/*

This file contains the opportunity scorer: a 0..100 weighted composite used
to rank candidate pools and to arbitrate BETTER_OPPORTUNITY exits. Weights
come from the strategy config so presets can reweight without code changes.

*/

package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/solyield/lprisk/internal/types"
)

// apyFullCreditCap is the APY (percent) beyond which additional yield earns
// sharply diminishing credit. Yields far above it are usually emissions-driven
// and collapse.
const apyFullCreditCap = 100.0

// ScoreComponents breaks an opportunity score down for logging and reports.
type ScoreComponents struct {
	APY            float64 `json:"apy"`
	InverseRisk    float64 `json:"inverse_risk"`
	Sustainability float64 `json:"sustainability"`
	VolumeTVL      float64 `json:"volume_tvl"`
	TVL            float64 `json:"tvl"`
}

// OpportunityScore rates a pool 0..100. Each component is itself 0..100 and
// the result is their weighted mean.
func OpportunityScore(snapshot types.MarketSnapshot, weights types.OpportunityWeights) (float64, ScoreComponents, error) {
	if err := snapshot.Validate(); err != nil {
		return 0, ScoreComponents{}, err
	}

	totalWeight := weights.APY + weights.Risk + weights.Sustainability + weights.VolumeTVL + weights.TVL
	if totalWeight <= 0 || math.IsNaN(totalWeight) || math.IsInf(totalWeight, 0) {
		return 0, ScoreComponents{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("opportunity weights must sum to a positive finite value, got %f", totalWeight))
	}

	comps := ScoreComponents{
		APY:            apyComponent(snapshot.APY),
		InverseRisk:    clampScore(100 - snapshot.RiskScore),
		Sustainability: clampScore(snapshot.SustainabilityScore * 10),
		VolumeTVL:      volumeTVLComponent(snapshot),
		TVL:            tvlComponent(snapshot),
	}

	score := (weights.APY*comps.APY +
		weights.Risk*comps.InverseRisk +
		weights.Sustainability*comps.Sustainability +
		weights.VolumeTVL*comps.VolumeTVL +
		weights.TVL*comps.TVL) / totalWeight
	score = clampScore(score)

	riskLogger.Debug().
		Uint64("pool_id", uint64(snapshot.PoolID)).
		Float64("apy_component", comps.APY).
		Float64("inverse_risk_component", comps.InverseRisk).
		Float64("sustainability_component", comps.Sustainability).
		Float64("volume_tvl_component", comps.VolumeTVL).
		Float64("tvl_component", comps.TVL).
		Float64("final_score", score).
		Msg("Opportunity score computed")

	return score, comps, nil
}

// apyComponent gives linear credit up to the cap, then decays: obviously
// unsustainable yields should rank lower, not higher.
func apyComponent(apy float64) float64 {
	if apy <= 0 {
		return 0
	}
	if apy <= apyFullCreditCap {
		return apy
	}
	excess := apy - apyFullCreditCap
	return clampScore(100 - excess/10)
}

// volumeTVLComponent scores the volume/TVL ratio against a healthy band:
// too low means the pool is starved of fee income, too high suggests wash
// trading.
func volumeTVLComponent(snapshot types.MarketSnapshot) float64 {
	tvl, err := snapshot.TVLUSD.Float64()
	if err != nil || tvl <= 0 {
		return 0
	}
	volume, err := snapshot.Volume24hUSD.Float64()
	if err != nil || volume < 0 {
		return 0
	}
	ratio := volume / tvl

	const bandLow, bandHigh = 0.1, 3.0
	switch {
	case ratio < bandLow:
		return clampScore(ratio / bandLow * 100)
	case ratio <= bandHigh:
		return 100
	default:
		return clampScore(100 - (ratio-bandHigh)*20)
	}
}

// tvlComponent rewards pool depth on a log scale: $10k scores 0, $10M and
// above score 100.
func tvlComponent(snapshot types.MarketSnapshot) float64 {
	tvl, err := snapshot.TVLUSD.Float64()
	if err != nil || tvl <= 0 {
		return 0
	}
	return clampScore((math.Log10(tvl) - 4) / 3 * 100)
}

func clampScore(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}
