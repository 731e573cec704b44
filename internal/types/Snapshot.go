/*

This file contains the read-only market snapshot type that feeds every
engine evaluation tick.

*/

package types

import (
	"errors"
	"fmt"
	"math"
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// MarketSnapshot is the immutable per-pool, per-tick input to the engine.
// The engine never fetches market data itself; callers supply one snapshot
// per pool per evaluation tick, already enriched with an externally computed
// risk score.
type MarketSnapshot struct {
	PoolID    PoolID    `json:"pool_id"`
	Protocol  string    `json:"protocol"` // e.g., "raydium", "orca"
	TokenA    string    `json:"token_a"`  // e.g., "SOL"
	TokenB    string    `json:"token_b"`  // e.g., "USDC" (quote side)
	Timestamp time.Time `json:"timestamp"`

	PriceA       sdkmath.LegacyDec `json:"price_a"`        // USD price of TokenA
	PriceB       sdkmath.LegacyDec `json:"price_b"`        // USD price of TokenB
	TVLUSD       sdkmath.LegacyDec `json:"tvl_usd"`        // Total Value Locked in USD
	Volume24hUSD sdkmath.LegacyDec `json:"volume_24h_usd"` // Trailing 24h volume in USD

	APY          float64 `json:"apy"`            // Annualized yield estimate, percent
	FeeTierBps   int64   `json:"fee_tier_bps"`   // Pool swap fee tier in basis points
	PoolAgeHours float64 `json:"pool_age_hours"` // Hours since pool creation

	RiskScore           float64 `json:"risk_score"`           // 0..100, external scoring service
	SustainabilityScore float64 `json:"sustainability_score"` // 0..10, external scoring service
}

// Pair returns the token pair label for logging and reports.
func (s MarketSnapshot) Pair() string {
	return s.TokenA + "-" + s.TokenB
}

// Validate rejects snapshots the engine cannot safely evaluate. Validation
// failures wrap ErrInvalidInput.
func (s MarketSnapshot) Validate() error {
	if s.PoolID == 0 {
		return errors.Join(ErrInvalidInput, errors.New("pool ID cannot be zero"))
	}
	if s.Timestamp.IsZero() {
		return errors.Join(ErrInvalidInput, errors.New("snapshot timestamp is required"))
	}
	if s.PriceA.IsNil() || s.PriceB.IsNil() || s.TVLUSD.IsNil() || s.Volume24hUSD.IsNil() {
		return errors.Join(ErrInvalidInput, errors.New("snapshot decimal fields cannot be nil"))
	}
	if !s.PriceA.IsPositive() || !s.PriceB.IsPositive() {
		return errors.Join(ErrInvalidInput, fmt.Errorf("prices must be positive, got a=%s b=%s", s.PriceA, s.PriceB))
	}
	if s.TVLUSD.IsNegative() {
		return errors.Join(ErrInvalidInput, errors.New("TVL cannot be negative"))
	}
	if s.Volume24hUSD.IsNegative() {
		return errors.Join(ErrInvalidInput, errors.New("24h volume cannot be negative"))
	}
	if s.FeeTierBps < 0 {
		return errors.Join(ErrInvalidInput, errors.New("fee tier cannot be negative"))
	}
	if s.PoolAgeHours < 0 {
		return errors.Join(ErrInvalidInput, errors.New("pool age cannot be negative"))
	}
	for _, f := range []struct {
		value float64
		name  string
	}{
		{s.APY, "APY"},
		{s.RiskScore, "risk score"},
		{s.SustainabilityScore, "sustainability score"},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return errors.Join(ErrInvalidInput, errors.New(f.name+" must be finite"))
		}
	}
	if s.RiskScore < 0 || s.RiskScore > 100 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("risk score must be within [0,100], got %f", s.RiskScore))
	}
	if s.SustainabilityScore < 0 || s.SustainabilityScore > 10 {
		return errors.Join(ErrInvalidInput, fmt.Errorf("sustainability score must be within [0,10], got %f", s.SustainabilityScore))
	}
	return nil
}
