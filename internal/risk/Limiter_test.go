package risk

import (
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/solyield/lprisk/internal/types"
)

func dec(s string) sdkmath.LegacyDec {
	return sdkmath.LegacyMustNewDecFromStr(s)
}

func testSnapshot() types.MarketSnapshot {
	return types.MarketSnapshot{
		PoolID:              42,
		Protocol:            "raydium",
		TokenA:              "SOL",
		TokenB:              "USDC",
		Timestamp:           time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		PriceA:              dec("150"),
		PriceB:              dec("1"),
		TVLUSD:              dec("500000"),
		Volume24hUSD:        dec("250000"),
		APY:                 80,
		FeeTierBps:          30,
		PoolAgeHours:        720,
		RiskScore:           35,
		SustainabilityScore: 7,
	}
}

func testConfig() types.StrategyConfig {
	return types.StrategyConfig{
		Name: "test",
		Entry: types.EntryRules{
			MinAPY: 10, MaxAPY: 500,
			MinTVLUSD: 50_000, MinVolume24hUSD: 10_000,
			MaxRiskScore: 70, MinSustainabilityScore: 3,
		},
		Exit: types.ExitRules{
			StopLossPercent: -10, TakeProfitPercent: 30,
			MaxPositionHours: 24 * 14, MaxILPercent: -5,
			MaxRiskScoreIncrease: 20,
			RugTVLDropPercent:    -50, RugVolumeDropPercent: -70,
		},
		Sizing: types.PositionSizing{
			Method:       types.SizingFixed,
			FixedSizeUSD: 1000, MinPositionSizeUSD: 100, MaxPositionSizeUSD: 5000,
			MaxPortfolioPercent: 0.2, RiskMultiplier: 1, KellyFraction: 0.5,
		},
		Limits: types.RiskLimits{
			MaxTotalPositions: 5, MaxPositionsPerProtocol: 3, MaxPositionsPerToken: 2,
			MaxTotalExposureUSD: 20_000, MinCashReservePercent: 0.1,
		},
		Weights: types.OpportunityWeights{APY: 0.3, Risk: 0.25, Sustainability: 0.15, VolumeTVL: 0.15, TVL: 0.15},
	}
}

func emptyBook(capital string) BookView {
	return BookView{
		PositionsByProtocol: map[string]int{},
		PositionsByToken:    map[string]int{},
		AvailableCapitalUSD: dec(capital),
		TotalExposureUSD:    dec("0"),
		PortfolioValueUSD:   dec(capital),
	}
}

func TestCanEnter_Allows(t *testing.T) {
	decision := CanEnter(emptyBook("10000"), testSnapshot(), dec("1000"), testConfig())
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestCanEnter_InsufficientCapital(t *testing.T) {
	decision := CanEnter(emptyBook("500"), testSnapshot(), dec("1000"), testConfig())
	assert.False(t, decision.Allowed)
	assert.Equal(t, RejectInsufficientCapital, decision.Reason)
}

func TestCanEnter_MaxPositions(t *testing.T) {
	book := emptyBook("10000")
	book.OpenPositions = 5
	decision := CanEnter(book, testSnapshot(), dec("1000"), testConfig())
	assert.Equal(t, RejectMaxPositions, decision.Reason)
}

func TestCanEnter_ProtocolExposure(t *testing.T) {
	book := emptyBook("10000")
	book.OpenPositions = 3
	book.PositionsByProtocol["raydium"] = 3
	decision := CanEnter(book, testSnapshot(), dec("1000"), testConfig())
	assert.Equal(t, RejectProtocolExposure, decision.Reason)
}

func TestCanEnter_TokenExposure(t *testing.T) {
	book := emptyBook("10000")
	book.OpenPositions = 2
	book.PositionsByToken["SOL"] = 2
	decision := CanEnter(book, testSnapshot(), dec("1000"), testConfig())
	assert.Equal(t, RejectTokenExposure, decision.Reason)
}

func TestCanEnter_PositionTooLarge(t *testing.T) {
	decision := CanEnter(emptyBook("100000"), testSnapshot(), dec("6000"), testConfig())
	assert.Equal(t, RejectPositionTooLarge, decision.Reason)
}

func TestCanEnter_TotalExposure(t *testing.T) {
	book := emptyBook("100000")
	book.TotalExposureUSD = dec("19500")
	decision := CanEnter(book, testSnapshot(), dec("1000"), testConfig())
	assert.Equal(t, RejectTotalExposure, decision.Reason)
}

func TestCanEnter_BlockedToken(t *testing.T) {
	cfg := testConfig()
	cfg.Entry.BlockedTokens = []string{"SOL"}
	decision := CanEnter(emptyBook("10000"), testSnapshot(), dec("1000"), cfg)
	assert.Equal(t, RejectBlockedToken, decision.Reason)
}

func TestCanEnter_DailyLossHalt(t *testing.T) {
	cfg := testConfig()
	cfg.Limits.MaxDailyLossPercent = -5
	book := emptyBook("10000")
	book.DailyPnLPercent = -6.2
	decision := CanEnter(book, testSnapshot(), dec("1000"), cfg)
	assert.Equal(t, RejectDailyLossHalt, decision.Reason)
}

// A rejection at exposure X must also reject at any higher exposure, all
// else equal.
func TestCanEnter_ExposureMonotonicity(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		exposure := rapid.Int64Range(0, 40_000).Draw(rt, "exposure")
		extra := rapid.Int64Range(1, 40_000).Draw(rt, "extra")

		book := emptyBook("100000")
		book.TotalExposureUSD = sdkmath.LegacyNewDec(exposure)
		rejected := !CanEnter(book, testSnapshot(), dec("1000"), testConfig()).Allowed

		book.TotalExposureUSD = sdkmath.LegacyNewDec(exposure + extra)
		rejectedHigher := !CanEnter(book, testSnapshot(), dec("1000"), testConfig()).Allowed

		if rejected && !rejectedHigher {
			rt.Fatalf("rejected at exposure %d but allowed at %d", exposure, exposure+extra)
		}
	})
}
