/*

This file contains the portfolio risk limiter: the entry gate every new
position must pass. Rejection is an expected, frequent outcome, so the
result is a typed decision rather than an error.

*/

package risk

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/types"
)

var riskLogger = logger.GetForComponent("risk_limiter")

// RejectReason identifies which limit blocked an entry.
type RejectReason string

const (
	RejectInsufficientCapital RejectReason = "INSUFFICIENT_CAPITAL"
	RejectMaxPositions        RejectReason = "MAX_POSITIONS"
	RejectProtocolExposure    RejectReason = "PROTOCOL_EXPOSURE"
	RejectTokenExposure       RejectReason = "TOKEN_EXPOSURE"
	RejectPositionTooLarge    RejectReason = "POSITION_TOO_LARGE"
	RejectTotalExposure       RejectReason = "TOTAL_EXPOSURE"
	RejectBlockedToken        RejectReason = "BLOCKED_TOKEN"
	RejectAvgRiskScore        RejectReason = "AVG_RISK_SCORE"
	RejectDailyLossHalt       RejectReason = "DAILY_LOSS_HALT"
)

// EntryDecision is the outcome of a CanEnter check.
type EntryDecision struct {
	Allowed bool
	Reason  RejectReason
	Detail  string
}

func allow() EntryDecision {
	return EntryDecision{Allowed: true}
}

func reject(reason RejectReason, format string, args ...any) EntryDecision {
	return EntryDecision{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// TradeStats summarizes the portfolio's closed-trade history for sizing.
type TradeStats struct {
	Count      int
	WinRate    float64 // 0..1
	AvgWinUSD  float64
	AvgLossUSD float64 // positive magnitude
}

// BookView is a read-only snapshot of portfolio state taken under the
// portfolio's lock. The limiter and sizer never touch live portfolio state
// directly.
type BookView struct {
	OpenPositions       int
	PositionsByProtocol map[string]int
	PositionsByToken    map[string]int
	AvailableCapitalUSD sdkmath.LegacyDec
	TotalExposureUSD    sdkmath.LegacyDec // sum of open entry values
	PortfolioValueUSD   sdkmath.LegacyDec // capital plus open current values
	AvgRiskScore        float64           // average entry risk score of open positions
	DailyPnLPercent     float64           // today's realized+unrealized move, percent of equity
	Trades              TradeStats
}

// CanEnter runs the portfolio-wide entry checks in a fixed order. The first
// failing check determines the rejection reason.
func CanEnter(book BookView, candidate types.MarketSnapshot, proposedSizeUSD sdkmath.LegacyDec, cfg types.StrategyConfig) EntryDecision {
	if proposedSizeUSD.IsNil() || !proposedSizeUSD.IsPositive() {
		return reject(RejectInsufficientCapital, "proposed size must be positive, got %s", proposedSizeUSD)
	}

	if book.AvailableCapitalUSD.LT(proposedSizeUSD) {
		return reject(RejectInsufficientCapital,
			"need $%s, have $%s available", proposedSizeUSD, book.AvailableCapitalUSD)
	}

	if book.OpenPositions >= cfg.Limits.MaxTotalPositions {
		return reject(RejectMaxPositions,
			"%d positions open, cap is %d", book.OpenPositions, cfg.Limits.MaxTotalPositions)
	}

	if cfg.Limits.MaxPositionsPerProtocol > 0 {
		if n := book.PositionsByProtocol[candidate.Protocol]; n >= cfg.Limits.MaxPositionsPerProtocol {
			return reject(RejectProtocolExposure,
				"%d positions on %s, cap is %d", n, candidate.Protocol, cfg.Limits.MaxPositionsPerProtocol)
		}
	}
	if cfg.Limits.MaxPositionsPerToken > 0 {
		for _, token := range []string{candidate.TokenA, candidate.TokenB} {
			if n := book.PositionsByToken[token]; n >= cfg.Limits.MaxPositionsPerToken {
				return reject(RejectTokenExposure,
					"%d positions holding %s, cap is %d", n, token, cfg.Limits.MaxPositionsPerToken)
			}
		}
	}

	maxSize := sdkmath.LegacyMustNewDecFromStr(fmt.Sprintf("%.2f", cfg.Sizing.MaxPositionSizeUSD))
	if proposedSizeUSD.GT(maxSize) {
		return reject(RejectPositionTooLarge,
			"proposed $%s exceeds max position size $%s", proposedSizeUSD, maxSize)
	}

	if cfg.Limits.MaxTotalExposureUSD > 0 {
		maxExposure := sdkmath.LegacyMustNewDecFromStr(fmt.Sprintf("%.2f", cfg.Limits.MaxTotalExposureUSD))
		if book.TotalExposureUSD.Add(proposedSizeUSD).GT(maxExposure) {
			return reject(RejectTotalExposure,
				"exposure $%s + $%s exceeds cap $%s", book.TotalExposureUSD, proposedSizeUSD, maxExposure)
		}
	}

	if blocked, ok := cfg.Entry.IsTokenBlocked(candidate.TokenA, candidate.TokenB); ok {
		return reject(RejectBlockedToken, "token %s is blocklisted", blocked)
	}

	if cfg.Limits.MaxAvgPortfolioRiskScore > 0 {
		// Average after the candidate joins the book.
		after := (book.AvgRiskScore*float64(book.OpenPositions) + candidate.RiskScore) / float64(book.OpenPositions+1)
		if after > cfg.Limits.MaxAvgPortfolioRiskScore {
			return reject(RejectAvgRiskScore,
				"average risk score would be %.1f, cap is %.1f", after, cfg.Limits.MaxAvgPortfolioRiskScore)
		}
	}

	if cfg.Limits.MaxDailyLossPercent < 0 && book.DailyPnLPercent <= cfg.Limits.MaxDailyLossPercent {
		return reject(RejectDailyLossHalt,
			"daily pnl %.2f%% breached halt threshold %.2f%%", book.DailyPnLPercent, cfg.Limits.MaxDailyLossPercent)
	}

	riskLogger.Debug().
		Uint64("pool_id", uint64(candidate.PoolID)).
		Str("proposed_size_usd", proposedSizeUSD.String()).
		Int("open_positions", book.OpenPositions).
		Msg("Entry approved by risk limiter")

	return allow()
}
