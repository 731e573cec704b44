/*

This file contains the exit-rule evaluator. It is pure given its inputs and
runs the rules in a fixed priority order; the first match wins. The order is
a deliberate tie-break policy: capital protection first (stop loss), then
profit taking, then the slower structural rules.

*/

package exitrule

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
)

var exitLogger = logger.GetForComponent("exit_evaluator")

// AbsoluteLiquidityFloorUSD is the TVL below which a position must be
// closed regardless of strategy settings. Exiting below this depth moves
// the price against the exit itself.
const AbsoluteLiquidityFloorUSD = 10_000

// betterOpportunityRatio is how much better a candidate must score before
// it justifies recycling capital out of a healthy position.
const betterOpportunityRatio = 1.5

var liquidityFloor = sdkmath.LegacyNewDec(AbsoluteLiquidityFloorUSD)

// Inputs bundles everything one evaluation needs. The evaluator reads but
// never mutates the position.
type Inputs struct {
	Position *types.Position
	Snapshot types.MarketSnapshot

	// PortfolioAtCap enables the BETTER_OPPORTUNITY rule; capital is only
	// recycled when no new position could be opened otherwise.
	PortfolioAtCap       bool
	CurrentPositionScore float64
	BestCandidateScore   float64
}

// Decision is the evaluator verdict. Exit false means hold.
type Decision struct {
	Exit   bool
	Reason types.ExitReason
	Detail string
}

func hold() Decision {
	return Decision{}
}

func exit(reason types.ExitReason, format string, args ...any) Decision {
	return Decision{Exit: true, Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Evaluate runs the exit rules in priority order against one position and
// the current snapshot. Rules whose thresholds are unset (zero) are skipped.
func Evaluate(in Inputs, rules types.ExitRules) (Decision, error) {
	if in.Position == nil {
		return hold(), errors.Join(types.ErrInvalidInput, errors.New("position is required"))
	}
	if in.Position.Status != types.StatusActive {
		return hold(), errors.Join(types.ErrInvalidStateTransition, fmt.Errorf("cannot evaluate exit for %s position %s", in.Position.Status, in.Position.ID))
	}
	if err := in.Snapshot.Validate(); err != nil {
		return hold(), err
	}

	pnlPercent, err := utils.DecToFloat(in.Position.PnLPercent)
	if err != nil {
		return hold(), errors.Join(types.ErrInvalidInput, fmt.Errorf("pnl percent: %w", err))
	}
	ilPercent, err := utils.DecToFloat(in.Position.ILPercent)
	if err != nil {
		return hold(), errors.Join(types.ErrInvalidInput, fmt.Errorf("IL percent: %w", err))
	}
	peakPnL, err := utils.DecToFloat(in.Position.PeakPnLPercent)
	if err != nil {
		return hold(), errors.Join(types.ErrInvalidInput, fmt.Errorf("peak pnl percent: %w", err))
	}

	decision := evaluate(in, rules, pnlPercent, ilPercent, peakPnL)

	if decision.Exit {
		exitLogger.Debug().
			Str("position_id", in.Position.ID).
			Str("reason", string(decision.Reason)).
			Str("detail", decision.Detail).
			Float64("pnl_percent", pnlPercent).
			Msg("Exit rule fired")
	}
	return decision, nil
}

func evaluate(in Inputs, rules types.ExitRules, pnlPercent, ilPercent, peakPnL float64) Decision {
	pos := in.Position
	snap := in.Snapshot

	// 1. Stop loss, including the trailing variant once the position has
	// been in profit.
	if pnlPercent <= rules.StopLossPercent {
		return exit(types.ExitStopLoss, "pnl %.2f%% breached stop loss %.2f%%", pnlPercent, rules.StopLossPercent)
	}
	if rules.TrailingStopPercent > 0 && peakPnL > 0 && pnlPercent <= peakPnL-rules.TrailingStopPercent {
		return exit(types.ExitStopLoss, "pnl %.2f%% fell %.2f points below peak %.2f%%", pnlPercent, rules.TrailingStopPercent, peakPnL)
	}

	// 2. Take profit.
	if pnlPercent >= rules.TakeProfitPercent {
		return exit(types.ExitTakeProfit, "pnl %.2f%% reached take profit %.2f%%", pnlPercent, rules.TakeProfitPercent)
	}

	// 3. Time limit.
	if rules.MaxPositionHours > 0 {
		if held := pos.HoursHeld(snap.Timestamp); held >= rules.MaxPositionHours {
			return exit(types.ExitTimeLimit, "held %.0fh, limit is %.0fh", held, rules.MaxPositionHours)
		}
	}

	// 4. Impermanent loss threshold.
	if rules.MaxILPercent < 0 && ilPercent <= rules.MaxILPercent {
		return exit(types.ExitILThreshold, "IL %.2f%% breached threshold %.2f%%", ilPercent, rules.MaxILPercent)
	}

	// 5. Risk deterioration since entry.
	if rules.MaxRiskScoreIncrease > 0 {
		if increase := snap.RiskScore - pos.EntryRiskScore; increase > rules.MaxRiskScoreIncrease {
			return exit(types.ExitRiskIncrease, "risk score rose %.1f points since entry, limit is %.1f", increase, rules.MaxRiskScoreIncrease)
		}
	}

	// 6. Yield collapse.
	if rules.MinAPYFloor > 0 && snap.APY < rules.MinAPYFloor {
		return exit(types.ExitAPYDrop, "APY %.1f%% fell below floor %.1f%%", snap.APY, rules.MinAPYFloor)
	}

	// 7. Rug detection: TVL or volume collapse since entry.
	tvlChange, _ := utils.DecToFloat(utils.PercentChange(pos.EntryTVL, snap.TVLUSD))
	volumeChange, _ := utils.DecToFloat(utils.PercentChange(pos.EntryVolume24h, snap.Volume24hUSD))
	if rules.RugTVLDropPercent < 0 && tvlChange <= rules.RugTVLDropPercent {
		return exit(types.ExitRugDetected, "TVL moved %.1f%% since entry, trigger is %.1f%%", tvlChange, rules.RugTVLDropPercent)
	}
	if rules.RugVolumeDropPercent < 0 && volumeChange <= rules.RugVolumeDropPercent {
		return exit(types.ExitRugDetected, "volume moved %.1f%% since entry, trigger is %.1f%%", volumeChange, rules.RugVolumeDropPercent)
	}

	// 8. Absolute liquidity floor, independent of strategy.
	if snap.TVLUSD.LT(liquidityFloor) {
		return exit(types.ExitLowLiquidity, "TVL $%s is below the $%d exit floor", snap.TVLUSD, AbsoluteLiquidityFloorUSD)
	}

	// 9. Better opportunity, only when capital cannot otherwise be deployed.
	if in.PortfolioAtCap && in.CurrentPositionScore > 0 &&
		in.BestCandidateScore >= in.CurrentPositionScore*betterOpportunityRatio {
		return exit(types.ExitBetterOpportunity, "candidate scores %.1f vs current %.1f", in.BestCandidateScore, in.CurrentPositionScore)
	}

	return hold()
}
