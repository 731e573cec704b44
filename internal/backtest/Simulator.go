/*

This file contains the backtest simulator: a deterministic, time-stepped
replay of the engine loop over historical snapshots. One bad data point
becomes a skipped-tick diagnostic, never an aborted run, and cancellation
is checked once per tick so a cancelled run still carries a consistent
trade history up to the last completed tick.

*/

package backtest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/solyield/lprisk/internal/exitrule"
	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/portfolio"
	"github.com/solyield/lprisk/internal/risk"
	"github.com/solyield/lprisk/internal/types"
)

var btLogger = logger.GetForComponent("backtest")

// defaultMaxEntriesPerTick bounds how many new positions one tick may open.
const defaultMaxEntriesPerTick = 3

// Config controls one simulator run.
type Config struct {
	InitialCapitalUSD sdkmath.LegacyDec
	// StepSize skips ticks closer together than this. Zero processes every
	// distinct snapshot timestamp.
	StepSize time.Duration
	// MaxEntriesPerTick caps new positions per tick. Zero uses the default.
	MaxEntriesPerTick int
}

// candidate pairs a validated snapshot with its opportunity score for one
// tick.
type candidate struct {
	snapshot types.MarketSnapshot
	score    float64
}

// Run replays the snapshots in ascending timestamp order against the
// strategy and returns the full report. Snapshots may arrive in any order;
// they are sorted by (timestamp, pool id) so identical inputs always replay
// identically.
func Run(ctx context.Context, snapshots []types.MarketSnapshot, strategy types.StrategyConfig, cfg Config) (*types.BacktestResult, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, errors.Join(types.ErrInvalidInput, errors.New("at least one snapshot is required"))
	}
	if cfg.InitialCapitalUSD.IsNil() || !cfg.InitialCapitalUSD.IsPositive() {
		return nil, errors.Join(types.ErrInvalidInput, errors.New("initial capital must be positive"))
	}
	maxEntries := cfg.MaxEntriesPerTick
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntriesPerTick
	}

	ordered := make([]types.MarketSnapshot, len(snapshots))
	copy(ordered, snapshots)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Timestamp.Equal(ordered[j].Timestamp) {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		}
		return ordered[i].PoolID < ordered[j].PoolID
	})

	book, err := portfolio.New(strategy, cfg.InitialCapitalUSD, portfolio.LogSink{})
	if err != nil {
		return nil, err
	}
	seq := 0
	book.UseIDGenerator(func() string {
		seq++
		return fmt.Sprintf("bt-%06d", seq)
	})

	result := &types.BacktestResult{
		ID:                uuid.NewString(),
		StrategyName:      strategy.Name,
		Config:            strategy,
		StartedAt:         ordered[0].Timestamp,
		InitialCapitalUSD: cfg.InitialCapitalUSD,
	}

	// Last usable snapshot per pool, for the end-of-run force close.
	lastSeen := make(map[types.PoolID]types.MarketSnapshot)

	lastTick := time.Time{}
	i := 0
	for i < len(ordered) {
		tickTime := ordered[i].Timestamp

		// Gather this tick's snapshots.
		var tick []types.MarketSnapshot
		for i < len(ordered) && ordered[i].Timestamp.Equal(tickTime) {
			tick = append(tick, ordered[i])
			i++
		}

		if cfg.StepSize > 0 && !lastTick.IsZero() && tickTime.Sub(lastTick) < cfg.StepSize {
			// Stepped-over ticks still refresh each pool's latest usable
			// snapshot, so the end-of-run force close never prices off
			// stale data.
			for _, snap := range tick {
				if snap.Validate() == nil {
					lastSeen[snap.PoolID] = snap
				}
			}
			continue
		}

		// Cooperative cancellation, between ticks only.
		select {
		case <-ctx.Done():
			result.Cancelled = true
		default:
		}
		if result.Cancelled {
			break
		}
		lastTick = tickTime

		byPool := make(map[types.PoolID]types.MarketSnapshot, len(tick))
		for _, snap := range tick {
			if err := snap.Validate(); err != nil {
				result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
					Timestamp: tickTime,
					PoolID:    snap.PoolID,
					Reason:    err.Error(),
				})
				continue
			}
			byPool[snap.PoolID] = snap
			lastSeen[snap.PoolID] = snap
		}

		runTick(book, byPool, strategy, maxEntries, result, tickTime)

		result.EquityCurve = append(result.EquityCurve, types.EquityPoint{
			Timestamp:     tickTime,
			TotalValueUSD: book.TotalValue(),
			OpenPositions: book.Book().OpenPositions,
		})
		result.EndedAt = tickTime
	}

	forceCloseAll(book, lastSeen, result)

	result.Trades = book.Trades()
	result.FinalValueUSD = book.TotalValue()
	result.Stats = ComputeStats(result.Trades, result.EquityCurve, cfg.InitialCapitalUSD)

	btLogger.Info().
		Str("strategy", strategy.Name).
		Int("trades", len(result.Trades)).
		Int("skipped_ticks", len(result.SkippedTicks)).
		Str("final_value_usd", result.FinalValueUSD.String()).
		Bool("cancelled", result.Cancelled).
		Msg("Backtest complete")

	return result, nil
}

// runTick is one pass of the engine loop: revalue, evaluate exits, then
// consider entries.
func runTick(book *portfolio.Portfolio, byPool map[types.PoolID]types.MarketSnapshot, strategy types.StrategyConfig, maxEntries int, result *types.BacktestResult, tickTime time.Time) {
	// 1. Revalue every open position whose pool reported this tick.
	held := make(map[types.PoolID]bool)
	for _, id := range book.OpenPositionIDs() {
		pos, ok := book.Position(id)
		if !ok {
			continue
		}
		held[pos.PoolID] = true
		snap, ok := byPool[pos.PoolID]
		if !ok {
			continue // pool silent this tick, keep the last valuation
		}
		if err := book.Revalue(id, snap); err != nil {
			result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
				Timestamp: tickTime,
				PoolID:    pos.PoolID,
				Reason:    fmt.Sprintf("revalue %s: %v", id, err),
			})
		}
	}

	// 2. Score unheld pools as entry candidates.
	candidates := collectCandidates(byPool, held, strategy)
	bestCandidateScore := 0.0
	if len(candidates) > 0 {
		bestCandidateScore = candidates[0].score
	}

	// 3. Exit evaluation, in sorted position order.
	atCap := book.Book().OpenPositions >= strategy.Limits.MaxTotalPositions
	for _, id := range book.OpenPositionIDs() {
		pos, ok := book.Position(id)
		if !ok {
			continue
		}
		snap, ok := byPool[pos.PoolID]
		if !ok {
			continue
		}

		currentScore := 0.0
		if s, _, err := risk.OpportunityScore(snap, strategy.Weights); err == nil {
			currentScore = s
		}

		decision, err := exitrule.Evaluate(exitrule.Inputs{
			Position:             &pos,
			Snapshot:             snap,
			PortfolioAtCap:       atCap,
			CurrentPositionScore: currentScore,
			BestCandidateScore:   bestCandidateScore,
		}, strategy.Exit)
		if err != nil {
			result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
				Timestamp: tickTime,
				PoolID:    pos.PoolID,
				Reason:    fmt.Sprintf("evaluate %s: %v", id, err),
			})
			continue
		}
		if !decision.Exit {
			continue
		}
		if _, err := book.Close(id, decision.Reason, decision.Detail, snap); err != nil {
			result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
				Timestamp: tickTime,
				PoolID:    pos.PoolID,
				Reason:    fmt.Sprintf("close %s: %v", id, err),
			})
		}
	}

	// 4. Entries, best candidates first.
	opened := 0
	for _, cand := range candidates {
		if opened >= maxEntries {
			break
		}
		_, decision, err := book.Open(cand.snapshot)
		if err != nil {
			result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
				Timestamp: tickTime,
				PoolID:    cand.snapshot.PoolID,
				Reason:    fmt.Sprintf("open: %v", err),
			})
			continue
		}
		if decision.Allowed {
			opened++
		} else if decision.Reason == risk.RejectMaxPositions || decision.Reason == risk.RejectInsufficientCapital || decision.Reason == risk.RejectDailyLossHalt {
			break // nothing later in the ranking will fare better
		}
	}
}

// collectCandidates filters and scores the unheld pools of one tick,
// best score first with pool id as the deterministic tie-break.
func collectCandidates(byPool map[types.PoolID]types.MarketSnapshot, held map[types.PoolID]bool, strategy types.StrategyConfig) []candidate {
	poolIDs := make([]types.PoolID, 0, len(byPool))
	for id := range byPool {
		poolIDs = append(poolIDs, id)
	}
	sort.Slice(poolIDs, func(i, j int) bool { return poolIDs[i] < poolIDs[j] })

	var out []candidate
	for _, id := range poolIDs {
		if held[id] {
			continue
		}
		snap := byPool[id]
		if ok, _ := risk.MeetsEntryRules(snap, strategy.Entry); !ok {
			continue
		}
		score, _, err := risk.OpportunityScore(snap, strategy.Weights)
		if err != nil {
			continue
		}
		out = append(out, candidate{snapshot: snap, score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].snapshot.PoolID < out[j].snapshot.PoolID
	})
	return out
}

// forceCloseAll closes every remaining open position at its pool's last
// usable snapshot so every trade is accounted for in the report.
func forceCloseAll(book *portfolio.Portfolio, lastSeen map[types.PoolID]types.MarketSnapshot, result *types.BacktestResult) {
	for _, id := range book.OpenPositionIDs() {
		pos, ok := book.Position(id)
		if !ok {
			continue
		}
		snap, ok := lastSeen[pos.PoolID]
		if !ok {
			continue
		}
		if _, err := book.Close(id, types.ExitManual, "backtest_end", snap); err != nil {
			result.SkippedTicks = append(result.SkippedTicks, types.SkippedTick{
				Timestamp: snap.Timestamp,
				PoolID:    pos.PoolID,
				Reason:    fmt.Sprintf("force close %s: %v", id, err),
			})
		}
	}
}
