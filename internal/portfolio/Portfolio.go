/*

This file contains the portfolio: open positions, capital, trade history,
and the position lifecycle operations. A mutex serializes all mutation, so
one portfolio is single-writer while independent portfolios run in
parallel. Every timestamp comes from the snapshot being processed, never
from the wall clock, which keeps backtests deterministic.

*/

package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/solyield/lprisk/internal/logger"
	"github.com/solyield/lprisk/internal/pnl"
	"github.com/solyield/lprisk/internal/risk"
	"github.com/solyield/lprisk/internal/types"
	"github.com/solyield/lprisk/internal/utils"
)

// Portfolio owns its positions exclusively; a Position is never shared
// across portfolios.
type Portfolio struct {
	mu sync.Mutex

	cfg       types.StrategyConfig
	capital   sdkmath.LegacyDec // un-deployed capital
	positions map[string]*types.Position
	history   []types.Trade

	peakEquity sdkmath.LegacyDec

	// Daily-loss tracking, anchored to the UTC day of the snapshots.
	dayAnchor time.Time
	dayEquity sdkmath.LegacyDec

	idgen func() string
	sink  EventSink
	log   zerolog.Logger
}

// UseIDGenerator replaces the position id source. Backtests install a
// sequential generator so two runs over the same data produce identical
// trade lists; live portfolios keep the default random uuid.
func (p *Portfolio) UseIDGenerator(gen func() string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen != nil {
		p.idgen = gen
	}
}

// New builds a portfolio with the given starting capital. A nil sink falls
// back to logging events.
func New(cfg types.StrategyConfig, initialCapitalUSD sdkmath.LegacyDec, sink EventSink) (*Portfolio, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if initialCapitalUSD.IsNil() || !initialCapitalUSD.IsPositive() {
		return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("initial capital must be positive, got %s", initialCapitalUSD))
	}
	if sink == nil {
		sink = LogSink{}
	}
	return &Portfolio{
		cfg:        cfg,
		capital:    initialCapitalUSD,
		positions:  make(map[string]*types.Position),
		peakEquity: initialCapitalUSD,
		dayEquity:  initialCapitalUSD,
		idgen:      uuid.NewString,
		sink:       sink,
		log:        logger.GetForComponent("portfolio"),
	}, nil
}

// Restore re-seeds a portfolio from durable state after a process restart.
// Open positions must be ACTIVE; history is taken as-is.
func Restore(cfg types.StrategyConfig, capitalUSD sdkmath.LegacyDec, open []*types.Position, history []types.Trade, sink EventSink) (*Portfolio, error) {
	p, err := New(cfg, capitalUSD, sink)
	if err != nil {
		return nil, err
	}
	for _, pos := range open {
		if pos.Status != types.StatusActive {
			return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("cannot restore %s position %s as open", pos.Status, pos.ID))
		}
		p.positions[pos.ID] = pos
	}
	p.history = append(p.history, history...)
	return p, nil
}

// Open runs the full entry path for a candidate: size the position, gate it
// through the risk limiter, and either activate it or record the rejection.
// A rejection is an expected outcome, not an error: the returned position
// carries status FAILED and the decision names the limit that blocked it.
func (p *Portfolio) Open(snapshot types.MarketSnapshot) (*types.Position, risk.EntryDecision, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := snapshot.Validate(); err != nil {
		return nil, risk.EntryDecision{}, err
	}
	p.rollDayLocked(snapshot.Timestamp)

	book := p.bookLocked()
	size, err := risk.SizePosition(book, snapshot, p.cfg)
	if err != nil {
		return nil, risk.EntryDecision{}, err
	}

	pos := &types.Position{
		ID:       p.idgen(),
		PoolID:   snapshot.PoolID,
		Protocol: snapshot.Protocol,
		TokenA:   snapshot.TokenA,
		TokenB:   snapshot.TokenB,
		Status:   types.StatusPending,
	}

	decision := risk.CanEnter(book, snapshot, size, p.cfg)
	if !decision.Allowed {
		// No exit reason: the position never opened. The decision and
		// ExitDetail carry the rejection.
		pos.Status = types.StatusFailed
		pos.ExitDetail = decision.Detail
		p.emitLocked(pos.ID, EventFailed, snapshot.Timestamp, map[string]string{
			"reason": string(decision.Reason),
			"detail": decision.Detail,
		})
		return pos, decision, nil
	}

	gas, err := utils.DecFromFloat(p.cfg.Sizing.GasCostPerActionUSD)
	if err != nil {
		return nil, risk.EntryDecision{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("gas cost: %w", err))
	}

	// Entry is a 50/50 value split at snapshot prices.
	half := size.QuoInt64(2)
	pos.EnteredAt = snapshot.Timestamp
	pos.EntryPriceA = snapshot.PriceA
	pos.EntryPriceB = snapshot.PriceB
	pos.EntryAmountA = half.Quo(snapshot.PriceA)
	pos.EntryAmountB = half.Quo(snapshot.PriceB)
	pos.EntryValueUSD = size
	pos.EntryTVL = snapshot.TVLUSD
	pos.EntryVolume24h = snapshot.Volume24hUSD
	pos.EntryAPY = snapshot.APY
	pos.EntryRiskScore = snapshot.RiskScore
	pos.FeeTierBps = snapshot.FeeTierBps

	pos.Status = types.StatusActive
	pos.CurrentValueUSD = size
	pos.FeesEarnedUSD = sdkmath.LegacyZeroDec()
	pos.CostsUSD = gas
	pos.PnLUSD = gas.Neg()
	pos.PnLPercent = sdkmath.LegacyZeroDec()
	pos.ILPercent = sdkmath.LegacyZeroDec()
	pos.PeakPnLPercent = sdkmath.LegacyZeroDec()
	pos.LastValuedAt = snapshot.Timestamp

	p.capital = p.capital.Sub(size).Sub(gas)
	p.positions[pos.ID] = pos

	p.log.Info().
		Str("position_id", pos.ID).
		Uint64("pool_id", uint64(pos.PoolID)).
		Str("pair", pos.Pair()).
		Str("size_usd", size.String()).
		Msg("Position opened")
	p.emitLocked(pos.ID, EventOpened, snapshot.Timestamp, map[string]string{
		"pool_id":  fmt.Sprintf("%d", pos.PoolID),
		"pair":     pos.Pair(),
		"size_usd": size.String(),
	})

	return pos, decision, nil
}

// Revalue recomputes a position's value against a fresh snapshot. Only
// ACTIVE positions may be revalued; the position stays ACTIVE.
func (p *Portfolio) Revalue(positionID string, snapshot types.MarketSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.activeLocked(positionID)
	if err != nil {
		return err
	}
	if err := snapshot.Validate(); err != nil {
		return err
	}
	p.rollDayLocked(snapshot.Timestamp)

	il, err := pnl.ImpermanentLoss(
		pos.EntryPriceA, pos.EntryPriceB,
		snapshot.PriceA, snapshot.PriceB,
		pos.EntryAmountA, pos.EntryAmountB,
	)
	if err != nil {
		return err
	}

	// Fees accrue pro-rata for the time elapsed since the last valuation.
	dailyFees, err := pnl.FeesEarned(snapshot.Volume24hUSD, snapshot.TVLUSD, il.ValueInPool, pos.FeeTierBps)
	if err != nil {
		return err
	}
	elapsedHours := snapshot.Timestamp.Sub(pos.LastValuedAt).Hours()
	if elapsedHours > 0 {
		fraction, err := utils.DecFromFloat(elapsedHours / 24)
		if err != nil {
			return err
		}
		pos.FeesEarnedUSD = pos.FeesEarnedUSD.Add(dailyFees.Mul(fraction))
	}

	result, err := pnl.NetPnL(pos.EntryValueUSD, il.ValueInPool, pos.FeesEarnedUSD, pos.CostsUSD)
	if err != nil {
		return err
	}

	pos.CurrentValueUSD = result.CurrentValueUSD
	pos.PnLUSD = result.PnLUSD
	pos.PnLPercent = result.PnLPercent
	pos.ILPercent = il.ILPercent
	if result.PnLPercent.GT(pos.PeakPnLPercent) {
		pos.PeakPnLPercent = result.PnLPercent
	}
	pos.LastValuedAt = snapshot.Timestamp

	equity := p.totalValueLocked()
	if equity.GT(p.peakEquity) {
		p.peakEquity = equity
	}

	p.emitLocked(pos.ID, EventRevalued, snapshot.Timestamp, map[string]string{
		"current_value_usd": pos.CurrentValueUSD.String(),
		"pnl_percent":       pos.PnLPercent.String(),
		"il_percent":        pos.ILPercent.String(),
	})
	return nil
}

// Close terminates an ACTIVE position, returns the proceeds to capital, and
// appends the trade record. Closing a terminal position is rejected, never
// retried silently.
func (p *Portfolio) Close(positionID string, reason types.ExitReason, detail string, snapshot types.MarketSnapshot) (types.Trade, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, err := p.activeLocked(positionID)
	if err != nil {
		return types.Trade{}, err
	}
	p.rollDayLocked(snapshot.Timestamp)

	gas, err := utils.DecFromFloat(p.cfg.Sizing.GasCostPerActionUSD)
	if err != nil {
		return types.Trade{}, errors.Join(types.ErrInvalidInput, fmt.Errorf("gas cost: %w", err))
	}
	pos.CostsUSD = pos.CostsUSD.Add(gas)
	pos.PnLUSD = pos.PnLUSD.Sub(gas)
	if !pos.EntryValueUSD.IsZero() {
		pos.PnLPercent = pos.PnLUSD.Quo(pos.EntryValueUSD).MulInt64(100)
	}

	pos.Status = types.StatusExited
	pos.ExitedAt = snapshot.Timestamp
	pos.ExitReason = reason
	pos.ExitDetail = detail

	proceeds := pos.CurrentValueUSD.Sub(gas)
	if proceeds.IsNegative() {
		proceeds = sdkmath.LegacyZeroDec()
	}
	p.capital = p.capital.Add(proceeds)
	delete(p.positions, pos.ID)

	trade := types.Trade{
		ID:            pos.ID,
		PoolID:        pos.PoolID,
		Protocol:      pos.Protocol,
		Pair:          pos.Pair(),
		EnteredAt:     pos.EnteredAt,
		ExitedAt:      pos.ExitedAt,
		HoursHeld:     pos.HoursHeld(snapshot.Timestamp),
		EntryValueUSD: pos.EntryValueUSD,
		ExitValueUSD:  pos.CurrentValueUSD,
		FeesEarnedUSD: pos.FeesEarnedUSD,
		CostsUSD:      pos.CostsUSD,
		PnLUSD:        pos.PnLUSD,
		PnLPercent:    pos.PnLPercent,
		ILPercent:     pos.ILPercent,
		ExitReason:    reason,
		ExitDetail:    detail,
	}
	p.history = append(p.history, trade)

	p.log.Info().
		Str("position_id", pos.ID).
		Str("reason", string(reason)).
		Str("pnl_usd", pos.PnLUSD.String()).
		Str("pnl_percent", pos.PnLPercent.String()).
		Msg("Position closed")
	p.emitLocked(pos.ID, EventClosed, snapshot.Timestamp, map[string]string{
		"reason":      string(reason),
		"detail":      detail,
		"pnl_usd":     pos.PnLUSD.String(),
		"pnl_percent": pos.PnLPercent.String(),
	})

	return trade, nil
}

// Book returns a read-only view of portfolio state for the risk limiter and
// sizer.
func (p *Portfolio) Book() risk.BookView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bookLocked()
}

// OpenPositionIDs returns the ids of open positions in sorted order, so
// callers iterating the book are deterministic.
func (p *Portfolio) OpenPositionIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, 0, len(p.positions))
	for id := range p.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Overweight returns the ids of open positions whose share of total open
// value exceeds Limits.RebalanceTriggerPercent, sorted, so callers can trim
// them. A zero trigger disables the check.
func (p *Portfolio) Overweight() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg.Limits.RebalanceTriggerPercent <= 0 || len(p.positions) == 0 {
		return nil
	}

	total := sdkmath.LegacyZeroDec()
	for _, pos := range p.positions {
		total = total.Add(pos.CurrentValueUSD)
	}
	if !total.IsPositive() {
		return nil
	}

	trigger, err := utils.DecFromFloat(p.cfg.Limits.RebalanceTriggerPercent)
	if err != nil {
		return nil
	}

	var ids []string
	for id, pos := range p.positions {
		if pos.CurrentValueUSD.Quo(total).GT(trigger) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Position returns a copy of an open position.
func (p *Portfolio) Position(positionID string) (types.Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.positions[positionID]
	if !ok {
		return types.Position{}, false
	}
	return *pos, true
}

// Trades returns a copy of the realized trade history.
func (p *Portfolio) Trades() []types.Trade {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Trade, len(p.history))
	copy(out, p.history)
	return out
}

// AvailableCapital returns the un-deployed capital.
func (p *Portfolio) AvailableCapital() sdkmath.LegacyDec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capital
}

// TotalValue returns capital plus the current value of all open positions.
func (p *Portfolio) TotalValue() sdkmath.LegacyDec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalValueLocked()
}

// Config returns the immutable strategy configuration.
func (p *Portfolio) Config() types.StrategyConfig {
	return p.cfg
}

func (p *Portfolio) activeLocked(positionID string) (*types.Position, error) {
	pos, ok := p.positions[positionID]
	if ok {
		return pos, nil
	}
	// Distinguish "terminal" from "never existed" for the error.
	for _, trade := range p.history {
		if trade.ID == positionID {
			return nil, errors.Join(types.ErrInvalidStateTransition, fmt.Errorf("position %s is terminal", positionID))
		}
	}
	return nil, errors.Join(types.ErrInvalidInput, fmt.Errorf("unknown position %s", positionID))
}

func (p *Portfolio) totalValueLocked() sdkmath.LegacyDec {
	total := p.capital
	for _, pos := range p.positions {
		total = total.Add(pos.CurrentValueUSD)
	}
	return total
}

func (p *Portfolio) bookLocked() risk.BookView {
	byProtocol := make(map[string]int)
	byToken := make(map[string]int)
	exposure := sdkmath.LegacyZeroDec()
	riskSum := 0.0
	for _, pos := range p.positions {
		byProtocol[pos.Protocol]++
		byToken[pos.TokenA]++
		byToken[pos.TokenB]++
		exposure = exposure.Add(pos.EntryValueUSD)
		riskSum += pos.EntryRiskScore
	}

	avgRisk := 0.0
	if len(p.positions) > 0 {
		avgRisk = riskSum / float64(len(p.positions))
	}

	dailyPnL := 0.0
	if !p.dayEquity.IsNil() && p.dayEquity.IsPositive() {
		if f, err := utils.DecToFloat(utils.PercentChange(p.dayEquity, p.totalValueLocked())); err == nil {
			dailyPnL = f
		}
	}

	return risk.BookView{
		OpenPositions:       len(p.positions),
		PositionsByProtocol: byProtocol,
		PositionsByToken:    byToken,
		AvailableCapitalUSD: p.capital,
		TotalExposureUSD:    exposure,
		PortfolioValueUSD:   p.totalValueLocked(),
		AvgRiskScore:        avgRisk,
		DailyPnLPercent:     dailyPnL,
		Trades:              p.tradeStatsLocked(),
	}
}

func (p *Portfolio) tradeStatsLocked() risk.TradeStats {
	stats := risk.TradeStats{Count: len(p.history)}
	if stats.Count == 0 {
		return stats
	}

	var wins, losses int
	var winSum, lossSum float64
	for _, trade := range p.history {
		f, err := utils.DecToFloat(trade.PnLUSD)
		if err != nil {
			continue
		}
		if f > 0 {
			wins++
			winSum += f
		} else if f < 0 {
			losses++
			lossSum += -f
		}
	}

	stats.WinRate = float64(wins) / float64(stats.Count)
	if wins > 0 {
		stats.AvgWinUSD = winSum / float64(wins)
	}
	if losses > 0 {
		stats.AvgLossUSD = lossSum / float64(losses)
	}
	return stats
}

// rollDayLocked resets the daily-loss anchor when the snapshot crosses into
// a new UTC day.
func (p *Portfolio) rollDayLocked(at time.Time) {
	day := at.UTC().Truncate(24 * time.Hour)
	if p.dayAnchor.IsZero() || day.After(p.dayAnchor) {
		p.dayAnchor = day
		p.dayEquity = p.totalValueLocked()
	}
}

func (p *Portfolio) emitLocked(positionID string, eventType EventType, at time.Time, fields map[string]string) {
	p.sink.Emit(PositionEvent{
		PositionID: positionID,
		Type:       eventType,
		Timestamp:  at,
		Fields:     fields,
	})
}
