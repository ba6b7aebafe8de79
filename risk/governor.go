// Package risk owns the live position book, gates new exposure, and
// surfaces stop-loss/take-profit/trailing conditions and account-level
// circuit breakers.
package risk

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngrGocity/MysessionTradeBot/broker"
	"github.com/EngrGocity/MysessionTradeBot/market"
)

const (
	// Hard drawdown ceiling that forces a full liquidation.
	hardDrawdownLimit = 0.10
	// Drawdown level that raises an alert.
	drawdownAlertLevel = 0.05
	// Early-warning band: alert once daily loss passes this share of the
	// configured daily limit.
	dailyLossWarnShare = 0.8
)

// DailyState holds the counters that reset at each calendar-day
// rollover. The rollover check runs before every admission decision.
type DailyState struct {
	RealizedPnL       float64
	Trades            int
	ConsecutiveLosses int
	BreakerTripped    bool
	LastReset         time.Time
}

// Metrics is a read-only projection of governor state for reporting.
type Metrics struct {
	OpenPositions        int
	DailyPnL             float64
	DailyTrades          int
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              float64
	TotalUnrealizedPnL   float64
	Balance              float64
	Equity               float64
	PeakEquity           float64
	CurrentDrawdown      float64
	MaxDrawdown          float64
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
	BreakerTripped       bool
}

// Governor owns the authoritative position book and enforces the
// configured risk limits.
type Governor struct {
	mu     sync.Mutex
	limits Limits
	broker broker.Broker

	positions map[int64]*Position
	daily     DailyState

	totalTrades          int
	winningTrades        int
	losingTrades         int
	maxConsecutiveLosses int

	peakEquity      float64
	currentDrawdown float64
	maxDrawdown     float64
	lastBalance     float64

	now func() time.Time
	log zerolog.Logger
}

func NewGovernor(limits Limits, b broker.Broker, log zerolog.Logger) (*Governor, error) {
	if err := limits.Validate(); err != nil {
		return nil, fmt.Errorf("risk limits: %w", err)
	}
	g := &Governor{
		limits:    limits,
		broker:    b,
		positions: make(map[int64]*Position),
		now:       time.Now,
		log:       log.With().Str("component", "risk_governor").Logger(),
	}
	g.daily.LastReset = g.now()
	return g, nil
}

// SetLimits hot-swaps the risk limits after validating them.
func (g *Governor) SetLimits(limits Limits) error {
	if err := limits.Validate(); err != nil {
		return fmt.Errorf("risk limits: %w", err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limits = limits
	g.log.Info().Msg("Risk limits updated")
	return nil
}

func (g *Governor) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// rolloverLocked resets the daily counters and clears the breaker when
// the calendar date has advanced past the last reset.
func (g *Governor) rolloverLocked() {
	now := g.now()
	ly, ld := g.daily.LastReset.Year(), g.daily.LastReset.YearDay()
	ny, nd := now.Year(), now.YearDay()
	if ny > ly || (ny == ly && nd > ld) {
		g.daily = DailyState{LastReset: now}
		g.log.Info().Msg("Daily risk metrics reset")
	}
}

// CanOpen decides whether new exposure is permitted. The returned reason
// is a policy message, not an error.
func (g *Governor) CanOpen(ctx context.Context, symbol string, volume, stopLossPips float64) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()

	if g.daily.BreakerTripped {
		return false, "Daily loss limit reached"
	}

	if len(g.positions) >= g.limits.MaxOpenPositions {
		return false, "Maximum open positions reached"
	}

	balance, err := g.broker.AccountBalance(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("Account balance unavailable")
		return false, "Unable to get account information"
	}
	g.lastBalance = balance

	q, err := g.broker.CurrentPrice(ctx, symbol)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Price unavailable")
		return false, "Unable to get symbol information"
	}

	maxPositionValue := balance * g.limits.MaxPositionFraction
	if volume*q.Ask > maxPositionValue {
		return false, fmt.Sprintf("Position size exceeds maximum (%.2f)", maxPositionValue)
	}

	// Latch the breaker on current realized losses so subsequent calls
	// short-circuit without recomputation.
	if loss := -g.daily.RealizedPnL; loss >= balance*g.limits.MaxDailyLossFraction {
		g.daily.BreakerTripped = true
		return false, "Daily loss limit would be exceeded"
	}

	return true, "Position can be opened"
}

// SizePosition converts a risk amount into a lot size:
// riskAmount / (stopLossPips × pipValue), clamped to the instrument's
// [min,max] lot range and rounded to its lot step. Returns 0 when the
// inputs cannot produce a tradable size; callers must treat 0 as "do not
// trade".
func (g *Governor) SizePosition(symbol string, riskAmount, stopLossPips float64) float64 {
	meta, err := g.broker.SymbolMeta(symbol)
	if err != nil {
		g.log.Warn().Err(err).Str("symbol", symbol).Msg("Symbol metadata unavailable")
		return 0
	}
	if stopLossPips <= 0 || meta.PipValue <= 0 {
		return 0
	}

	size := riskAmount / (stopLossPips * meta.PipValue)
	size = math.Max(meta.MinLot, math.Min(meta.MaxLot, size))
	if meta.LotStep > 0 {
		size = math.Round(size/meta.LotStep) * meta.LotStep
	}
	return size
}

// Track admits a position into the book and counts it against today's
// trade counter.
func (g *Governor) Track(p *Position) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()
	g.positions[p.Ticket] = p
	g.daily.Trades++
	g.totalTrades++

	g.log.Info().
		Int64("ticket", p.Ticket).
		Str("symbol", p.Symbol).
		Str("side", p.Side.String()).
		Float64("volume", p.Volume).
		Msg("Tracking position")
}

// UpdatePrices marks every open position against the latest quotes using
// the close side (bid for longs, ask for shorts) and recomputes
// unrealized P&L. Must run before any stop/take-profit check in the same
// cycle.
func (g *Governor) UpdatePrices(quotes map[string]market.Quote) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, p := range g.positions {
		q, ok := quotes[p.Symbol]
		if !ok {
			continue
		}
		mark := q.Bid
		if p.Side == market.Sell {
			mark = q.Ask
		}
		p.UpdatePrice(mark)
	}
}

// CheckStopLosses returns the tickets whose current price has breached
// their stop, side-aware.
func (g *Governor) CheckStopLosses() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tickets []int64
	for _, p := range g.positions {
		if p.hitStopLoss() {
			tickets = append(tickets, p.Ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })
	return tickets
}

// CheckTakeProfits returns the tickets whose current price has reached
// their take-profit, side-aware.
func (g *Governor) CheckTakeProfits() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	var tickets []int64
	for _, p := range g.positions {
		if p.hitTakeProfit() {
			tickets = append(tickets, p.Ticket)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })
	return tickets
}

// ApplyTrailingStop tightens stops toward the current price and returns
// the tickets whose stop moved. A trailing stop is monotonic: it only
// ever reduces risk, never loosens.
func (g *Governor) ApplyTrailingStop() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.limits.TrailingStop {
		return nil
	}

	var tickets []int64
	for _, p := range g.positions {
		if p.StopLoss == nil {
			continue
		}
		meta, err := g.broker.SymbolMeta(p.Symbol)
		if err != nil {
			continue
		}
		dist := market.PriceOffset(meta, g.limits.TrailingStopPips)

		if p.Side == market.Buy {
			newSL := p.CurrentPrice - dist
			if newSL > *p.StopLoss {
				p.StopLoss = &newSL
				tickets = append(tickets, p.Ticket)
			}
		} else {
			newSL := p.CurrentPrice + dist
			if newSL < *p.StopLoss {
				p.StopLoss = &newSL
				tickets = append(tickets, p.Ticket)
			}
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i] < tickets[j] })
	return tickets
}

// Retire removes a fully closed position from the book and folds its
// realized P&L into the daily state and streak counters.
func (g *Governor) Retire(ctx context.Context, ticket int64, realizedPnL float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.positions[ticket]
	if !ok {
		return
	}
	p.RealizedPnL = realizedPnL
	delete(g.positions, ticket)

	g.rolloverLocked()
	g.daily.RealizedPnL += realizedPnL

	switch {
	case realizedPnL > 0:
		g.winningTrades++
		g.daily.ConsecutiveLosses = 0
	case realizedPnL < 0:
		g.losingTrades++
		g.daily.ConsecutiveLosses++
		if g.daily.ConsecutiveLosses > g.maxConsecutiveLosses {
			g.maxConsecutiveLosses = g.daily.ConsecutiveLosses
		}
	}

	if balance, err := g.broker.AccountBalance(ctx); err == nil {
		g.lastBalance = balance
		g.refreshDrawdownLocked(balance)
	}

	g.log.Info().
		Int64("ticket", ticket).
		Float64("realized_pnl", realizedPnL).
		Msg("Retired position")
}

// ReduceVolume propagates a partial close back into the book. When the
// remaining volume falls below the instrument minimum the position is
// treated as fully closed. A negative remainder is a structural
// inconsistency: the position is force-removed rather than acted on
// again.
func (g *Governor) ReduceVolume(ticket int64, closedVolume, realizedPnL float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.positions[ticket]
	if !ok {
		return
	}

	p.Volume -= closedVolume
	g.rolloverLocked()
	g.daily.RealizedPnL += realizedPnL

	if p.Volume < 0 {
		delete(g.positions, ticket)
		g.log.Error().
			Int64("ticket", ticket).
			Float64("volume", p.Volume).
			Msg("Negative volume after partial close; force-removing position")
		return
	}

	minLot := 0.01
	if meta, err := g.broker.SymbolMeta(p.Symbol); err == nil {
		minLot = meta.MinLot
	}
	if p.Volume < minLot {
		delete(g.positions, ticket)
		g.log.Info().Int64("ticket", ticket).Msg("Position fully closed by partial closes")
		return
	}

	p.UpdatePrice(p.CurrentPrice)
}

// Position returns a copy of one tracked position.
func (g *Governor) Position(ticket int64) (Position, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.positions[ticket]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// Positions returns a copy of the open book ordered by ticket.
func (g *Governor) Positions() []Position {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Position, 0, len(g.positions))
	for _, p := range g.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticket < out[j].Ticket })
	return out
}

// ShouldCloseEverything reports whether the account has breached a
// global breaker: today's loss at or past the configured daily limit, or
// drawdown at or past the hard ceiling.
func (g *Governor) ShouldCloseEverything(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.rolloverLocked()

	balance, err := g.broker.AccountBalance(ctx)
	if err != nil {
		return false
	}
	g.lastBalance = balance

	// Latch the breaker here too: a forced liquidation must stay visible
	// in alerts until the next day rollover even if no admission check
	// ever ran.
	if loss := -g.daily.RealizedPnL; loss >= balance*g.limits.MaxDailyLossFraction {
		g.daily.BreakerTripped = true
		return true
	}

	g.refreshDrawdownLocked(balance)
	return g.currentDrawdown >= hardDrawdownLimit
}

// Alerts returns human-readable warnings about the current risk state.
// A tripped breaker stays visible here until the next day rollover.
func (g *Governor) Alerts(ctx context.Context) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var alerts []string
	if g.daily.BreakerTripped {
		alerts = append(alerts, "Daily loss limit reached")
	}
	if len(g.positions) >= g.limits.MaxOpenPositions {
		alerts = append(alerts, "Maximum open positions reached")
	}
	if g.currentDrawdown >= drawdownAlertLevel {
		alerts = append(alerts, fmt.Sprintf("High drawdown: %.2f%%", g.currentDrawdown*100))
	}
	if balance, err := g.broker.AccountBalance(ctx); err == nil {
		if loss := -g.daily.RealizedPnL; loss >= balance*g.limits.MaxDailyLossFraction*dailyLossWarnShare {
			alerts = append(alerts, "Approaching daily loss limit")
		}
	}
	return alerts
}

// Metrics returns the current risk metrics snapshot.
func (g *Governor) Metrics(ctx context.Context) Metrics {
	g.mu.Lock()
	defer g.mu.Unlock()

	// A failed balance fetch is transient: report the last known balance
	// and leave the drawdown figures alone rather than marking equity to
	// zero.
	balance, err := g.broker.AccountBalance(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("Account balance unavailable; keeping last known balance")
		balance = g.lastBalance
	} else {
		g.lastBalance = balance
		g.refreshDrawdownLocked(balance)
	}

	var winRate float64
	if g.totalTrades > 0 {
		winRate = float64(g.winningTrades) / float64(g.totalTrades)
	}

	return Metrics{
		OpenPositions:        len(g.positions),
		DailyPnL:             g.daily.RealizedPnL,
		DailyTrades:          g.daily.Trades,
		TotalTrades:          g.totalTrades,
		WinningTrades:        g.winningTrades,
		LosingTrades:         g.losingTrades,
		WinRate:              winRate,
		TotalUnrealizedPnL:   g.totalUnrealizedLocked(),
		Balance:              balance,
		Equity:               balance + g.daily.RealizedPnL + g.totalUnrealizedLocked(),
		PeakEquity:           g.peakEquity,
		CurrentDrawdown:      g.currentDrawdown,
		MaxDrawdown:          g.maxDrawdown,
		ConsecutiveLosses:    g.daily.ConsecutiveLosses,
		MaxConsecutiveLosses: g.maxConsecutiveLosses,
		BreakerTripped:       g.daily.BreakerTripped,
	}
}

func (g *Governor) totalUnrealizedLocked() float64 {
	var total float64
	for _, p := range g.positions {
		total += p.UnrealizedPnL
	}
	return total
}

// refreshDrawdownLocked tracks the running equity peak and the fractional
// decline from it: equity = balance + daily P&L + total unrealized.
func (g *Governor) refreshDrawdownLocked(balance float64) {
	equity := balance + g.daily.RealizedPnL + g.totalUnrealizedLocked()
	if equity > g.peakEquity {
		g.peakEquity = equity
	}
	if g.peakEquity > 0 {
		g.currentDrawdown = (g.peakEquity - equity) / g.peakEquity
	} else {
		g.currentDrawdown = 0
	}
	if g.currentDrawdown > g.maxDrawdown {
		g.maxDrawdown = g.currentDrawdown
	}
}
