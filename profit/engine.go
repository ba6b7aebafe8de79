// Package profit runs time-triggered partial profit-taking rules against
// the live position book, filtered by session and symbol.
package profit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngrGocity/MysessionTradeBot/broker"
	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/session"
)

// ActivePosition is the engine's reduced projection of a tracked
// position. The risk governor stays the source of truth for volume and
// price; the engine only shrinks volume when it executes a partial close
// and reports that back through the listener.
type ActivePosition struct {
	Ticket    int64
	Symbol    string
	Side      market.Side
	Volume    float64
	OpenPrice float64
	OpenTime  time.Time

	Profit     float64
	ProfitPips float64

	Session  session.Kind
	Strategy string
}

// RuleStats accumulates per-rule counters for reporting.
type RuleStats struct {
	Candidates     int
	Closes         int
	RealizedProfit float64
}

// PartialCloseListener is notified after the engine executes a partial
// close, outside the engine lock, so the authoritative book can shrink
// the position too.
type PartialCloseListener interface {
	OnPartialClose(ticket int64, closedVolume, realizedProfit float64, rule string)
}

// Status is a read-only snapshot for the reporting surface.
type Status struct {
	Rules             []RuleStatus
	ActivePositions   int
	TotalProfit       float64
	PositionsByProfit []PositionStatus
}

type RuleStatus struct {
	Name          string
	Enabled       bool
	Interval      time.Duration
	MinProfitPips float64
	Fraction      float64
	LastFired     *time.Time
}

type PositionStatus struct {
	Ticket     int64
	Symbol     string
	ProfitPips float64
	Profit     float64
	Session    session.Kind
}

// Engine evaluates the configured rules once per tick and requests
// partial closes through the broker collaborator.
type Engine struct {
	mu        sync.Mutex
	broker    broker.Broker
	rules     []*Rule
	positions map[int64]*ActivePosition
	stats     map[string]*RuleStats
	listener  PartialCloseListener
	log       zerolog.Logger
}

func NewEngine(b broker.Broker, log zerolog.Logger) *Engine {
	return &Engine{
		broker:    b,
		positions: make(map[int64]*ActivePosition),
		stats:     make(map[string]*RuleStats),
		log:       log.With().Str("component", "profit_engine").Logger(),
	}
}

// SetListener registers the partial-close listener. The listener runs
// after the engine lock is released.
func (e *Engine) SetListener(l PartialCloseListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// AddRule validates and inserts a rule. Rule names are unique.
func (e *Engine) AddRule(r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, existing := range e.rules {
		if existing.Name == r.Name {
			return &ValidationError{Rule: r.Name, Reason: "rule already exists"}
		}
	}
	rule := r
	e.rules = append(e.rules, &rule)
	e.stats[r.Name] = &RuleStats{}
	e.log.Info().Str("rule", r.Name).Msg("Added profit taking rule")
	return nil
}

// RemoveRule deletes a rule by name. Removing an unknown rule is a no-op.
func (e *Engine) RemoveRule(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, r := range e.rules {
		if r.Name == name {
			e.rules = append(e.rules[:i], e.rules[i+1:]...)
			e.log.Info().Str("rule", name).Msg("Removed profit taking rule")
			return
		}
	}
}

func (e *Engine) EnableRule(name string) { e.setEnabled(name, true) }

func (e *Engine) DisableRule(name string) { e.setEnabled(name, false) }

func (e *Engine) setEnabled(name string, enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.rules {
		if r.Name == name {
			r.Enabled = enabled
			e.log.Info().Str("rule", name).Bool("enabled", enabled).Msg("Toggled profit taking rule")
			return
		}
	}
}

// TrackPosition adds a position to the engine's working set.
func (e *Engine) TrackPosition(p ActivePosition) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos := p
	e.positions[p.Ticket] = &pos
	e.log.Debug().Int64("ticket", p.Ticket).Str("symbol", p.Symbol).Msg("Tracking position")
}

// UntrackPosition drops a position from the working set.
func (e *Engine) UntrackPosition(ticket int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.positions[ticket]; ok {
		delete(e.positions, ticket)
		e.log.Debug().Int64("ticket", ticket).Msg("Untracked position")
	}
}

// UpdateProfit refreshes one position's profit fields. Must run once per
// tick before Evaluate.
func (e *Engine) UpdateProfit(ticket int64, currentPrice, profitPips float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.positions[ticket]
	if !ok {
		return
	}
	if p.Side == market.Buy {
		p.Profit = (currentPrice - p.OpenPrice) * p.Volume
	} else {
		p.Profit = (p.OpenPrice - currentPrice) * p.Volume
	}
	p.ProfitPips = profitPips
}

// partialClose is one executed close, reported to the listener after the
// lock is released.
type partialClose struct {
	ticket int64
	volume float64
	profit float64
	rule   string
}

// Evaluate runs every eligible rule against the current working set and
// returns the tickets it partially closed. For each rule: candidates are
// profitable positions passing the filters, ordered by profit pips
// descending with ticket ascending as tie-break; closes stop at the
// per-interval cap; only a tick with at least one successful close
// consumes the rule's interval.
func (e *Engine) Evaluate(ctx context.Context, now time.Time) []int64 {
	e.mu.Lock()

	var closedTickets []int64
	var closes []partialClose

	for _, rule := range e.rules {
		if !rule.Enabled || !rule.eligible(now) {
			continue
		}

		candidates := e.candidatesLocked(*rule)
		if len(candidates) == 0 {
			continue
		}
		e.stats[rule.Name].Candidates += len(candidates)

		closed := 0
		for _, p := range candidates {
			if closed >= rule.MaxPerInterval {
				break
			}
			if p.ProfitPips < rule.MinProfitPips {
				continue
			}

			closeVolume := p.Volume * rule.Fraction

			q, err := e.broker.CurrentPrice(ctx, p.Symbol)
			if err != nil {
				// Failed candidates are skipped for this tick and do not
				// consume the cap.
				e.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("Cannot get current price")
				continue
			}
			if err := e.broker.PartialClose(ctx, p.Ticket, closeVolume); err != nil {
				e.log.Error().Err(err).Int64("ticket", p.Ticket).Msg("Partial close failed")
				continue
			}

			p.Volume -= closeVolume
			var realized float64
			if p.Side == market.Buy {
				realized = (q.Mid() - p.OpenPrice) * closeVolume
			} else {
				realized = (p.OpenPrice - q.Mid()) * closeVolume
			}

			st := e.stats[rule.Name]
			st.Closes++
			st.RealizedProfit += realized

			closedTickets = append(closedTickets, p.Ticket)
			closes = append(closes, partialClose{ticket: p.Ticket, volume: closeVolume, profit: realized, rule: rule.Name})
			closed++

			e.log.Info().
				Str("rule", rule.Name).
				Int64("ticket", p.Ticket).
				Float64("closed_volume", closeVolume).
				Float64("realized", realized).
				Msg("Profit taking executed")

			if e.belowMinimumLocked(p) {
				delete(e.positions, p.Ticket)
				e.log.Info().Int64("ticket", p.Ticket).Msg("Position fully closed by profit taking")
			}
		}

		if closed > 0 {
			fired := now
			rule.LastFired = &fired
		}
	}

	listener := e.listener
	e.mu.Unlock()

	if listener != nil {
		for _, c := range closes {
			listener.OnPartialClose(c.ticket, c.volume, c.profit, c.rule)
		}
	}
	return closedTickets
}

// candidatesLocked builds the deterministic candidate list for one rule:
// profitable, filter-matching positions sorted by profit pips descending,
// ties broken by ticket ascending.
func (e *Engine) candidatesLocked(rule Rule) []*ActivePosition {
	var candidates []*ActivePosition
	for _, p := range e.positions {
		if p.ProfitPips <= 0 {
			continue
		}
		if !rule.matches(p) {
			continue
		}
		candidates = append(candidates, p)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].ProfitPips != candidates[j].ProfitPips {
			return candidates[i].ProfitPips > candidates[j].ProfitPips
		}
		return candidates[i].Ticket < candidates[j].Ticket
	})
	return candidates
}

func (e *Engine) belowMinimumLocked(p *ActivePosition) bool {
	if p.Volume < 0 {
		// Structurally inconsistent; acting on it again would compound
		// the error.
		e.log.Error().Int64("ticket", p.Ticket).Float64("volume", p.Volume).Msg("Negative volume after partial close")
		return true
	}
	minLot := 0.01
	if meta, err := e.broker.SymbolMeta(p.Symbol); err == nil {
		minLot = meta.MinLot
	}
	return p.Volume < minLot
}

// Rules returns a copy of the rule list in insertion order.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Rule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, *r)
	}
	return out
}

// Position returns a copy of one tracked position.
func (e *Engine) Position(ticket int64) (ActivePosition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.positions[ticket]
	if !ok {
		return ActivePosition{}, false
	}
	return *p, true
}

// RuleStatistics returns a copy of the per-rule counters.
func (e *Engine) RuleStatistics() map[string]RuleStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]RuleStats, len(e.stats))
	for name, st := range e.stats {
		out[name] = *st
	}
	return out
}

// Status returns the reporting snapshot: rule states plus tracked
// positions ordered by profit descending.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := Status{ActivePositions: len(e.positions)}
	for _, r := range e.rules {
		st.Rules = append(st.Rules, RuleStatus{
			Name:          r.Name,
			Enabled:       r.Enabled,
			Interval:      r.Interval,
			MinProfitPips: r.MinProfitPips,
			Fraction:      r.Fraction,
			LastFired:     r.LastFired,
		})
	}
	for _, p := range e.positions {
		st.TotalProfit += p.Profit
		st.PositionsByProfit = append(st.PositionsByProfit, PositionStatus{
			Ticket:     p.Ticket,
			Symbol:     p.Symbol,
			ProfitPips: p.ProfitPips,
			Profit:     p.Profit,
			Session:    p.Session,
		})
	}
	sort.Slice(st.PositionsByProfit, func(i, j int) bool {
		if st.PositionsByProfit[i].ProfitPips != st.PositionsByProfit[j].ProfitPips {
			return st.PositionsByProfit[i].ProfitPips > st.PositionsByProfit[j].ProfitPips
		}
		return st.PositionsByProfit[i].Ticket < st.PositionsByProfit[j].Ticket
	})
	return st
}
