// Package bot wires the session clock, risk governor, profit-taking
// engine, strategies and journal into one trading loop.
package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngrGocity/MysessionTradeBot/broker"
	"github.com/EngrGocity/MysessionTradeBot/config"
	"github.com/EngrGocity/MysessionTradeBot/journal"
	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/pkg/id"
	"github.com/EngrGocity/MysessionTradeBot/profit"
	"github.com/EngrGocity/MysessionTradeBot/risk"
	"github.com/EngrGocity/MysessionTradeBot/session"
	"github.com/EngrGocity/MysessionTradeBot/strategy"
)

// resettable is implemented by strategies that re-anchor on session
// starts.
type resettable interface {
	Reset()
}

// Bot runs the trading loop: mark the book, enforce stops and breakers,
// admit new signals, then let the profit-taking engine work the winners.
type Bot struct {
	cfg        *config.Config
	broker     broker.Broker
	clock      *session.Clock
	governor   *risk.Governor
	profits    *profit.Engine
	journal    journal.Journal
	strategies []strategy.Strategy
	sched      *Scheduler
	log        zerolog.Logger

	now func() time.Time
}

func New(cfg *config.Config, b broker.Broker, j journal.Journal, log zerolog.Logger) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if j == nil {
		j = journal.Nop{}
	}

	clock := session.NewClock(log)
	for _, sc := range cfg.Sessions {
		if err := clock.AddSession(sc); err != nil {
			return nil, err
		}
	}

	governor, err := risk.NewGovernor(cfg.Risk, b, log)
	if err != nil {
		return nil, err
	}

	profits := profit.NewEngine(b, log)
	for _, rc := range cfg.Rules {
		if err := profits.AddRule(rc.ToRule()); err != nil {
			return nil, err
		}
	}

	bot := &Bot{
		cfg:      cfg,
		broker:   b,
		clock:    clock,
		governor: governor,
		profits:  profits,
		journal:  j,
		sched:    NewScheduler(log),
		log:      log.With().Str("component", "bot").Logger(),
		now:      time.Now,
	}
	profits.SetListener(bot)

	for _, sc := range cfg.Sessions {
		kind := sc.Kind
		clock.OnTransition(kind, bot.onSessionTransition)
	}

	return bot, nil
}

// AddStrategy registers a signal source. Must be called before Run.
func (b *Bot) AddStrategy(s strategy.Strategy) {
	b.strategies = append(b.strategies, s)
	b.log.Info().Str("strategy", s.Name()).Msg("Strategy added")
}

// Run starts the session clock and the periodic jobs and blocks until
// the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.sched.AddJob("@every 60s", jobFunc{name: "trading_cycle", fn: func() error {
		return b.TradingCycle(ctx)
	}}); err != nil {
		return err
	}
	if err := b.sched.AddJob("@every 5m", jobFunc{name: "equity_snapshot", fn: func() error {
		return b.snapshotEquity(ctx)
	}}); err != nil {
		return err
	}

	go b.clock.Run(ctx)
	b.sched.Start()
	b.log.Info().Msg("Bot started")

	// Prime the loop so the first cycle does not wait a full minute.
	_ = b.sched.RunNow(jobFunc{name: "trading_cycle", fn: func() error {
		return b.TradingCycle(ctx)
	}})

	<-ctx.Done()
	b.sched.Stop()
	b.log.Info().Msg("Bot stopped")
	return nil
}

func (b *Bot) onSessionTransition(ev session.Event) {
	b.log.Info().
		Str("session", string(ev.Kind)).
		Str("edge", ev.Edge.String()).
		Time("at", ev.Time).
		Msg("Session transition")

	if ev.Edge == session.End {
		if err := b.snapshotEquity(context.Background()); err != nil {
			b.log.Error().Err(err).Msg("Journal write failed")
		}
		return
	}
	for _, s := range b.strategies {
		if r, ok := s.(resettable); ok {
			r.Reset()
		}
	}
}

// TradingCycle is one pass of the loop: quotes, risk checks, admission,
// profit taking. Order matters: the book is marked before any stop or
// take-profit decision, and breakers run before new exposure.
func (b *Bot) TradingCycle(ctx context.Context) error {
	quotes := b.gatherQuotes(ctx)
	if len(quotes) == 0 {
		return fmt.Errorf("no quotes available")
	}

	b.governor.UpdatePrices(quotes)

	for _, ticket := range b.governor.CheckStopLosses() {
		b.closePosition(ctx, ticket, "stop_loss")
	}
	for _, ticket := range b.governor.CheckTakeProfits() {
		b.closePosition(ctx, ticket, "take_profit")
	}

	if b.governor.Limits().TrailingStop {
		for _, ticket := range b.governor.ApplyTrailingStop() {
			p, ok := b.governor.Position(ticket)
			if !ok || p.StopLoss == nil {
				continue
			}
			if err := b.broker.ModifyStopLoss(ctx, ticket, *p.StopLoss); err != nil {
				b.log.Error().Err(err).Int64("ticket", ticket).Msg("Cannot move stop loss")
			}
		}
	}

	if b.governor.ShouldCloseEverything(ctx) {
		b.log.Warn().Msg("Risk breaker tripped, closing all positions")
		b.closeAll(ctx, "risk_breaker")
		return nil
	}

	for _, s := range b.strategies {
		signals, err := s.Evaluate(ctx, quotes)
		if err != nil {
			b.log.Error().Err(err).Str("strategy", s.Name()).Msg("Strategy evaluation failed")
			continue
		}
		for _, sig := range signals {
			b.handleSignal(ctx, sig)
		}
	}

	for _, p := range b.governor.Positions() {
		meta, err := market.Lookup(p.Symbol)
		if err != nil {
			continue
		}
		pips := market.ProfitPips(meta, p.Side, p.OpenPrice, p.CurrentPrice)
		b.profits.UpdateProfit(p.Ticket, p.CurrentPrice, pips)
	}
	b.profits.Evaluate(ctx, b.now())

	return nil
}

func (b *Bot) gatherQuotes(ctx context.Context) map[string]market.Quote {
	quotes := make(map[string]market.Quote, len(b.cfg.Symbols))
	for _, symbol := range b.cfg.Symbols {
		q, err := b.broker.CurrentPrice(ctx, symbol)
		if err != nil {
			b.log.Warn().Err(err).Str("symbol", symbol).Msg("Cannot get current price")
			continue
		}
		quotes[symbol] = q
	}
	return quotes
}

// handleSignal runs a signal through admission: size it, ask the
// governor, place the order, then track it in both books.
func (b *Bot) handleSignal(ctx context.Context, sig strategy.Signal) {
	balance, err := b.broker.AccountBalance(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Cannot get account balance")
		return
	}
	meta, err := market.Lookup(sig.Symbol)
	if err != nil {
		b.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("Unknown symbol in signal")
		return
	}

	limits := b.governor.Limits()
	stopPips := sig.StopLossPips
	if stopPips <= 0 {
		stopPips = limits.StopLossPips
	}
	takePips := sig.TakeProfitPips
	if takePips <= 0 {
		takePips = limits.TakeProfitPips
	}

	volume := b.governor.SizePosition(sig.Symbol, balance*limits.MaxPositionFraction, stopPips)
	if volume <= 0 {
		b.log.Warn().Str("symbol", sig.Symbol).Msg("Signal sized to zero, skipping")
		return
	}

	ok, reason := b.governor.CanOpen(ctx, sig.Symbol, volume, stopPips)
	if !ok {
		b.log.Warn().
			Str("symbol", sig.Symbol).
			Str("reason", reason).
			Msg("Signal rejected")
		return
	}

	q, err := b.broker.CurrentPrice(ctx, sig.Symbol)
	if err != nil {
		b.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("Cannot get current price")
		return
	}

	entry := q.Ask
	if sig.Side == market.Sell {
		entry = q.Bid
	}
	stopLoss := entry - sig.Side.Sign()*market.PriceOffset(meta, stopPips)
	takeProfit := entry + sig.Side.Sign()*market.PriceOffset(meta, takePips)

	fill, err := b.broker.PlaceOrder(ctx, broker.OrderRequest{
		Symbol:     sig.Symbol,
		Side:       sig.Side,
		Volume:     volume,
		StopLoss:   &stopLoss,
		TakeProfit: &takeProfit,
	})
	if err != nil {
		b.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("Order failed")
		return
	}

	kind, _ := b.clock.CurrentSession()

	b.governor.Track(&risk.Position{
		Ticket:       fill.Ticket,
		Symbol:       fill.Symbol,
		Side:         fill.Side,
		Volume:       fill.Volume,
		OpenPrice:    fill.Price,
		CurrentPrice: fill.Price,
		StopLoss:     &stopLoss,
		TakeProfit:   &takeProfit,
		OpenTime:     fill.Time,
		Session:      kind,
		Strategy:     sig.Strategy,
	})
	b.profits.TrackPosition(profit.ActivePosition{
		Ticket:    fill.Ticket,
		Symbol:    fill.Symbol,
		Side:      fill.Side,
		Volume:    fill.Volume,
		OpenPrice: fill.Price,
		OpenTime:  fill.Time,
		Session:   kind,
		Strategy:  sig.Strategy,
	})

	b.log.Info().
		Int64("ticket", fill.Ticket).
		Str("symbol", fill.Symbol).
		Str("side", fill.Side.String()).
		Float64("volume", fill.Volume).
		Str("session", string(kind)).
		Msg("Position opened")
}

// closePosition closes the full position at the broker and retires it
// from both books, journaling the realized trade.
func (b *Bot) closePosition(ctx context.Context, ticket int64, reason string) {
	p, ok := b.governor.Position(ticket)
	if !ok {
		return
	}

	if err := b.broker.Close(ctx, ticket); err != nil {
		b.log.Error().Err(err).Int64("ticket", ticket).Str("reason", reason).Msg("Close failed")
		return
	}

	realized := p.Side.Sign() * (p.CurrentPrice - p.OpenPrice) * p.Volume
	b.governor.Retire(ctx, ticket, realized)
	b.profits.UntrackPosition(ticket)

	if err := b.journal.RecordTrade(journal.TradeRecord{
		ID:          id.New(),
		Ticket:      p.Ticket,
		Symbol:      p.Symbol,
		Side:        p.Side,
		Volume:      p.Volume,
		EntryPrice:  p.OpenPrice,
		ExitPrice:   p.CurrentPrice,
		OpenTime:    p.OpenTime,
		CloseTime:   b.now(),
		RealizedPnL: realized,
		Session:     p.Session,
		Strategy:    p.Strategy,
		Reason:      reason,
	}); err != nil {
		b.log.Error().Err(err).Int64("ticket", ticket).Msg("Journal write failed")
	}

	b.log.Info().
		Int64("ticket", ticket).
		Str("reason", reason).
		Float64("realized", realized).
		Msg("Position closed")
}

func (b *Bot) closeAll(ctx context.Context, reason string) {
	for _, p := range b.governor.Positions() {
		b.closePosition(ctx, p.Ticket, reason)
	}
}

// OnPartialClose propagates a profit-taking close back into the risk
// book and journals the realized slice. Called by the profit engine
// after its own lock is released.
func (b *Bot) OnPartialClose(ticket int64, closedVolume, realizedProfit float64, rule string) {
	p, ok := b.governor.Position(ticket)
	if !ok {
		return
	}

	b.governor.ReduceVolume(ticket, closedVolume, realizedProfit)

	exit := p.OpenPrice + p.Side.Sign()*realizedProfit/closedVolume
	if err := b.journal.RecordTrade(journal.TradeRecord{
		ID:          id.New(),
		Ticket:      ticket,
		Symbol:      p.Symbol,
		Side:        p.Side,
		Volume:      closedVolume,
		EntryPrice:  p.OpenPrice,
		ExitPrice:   exit,
		OpenTime:    p.OpenTime,
		CloseTime:   b.now(),
		RealizedPnL: realizedProfit,
		Session:     p.Session,
		Strategy:    p.Strategy,
		Reason:      "profit_rule:" + rule,
	}); err != nil {
		b.log.Error().Err(err).Int64("ticket", ticket).Msg("Journal write failed")
	}
}

func (b *Bot) snapshotEquity(ctx context.Context) error {
	m := b.governor.Metrics(ctx)
	return b.journal.RecordEquity(journal.EquitySnapshot{
		Time:          b.now(),
		Balance:       m.Balance,
		Equity:        m.Equity,
		DailyPnL:      m.DailyPnL,
		OpenPositions: m.OpenPositions,
		Drawdown:      m.CurrentDrawdown,
	})
}

// RiskMetrics returns the governor's reporting snapshot.
func (b *Bot) RiskMetrics(ctx context.Context) risk.Metrics {
	return b.governor.Metrics(ctx)
}

// RiskAlerts returns the current risk warnings.
func (b *Bot) RiskAlerts(ctx context.Context) []string {
	return b.governor.Alerts(ctx)
}

// ProfitStatus returns the profit-taking engine's reporting snapshot.
func (b *Bot) ProfitStatus() profit.Status {
	return b.profits.Status()
}

// RuleStatistics returns the per-rule profit-taking counters.
func (b *Bot) RuleStatistics() map[string]profit.RuleStats {
	return b.profits.RuleStatistics()
}

// Sessions exposes the session clock for reporting.
func (b *Bot) Sessions() *session.Clock {
	return b.clock
}
