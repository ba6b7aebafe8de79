package bot

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngrGocity/MysessionTradeBot/broker/sim"
	"github.com/EngrGocity/MysessionTradeBot/config"
	"github.com/EngrGocity/MysessionTradeBot/journal"
	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/risk"
	"github.com/EngrGocity/MysessionTradeBot/strategy"
)

// memJournal records everything in memory.
type memJournal struct {
	mu     sync.Mutex
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (m *memJournal) RecordTrade(t journal.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *memJournal) RecordEquity(e journal.EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *memJournal) Close() error { return nil }

func (m *memJournal) tradeReasons() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.trades))
	for _, t := range m.trades {
		out = append(out, t.Reason)
	}
	return out
}

// oneShot emits one fixed signal on its first evaluation, then stays
// quiet.
type oneShot struct {
	signal strategy.Signal
	fired  bool
}

func (s *oneShot) Name() string { return "one_shot" }

func (s *oneShot) Evaluate(context.Context, map[string]market.Quote) ([]strategy.Signal, error) {
	if s.fired {
		return nil, nil
	}
	s.fired = true
	return []strategy.Signal{s.signal}, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Symbols = []string{"EURUSD"}
	cfg.Journal = config.JournalConfig{Type: "none"}
	cfg.Rules = []config.RuleConfig{{
		Name:            "global",
		Enabled:         true,
		IntervalMinutes: 15,
		MinProfitPips:   10,
		Fraction:        0.5,
		MaxPerInterval:  3,
	}}
	return cfg
}

func newTestBot(t *testing.T, cfg *config.Config) (*Bot, *sim.Engine, *memJournal) {
	t.Helper()

	engine := sim.NewEngine(10000, zerolog.Nop())
	engine.SetQuote(market.Quote{
		Symbol: "EURUSD",
		Bid:    1.0999,
		Ask:    1.1001,
		Time:   time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC),
	})

	j := &memJournal{}
	b, err := New(cfg, engine, j, zerolog.Nop())
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return b, engine, j
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Account.Balance = -1

	_, err := New(cfg, sim.NewEngine(10000, zerolog.Nop()), nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestSignalOpensTrackedPosition(t *testing.T) {
	t.Parallel()

	b, engine, _ := newTestBot(t, testConfig())
	b.AddStrategy(&oneShot{signal: strategy.Signal{
		Symbol:   "EURUSD",
		Side:     market.Buy,
		Strategy: "one_shot",
	}})

	require.NoError(t, b.TradingCycle(context.Background()))

	positions := b.governor.Positions()
	require.Len(t, positions, 1)
	p := positions[0]

	// 2% of 10000 risked over the default 50 pip stop at $10/pip.
	assert.InDelta(t, 0.4, p.Volume, 1e-9)
	assert.Equal(t, 1.1001, p.OpenPrice) // long fills at ask
	require.NotNil(t, p.StopLoss)
	assert.InDelta(t, 1.1001-0.0050, *p.StopLoss, 1e-9)
	require.NotNil(t, p.TakeProfit)
	assert.InDelta(t, 1.1001+0.0100, *p.TakeProfit, 1e-9)
	assert.Equal(t, "one_shot", p.Strategy)

	// Both books track it.
	_, ok := b.profits.Position(p.Ticket)
	assert.True(t, ok)
	assert.Equal(t, 1, engine.OpenTrades())
}

func TestStopLossClosesAndJournals(t *testing.T) {
	t.Parallel()

	b, engine, j := newTestBot(t, testConfig())
	b.AddStrategy(&oneShot{signal: strategy.Signal{
		Symbol:   "EURUSD",
		Side:     market.Buy,
		Strategy: "one_shot",
	}})

	require.NoError(t, b.TradingCycle(context.Background()))
	require.Len(t, b.governor.Positions(), 1)
	ticket := b.governor.Positions()[0].Ticket

	// Bid falls through the 50 pip stop.
	engine.SetQuote(market.Quote{Symbol: "EURUSD", Bid: 1.0949, Ask: 1.0951})
	require.NoError(t, b.TradingCycle(context.Background()))

	assert.Empty(t, b.governor.Positions())
	assert.Zero(t, engine.OpenTrades())
	_, ok := b.profits.Position(ticket)
	assert.False(t, ok)

	require.Len(t, j.trades, 1)
	rec := j.trades[0]
	assert.Equal(t, "stop_loss", rec.Reason)
	assert.Equal(t, ticket, rec.Ticket)
	assert.InDelta(t, (1.0949-1.1001)*0.4, rec.RealizedPnL, 1e-9)

	// The loss shows up in the daily counters.
	m := b.RiskMetrics(context.Background())
	assert.InDelta(t, (1.0949-1.1001)*0.4, m.DailyPnL, 1e-9)
	assert.Equal(t, 1, m.LosingTrades)
}

func TestTakeProfitCloses(t *testing.T) {
	t.Parallel()

	b, engine, j := newTestBot(t, testConfig())
	b.AddStrategy(&oneShot{signal: strategy.Signal{
		Symbol:   "EURUSD",
		Side:     market.Buy,
		Strategy: "one_shot",
	}})

	require.NoError(t, b.TradingCycle(context.Background()))

	// Bid clears the 100 pip target.
	engine.SetQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1102, Ask: 1.1104})
	require.NoError(t, b.TradingCycle(context.Background()))

	assert.Empty(t, b.governor.Positions())
	require.Len(t, j.trades, 1)
	assert.Equal(t, "take_profit", j.trades[0].Reason)
	assert.Positive(t, j.trades[0].RealizedPnL)
}

func TestProfitRulePartialCloseFlowsThroughBooks(t *testing.T) {
	t.Parallel()

	b, engine, j := newTestBot(t, testConfig())
	b.AddStrategy(&oneShot{signal: strategy.Signal{
		Symbol:   "EURUSD",
		Side:     market.Buy,
		Strategy: "one_shot",
	}})

	require.NoError(t, b.TradingCycle(context.Background()))
	ticket := b.governor.Positions()[0].Ticket

	// 18 pips up: above the 10 pip rule threshold, below stop and target.
	engine.SetQuote(market.Quote{Symbol: "EURUSD", Bid: 1.1019, Ask: 1.1021})
	require.NoError(t, b.TradingCycle(context.Background()))

	// Half of 0.4 closed; both books agree on the remainder.
	p, ok := b.governor.Position(ticket)
	require.True(t, ok)
	assert.InDelta(t, 0.2, p.Volume, 1e-9)

	tracked, ok := b.profits.Position(ticket)
	require.True(t, ok)
	assert.InDelta(t, 0.2, tracked.Volume, 1e-9)

	tr, ok := engine.Trade(ticket)
	require.True(t, ok)
	assert.InDelta(t, 0.2, tr.Volume, 1e-9)

	reasons := j.tradeReasons()
	require.Len(t, reasons, 1)
	assert.True(t, strings.HasPrefix(reasons[0], "profit_rule:"))

	stats := b.RuleStatistics()
	assert.Equal(t, 1, stats["global"].Closes)
}

func TestBreakerClosesEverything(t *testing.T) {
	t.Parallel()

	b, engine, j := newTestBot(t, testConfig())
	b.AddStrategy(&oneShot{signal: strategy.Signal{
		Symbol:   "EURUSD",
		Side:     market.Buy,
		Strategy: "one_shot",
	}})

	require.NoError(t, b.TradingCycle(context.Background()))
	require.Len(t, b.governor.Positions(), 1)

	// A large realized loss today trips the 5% daily breaker.
	b.governor.Track(&risk.Position{Ticket: 999, Symbol: "EURUSD", Side: market.Buy, Volume: 0.1, OpenPrice: 1.1, CurrentPrice: 1.1})
	b.governor.Retire(context.Background(), 999, -600)

	require.NoError(t, b.TradingCycle(context.Background()))

	assert.Empty(t, b.governor.Positions())
	assert.Zero(t, engine.OpenTrades())
	assert.Contains(t, j.tradeReasons(), "risk_breaker")

	alerts := b.RiskAlerts(context.Background())
	assert.Contains(t, alerts, "Daily loss limit reached")
}

func TestEquitySnapshot(t *testing.T) {
	t.Parallel()

	b, _, j := newTestBot(t, testConfig())

	require.NoError(t, b.snapshotEquity(context.Background()))

	require.Len(t, j.equity, 1)
	snap := j.equity[0]
	assert.Equal(t, 10000.0, snap.Balance)
	assert.Zero(t, snap.OpenPositions)
}
