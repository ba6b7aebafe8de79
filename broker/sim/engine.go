// Package sim is an in-memory broker for tests and dry runs. Fills are
// immediate at the stored quote, with no slippage model.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/EngrGocity/MysessionTradeBot/broker"
	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/pkg/id"
)

var (
	ErrTradeNotFound      = errors.New("trade not found")
	ErrTradeAlreadyClosed = errors.New("trade already closed")
	ErrNoPrice            = errors.New("no price for symbol")
)

// Trade is one sim position. Volume shrinks under partial closes; the
// trade flips to closed when volume falls below the symbol's minimum.
type Trade struct {
	ID         string
	Ticket     int64
	Symbol     string
	Side       market.Side
	Volume     float64
	EntryPrice float64
	StopLoss   *float64
	TakeProfit *float64
	OpenTime   time.Time
	Open       bool
}

type Engine struct {
	mu         sync.Mutex
	balance    float64
	quotes     *market.QuoteStore
	trades     map[int64]*Trade
	nextTicket int64
	log        zerolog.Logger
}

func NewEngine(balance float64, log zerolog.Logger) *Engine {
	return &Engine{
		balance: balance,
		quotes:  market.NewQuoteStore(),
		trades:  make(map[int64]*Trade),
		log:     log.With().Str("component", "sim").Logger(),
	}
}

// SetQuote stores the latest quote for a symbol.
func (e *Engine) SetQuote(q market.Quote) {
	e.quotes.Set(q)
}

func (e *Engine) CurrentPrice(_ context.Context, symbol string) (market.Quote, error) {
	q, err := e.quotes.Get(symbol)
	if err != nil {
		return market.Quote{}, fmt.Errorf("%w: %s", ErrNoPrice, symbol)
	}
	return q, nil
}

func (e *Engine) AccountBalance(context.Context) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance, nil
}

func (e *Engine) SymbolMeta(symbol string) (market.SymbolMeta, error) {
	return market.Lookup(symbol)
}

// PlaceOrder fills immediately: longs at ask, shorts at bid.
func (e *Engine) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.Fill, error) {
	q, err := e.quotes.Get(req.Symbol)
	if err != nil {
		return broker.Fill{}, fmt.Errorf("%w: %s", ErrNoPrice, req.Symbol)
	}
	meta, err := market.Lookup(req.Symbol)
	if err != nil {
		return broker.Fill{}, err
	}
	if req.Volume < meta.MinLot || req.Volume > meta.MaxLot {
		return broker.Fill{}, fmt.Errorf("volume %v outside [%v, %v] for %s", req.Volume, meta.MinLot, meta.MaxLot, req.Symbol)
	}

	fillPrice := q.Ask
	if req.Side == market.Sell {
		fillPrice = q.Bid
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextTicket++
	t := &Trade{
		ID:         id.New(),
		Ticket:     e.nextTicket,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		EntryPrice: fillPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		OpenTime:   q.Time,
		Open:       true,
	}
	e.trades[t.Ticket] = t

	e.log.Info().
		Int64("ticket", t.Ticket).
		Str("symbol", t.Symbol).
		Str("side", t.Side.String()).
		Float64("volume", t.Volume).
		Float64("price", fillPrice).
		Msg("Order filled")

	return broker.Fill{
		Ticket: t.Ticket,
		Symbol: t.Symbol,
		Side:   t.Side,
		Volume: t.Volume,
		Price:  fillPrice,
		Time:   q.Time,
	}, nil
}

// PartialClose realizes P&L on part of a trade: longs close on bid,
// shorts on ask. Closing below the symbol minimum closes the rest.
func (e *Engine) PartialClose(_ context.Context, ticket int64, volume float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[ticket]
	if !ok {
		return fmt.Errorf("partial close: %w: %d", ErrTradeNotFound, ticket)
	}
	if !t.Open {
		return fmt.Errorf("partial close: %w: %d", ErrTradeAlreadyClosed, ticket)
	}
	if volume <= 0 || volume > t.Volume {
		return fmt.Errorf("partial close: volume %v outside (0, %v] for ticket %d", volume, t.Volume, ticket)
	}

	closePrice, err := e.closePriceLocked(t)
	if err != nil {
		return fmt.Errorf("partial close: %w", err)
	}

	realized := t.Side.Sign() * (closePrice - t.EntryPrice) * volume
	e.balance += realized
	t.Volume -= volume

	meta, _ := market.Lookup(t.Symbol)
	if t.Volume < meta.MinLot {
		t.Open = false
		t.Volume = 0
	}

	e.log.Info().
		Int64("ticket", ticket).
		Float64("closed_volume", volume).
		Float64("realized", realized).
		Bool("still_open", t.Open).
		Msg("Partial close")
	return nil
}

// Close closes the full remaining volume of a trade.
func (e *Engine) Close(_ context.Context, ticket int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[ticket]
	if !ok {
		return fmt.Errorf("close: %w: %d", ErrTradeNotFound, ticket)
	}
	if !t.Open {
		return fmt.Errorf("close: %w: %d", ErrTradeAlreadyClosed, ticket)
	}

	closePrice, err := e.closePriceLocked(t)
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}

	realized := t.Side.Sign() * (closePrice - t.EntryPrice) * t.Volume
	e.balance += realized
	t.Volume = 0
	t.Open = false

	e.log.Info().
		Int64("ticket", ticket).
		Float64("realized", realized).
		Msg("Trade closed")
	return nil
}

func (e *Engine) ModifyStopLoss(_ context.Context, ticket int64, newSL float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[ticket]
	if !ok {
		return fmt.Errorf("modify stop: %w: %d", ErrTradeNotFound, ticket)
	}
	if !t.Open {
		return fmt.Errorf("modify stop: %w: %d", ErrTradeAlreadyClosed, ticket)
	}
	t.StopLoss = &newSL
	return nil
}

func (e *Engine) closePriceLocked(t *Trade) (float64, error) {
	q, err := e.quotes.Get(t.Symbol)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNoPrice, t.Symbol)
	}
	if t.Side == market.Buy {
		return q.Bid, nil
	}
	return q.Ask, nil
}

// Trade returns a snapshot of one trade.
func (e *Engine) Trade(ticket int64) (Trade, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.trades[ticket]
	if !ok {
		return Trade{}, false
	}
	return *t, true
}

// OpenTrades returns the number of trades still open.
func (e *Engine) OpenTrades() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, t := range e.trades {
		if t.Open {
			n++
		}
	}
	return n
}
