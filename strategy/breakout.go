package strategy

import (
	"context"
	"sync"

	"github.com/EngrGocity/MysessionTradeBot/market"
)

// Breakout signals in the direction of a move away from the first price
// seen for a symbol. One signal per symbol per anchor; Reset re-arms it,
// typically on a session start.
type Breakout struct {
	TriggerPips    float64
	StopLossPips   float64
	TakeProfitPips float64

	mu      sync.Mutex
	anchors map[string]float64
	fired   map[string]bool
}

func NewBreakout(triggerPips, stopLossPips, takeProfitPips float64) *Breakout {
	return &Breakout{
		TriggerPips:    triggerPips,
		StopLossPips:   stopLossPips,
		TakeProfitPips: takeProfitPips,
		anchors:        make(map[string]float64),
		fired:          make(map[string]bool),
	}
}

func (b *Breakout) Name() string { return "breakout" }

// Reset drops all anchors so the next Evaluate re-anchors at current
// prices.
func (b *Breakout) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.anchors = make(map[string]float64)
	b.fired = make(map[string]bool)
}

func (b *Breakout) Evaluate(_ context.Context, quotes map[string]market.Quote) ([]Signal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var signals []Signal
	for symbol, q := range quotes {
		meta, err := market.Lookup(symbol)
		if err != nil {
			continue
		}

		anchor, ok := b.anchors[symbol]
		if !ok {
			b.anchors[symbol] = q.Mid()
			continue
		}
		if b.fired[symbol] {
			continue
		}

		move := market.PipsBetween(meta, anchor, q.Mid())
		var side market.Side
		switch {
		case move >= b.TriggerPips:
			side = market.Buy
		case move <= -b.TriggerPips:
			side = market.Sell
		default:
			continue
		}

		b.fired[symbol] = true
		signals = append(signals, Signal{
			Symbol:         symbol,
			Side:           side,
			StopLossPips:   b.StopLossPips,
			TakeProfitPips: b.TakeProfitPips,
			Confidence:     1,
			Strategy:       b.Name(),
		})
	}
	return signals, nil
}
