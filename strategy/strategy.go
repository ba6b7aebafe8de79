// Package strategy defines the signal source interface the bot trades
// from, plus a by-name registry for wiring strategies from config.
package strategy

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/EngrGocity/MysessionTradeBot/market"
)

// Signal is one trade proposal. The bot decides whether it passes risk
// admission; the strategy only proposes.
type Signal struct {
	Symbol         string
	Side           market.Side
	StopLossPips   float64
	TakeProfitPips float64
	Confidence     float64
	Strategy       string
}

// Strategy produces signals from the current quote set. Evaluate is
// called once per trading cycle.
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, quotes map[string]market.Quote) ([]Signal, error)
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Strategy)
)

func Register(s Strategy) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(s.Name())] = s
}

// ByName returns a registered strategy, or an error listing what is
// available.
func ByName(name string) (Strategy, error) {
	mu.RLock()
	defer mu.RUnlock()

	s, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(registry))
		for n := range registry {
			names = append(names, n)
		}
		return nil, fmt.Errorf("unknown strategy %q (registered: %s)", name, strings.Join(names, ", "))
	}
	return s, nil
}

// Noop never signals. Useful for running the risk and profit-taking
// machinery against an existing book.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Evaluate(context.Context, map[string]market.Quote) ([]Signal, error) {
	return nil, nil
}

func init() {
	Register(Noop{})
}
