package market

import (
	"errors"
	"sync"
	"time"
)

// Quote is the latest bid/ask for an instrument.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// QuoteStore holds the most recent quote per symbol.
type QuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

func NewQuoteStore() *QuoteStore {
	return &QuoteStore{quotes: make(map[string]Quote)}
}

func (qs *QuoteStore) Set(q Quote) {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	qs.quotes[q.Symbol] = q
}

func (qs *QuoteStore) Get(symbol string) (Quote, error) {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	q, ok := qs.quotes[symbol]
	if !ok {
		return Quote{}, errors.New("quote not found")
	}
	return q, nil
}

// All returns a copy of every stored quote keyed by symbol.
func (qs *QuoteStore) All() map[string]Quote {
	qs.mu.RLock()
	defer qs.mu.RUnlock()
	out := make(map[string]Quote, len(qs.quotes))
	for k, v := range qs.quotes {
		out[k] = v
	}
	return out
}
