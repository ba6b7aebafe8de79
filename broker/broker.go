package broker

import (
	"context"
	"time"

	"github.com/EngrGocity/MysessionTradeBot/market"
)

// Broker is the contract with the external trading terminal wrapper.
// All calls are blocking with broker-side timeouts; failures are expected
// to be handled locally by the caller (skip, log, continue).
type Broker interface {
	CurrentPrice(ctx context.Context, symbol string) (market.Quote, error)
	AccountBalance(ctx context.Context) (float64, error)
	SymbolMeta(symbol string) (market.SymbolMeta, error)

	PlaceOrder(ctx context.Context, req OrderRequest) (Fill, error)
	PartialClose(ctx context.Context, ticket int64, volume float64) error
	Close(ctx context.Context, ticket int64) error
	ModifyStopLoss(ctx context.Context, ticket int64, newSL float64) error
}

// OrderRequest describes a new market order.
type OrderRequest struct {
	Symbol     string
	Side       market.Side
	Volume     float64
	StopLoss   *float64
	TakeProfit *float64
}

// Fill reports the result of an executed order.
type Fill struct {
	Ticket int64
	Symbol string
	Side   market.Side
	Volume float64
	Price  float64
	Time   time.Time
}
