package risk

import (
	"time"

	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/session"
)

// Position is one open trade in the book. The governor is the source of
// truth for volume and price; volume stays positive while open.
type Position struct {
	Ticket       int64
	Symbol       string
	Side         market.Side
	Volume       float64
	OpenPrice    float64
	CurrentPrice float64
	StopLoss     *float64
	TakeProfit   *float64
	OpenTime     time.Time

	UnrealizedPnL float64
	RealizedPnL   float64

	Session  session.Kind
	Strategy string
}

// UpdatePrice sets the current mark and recomputes unrealized P&L.
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price
	if p.Side == market.Buy {
		p.UnrealizedPnL = (price - p.OpenPrice) * p.Volume
	} else {
		p.UnrealizedPnL = (p.OpenPrice - price) * p.Volume
	}
}

// PnLAt returns the realized P&L of closing the given volume at the
// given price.
func (p *Position) PnLAt(price, volume float64) float64 {
	if p.Side == market.Buy {
		return (price - p.OpenPrice) * volume
	}
	return (p.OpenPrice - price) * volume
}

func (p *Position) hitStopLoss() bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Side == market.Buy {
		return p.CurrentPrice <= *p.StopLoss
	}
	return p.CurrentPrice >= *p.StopLoss
}

func (p *Position) hitTakeProfit() bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Side == market.Buy {
		return p.CurrentPrice >= *p.TakeProfit
	}
	return p.CurrentPrice <= *p.TakeProfit
}
