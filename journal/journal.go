// Package journal persists closed trades and equity snapshots.
package journal

import (
	"time"

	"github.com/EngrGocity/MysessionTradeBot/market"
	"github.com/EngrGocity/MysessionTradeBot/session"
)

// TradeRecord is one realized trade event. Partial closes produce a
// record per slice, full closes exactly one.
type TradeRecord struct {
	ID          string
	Ticket      int64
	Symbol      string
	Side        market.Side
	Volume      float64
	EntryPrice  float64
	ExitPrice   float64
	OpenTime    time.Time
	CloseTime   time.Time
	RealizedPnL float64
	Session     session.Kind
	Strategy    string
	Reason      string
}

// EquitySnapshot is a periodic account state sample.
type EquitySnapshot struct {
	Time          time.Time
	Balance       float64
	Equity        float64
	DailyPnL      float64
	OpenPositions int
	Drawdown      float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }

func (Nop) RecordEquity(EquitySnapshot) error { return nil }

func (Nop) Close() error { return nil }
