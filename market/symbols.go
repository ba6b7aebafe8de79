// market/symbols.go
package market

import (
	"fmt"
	"math"
)

// Side is the direction of a position or order.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return fmt.Sprintf("Side(%d)", int(s))
	}
}

// Sign returns +1 for long, -1 for short.
func (s Side) Sign() float64 {
	if s == Sell {
		return -1
	}
	return 1
}

// SymbolMeta carries the broker-defined constraints for one instrument.
// PipValue is the account-currency value of one pip per standard lot.
type SymbolMeta struct {
	Symbol      string
	PipLocation int
	PipValue    float64
	MinLot      float64
	MaxLot      float64
	LotStep     float64
	MarginRate  float64
}

// PipSize returns the price increment of one pip for this instrument.
func (m SymbolMeta) PipSize() float64 {
	return math.Pow(10, float64(m.PipLocation))
}

var Symbols = map[string]SymbolMeta{
	"EURUSD": {
		Symbol:      "EURUSD",
		PipLocation: -4,
		PipValue:    10.0,
		MinLot:      0.01,
		MaxLot:      100.0,
		LotStep:     0.01,
		MarginRate:  0.02,
	},
	"GBPUSD": {
		Symbol:      "GBPUSD",
		PipLocation: -4,
		PipValue:    10.0,
		MinLot:      0.01,
		MaxLot:      100.0,
		LotStep:     0.01,
		MarginRate:  0.02,
	},
	"USDJPY": {
		Symbol:      "USDJPY",
		PipLocation: -2,
		PipValue:    10.0,
		MinLot:      0.01,
		MaxLot:      100.0,
		LotStep:     0.01,
		MarginRate:  0.02,
	},
	"AUDUSD": {
		Symbol:      "AUDUSD",
		PipLocation: -4,
		PipValue:    10.0,
		MinLot:      0.01,
		MaxLot:      100.0,
		LotStep:     0.01,
		MarginRate:  0.02,
	},
}

// Lookup returns the metadata for a symbol.
func Lookup(symbol string) (SymbolMeta, error) {
	m, ok := Symbols[symbol]
	if !ok {
		return SymbolMeta{}, fmt.Errorf("unknown symbol %q", symbol)
	}
	return m, nil
}
