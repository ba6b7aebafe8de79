package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPipSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		loc  int
		want float64
	}{
		{"majors", -4, 0.0001},
		{"jpy", -2, 0.01},
		{"zero", 0, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := SymbolMeta{PipLocation: tt.loc}
			assert.InDelta(t, tt.want, m.PipSize(), 1e-12)
		})
	}
}

func TestPipsBetween(t *testing.T) {
	t.Parallel()

	eur := Symbols["EURUSD"]
	assert.InDelta(t, 20.0, PipsBetween(eur, 1.1000, 1.1020), 1e-9)
	assert.InDelta(t, -20.0, PipsBetween(eur, 1.1020, 1.1000), 1e-9)

	jpy := Symbols["USDJPY"]
	assert.InDelta(t, 50.0, PipsBetween(jpy, 150.00, 150.50), 1e-9)
}

func TestProfitPipsSideAware(t *testing.T) {
	t.Parallel()

	eur := Symbols["EURUSD"]
	assert.InDelta(t, 15.0, ProfitPips(eur, Buy, 1.1000, 1.1015), 1e-9)
	assert.InDelta(t, 15.0, ProfitPips(eur, Sell, 1.1015, 1.1000), 1e-9)
	assert.InDelta(t, -15.0, ProfitPips(eur, Sell, 1.1000, 1.1015), 1e-9)
}

func TestQuoteStore(t *testing.T) {
	t.Parallel()

	qs := NewQuoteStore()
	_, err := qs.Get("EURUSD")
	assert.Error(t, err)

	q := Quote{Symbol: "EURUSD", Bid: 1.0849, Ask: 1.0851, Time: time.Now()}
	qs.Set(q)

	got, err := qs.Get("EURUSD")
	assert.NoError(t, err)
	assert.InDelta(t, 1.0850, got.Mid(), 1e-9)
	assert.InDelta(t, 0.0002, got.Spread(), 1e-9)

	all := qs.All()
	assert.Len(t, all, 1)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	m, err := Lookup("GBPUSD")
	assert.NoError(t, err)
	assert.Equal(t, -4, m.PipLocation)

	_, err = Lookup("XAUUSD")
	assert.Error(t, err)
}
