package profit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EngrGocity/MysessionTradeBot/session"
)

func TestRuleValidate(t *testing.T) {
	t.Parallel()

	base := Rule{
		Name:           "base",
		Enabled:        true,
		Interval:       15 * time.Minute,
		MinProfitPips:  10,
		Fraction:       0.5,
		MaxPerInterval: 3,
	}

	tests := []struct {
		name    string
		mutate  func(r *Rule)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Rule) {}},
		{name: "full close fraction", mutate: func(r *Rule) { r.Fraction = 1 }},
		{name: "empty name", mutate: func(r *Rule) { r.Name = "" }, wantErr: true},
		{name: "zero interval", mutate: func(r *Rule) { r.Interval = 0 }, wantErr: true},
		{name: "negative interval", mutate: func(r *Rule) { r.Interval = -time.Minute }, wantErr: true},
		{name: "zero min pips", mutate: func(r *Rule) { r.MinProfitPips = 0 }, wantErr: true},
		{name: "zero fraction", mutate: func(r *Rule) { r.Fraction = 0 }, wantErr: true},
		{name: "fraction above one", mutate: func(r *Rule) { r.Fraction = 1.01 }, wantErr: true},
		{name: "zero cap", mutate: func(r *Rule) { r.MaxPerInterval = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := base
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				require.Error(t, err)
				var vErr *ValidationError
				assert.ErrorAs(t, err, &vErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRuleMatches(t *testing.T) {
	t.Parallel()

	pos := &ActivePosition{Symbol: "EURUSD", Session: session.London}

	global := Rule{}
	assert.True(t, global.matches(pos))

	london := Rule{SessionFilter: kindPtr(session.London)}
	assert.True(t, london.matches(pos))

	asian := Rule{SessionFilter: kindPtr(session.Asian)}
	assert.False(t, asian.matches(pos))

	eur := Rule{SymbolFilter: strPtr("EURUSD")}
	assert.True(t, eur.matches(pos))

	gbp := Rule{SymbolFilter: strPtr("GBPUSD")}
	assert.False(t, gbp.matches(pos))

	both := Rule{SessionFilter: kindPtr(session.London), SymbolFilter: strPtr("GBPUSD")}
	assert.False(t, both.matches(pos))
}

func TestRuleEligible(t *testing.T) {
	t.Parallel()

	now := at(9, 0)
	r := Rule{Interval: 15 * time.Minute}

	// Never fired.
	assert.True(t, r.eligible(now))

	fired := at(8, 50)
	r.LastFired = &fired
	assert.False(t, r.eligible(now))

	// Boundary is inclusive.
	fired = at(8, 45)
	assert.True(t, r.eligible(now))

	fired = at(8, 30)
	assert.True(t, r.eligible(now))
}
