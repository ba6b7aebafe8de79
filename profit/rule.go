package profit

import (
	"fmt"
	"time"

	"github.com/EngrGocity/MysessionTradeBot/session"
)

// Rule is one independently timed profit-taking policy. A rule with both
// filters nil applies globally, and fires at most once per interval.
type Rule struct {
	Name           string
	Enabled        bool
	Interval       time.Duration
	MinProfitPips  float64
	Fraction       float64
	MaxPerInterval int

	SessionFilter *session.Kind
	SymbolFilter  *string

	LastFired *time.Time
}

// ValidationError reports an invalid rule. The rule is not inserted.
type ValidationError struct {
	Rule   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("profit-taking rule %q: %s", e.Rule, e.Reason)
}

func (r Rule) Validate() error {
	if r.Name == "" {
		return &ValidationError{Rule: r.Name, Reason: "name is required"}
	}
	if r.Interval <= 0 {
		return &ValidationError{Rule: r.Name, Reason: fmt.Sprintf("interval must be positive, got %v", r.Interval)}
	}
	if r.MinProfitPips <= 0 {
		return &ValidationError{Rule: r.Name, Reason: fmt.Sprintf("min profit pips must be positive, got %v", r.MinProfitPips)}
	}
	if r.Fraction <= 0 || r.Fraction > 1 {
		return &ValidationError{Rule: r.Name, Reason: fmt.Sprintf("fraction must be in (0,1], got %v", r.Fraction)}
	}
	if r.MaxPerInterval < 1 {
		return &ValidationError{Rule: r.Name, Reason: fmt.Sprintf("max per interval must be >= 1, got %d", r.MaxPerInterval)}
	}
	return nil
}

// matches reports whether the position passes the rule's session and
// symbol filters.
func (r Rule) matches(p *ActivePosition) bool {
	if r.SessionFilter != nil && p.Session != *r.SessionFilter {
		return false
	}
	if r.SymbolFilter != nil && p.Symbol != *r.SymbolFilter {
		return false
	}
	return true
}

// eligible reports whether the rule's re-arm interval has elapsed. A
// rule that never fired is always eligible.
func (r Rule) eligible(now time.Time) bool {
	if r.LastFired == nil {
		return true
	}
	return now.Sub(*r.LastFired) >= r.Interval
}

func kindPtr(k session.Kind) *session.Kind { return &k }

// DefaultRules is the stock rule set: quick scalping exits, medium and
// session-end tiers, and session-specific variants tuned to typical
// Asian/London volatility.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:           "Scalping Quick Profit",
			Enabled:        true,
			Interval:       15 * time.Minute,
			MinProfitPips:  10,
			Fraction:       0.5,
			MaxPerInterval: 3,
		},
		{
			Name:           "Medium Term Profit",
			Enabled:        true,
			Interval:       60 * time.Minute,
			MinProfitPips:  20,
			Fraction:       0.7,
			MaxPerInterval: 5,
		},
		{
			Name:           "Session End Profit",
			Enabled:        true,
			Interval:       240 * time.Minute,
			MinProfitPips:  30,
			Fraction:       0.8,
			MaxPerInterval: 10,
		},
		{
			Name:           "Asian Session Profit",
			Enabled:        true,
			Interval:       120 * time.Minute,
			MinProfitPips:  15,
			Fraction:       0.6,
			MaxPerInterval: 3,
			SessionFilter:  kindPtr(session.Asian),
		},
		{
			Name:           "London Session Profit",
			Enabled:        true,
			Interval:       90 * time.Minute,
			MinProfitPips:  25,
			Fraction:       0.7,
			MaxPerInterval: 5,
			SessionFilter:  kindPtr(session.London),
		},
	}
}
