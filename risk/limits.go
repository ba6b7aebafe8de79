package risk

import "fmt"

// Limits is the account-level risk configuration. Values are immutable
// per bot process unless hot-swapped through Governor.SetLimits.
type Limits struct {
	// Fractions of account balance.
	MaxPositionFraction  float64 `json:"max_position_fraction" yaml:"max_position_fraction"`
	MaxDailyLossFraction float64 `json:"max_daily_loss_fraction" yaml:"max_daily_loss_fraction"`

	MaxOpenPositions int `json:"max_open_positions" yaml:"max_open_positions"`

	// Default protective distances for new positions.
	StopLossPips   float64 `json:"stop_loss_pips" yaml:"stop_loss_pips"`
	TakeProfitPips float64 `json:"take_profit_pips" yaml:"take_profit_pips"`

	TrailingStop     bool    `json:"trailing_stop" yaml:"trailing_stop"`
	TrailingStopPips float64 `json:"trailing_stop_pips" yaml:"trailing_stop_pips"`
}

// DefaultLimits mirrors the stock configuration: 2% per position, 5%
// daily loss, 5 concurrent positions, 50/100 pip protective distances.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionFraction:  0.02,
		MaxDailyLossFraction: 0.05,
		MaxOpenPositions:     5,
		StopLossPips:         50,
		TakeProfitPips:       100,
		TrailingStop:         false,
		TrailingStopPips:     20,
	}
}

func (l Limits) Validate() error {
	if l.MaxPositionFraction <= 0 || l.MaxPositionFraction > 1 {
		return fmt.Errorf("max_position_fraction must be in (0,1], got %v", l.MaxPositionFraction)
	}
	if l.MaxDailyLossFraction <= 0 || l.MaxDailyLossFraction > 1 {
		return fmt.Errorf("max_daily_loss_fraction must be in (0,1], got %v", l.MaxDailyLossFraction)
	}
	if l.MaxOpenPositions < 1 {
		return fmt.Errorf("max_open_positions must be >= 1, got %d", l.MaxOpenPositions)
	}
	if l.StopLossPips <= 0 {
		return fmt.Errorf("stop_loss_pips must be positive, got %v", l.StopLossPips)
	}
	if l.TakeProfitPips <= 0 {
		return fmt.Errorf("take_profit_pips must be positive, got %v", l.TakeProfitPips)
	}
	if l.TrailingStop && l.TrailingStopPips <= 0 {
		return fmt.Errorf("trailing_stop_pips must be positive when trailing is enabled, got %v", l.TrailingStopPips)
	}
	return nil
}
