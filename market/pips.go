package market

// PipsBetween converts a price move from a to b into pips.
// The sign follows the direction of the move.
func PipsBetween(m SymbolMeta, a, b float64) float64 {
	return (b - a) / m.PipSize()
}

// PriceOffset converts a pip distance into a price delta.
func PriceOffset(m SymbolMeta, pips float64) float64 {
	return pips * m.PipSize()
}

// ProfitPips returns the side-aware profit of a position in pips, given
// its open price and the current mark.
func ProfitPips(m SymbolMeta, side Side, open, current float64) float64 {
	return side.Sign() * PipsBetween(m, open, current)
}
