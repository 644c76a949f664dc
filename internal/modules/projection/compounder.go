package projection

import (
	"fmt"
	"math"
)

// compound applies one year of dividend and price growth. It runs once per holding
// per year, after the year's snapshot has been recorded.
func compound(h *Holding, year int) error {
	h.DividendPerShare *= 1 + h.DividendGrowthRate
	h.SharePrice *= 1 + h.PriceGrowthRate

	if math.IsNaN(h.SharePrice) || math.IsInf(h.SharePrice, 0) {
		return fmt.Errorf("%w: %s price became %v after year %d", ErrInvalidState, h.Symbol, h.SharePrice, year)
	}
	if h.SharePrice <= 0 {
		return fmt.Errorf("%w: %s priced at %v after year %d", ErrNonPositivePrice, h.Symbol, h.SharePrice, year)
	}
	if math.IsNaN(h.DividendPerShare) || math.IsInf(h.DividendPerShare, 0) || h.DividendPerShare < 0 {
		return fmt.Errorf("%w: %s dividend became %v after year %d", ErrInvalidState, h.Symbol, h.DividendPerShare, year)
	}
	return nil
}
