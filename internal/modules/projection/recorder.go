package projection

import "github.com/shopspring/decimal"

// reportPlaces is the decimal precision of every reported figure.
const reportPlaces = 2

// snapshot builds the record for one holding after allocation and before growth.
// Rounding only affects the record; the holding keeps full precision.
func snapshot(year int, h *Holding, a Allocation, target float64, prioritized bool) YearlyRecord {
	annual := h.AnnualIncome()
	return YearlyRecord{
		Year:               year,
		Symbol:             h.Symbol,
		Shares:             round(h.Shares),
		Price:              round(h.SharePrice),
		DividendPerShare:   round(h.DividendPerShare),
		AnnualDividend:     round(annual),
		ReinvestedIncome:   round(a.Reinvested),
		Contribution:       round(a.Contribution),
		ActualIncome:       round(annual),
		InflationAdjTarget: round(target),
		MetTarget:          annual >= target,
		Prioritized:        prioritized,
	}
}

// round rounds half away from zero to reportPlaces decimals.
func round(v float64) float64 {
	return decimal.NewFromFloat(v).Round(reportPlaces).InexactFloat64()
}
