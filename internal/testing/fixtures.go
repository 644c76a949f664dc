package testing

import "github.com/aristath/sentinel-income/internal/modules/projection"

// NewHoldingFixtures returns a small dividend portfolio: three equities under target,
// one already above target and a money-market cash sweep.
func NewHoldingFixtures() []projection.HoldingSpec {
	return []projection.HoldingSpec{
		{
			Symbol:            "KO",
			StartingShares:    50,
			SharePrice:        60,
			Dividend:          1.94,
			DividendGrowthPct: 4,
			PriceGrowthPct:    3,
			ReinvestPct:       100,
			TargetIncome:      1200,
			InflationPct:      3,
			PayoutFrequency:   "Quarterly",
		},
		{
			Symbol:            "O",
			StartingShares:    40,
			SharePrice:        55,
			Dividend:          3.08,
			DividendGrowthPct: 3,
			PriceGrowthPct:    2,
			ReinvestPct:       100,
			TargetIncome:      1500,
			InflationPct:      3,
			PayoutFrequency:   "Monthly",
		},
		{
			Symbol:            "VZ",
			StartingShares:    30,
			SharePrice:        40,
			Dividend:          2.66,
			DividendGrowthPct: 2,
			PriceGrowthPct:    1,
			ReinvestPct:       50,
			TargetIncome:      900,
			InflationPct:      3,
			PayoutFrequency:   "Quarterly",
		},
		{
			Symbol:            "JNJ",
			StartingShares:    200,
			SharePrice:        155,
			Dividend:          4.96,
			DividendGrowthPct: 5,
			PriceGrowthPct:    4,
			ReinvestPct:       0,
			TargetIncome:      500,
			InflationPct:      3,
			PayoutFrequency:   "Quarterly",
		},
		{
			Symbol:            "SPAXX",
			StartingShares:    1000,
			SharePrice:        1,
			Dividend:          0.05,
			DividendGrowthPct: 0,
			PriceGrowthPct:    0,
			ReinvestPct:       100,
			TargetIncome:      100,
			InflationPct:      0,
			PayoutFrequency:   "Monthly",
		},
	}
}

// NewParameterFixture returns the default dashboard parameters under the given policy.
func NewParameterFixture(policy projection.Policy) projection.Parameters {
	return projection.Parameters{
		Years:                 25,
		QuarterlyContribution: 250,
		TopN:                  5,
		Policy:                policy,
		CashSweepSymbols:      []string{projection.DefaultCashSweepSymbol},
	}
}
