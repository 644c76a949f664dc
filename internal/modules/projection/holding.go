package projection

import (
	"math"
	"strings"
)

// Holding is the mutable per-symbol state owned by an Engine for the length of a run.
type Holding struct {
	Symbol           string
	Shares           float64
	SharePrice       float64
	DividendPerShare float64

	DividendGrowthRate float64
	PriceGrowthRate    float64
	ReinvestFraction   float64
	InflationRate      float64
	TargetIncomeBase   float64
	PayoutFrequency    string // informational, payouts accrue annually

	IsCashSweep      bool
	HasMetTargetEver bool
	FirstYearMet     int // 0 until the target is first met
}

// NewHolding converts a validated spec into simulation state.
func NewHolding(spec HoldingSpec, cashSweep bool) *Holding {
	return &Holding{
		Symbol:             strings.TrimSpace(spec.Symbol),
		Shares:             spec.StartingShares,
		SharePrice:         spec.SharePrice,
		DividendPerShare:   spec.Dividend,
		DividendGrowthRate: spec.DividendGrowthPct / 100,
		PriceGrowthRate:    spec.PriceGrowthPct / 100,
		ReinvestFraction:   spec.ReinvestPct / 100,
		InflationRate:      spec.InflationPct / 100,
		TargetIncomeBase:   spec.TargetIncome,
		PayoutFrequency:    strings.ToUpper(strings.TrimSpace(spec.PayoutFrequency)),
		IsCashSweep:        cashSweep,
	}
}

// AnnualIncome is the dividend income the current share count earns in a year.
func (h *Holding) AnnualIncome() float64 {
	return h.DividendPerShare * h.Shares
}

// Yield is dividend per share over price. Only used for ranking.
func (h *Holding) Yield() float64 {
	return h.DividendPerShare / h.SharePrice
}

// TargetFor returns the nominal income target for the 1-based year.
func (h *Holding) TargetFor(year int) float64 {
	return h.TargetIncomeBase * math.Pow(1+h.InflationRate, float64(year-1))
}

// markMet records that the target was reached. The flag never clears.
func (h *Holding) markMet(year int) {
	if !h.HasMetTargetEver {
		h.HasMetTargetEver = true
		h.FirstYearMet = year
	}
}

// buy adds the shares amount buys at the current price and returns the share count.
func (h *Holding) buy(amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	shares := amount / h.SharePrice
	h.Shares += shares
	return shares
}
