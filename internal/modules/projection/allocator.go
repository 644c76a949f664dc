package projection

import "fmt"

// Allocation is the new capital one holding received in one year.
type Allocation struct {
	Reinvested   float64 // own dividends put back into the holding
	Contribution float64 // share of the annualized periodic contribution
	NewShares    float64
}

// allocate buys new shares for every holding according to policy and returns the
// per-holding allocations in holding order. prioritized is indexed like holdings.
// Every purchase uses the holding's pre-growth price.
//
// Under PolicyReinvestAll a cash sweep absorbs the whole annualized contribution,
// split evenly when several sweeps are held, and prioritized holdings get none of it.
// Without a sweep the contribution is split evenly across the prioritized set.
func allocate(policy Policy, holdings []*Holding, prioritized []bool, annualContribution float64) ([]Allocation, error) {
	count, sweeps := 0, 0
	for i, h := range holdings {
		if prioritized[i] {
			count++
		}
		if h.IsCashSweep {
			sweeps++
		}
	}

	perHolding := 0.0
	if count > 0 {
		perHolding = annualContribution / float64(count)
	}
	perSweep := 0.0
	if sweeps > 0 {
		perSweep = annualContribution / float64(sweeps)
	}

	allocations := make([]Allocation, len(holdings))
	for i, h := range holdings {
		if !(h.SharePrice > 0) {
			return nil, fmt.Errorf("%w: %s priced at %v", ErrNonPositivePrice, h.Symbol, h.SharePrice)
		}

		var a Allocation
		switch policy {
		case PolicyReinvestAll:
			a.Reinvested = h.AnnualIncome() * h.ReinvestFraction
			switch {
			case h.IsCashSweep:
				a.Contribution = perSweep
			case prioritized[i] && sweeps == 0:
				a.Contribution = perHolding
			}
		case PolicyPrioritizedOnly:
			if prioritized[i] {
				a.Reinvested = h.AnnualIncome() * h.ReinvestFraction
				a.Contribution = perHolding
			}
		default:
			return nil, fmt.Errorf("%w: unknown policy %q", ErrInvalidParameters, policy)
		}

		a.NewShares = h.buy(a.Reinvested) + h.buy(a.Contribution)
		allocations[i] = a
	}
	return allocations, nil
}
