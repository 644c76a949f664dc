package projection

// Evaluation is one holding's standing against its target at the start of a year.
type Evaluation struct {
	Index        int // position in the engine's holding list
	Symbol       string
	AnnualIncome float64
	Target       float64
	Yield        float64
	UnderTarget  bool
}

// evaluateTargets classifies every holding for the given year using its
// pre-allocation income. Holdings at or above target get their sticky flag set.
// The cash sweep is never a candidate, but only counts as met when its own income
// actually reaches its target.
func evaluateTargets(holdings []*Holding, year int) []Evaluation {
	evals := make([]Evaluation, len(holdings))
	for i, h := range holdings {
		income := h.AnnualIncome()
		target := h.TargetFor(year)
		met := income >= target

		if met {
			h.markMet(year)
		}

		evals[i] = Evaluation{
			Index:        i,
			Symbol:       h.Symbol,
			AnnualIncome: income,
			Target:       target,
			Yield:        h.Yield(),
			UnderTarget:  !met && !h.IsCashSweep,
		}
	}
	return evals
}
