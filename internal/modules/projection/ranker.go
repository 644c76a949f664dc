package projection

import "sort"

// prioritize ranks the under-target holdings by yield, highest first, and keeps the
// first topN. Equal yields keep input order. The result holds holding indexes.
func prioritize(evals []Evaluation, topN int) []int {
	candidates := make([]Evaluation, 0, len(evals))
	for _, e := range evals {
		if e.UnderTarget {
			candidates = append(candidates, e)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Yield > candidates[j].Yield
	})

	if len(candidates) > topN {
		candidates = candidates[:topN]
	}

	selected := make([]int, len(candidates))
	for i, c := range candidates {
		selected[i] = c.Index
	}
	return selected
}
