package projection

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Engine owns the holdings of one run and advances them one year per Step.
// An Engine is not safe for concurrent use.
type Engine struct {
	params   Parameters
	holdings []*Holding // input order
	index    map[string]int
	year     int // last completed year
	err      error
	log      zerolog.Logger
}

// NewEngine validates the holdings and parameters and builds the run state.
// Nothing is simulated until Step or Run is called.
func NewEngine(specs []HoldingSpec, params Parameters, log zerolog.Logger) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateHoldings(specs); err != nil {
		return nil, err
	}

	e := &Engine{
		params:   params,
		holdings: make([]*Holding, len(specs)),
		index:    make(map[string]int, len(specs)),
		log:      log.With().Str("component", "projection_engine").Logger(),
	}
	for i, spec := range specs {
		h := NewHolding(spec, params.isCashSweep(strings.TrimSpace(spec.Symbol)))
		e.holdings[i] = h
		e.index[h.Symbol] = i
	}

	e.log.Debug().
		Int("holdings", len(specs)).
		Int("years", params.Years).
		Str("policy", string(params.Policy)).
		Msg("Projection engine initialized")

	return e, nil
}

// Parameters returns the run configuration.
func (e *Engine) Parameters() Parameters {
	return e.params
}

// Year returns the last completed year, 0 before the first Step.
func (e *Engine) Year() int {
	return e.year
}

// Done reports whether the horizon has been reached or the run has failed.
func (e *Engine) Done() bool {
	return e.err != nil || e.year >= e.params.Years
}

// Holdings returns a copy of the current state of every holding in input order.
func (e *Engine) Holdings() []Holding {
	out := make([]Holding, len(e.holdings))
	for i, h := range e.holdings {
		out[i] = *h
	}
	return out
}

// Holding returns a copy of one holding's current state.
func (e *Engine) Holding(symbol string) (Holding, bool) {
	i, ok := e.index[symbol]
	if !ok {
		return Holding{}, false
	}
	return *e.holdings[i], true
}

// Step simulates the next year. After a failure every further call returns the same
// error; after the last year it returns ErrHorizonReached.
func (e *Engine) Step() (YearResult, error) {
	if e.err != nil {
		return YearResult{}, e.err
	}
	if e.year >= e.params.Years {
		return YearResult{}, ErrHorizonReached
	}

	year := e.year + 1
	result, err := e.step(year)
	if err != nil {
		e.err = fmt.Errorf("year %d: %w", year, err)
		e.log.Error().Err(err).Int("year", year).Msg("Projection failed")
		return YearResult{}, e.err
	}
	e.year = year
	return result, nil
}

func (e *Engine) step(year int) (YearResult, error) {
	evals := evaluateTargets(e.holdings, year)
	selected := prioritize(evals, e.params.TopN)

	prioritized := make([]bool, len(e.holdings))
	symbols := make([]string, len(selected))
	for i, idx := range selected {
		prioritized[idx] = true
		symbols[i] = e.holdings[idx].Symbol
	}

	allocations, err := allocate(e.params.Policy, e.holdings, prioritized, e.params.AnnualContribution())
	if err != nil {
		return YearResult{}, err
	}

	records := make([]YearlyRecord, len(e.holdings))
	var reinvested, contributed float64
	for i, h := range e.holdings {
		records[i] = snapshot(year, h, allocations[i], evals[i].Target, prioritized[i])
		reinvested += allocations[i].Reinvested
		contributed += allocations[i].Contribution
	}

	for _, h := range e.holdings {
		if err := compound(h, year); err != nil {
			return YearResult{}, err
		}
	}

	e.log.Debug().
		Int("year", year).
		Strs("prioritized", symbols).
		Float64("reinvested", reinvested).
		Float64("contributed", contributed).
		Msg("Projection year complete")

	return YearResult{Year: year, Prioritized: symbols, Records: records}, nil
}

// Run simulates every remaining year and returns the records in (year, input order).
// On failure no partial records are returned.
func (e *Engine) Run() ([]YearlyRecord, error) {
	records := make([]YearlyRecord, 0, (e.params.Years-e.year)*len(e.holdings))
	for !e.Done() {
		result, err := e.Step()
		if err != nil {
			return nil, err
		}
		records = append(records, result.Records...)
	}
	if e.err != nil {
		return nil, e.err
	}

	e.log.Info().
		Int("years", e.year).
		Int("records", len(records)).
		Msg("Projection complete")

	return records, nil
}

// Simulate is NewEngine followed by Run.
func Simulate(specs []HoldingSpec, params Parameters, log zerolog.Logger) ([]YearlyRecord, error) {
	engine, err := NewEngine(specs, params, log)
	if err != nil {
		return nil, err
	}
	return engine.Run()
}
