// Package projection implements the dividend income projection engine.
//
// A projection walks a fixed set of holdings forward one year at a time. Each year the
// engine compares every holding's annualized dividend income with its inflation-adjusted
// target, ranks the holdings still under target by current yield, puts the year's new
// capital into the top ranked ones, records a snapshot per holding and finally compounds
// dividend and price growth ready for the next year.
package projection

import (
	"fmt"
	"math"
	"strings"
)

// QuartersPerYear annualizes the periodic contribution, which is entered per quarter.
const QuartersPerYear = 4

// Input column names, shared by CSV ingestion and row validation errors.
const (
	FieldSymbol          = "Symbol"
	FieldStartingShares  = "Starting Shares"
	FieldSharePrice      = "Share Price"
	FieldDividend        = "Dividend"
	FieldDivGrowth       = "Div Growth %"
	FieldPriceGrowth     = "Price Growth %"
	FieldReinvest        = "Reinvest %"
	FieldTargetIncome    = "Target Income"
	FieldInflation       = "Inflation %"
	FieldPayoutFrequency = "Payout Frequency"
)

// DefaultCashSweepSymbol is the money-market reserve designated as cash sweep when
// nothing else is configured.
const DefaultCashSweepSymbol = "SPAXX"

// Policy selects how dividends and contributions turn into new shares.
type Policy string

const (
	// PolicyReinvestAll reinvests every holding's own dividends every year, sends the full
	// annualized contribution to the cash sweep and splits it across prioritized holdings.
	PolicyReinvestAll Policy = "reinvest_all"
	// PolicyPrioritizedOnly only lets prioritized holdings reinvest and receive
	// contributions. Holdings at or above target stop compounding their own dividends.
	PolicyPrioritizedOnly Policy = "prioritized_only"
)

// ParsePolicy accepts the config spelling of a policy (case-insensitive, '-' or '_').
func ParsePolicy(s string) (Policy, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	switch Policy(normalized) {
	case PolicyReinvestAll:
		return PolicyReinvestAll, nil
	case PolicyPrioritizedOnly:
		return PolicyPrioritizedOnly, nil
	}
	return "", fmt.Errorf("%w: unknown policy %q", ErrInvalidParameters, s)
}

// HoldingSpec is one validated input row. Percent fields are kept as entered
// (5 means 5%); NewHolding converts them to rates.
type HoldingSpec struct {
	Symbol            string  `json:"symbol" msgpack:"symbol"`
	StartingShares    float64 `json:"starting_shares" msgpack:"starting_shares"`
	SharePrice        float64 `json:"share_price" msgpack:"share_price"`
	Dividend          float64 `json:"dividend" msgpack:"dividend"`
	DividendGrowthPct float64 `json:"div_growth_pct" msgpack:"div_growth_pct"`
	PriceGrowthPct    float64 `json:"price_growth_pct" msgpack:"price_growth_pct"`
	ReinvestPct       float64 `json:"reinvest_pct" msgpack:"reinvest_pct"`
	TargetIncome      float64 `json:"target_income" msgpack:"target_income"`
	InflationPct      float64 `json:"inflation_pct" msgpack:"inflation_pct"`
	PayoutFrequency   string  `json:"payout_frequency" msgpack:"payout_frequency"`
}

// Validate checks the value ranges of a single row. row is the 1-based data row number
// reported back in the error.
func (s HoldingSpec) Validate(row int) error {
	if strings.TrimSpace(s.Symbol) == "" {
		return &RowError{Row: row, Field: FieldSymbol, Reason: "is required"}
	}

	symbol := strings.TrimSpace(s.Symbol)
	checks := []struct {
		field string
		value float64
		ok    bool
		rule  string
	}{
		{FieldStartingShares, s.StartingShares, s.StartingShares >= 0, "must not be negative"},
		{FieldSharePrice, s.SharePrice, s.SharePrice > 0, "must be positive"},
		{FieldDividend, s.Dividend, s.Dividend >= 0, "must not be negative"},
		{FieldDivGrowth, s.DividendGrowthPct, s.DividendGrowthPct >= -100, "must be at least -100"},
		{FieldPriceGrowth, s.PriceGrowthPct, s.PriceGrowthPct >= -100, "must be at least -100"},
		{FieldReinvest, s.ReinvestPct, s.ReinvestPct >= 0 && s.ReinvestPct <= 100, "must be between 0 and 100"},
		{FieldTargetIncome, s.TargetIncome, s.TargetIncome > 0, "must be positive"},
		{FieldInflation, s.InflationPct, s.InflationPct > -100, "must be greater than -100"},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return &RowError{Row: row, Symbol: symbol, Field: c.field, Value: fmt.Sprint(c.value), Reason: "must be a finite number"}
		}
		if !c.ok {
			return &RowError{Row: row, Symbol: symbol, Field: c.field, Value: fmt.Sprint(c.value), Reason: c.rule}
		}
	}
	return nil
}

// ValidateHoldings validates every row and rejects duplicate symbols. It stops at the
// first problem so a run is either fully valid or never started.
func ValidateHoldings(specs []HoldingSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no holdings", ErrInvalidParameters)
	}

	seen := make(map[string]int, len(specs))
	for i, spec := range specs {
		row := i + 1
		if err := spec.Validate(row); err != nil {
			return err
		}
		symbol := strings.TrimSpace(spec.Symbol)
		if first, dup := seen[symbol]; dup {
			return &RowError{
				Row:    row,
				Symbol: symbol,
				Field:  FieldSymbol,
				Value:  symbol,
				Reason: fmt.Sprintf("duplicates row %d", first),
			}
		}
		seen[symbol] = row
	}
	return nil
}

// Parameters is the run configuration.
type Parameters struct {
	Years                 int      `json:"years" msgpack:"years"`
	QuarterlyContribution float64  `json:"quarterly_contribution" msgpack:"quarterly_contribution"`
	TopN                  int      `json:"top_n" msgpack:"top_n"`
	Policy                Policy   `json:"policy" msgpack:"policy"`
	CashSweepSymbols      []string `json:"cash_sweep_symbols,omitempty" msgpack:"cash_sweep_symbols,omitempty"`
}

// Validate rejects degenerate parameters before any year is simulated.
func (p Parameters) Validate() error {
	if p.Years < 1 {
		return fmt.Errorf("%w: years must be at least 1, got %d", ErrInvalidParameters, p.Years)
	}
	if math.IsNaN(p.QuarterlyContribution) || math.IsInf(p.QuarterlyContribution, 0) || p.QuarterlyContribution < 0 {
		return fmt.Errorf("%w: quarterly contribution must be a non-negative number, got %v", ErrInvalidParameters, p.QuarterlyContribution)
	}
	if p.TopN < 1 {
		return fmt.Errorf("%w: top_n must be at least 1, got %d", ErrInvalidParameters, p.TopN)
	}
	if _, err := ParsePolicy(string(p.Policy)); err != nil {
		return err
	}
	return nil
}

// AnnualContribution is the quarterly contribution times four.
func (p Parameters) AnnualContribution() float64 {
	return p.QuarterlyContribution * QuartersPerYear
}

// isCashSweep matches symbols case-insensitively against the configured sweep list.
func (p Parameters) isCashSweep(symbol string) bool {
	for _, s := range p.CashSweepSymbols {
		if strings.EqualFold(strings.TrimSpace(s), symbol) {
			return true
		}
	}
	return false
}

// YearlyRecord is the snapshot of one holding in one year, taken after allocation and
// before growth. Money and share figures are rounded to cents for reporting.
type YearlyRecord struct {
	Year               int     `json:"year" msgpack:"year"`
	Symbol             string  `json:"symbol" msgpack:"symbol"`
	Shares             float64 `json:"shares" msgpack:"shares"`
	Price              float64 `json:"price" msgpack:"price"`
	DividendPerShare   float64 `json:"dividend_per_share" msgpack:"dividend_per_share"`
	AnnualDividend     float64 `json:"annual_dividend" msgpack:"annual_dividend"`
	ReinvestedIncome   float64 `json:"reinvested_income" msgpack:"reinvested_income"`
	Contribution       float64 `json:"contribution" msgpack:"contribution"`
	ActualIncome       float64 `json:"actual_income" msgpack:"actual_income"`
	InflationAdjTarget float64 `json:"inflation_adj_target" msgpack:"inflation_adj_target"`
	MetTarget          bool    `json:"met_target" msgpack:"met_target"`
	Prioritized        bool    `json:"prioritized" msgpack:"prioritized"`
}

// YearResult is everything one engine step produced.
type YearResult struct {
	Year        int            `json:"year"`
	Prioritized []string       `json:"prioritized"`
	Records     []YearlyRecord `json:"records"`
}
