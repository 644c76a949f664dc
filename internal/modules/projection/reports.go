package projection

import (
	"sort"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
)

// HoldingValue is one row of the final-year value table.
type HoldingValue struct {
	Symbol           string  `json:"symbol"`
	FinalValue       float64 `json:"final_value"`
	Shares           float64 `json:"shares"`
	Price            float64 `json:"price"`
	DividendPerShare float64 `json:"dividend_per_share"`
	TotalDividends   float64 `json:"total_dividends"`
}

// YearIncome is total portfolio income for one year. GrowthPct is the change from the
// previous year in percent, 0 for the first year or when the previous year was 0.
type YearIncome struct {
	Year      int     `json:"year"`
	Income    float64 `json:"income"`
	GrowthPct float64 `json:"growth_pct"`
}

// CumulativeIncome is the running total of income and target for one symbol.
type CumulativeIncome struct {
	Year             int     `json:"year"`
	Symbol           string  `json:"symbol"`
	CumulativeIncome float64 `json:"cumulative_income"`
	CumulativeTarget float64 `json:"cumulative_target"`
}

// TargetAchievement says whether and when a symbol first met its target.
type TargetAchievement struct {
	Symbol        string `json:"symbol"`
	EverMetTarget bool   `json:"ever_met_target"`
	FirstYearMet  int    `json:"first_year_met,omitempty"` // 0 when never met
}

// Summary bundles the derived reports shown next to a run.
type Summary struct {
	FinalYear       int                 `json:"final_year"`
	FinalYearIncome float64             `json:"final_year_income"`
	FinalYearValue  float64             `json:"final_year_value"`
	FinalValues     []HoldingValue      `json:"final_values"`
	IncomeByYear    []YearIncome        `json:"income_by_year"`
	Cumulative      []CumulativeIncome  `json:"cumulative"`
	Achievements    []TargetAchievement `json:"achievements"`
}

// Summarize derives every report from a record sequence.
func Summarize(records []YearlyRecord) Summary {
	finalValues := FinalYearValues(records)
	values := make([]float64, len(finalValues))
	for i, v := range finalValues {
		values[i] = v.FinalValue
	}

	incomes := IncomeByYear(records)
	summary := Summary{
		FinalValues:    finalValues,
		IncomeByYear:   incomes,
		Cumulative:     CumulativeBySymbol(records),
		Achievements:   TargetAchievements(records),
		FinalYearValue: round(floats.Sum(values)),
	}
	if n := len(incomes); n > 0 {
		summary.FinalYear = incomes[n-1].Year
		summary.FinalYearIncome = incomes[n-1].Income
	}
	return summary
}

// FinalCumulative returns each symbol's last cumulative row, in first-seen order.
func FinalCumulative(rows []CumulativeIncome) []CumulativeIncome {
	index := map[string]int{}
	var out []CumulativeIncome
	for _, r := range rows {
		if i, ok := index[r.Symbol]; ok {
			out[i] = r
			continue
		}
		index[r.Symbol] = len(out)
		out = append(out, r)
	}
	return out
}

func finalYear(records []YearlyRecord) int {
	year := 0
	for _, r := range records {
		if r.Year > year {
			year = r.Year
		}
	}
	return year
}

// FinalYearValues lists every holding's value (shares × price) in the last year,
// largest first.
func FinalYearValues(records []YearlyRecord) []HoldingValue {
	last := finalYear(records)
	var values []HoldingValue
	for _, r := range records {
		if r.Year != last {
			continue
		}
		values = append(values, HoldingValue{
			Symbol:           r.Symbol,
			FinalValue:       round(r.Shares * r.Price),
			Shares:           r.Shares,
			Price:            r.Price,
			DividendPerShare: r.DividendPerShare,
			TotalDividends:   r.AnnualDividend,
		})
	}
	sort.SliceStable(values, func(i, j int) bool {
		return values[i].FinalValue > values[j].FinalValue
	})
	return values
}

// IncomeByYear sums actual income across holdings per year.
func IncomeByYear(records []YearlyRecord) []YearIncome {
	byYear := map[int][]float64{}
	var years []int
	for _, r := range records {
		if _, ok := byYear[r.Year]; !ok {
			years = append(years, r.Year)
		}
		byYear[r.Year] = append(byYear[r.Year], r.ActualIncome)
	}
	sort.Ints(years)

	totals := make([]float64, len(years))
	for i, y := range years {
		totals[i] = round(floats.Sum(byYear[y]))
	}

	growth := make([]float64, len(totals))
	if len(totals) > 1 {
		growth = talib.Roc(totals, 1)
	}

	out := make([]YearIncome, len(years))
	for i, y := range years {
		out[i] = YearIncome{Year: y, Income: totals[i], GrowthPct: round(growth[i])}
	}
	return out
}

// CumulativeBySymbol returns running income and target totals per symbol, in record order.
func CumulativeBySymbol(records []YearlyRecord) []CumulativeIncome {
	income := map[string]float64{}
	target := map[string]float64{}
	out := make([]CumulativeIncome, len(records))
	for i, r := range records {
		income[r.Symbol] += r.ActualIncome
		target[r.Symbol] += r.InflationAdjTarget
		out[i] = CumulativeIncome{
			Year:             r.Year,
			Symbol:           r.Symbol,
			CumulativeIncome: round(income[r.Symbol]),
			CumulativeTarget: round(target[r.Symbol]),
		}
	}
	return out
}

// TargetAchievements reports, per symbol in first-seen order, the first year its
// recorded income met the target.
func TargetAchievements(records []YearlyRecord) []TargetAchievement {
	index := map[string]int{}
	var out []TargetAchievement
	for _, r := range records {
		i, ok := index[r.Symbol]
		if !ok {
			i = len(out)
			index[r.Symbol] = i
			out = append(out, TargetAchievement{Symbol: r.Symbol})
		}
		if r.MetTarget && (!out[i].EverMetTarget || r.Year < out[i].FirstYearMet) {
			out[i].EverMetTarget = true
			out[i].FirstYearMet = r.Year
		}
	}
	return out
}
