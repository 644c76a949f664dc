package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	runFlags
	currency string
	raw      bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "display a projection summary" }
func (*reportCmd) Usage() string {
	return `projector report -input <portfolio.csv> [-years 25] [-contribution 250] [-top 5] [-c USD] [-raw]

  Runs the projection and displays final-year income, the final-year value
  table, income by year, cumulative income against cumulative target and
  when each holding first met its target.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.runFlags.register(f)
	f.StringVar(&c.currency, "c", "USD", "currency used to format amounts")
	f.BoolVar(&c.raw, "raw", false, "print markdown without terminal styling")
}

func (c *reportCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	specs, params, err := c.load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	records, err := projection.Simulate(specs, params, c.logger())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running projection: %v\n", err)
		return subcommands.ExitFailure
	}

	md := renderReport(params, projection.Summarize(records), c.currency)
	if c.raw {
		fmt.Print(md)
		return subcommands.ExitSuccess
	}
	printMarkdown(md)
	return subcommands.ExitSuccess
}

// printMarkdown renders md for the terminal, falling back to plain text.
func printMarkdown(md string) {
	out, err := glamour.Render(md, "auto")
	if err != nil {
		fmt.Print(md)
		return
	}
	fmt.Print(out)
}

// formatMoney formats v in the currency's major unit, e.g. $1,234.56.
func formatMoney(v float64, currency string) string {
	cur := *money.New(0, currency).Currency()
	minor := decimal.NewFromFloat(v).Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

func renderReport(params projection.Parameters, summary projection.Summary, currency string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Income projection\n\n")
	fmt.Fprintf(&b, "%d years, %s per quarter, top %d, policy `%s`\n\n",
		params.Years, formatMoney(params.QuarterlyContribution, currency), params.TopN, params.Policy)

	fmt.Fprintf(&b, "**Total income in year %d:** %s\n\n", summary.FinalYear, formatMoney(summary.FinalYearIncome, currency))
	fmt.Fprintf(&b, "**Portfolio value in year %d:** %s\n\n", summary.FinalYear, formatMoney(summary.FinalYearValue, currency))

	fmt.Fprintf(&b, "## Final year holdings\n\n")
	fmt.Fprintf(&b, "| Symbol | Shares | Price | Value | Income |\n")
	fmt.Fprintf(&b, "|:---|---:|---:|---:|---:|\n")
	for _, v := range summary.FinalValues {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			v.Symbol,
			decimal.NewFromFloat(v.Shares).StringFixed(2),
			formatMoney(v.Price, currency),
			formatMoney(v.FinalValue, currency),
			formatMoney(v.TotalDividends, currency))
	}

	fmt.Fprintf(&b, "\n## Income by year\n\n")
	fmt.Fprintf(&b, "| Year | Income | Growth |\n")
	fmt.Fprintf(&b, "|---:|---:|---:|\n")
	for _, y := range summary.IncomeByYear {
		fmt.Fprintf(&b, "| %d | %s | %s%% |\n", y.Year, formatMoney(y.Income, currency), decimal.NewFromFloat(y.GrowthPct).StringFixed(1))
	}

	fmt.Fprintf(&b, "\n## Cumulative income vs target\n\n")
	fmt.Fprintf(&b, "| Symbol | Through year | Income | Target |\n")
	fmt.Fprintf(&b, "|:---|---:|---:|---:|\n")
	for _, c := range projection.FinalCumulative(summary.Cumulative) {
		fmt.Fprintf(&b, "| %s | %d | %s | %s |\n",
			c.Symbol, c.Year, formatMoney(c.CumulativeIncome, currency), formatMoney(c.CumulativeTarget, currency))
	}

	fmt.Fprintf(&b, "\n## Target achievement\n\n")
	fmt.Fprintf(&b, "| Symbol | First year met |\n")
	fmt.Fprintf(&b, "|:---|---:|\n")
	for _, a := range summary.Achievements {
		first := "Never"
		if a.EverMetTarget {
			first = fmt.Sprint(a.FirstYearMet)
		}
		fmt.Fprintf(&b, "| %s | %s |\n", a.Symbol, first)
	}

	return b.String()
}
