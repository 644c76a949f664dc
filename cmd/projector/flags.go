package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/aristath/sentinel-income/internal/modules/ingest"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/aristath/sentinel-income/internal/utils"
	"github.com/aristath/sentinel-income/pkg/logger"
	"github.com/rs/zerolog"
)

// runFlags are the flags shared by every command that runs a projection.
type runFlags struct {
	input        string
	years        int
	contribution float64
	topN         int
	policy       string
	sweep        string
	verbose      bool
}

func (r *runFlags) register(f *flag.FlagSet) {
	f.StringVar(&r.input, "input", "portfolio.csv", "CSV file with one holding per row")
	f.IntVar(&r.years, "years", 25, "number of years to project")
	f.Float64Var(&r.contribution, "contribution", 250, "new capital added every quarter")
	f.IntVar(&r.topN, "top", 5, "number of under-target holdings that receive new capital each year")
	f.StringVar(&r.policy, "policy", string(projection.PolicyReinvestAll), "reinvestment policy: reinvest_all or prioritized_only")
	f.StringVar(&r.sweep, "sweep", projection.DefaultCashSweepSymbol, "comma-separated cash sweep symbols")
	f.BoolVar(&r.verbose, "v", false, "log every simulated year to stderr")
}

func (r *runFlags) logger() zerolog.Logger {
	level := "warn"
	if r.verbose {
		level = "debug"
	}
	return logger.New(logger.Config{Level: level, Pretty: true, Output: os.Stderr})
}

// load reads the holdings file and assembles the run parameters.
func (r *runFlags) load() ([]projection.HoldingSpec, projection.Parameters, error) {
	policy, err := projection.ParsePolicy(r.policy)
	if err != nil {
		return nil, projection.Parameters{}, err
	}

	file, err := os.Open(r.input)
	if err != nil {
		return nil, projection.Parameters{}, fmt.Errorf("failed to open holdings: %w", err)
	}
	defer file.Close()

	specs, err := ingest.ReadHoldings(file)
	if err != nil {
		return nil, projection.Parameters{}, fmt.Errorf("%s: %w", r.input, err)
	}

	params := projection.Parameters{
		Years:                 r.years,
		QuarterlyContribution: r.contribution,
		TopN:                  r.topN,
		Policy:                policy,
		CashSweepSymbols:      utils.ParseSymbols(r.sweep),
	}
	return specs, params, params.Validate()
}
