package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aristath/sentinel-income/internal/modules/export"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/google/subcommands"
)

// simulateCmd holds the flags for the 'simulate' subcommand.
type simulateCmd struct {
	runFlags
	format string
	output string
}

func (*simulateCmd) Name() string     { return "simulate" }
func (*simulateCmd) Synopsis() string { return "project yearly income and export every yearly record" }
func (*simulateCmd) Usage() string {
	return `projector simulate -input <portfolio.csv> [-years 25] [-contribution 250] [-top 5] [-format csv|msgpack|json] [-o <file>]

  Runs the projection and writes one record per holding per year.
`
}

func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	c.runFlags.register(f)
	f.StringVar(&c.format, "format", "csv", "output format: csv, msgpack or json")
	f.StringVar(&c.output, "o", "", "output file (default stdout)")
}

func (c *simulateCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	if c.output == "" {
		if err := writeRecords(os.Stdout, c.format, records); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing records: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	if err := writeFile(c.output, c.format, records); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", c.output, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// writeFile writes records to name. A failed close is reported because buffered data
// may not have reached the disk.
func writeFile(name, format string, records []projection.YearlyRecord) (err error) {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output: %w", cerr)
		}
	}()
	return writeRecords(file, format, records)
}

func writeRecords(w io.Writer, format string, records []projection.YearlyRecord) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, records)
	case "msgpack":
		return export.WriteMsgpack(w, records)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	return fmt.Errorf("unknown format %q", format)
}
