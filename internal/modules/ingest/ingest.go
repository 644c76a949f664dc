// Package ingest turns an uploaded holdings table into validated holding specs.
// Loading is all or nothing: the first bad row rejects the whole table.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aristath/sentinel-income/internal/modules/projection"
)

// ErrMissingColumn is returned when the header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// Columns lists the required header names in their documented order.
var Columns = []string{
	projection.FieldSymbol,
	projection.FieldStartingShares,
	projection.FieldSharePrice,
	projection.FieldDividend,
	projection.FieldDivGrowth,
	projection.FieldPriceGrowth,
	projection.FieldReinvest,
	projection.FieldTargetIncome,
	projection.FieldInflation,
	projection.FieldPayoutFrequency,
}

// ReadHoldings parses a CSV table with a header row. Column order is free and extra
// columns are ignored. Values are validated with projection.ValidateHoldings.
func ReadHoldings(r io.Reader) ([]projection.HoldingSpec, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty table", projection.ErrMalformedRow)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns, err := indexColumns(header)
	if err != nil {
		return nil, err
	}

	var specs []projection.HoldingSpec
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}
		if blank(fields) {
			row--
			continue
		}

		spec, err := parseRow(row, fields, columns)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if err := projection.ValidateHoldings(specs); err != nil {
		return nil, err
	}
	return specs, nil
}

func indexColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		// Spreadsheet exports often carry a UTF-8 BOM on the first cell.
		name = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}

	var missing []string
	for _, c := range Columns {
		if _, ok := columns[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseRow(row int, fields []string, columns map[string]int) (projection.HoldingSpec, error) {
	cell := func(name string) string {
		i := columns[name]
		if i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	symbol := cell(projection.FieldSymbol)
	number := func(name string) (float64, error) {
		raw := cell(name)
		if raw == "" {
			return 0, &projection.RowError{Row: row, Symbol: symbol, Field: name, Reason: "is required"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, &projection.RowError{Row: row, Symbol: symbol, Field: name, Value: raw, Reason: "is not a number"}
		}
		return v, nil
	}

	spec := projection.HoldingSpec{
		Symbol:          symbol,
		PayoutFrequency: cell(projection.FieldPayoutFrequency),
	}
	targets := []struct {
		field string
		dst   *float64
	}{
		{projection.FieldStartingShares, &spec.StartingShares},
		{projection.FieldSharePrice, &spec.SharePrice},
		{projection.FieldDividend, &spec.Dividend},
		{projection.FieldDivGrowth, &spec.DividendGrowthPct},
		{projection.FieldPriceGrowth, &spec.PriceGrowthPct},
		{projection.FieldReinvest, &spec.ReinvestPct},
		{projection.FieldTargetIncome, &spec.TargetIncome},
		{projection.FieldInflation, &spec.InflationPct},
	}
	for _, t := range targets {
		v, err := number(t.field)
		if err != nil {
			return projection.HoldingSpec{}, err
		}
		*t.dst = v
	}
	return spec, nil
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
