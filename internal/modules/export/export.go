// Package export serializes projection records for download and archival.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/vmihailenco/msgpack/v5"
)

// CSVFilename is the suggested download name for a CSV export.
const CSVFilename = "income_projection_results.csv"

// Content types served for each format.
const (
	ContentTypeCSV     = "text/csv"
	ContentTypeMsgpack = "application/msgpack"
)

// Header is the CSV column layout of an export.
var Header = []string{
	"Year",
	"Symbol",
	"Shares",
	"Price",
	"Dividend/Share",
	"Annual Dividend",
	"Reinvested Income",
	"Contribution",
	"Actual Income",
	"Inflation-Adj Target",
	"Met Target?",
	"Prioritized",
}

// WriteCSV writes the header followed by one line per record.
func WriteCSV(w io.Writer, records []projection.YearlyRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, r := range records {
		line := []string{
			strconv.Itoa(r.Year),
			r.Symbol,
			formatFloat(r.Shares),
			formatFloat(r.Price),
			formatFloat(r.DividendPerShare),
			formatFloat(r.AnnualDividend),
			formatFloat(r.ReinvestedIncome),
			formatFloat(r.Contribution),
			formatFloat(r.ActualIncome),
			formatFloat(r.InflationAdjTarget),
			formatBool(r.MetTarget),
			formatBool(r.Prioritized),
		}
		if err := writer.Write(line); err != nil {
			return fmt.Errorf("failed to write csv record for %s year %d: %w", r.Symbol, r.Year, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteMsgpack encodes the records as a single msgpack array.
func WriteMsgpack(w io.Writer, records []projection.YearlyRecord) error {
	if records == nil {
		records = []projection.YearlyRecord{}
	}
	if err := msgpack.NewEncoder(w).Encode(records); err != nil {
		return fmt.Errorf("failed to encode msgpack: %w", err)
	}
	return nil
}

// ReadMsgpack decodes what WriteMsgpack produced.
func ReadMsgpack(r io.Reader) ([]projection.YearlyRecord, error) {
	var records []projection.YearlyRecord
	if err := msgpack.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode msgpack: %w", err)
	}
	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}
