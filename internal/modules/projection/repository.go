package projection

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/sentinel-income/internal/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Run is a persisted projection: its inputs plus headline figures. Records are stored
// separately and loaded on demand.
type Run struct {
	ID              string        `json:"id"`
	CreatedAt       time.Time     `json:"created_at"`
	Parameters      Parameters    `json:"parameters"`
	Holdings        []HoldingSpec `json:"holdings"`
	FinalYearIncome float64       `json:"final_year_income"`
}

// RunRepository stores projection runs and their records in projections.db.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

const runColumns = `id, created_at, policy, years, quarterly_contribution, top_n,
cash_sweep_symbols, final_year_income, holdings_json`

const recordColumns = `year, symbol, shares, price, dividend_per_share, annual_dividend,
reinvested_income, contribution, actual_income, inflation_adj_target, met_target, prioritized`

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "projection_run").Logger(),
	}
}

// Create stores a run and its records in one transaction. A missing ID or creation
// time is filled in.
func (r *RunRepository) Create(run *Run, records []YearlyRecord) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	holdingsJSON, err := json.Marshal(run.Holdings)
	if err != nil {
		return fmt.Errorf("failed to marshal holdings: %w", err)
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO projection_runs
			(id, created_at, policy, years, quarterly_contribution, top_n,
			 cash_sweep_symbols, holdings_count, final_year_income, holdings_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			run.CreatedAt.Unix(),
			string(run.Parameters.Policy),
			run.Parameters.Years,
			run.Parameters.QuarterlyContribution,
			run.Parameters.TopN,
			strings.Join(run.Parameters.CashSweepSymbols, ","),
			len(run.Holdings),
			run.FinalYearIncome,
			string(holdingsJSON),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO projection_records
			(run_id, seq, ` + recordColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare record insert: %w", err)
		}
		defer stmt.Close()

		for seq, rec := range records {
			_, err := stmt.Exec(
				run.ID, seq,
				rec.Year, rec.Symbol, rec.Shares, rec.Price, rec.DividendPerShare,
				rec.AnnualDividend, rec.ReinvestedIncome, rec.Contribution,
				rec.ActualIncome, rec.InflationAdjTarget,
				boolToInt(rec.MetTarget), boolToInt(rec.Prioritized),
			)
			if err != nil {
				return fmt.Errorf("failed to insert record %d: %w", seq, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("run_id", run.ID).
		Int("records", len(records)).
		Msg("Projection run stored")
	return nil
}

// GetByID returns the run or nil when it does not exist.
func (r *RunRepository) GetByID(id string) (*Run, error) {
	row := r.db.QueryRow("SELECT "+runColumns+" FROM projection_runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// List returns the most recent runs first. limit <= 0 means no limit.
func (r *RunRepository) List(limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM projection_runs ORDER BY created_at DESC, id"
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetRecords returns a run's records in emission order.
func (r *RunRepository) GetRecords(id string) ([]YearlyRecord, error) {
	rows, err := r.db.Query("SELECT "+recordColumns+" FROM projection_records WHERE run_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get records for run %s: %w", id, err)
	}
	defer rows.Close()

	records := []YearlyRecord{}
	for rows.Next() {
		var rec YearlyRecord
		var met, prioritized int
		if err := rows.Scan(
			&rec.Year, &rec.Symbol, &rec.Shares, &rec.Price, &rec.DividendPerShare,
			&rec.AnnualDividend, &rec.ReinvestedIncome, &rec.Contribution,
			&rec.ActualIncome, &rec.InflationAdjTarget, &met, &prioritized,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.MetTarget = met != 0
		rec.Prioritized = prioritized != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Delete removes a run and its records. It reports whether the run existed.
func (r *RunRepository) Delete(id string) (bool, error) {
	var affected int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM projection_records WHERE run_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete records: %w", err)
		}
		res, err := tx.Exec("DELETE FROM projection_runs WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteOlderThan removes every run created before cutoff and returns how many went.
func (r *RunRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	var affected int64
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			DELETE FROM projection_records
			WHERE run_id IN (SELECT id FROM projection_runs WHERE created_at < ?)`, cutoff.Unix()); err != nil {
			return fmt.Errorf("failed to delete old records: %w", err)
		}
		res, err := tx.Exec("DELETE FROM projection_runs WHERE created_at < ?", cutoff.Unix())
		if err != nil {
			return fmt.Errorf("failed to delete old runs: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		r.log.Info().Int64("deleted", affected).Time("cutoff", cutoff).Msg("Old projection runs deleted")
	}
	return affected, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run          Run
		createdAt    int64
		policy       string
		sweep        string
		holdingsJSON string
	)
	if err := row.Scan(
		&run.ID, &createdAt, &policy,
		&run.Parameters.Years, &run.Parameters.QuarterlyContribution, &run.Parameters.TopN,
		&sweep, &run.FinalYearIncome, &holdingsJSON,
	); err != nil {
		return nil, err
	}

	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	run.Parameters.Policy = Policy(policy)
	if sweep != "" {
		run.Parameters.CashSweepSymbols = strings.Split(sweep, ",")
	}
	if err := json.Unmarshal([]byte(holdingsJSON), &run.Holdings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal holdings: %w", err)
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
