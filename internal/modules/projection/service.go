package projection

import (
	"fmt"
	"time"

	"github.com/aristath/sentinel-income/internal/utils"
	"github.com/rs/zerolog"
)

// RunStore is the persistence the service needs. RunRepository implements it.
type RunStore interface {
	Create(run *Run, records []YearlyRecord) error
	GetByID(id string) (*Run, error)
	List(limit int) ([]Run, error)
	GetRecords(id string) ([]YearlyRecord, error)
	Delete(id string) (bool, error)
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Request holds the user-selectable run parameters. Policy and cash sweep symbols
// are fixed per deployment and come from the service.
type Request struct {
	Years                 int     `json:"years"`
	QuarterlyContribution float64 `json:"quarterly_contribution"`
	TopN                  int     `json:"top_n"`
}

// Result is a stored run with its records and derived reports.
type Result struct {
	Run     Run            `json:"run"`
	Records []YearlyRecord `json:"records"`
	Summary Summary        `json:"summary"`
}

// Service runs projections under the deployment's policy and stores them.
type Service struct {
	store     RunStore
	policy    Policy
	cashSweep []string
	log       zerolog.Logger
}

// NewService creates a new projection service
func NewService(store RunStore, policy Policy, cashSweep []string, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		policy:    policy,
		cashSweep: cashSweep,
		log:       log.With().Str("service", "projection").Logger(),
	}
}

// Policy returns the deployment's reinvestment policy.
func (s *Service) Policy() Policy {
	return s.policy
}

// Parameters completes a request with the deployment's policy and cash sweep list.
func (s *Service) Parameters(req Request) Parameters {
	return Parameters{
		Years:                 req.Years,
		QuarterlyContribution: req.QuarterlyContribution,
		TopN:                  req.TopN,
		Policy:                s.policy,
		CashSweepSymbols:      s.cashSweep,
	}
}

// NewEngine builds an engine for callers that step through years themselves.
func (s *Service) NewEngine(specs []HoldingSpec, req Request) (*Engine, error) {
	return NewEngine(specs, s.Parameters(req), s.log)
}

// Simulate runs a projection without storing it.
func (s *Service) Simulate(specs []HoldingSpec, req Request) ([]YearlyRecord, error) {
	return Simulate(specs, s.Parameters(req), s.log)
}

// Project runs a projection, stores it and returns the stored result.
func (s *Service) Project(specs []HoldingSpec, req Request) (*Result, error) {
	params := s.Parameters(req)
	timer := utils.NewTimer("projection", s.log)
	records, err := Simulate(specs, params, s.log)
	timer.StopWithContext(map[string]interface{}{
		"holdings": len(specs),
		"years":    params.Years,
		"policy":   string(params.Policy),
	})
	if err != nil {
		return nil, err
	}

	summary := Summarize(records)
	run := Run{
		Parameters:      params,
		Holdings:        specs,
		FinalYearIncome: summary.FinalYearIncome,
	}
	if err := s.store.Create(&run, records); err != nil {
		return nil, fmt.Errorf("failed to store projection: %w", err)
	}

	s.log.Info().
		Str("run_id", run.ID).
		Int("holdings", len(specs)).
		Int("years", params.Years).
		Float64("final_year_income", summary.FinalYearIncome).
		Msg("Projection stored")

	return &Result{Run: run, Records: records, Summary: summary}, nil
}

// Get loads a stored run with its records and reports, or nil when unknown.
func (s *Service) Get(id string) (*Result, error) {
	run, err := s.store.GetByID(id)
	if err != nil || run == nil {
		return nil, err
	}
	records, err := s.store.GetRecords(id)
	if err != nil {
		return nil, err
	}
	return &Result{Run: *run, Records: records, Summary: Summarize(records)}, nil
}

// List returns stored runs, most recent first.
func (s *Service) List(limit int) ([]Run, error) {
	return s.store.List(limit)
}

// Records returns the stored records of a run, or nil when the run is unknown.
func (s *Service) Records(id string) ([]YearlyRecord, error) {
	run, err := s.store.GetByID(id)
	if err != nil || run == nil {
		return nil, err
	}
	return s.store.GetRecords(id)
}

// Delete removes a stored run.
func (s *Service) Delete(id string) (bool, error) {
	return s.store.Delete(id)
}

// Prune deletes runs older than retention and returns how many were removed.
func (s *Service) Prune(retention time.Duration, now time.Time) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.store.DeleteOlderThan(now.Add(-retention))
}
