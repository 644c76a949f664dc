// Package cleanup provides data cleanup and maintenance functionality.
package cleanup

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Pruner deletes stored projection runs older than a retention window.
type Pruner interface {
	Prune(retention time.Duration, now time.Time) (int64, error)
}

// RetentionJob removes stored projection runs past their retention period.
// Runs daily; a zero retention keeps runs forever.
type RetentionJob struct {
	pruner    Pruner
	retention time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewRetentionJob creates a new retention job
func NewRetentionJob(pruner Pruner, retention time.Duration, log zerolog.Logger) *RetentionJob {
	return &RetentionJob{
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		log:       log.With().Str("job", "projection_retention").Logger(),
	}
}

// Name returns the job name
func (j *RetentionJob) Name() string {
	return "projection_retention"
}

// Run executes the cleanup job
func (j *RetentionJob) Run() error {
	if j.retention <= 0 {
		j.log.Debug().Msg("Retention disabled, keeping all runs")
		return nil
	}

	start := j.now()
	deleted, err := j.pruner.Prune(j.retention, start)
	if err != nil {
		return fmt.Errorf("failed to prune projection runs: %w", err)
	}

	j.log.Info().
		Int64("deleted", deleted).
		Dur("retention", j.retention).
		Dur("duration", j.now().Sub(start)).
		Msg("Projection retention completed")
	return nil
}
