// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/aristath/sentinel-income/internal/config"
	"github.com/aristath/sentinel-income/internal/modules/cleanup"
	"github.com/aristath/sentinel-income/internal/scheduler"
	"github.com/rs/zerolog"
)

// walCheckpointSchedule checks WAL growth every 15 minutes
const walCheckpointSchedule = "0 */15 * * * *"

// RegisterJobs creates the maintenance jobs and registers them with the scheduler.
// Returns JobInstances for manual triggering via API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.Scheduler == nil {
		return nil, fmt.Errorf("container services not initialized")
	}

	instances := &JobInstances{
		Retention: cleanup.NewRetentionJob(container.ProjectionService, cfg.Retention(), log),
	}

	walJob := scheduler.NewCheckWALCheckpointsJob(container.ProjectionsDB)
	walJob.SetLogger(log)
	instances.WALCheckpoints = walJob

	if err := container.Scheduler.AddJob(cfg.CleanupSchedule, instances.Retention); err != nil {
		return nil, fmt.Errorf("failed to register retention job: %w", err)
	}
	if err := container.Scheduler.AddJob(walCheckpointSchedule, instances.WALCheckpoints); err != nil {
		return nil, fmt.Errorf("failed to register WAL checkpoint job: %w", err)
	}

	return instances, nil
}
