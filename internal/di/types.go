/**
 * Package di provides dependency injection type definitions.
 *
 * This package defines the Container type which holds all application dependencies.
 * The Container is the single source of truth for all service instances and is
 * passed to the server for access to services.
 */
package di

import (
	"github.com/aristath/sentinel-income/internal/database"
	"github.com/aristath/sentinel-income/internal/modules/archive"
	"github.com/aristath/sentinel-income/internal/modules/cleanup"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/aristath/sentinel-income/internal/scheduler"
)

/**
 * Container holds all dependencies for the application.
 *
 * Architecture:
 * - Databases: projections.db (runs and their yearly records)
 * - Repositories: RunRepository
 * - Services: ProjectionService, Archiver
 * - Scheduler: cron scheduler running maintenance jobs
 */
type Container struct {
	// Databases
	ProjectionsDB *database.DB

	// Repositories
	RunRepo *projection.RunRepository

	// Services
	ProjectionService *projection.Service
	Archiver          *archive.Archiver

	// Background jobs
	Scheduler *scheduler.Scheduler
}

// JobInstances holds registered job instances for manual triggering via API
type JobInstances struct {
	Retention      *cleanup.RetentionJob
	WALCheckpoints *scheduler.CheckWALCheckpointsJob
}

// All returns every job keyed by name
func (j *JobInstances) All() map[string]scheduler.Job {
	jobs := make(map[string]scheduler.Job)
	if j == nil {
		return jobs
	}
	if j.Retention != nil {
		jobs[j.Retention.Name()] = j.Retention
	}
	if j.WALCheckpoints != nil {
		jobs[j.WALCheckpoints.Name()] = j.WALCheckpoints
	}
	return jobs
}

// Close releases the container's resources
func (c *Container) Close() error {
	if c == nil || c.ProjectionsDB == nil {
		return nil
	}
	return c.ProjectionsDB.Close()
}
