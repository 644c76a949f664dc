// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/sentinel-income/internal/config"
	"github.com/aristath/sentinel-income/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens projections.db and applies its schema
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// projections.db - stored projection runs and their yearly records
	projectionsDB, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "projections",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize projections database: %w", err)
	}

	if err := projectionsDB.Migrate(); err != nil {
		projectionsDB.Close()
		return nil, fmt.Errorf("failed to migrate projections database: %w", err)
	}
	container.ProjectionsDB = projectionsDB

	log.Info().Str("path", projectionsDB.Path()).Msg("Database initialized")

	return container, nil
}
