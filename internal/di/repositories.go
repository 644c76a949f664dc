// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.ProjectionsDB == nil {
		return fmt.Errorf("container databases not initialized")
	}

	container.RunRepo = projection.NewRunRepository(container.ProjectionsDB.Conn(), log)

	return nil
}
