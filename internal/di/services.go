// Package di provides dependency injection for service implementations.
package di

import (
	"context"
	"fmt"

	"github.com/aristath/sentinel-income/internal/config"
	"github.com/aristath/sentinel-income/internal/modules/archive"
	"github.com/aristath/sentinel-income/internal/modules/projection"
	"github.com/aristath/sentinel-income/internal/scheduler"
	"github.com/rs/zerolog"
)

// InitializeServices creates all services
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.RunRepo == nil {
		return fmt.Errorf("container repositories not initialized")
	}

	container.ProjectionService = projection.NewService(
		container.RunRepo,
		cfg.Policy,
		cfg.CashSweepSymbols,
		log,
	)

	archiver, err := archive.New(ctx, cfg.Archive, log)
	if err != nil {
		return fmt.Errorf("failed to initialize archive: %w", err)
	}
	container.Archiver = archiver

	container.Scheduler = scheduler.New(log)

	log.Info().
		Str("policy", string(cfg.Policy)).
		Strs("cash_sweep", cfg.CashSweepSymbols).
		Bool("archive", archiver.Enabled()).
		Msg("Services initialized")

	return nil
}
