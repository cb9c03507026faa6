package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/api"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/clock"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/config"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/db"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/eventbus"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/ledger"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/lifecycle"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/registry"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/roomservice"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/scheduler"
)

// Services is a container for all application services. It manages
// initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Bus    *eventbus.Bus

	// Lifecycle engine
	Registry   *registry.Registry
	Client     *roomservice.Client
	Scheduler  *scheduler.Scheduler
	Controller *lifecycle.Controller

	// Outer surfaces
	API    *api.Server
	Resync *ResyncService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Bus = eventbus.NewWithConfig(cfg.EventBus.GetWorkers(), cfg.EventBus.GetQueueSize())
	s.Registry = registry.New()

	s.Client = roomservice.NewClient(
		cfg.RoomService.BaseURL,
		cfg.RoomService.Token,
		cfg.RoomService.Timeout.Duration(),
		cfg.RoomService.RateLimitRPS,
	)

	s.Scheduler = scheduler.New(clock.System())
	s.Controller = lifecycle.New(s.Client, s.Registry, s.Scheduler, s.Bus, s.Ledger, clock.System())

	s.API = api.NewServer(cfg.API.Host, cfg.API.Port, s.Controller, s.Registry, s.Ledger)
	s.Resync = NewResyncService(cfg, s.Controller)

	return s, nil
}

// Start rehydrates the registry and timer table from the Room Service,
// then starts the background services. Rehydration failure is fatal: the
// daemon must not serve requests over an empty registry.
func (s *Services) Start(ctx context.Context) error {
	if s.cfg.SkipRehydrate {
		log.Warn().Msg("Rehydration skipped, registry starts empty until the first resync")
	} else {
		rehydrateCtx, cancel := context.WithTimeout(ctx, s.cfg.RoomService.Timeout.Duration())
		defer cancel()

		if err := s.Controller.Rehydrate(rehydrateCtx); err != nil {
			return err
		}
	}

	go func() {
		if err := s.API.Run(ctx, s.cfg.ShutdownTimeout.Duration()); err != nil {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	s.Resync.Start(ctx)
	go s.runLedgerCleanup(ctx)

	return nil
}

// runLedgerCleanup periodically removes transition history past the
// retention window.
func (s *Services) runLedgerCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.RetentionPeriod()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to clean up old ledger entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old ledger entries")
			}
		}
	}
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.Bus != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Duration())
		defer cancel()
		s.Bus.Close(ctx)
	}
	if s.Client != nil {
		s.Client.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
