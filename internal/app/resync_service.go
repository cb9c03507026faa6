package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/config"
	"github.com/Triphan2609/Luanvan2025-FE-sub002/internal/lifecycle"
)

// ResyncService periodically refreshes the registry from the Room Service,
// picking up changes made outside this daemon (bookings, checkouts, other
// back-office instances).
type ResyncService struct {
	cfg  *config.Config
	ctrl *lifecycle.Controller
}

// NewResyncService creates a ResyncService.
func NewResyncService(cfg *config.Config, ctrl *lifecycle.Controller) *ResyncService {
	return &ResyncService{cfg: cfg, ctrl: ctrl}
}

// Start begins the resync loop if enabled.
func (s *ResyncService) Start(ctx context.Context) {
	if !s.cfg.Resync.Enabled {
		log.Info().Msg("Periodic resync is disabled")
		return
	}

	go s.run(ctx)
}

func (s *ResyncService) run(ctx context.Context) {
	interval := s.cfg.Resync.Interval.Duration()
	log.Info().Dur("interval", interval).Msg("Periodic resync started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.RoomService.Timeout.Duration())
			err := s.ctrl.Resync(callCtx)
			cancel()
			if err != nil {
				// Not retried here; the next tick fetches again.
				log.Error().Err(err).Msg("Periodic resync failed")
			}
		}
	}
}
