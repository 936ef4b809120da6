package progress

import (
	"context"
	"errors"
	"time"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/adapter/logger"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/config"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
	"github.com/Rao130/SARA-PHARMACY-sub000/internal/interfaces"
)

// advancer is the slice of the lifecycle service the scheduler needs.
type advancer interface {
	AutoProgress(ctx context.Context, orderID, actorRef string) (*domain.Order, error)
}

// Scheduler advances orders that sat in a status past the configured
// dwell time, simulating fulfillment when no human drives the
// transitions and unsticking abandoned orders. It owns no per-order
// timers: a terminal order simply drops out of the next scan, so
// nothing keeps firing for it.
type Scheduler struct {
	orders interfaces.OrderRepository
	engine advancer
	cfg    config.AutoProgressConfig
	logger logger.Logger
}

func NewScheduler(orders interfaces.OrderRepository, engine advancer, cfg config.AutoProgressConfig, lgr logger.Logger) *Scheduler {
	return &Scheduler{
		orders: orders,
		engine: engine,
		cfg:    cfg,
		logger: lgr,
	}
}

// Run scans until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	interval := time.Duration(s.cfg.ScanIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("scheduler_started", "Progress scheduler started", map[string]any{
		"scan_interval_seconds": s.cfg.ScanIntervalSeconds,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler_stopped", "Progress scheduler stopped", nil)
			return
		case <-ticker.C:
			s.Scan(ctx)
		}
	}
}

// Scan advances every active order whose dwell time has elapsed.
// Racing a human transition is safe: the state machine turns the
// stale attempt into a no-op.
func (s *Scheduler) Scan(ctx context.Context) {
	active, err := s.orders.ListActive(ctx)
	if err != nil {
		s.logger.Error("scan_failed", "Failed to list active orders", nil, err)
		return
	}

	now := time.Now().UTC()
	for _, order := range active {
		dwell, ok := s.cfg.DwellFor(string(order.Status))
		if !ok {
			continue
		}
		if now.Sub(order.UpdatedAt) < dwell {
			continue
		}

		if _, err := s.engine.AutoProgress(ctx, order.ID, interfaces.ActorSystem); err != nil {
			switch {
			case errors.Is(err, domain.ErrTerminalState),
				errors.Is(err, domain.ErrInvalidTransition):
				// Lost a race to another actor; nothing to do.
			case errors.Is(err, domain.ErrNoAgentAvailable):
				s.logger.Debug("auto_progress_waiting", "No agent available, order stays put", map[string]any{
					"order_id": order.ID,
					"status":   string(order.Status),
				})
			default:
				s.logger.Error("auto_progress_failed", "Failed to auto-progress order", map[string]any{
					"order_id": order.ID,
				}, err)
			}
		}
	}
}
