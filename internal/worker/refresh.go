package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/logistics-leaderboard/internal/config"
	"github.com/logistics-leaderboard/internal/domain"
	"github.com/logistics-leaderboard/internal/service"
)

// RefreshWorker periodically recomputes every leaderboard bucket and serves
// targeted refresh requests from the activity event consumer.
type RefreshWorker struct {
	service   *service.LeaderboardService
	config    *config.RefreshConfig
	logger    *slog.Logger
	refreshCh chan domain.Role
	stopCh    chan struct{}
	doneCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(svc *service.LeaderboardService, cfg *config.RefreshConfig, logger *slog.Logger) *RefreshWorker {
	return &RefreshWorker{
		service:   svc,
		config:    cfg,
		logger:    logger,
		refreshCh: make(chan domain.Role, 16),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("refresh worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *RefreshWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("refresh worker stopped")
	return nil
}

// RequestRefresh queues a targeted refresh of one role's boards. Requests
// are dropped when the queue is full; the periodic cycle catches up anyway.
func (w *RefreshWorker) RequestRefresh(role domain.Role) {
	if !role.IsValid() {
		return
	}
	select {
	case w.refreshCh <- role:
	default:
		w.logger.Debug("refresh queue full, dropping request", "role", role)
	}
}

// run is the main worker loop
func (w *RefreshWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.service.UpdateAllLeaderboards(ctx)
		case role := <-w.refreshCh:
			w.refreshRole(ctx, role)
		}
	}
}

// refreshRole recomputes every period bucket for a single role
func (w *RefreshWorker) refreshRole(ctx context.Context, role domain.Role) {
	start := time.Now()
	for _, period := range domain.Periods() {
		if err := w.service.UpdateLeaderboard(ctx, role, period); err != nil {
			w.logger.Error("failed to refresh leaderboard",
				"leaderboard_type", role,
				"period", period,
				"error", err,
			)
		}
	}
	w.logger.Info("role leaderboards refreshed", "role", role, "duration", time.Since(start))
}

// IsRunning returns whether the worker is currently running
func (w *RefreshWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single full refresh cycle (useful for manual triggers)
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	w.service.UpdateAllLeaderboards(ctx)
}
