package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
)

// HousekeepingService periodically expires stale reset tokens and prunes
// finished tokens and old audit events to prevent unbounded growth.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// ResetRetention is how long USED, CANCELLED and EXPIRED tokens are kept.
	ResetRetention time.Duration
	// AuditRetention of zero keeps audit events forever.
	AuditRetention time.Duration

	Now func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// CleanupStats counts what one cleanup pass touched.
type CleanupStats struct {
	Expired      int64
	DeletedReset int64
	DeletedAudit int64
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval, resetRetention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}
	if resetRetention <= 0 {
		resetRetention = 7 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:          store,
		Logger:         logger,
		Interval:       interval,
		ResetRetention: resetRetention,
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
	}
}

// Start begins the background worker that periodically runs cleanup.
// Call Stop() to gracefully shutdown the worker.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.RunOnce(context.Background())

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// RunOnce performs a single cleanup pass. Each step is independent, a
// failure in one does not stop the others.
func (s *HousekeepingService) RunOnce(ctx context.Context) CleanupStats {
	var stats CleanupStats
	now := clock(s.Now)
	tokens := s.Store.ResetTokens()

	n, err := tokens.ExpirePending(ctx, now)
	if err != nil {
		s.Logger.Error("failed to expire pending reset tokens", "error", err)
	} else {
		stats.Expired = n
	}

	n, err = tokens.DeleteFinishedBefore(ctx, now.Add(-s.ResetRetention))
	if err != nil {
		s.Logger.Error("failed to delete finished reset tokens", "error", err)
	} else {
		stats.DeletedReset = n
	}

	if s.AuditRetention > 0 {
		n, err = s.Store.Audit().DeleteBefore(ctx, now.Add(-s.AuditRetention))
		if err != nil {
			s.Logger.Error("failed to delete old audit events", "error", err)
		} else {
			stats.DeletedAudit = n
		}
	}

	s.Logger.Info("housekeeping cleanup completed",
		"expired_reset_tokens", stats.Expired,
		"deleted_reset_tokens", stats.DeletedReset,
		"deleted_audit_events", stats.DeletedAudit,
	)
	return stats
}
