package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
)

// HousekeepingService periodically removes expired tokens and used or
// expired authorization codes to prevent unbounded table growth.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished. It is a no-op
// when the worker was never started or is already stopped.
func (s *HousekeepingService) Stop() {
	if !s.started.Load() || !s.stopped.CompareAndSwap(false, true) {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass and returns the number of records removed. Each
// deletion is independent; a failure in one does not stop the other.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	now := s.Now()
	var removed int64

	if n, err := s.Store.Tokens().DeleteExpiredTokens(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired tokens", "error", err)
	} else {
		removed += n
	}

	if n, err := s.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired authorization codes", "error", err)
	} else {
		removed += n
	}

	s.Logger.Info("housekeeping cleanup completed", "removed", removed)
	return removed
}
