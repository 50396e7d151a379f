package sync

import (
	"context"
	"errors"
	"time"

	"diary-sync/core/apperror"

	"go.uber.org/zap"
)

// Scheduler runs a full sync on a fixed interval.
type Scheduler struct {
	svc      *Service
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler creates a scheduler. A zero interval makes Start a no-op.
func NewScheduler(svc *Service, interval time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{svc: svc, interval: interval, logger: logger}
}

// Start launches the schedule in the background.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 || s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
	s.logger.Info("Sync scheduler started", zap.Duration("interval", s.interval))
}

// Stop ends the schedule and waits for a running sync to return.
func (s *Scheduler) Stop() {
	if s.done == nil {
		return
	}
	s.cancel()
	<-s.done
	s.done = nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	res, err := s.svc.SyncAll(ctx, s.svc.DefaultOptions())
	switch {
	case errors.Is(err, apperror.ErrConflict):
		s.logger.Debug("Scheduled sync skipped, another run is active")
	case err != nil:
		s.logger.Error("Scheduled sync failed", zap.Error(err))
	default:
		s.logger.Info("Scheduled sync finished",
			zap.Int("merged", len(res.Merged)),
			zap.Int("conflicted", res.Report.Summary.Conflicted),
			zap.Int("failed", res.Report.Summary.Failed))
	}
}
