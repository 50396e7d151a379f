package sync

import (
	"context"
	"sync/atomic"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/reconcile"
	"diary-sync/core/utils"

	"go.uber.org/zap"
)

// CacheMerger folds quick notes into entries before a full run.
type CacheMerger interface {
	MergeCache(ctx context.Context) ([]time.Time, error)
}

// Service runs syncs against the configured remote.
type Service struct {
	engine *reconcile.Engine
	merger CacheMerger
	cfg    Config
	logger *zap.Logger

	running atomic.Bool
}

// NewService creates the sync service. merger may be nil.
func NewService(engine *reconcile.Engine, merger CacheMerger, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{engine: engine, merger: merger, cfg: cfg, logger: logger}
}

// RunResult is the outcome of a full sync.
type RunResult struct {
	// Merged lists the dates quick notes were merged into.
	Merged []string          `json:"merged"`
	Report *reconcile.Report `json:"report"`
}

// DefaultOptions returns the configured run options.
func (s *Service) DefaultOptions() reconcile.Options {
	return s.cfg.Options()
}

// SyncAll merges quick notes, then reconciles every date. Only one full
// run happens at a time; a second caller gets a conflict error.
func (s *Service) SyncAll(ctx context.Context, opts reconcile.Options) (*RunResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, apperror.Conflict("sync", "a full sync is already running")
	}
	defer s.running.Store(false)

	result := &RunResult{Merged: []string{}}
	if s.merger != nil && !opts.DryRun {
		dates, err := s.merger.MergeCache(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range dates {
			result.Merged = append(result.Merged, utils.FormatDate(d))
		}
	}

	report, err := s.engine.SyncAll(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Report = report
	return result, nil
}

// SyncDate reconciles one date.
func (s *Service) SyncDate(ctx context.Context, date time.Time, opts reconcile.Options) reconcile.DateResult {
	return s.engine.Sync(ctx, utils.NormalizeDate(date), opts)
}

// Export force-pushes one local entry to the remote.
func (s *Service) Export(ctx context.Context, date time.Time) error {
	return s.engine.Export(ctx, utils.NormalizeDate(date))
}

// RemoteDates returns the dates the remote holds, newest first.
func (s *Service) RemoteDates(ctx context.Context) ([]time.Time, error) {
	idx, err := s.engine.RemoteIndex(ctx)
	if err != nil {
		return nil, err
	}
	return idx.Sorted(), nil
}

// OnFileChange syncs a date reported by the directory watcher.
func (s *Service) OnFileChange(ctx context.Context, date time.Time) {
	res := s.SyncDate(ctx, date, s.DefaultOptions())
	s.logger.Info("Watched file synced",
		zap.String("date", utils.FormatDate(date)),
		zap.String("outcome", string(res.Outcome)))
}
