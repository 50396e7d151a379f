package integrity

import (
	"context"
	"time"

	"diary-sync/core/reconcile"
	"diary-sync/core/repository"
	"diary-sync/core/storage"
	"diary-sync/feature/integrity/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service handles integrity checks.
type Service struct {
	db     *gorm.DB
	store  repository.Store
	source reconcile.Source
	// client is nil unless the remote is an s3 bucket.
	client  storage.Client
	bucket  string
	prefix  string
	region  string
	timeout time.Duration
	logger  *zap.Logger
}

// Options configures the storage side of a Service.
type Options struct {
	Client        storage.Client
	Bucket        string
	Prefix        string
	Region        string
	RemoteTimeout time.Duration
}

// NewService creates a new integrity service.
func NewService(db *gorm.DB, store repository.Store, source reconcile.Source, opts Options, logger *zap.Logger) *Service {
	return &Service{
		db:      db,
		store:   store,
		source:  source,
		client:  opts.Client,
		bucket:  opts.Bucket,
		prefix:  opts.Prefix,
		region:  opts.Region,
		timeout: opts.RemoteTimeout,
		logger:  logger,
	}
}

// HasBucket reports whether a bucket check applies.
func (s *Service) HasBucket() bool {
	return s.client != nil
}

// CheckSchema compares the database against the diary models.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db)
}

// CheckBucket inspects the s3 bucket.
func (s *Service) CheckBucket(ctx context.Context) (*checks.BucketReport, error) {
	return checks.CheckBucket(ctx, s.client, s.bucket, s.prefix)
}

// FixBucket creates the s3 bucket when missing.
func (s *Service) FixBucket(ctx context.Context) (bool, error) {
	return checks.FixBucket(ctx, s.client, s.bucket, s.region, s.logger)
}

// CheckRemote lists the configured remote.
func (s *Service) CheckRemote(ctx context.Context) checks.RemoteReport {
	return checks.CheckRemote(ctx, s.source, s.timeout)
}

// CheckEpisodes reports unresolved conflict episodes.
func (s *Service) CheckEpisodes(ctx context.Context) (*checks.EpisodeReport, error) {
	return checks.CheckEpisodes(ctx, s.store)
}
