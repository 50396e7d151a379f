// Package storage provides an abstraction layer for S3 compatible object
// storage, used as one of the diary remotes.
//
// It wraps the MinIO Go client behind the Client interface so the remote
// source can be tested against the mocks in core/storage/mocks. Both AWS S3
// and self-hosted MinIO are supported.
//
// # Operations
//
//   - BucketExists / MakeBucket: bucket checks for the integrity feature.
//   - PutObject: uploads one entry during export.
//   - GetObject: downloads one entry.
//   - ListObjects: lists the dates present remotely.
//
// IsNotFound classifies missing key responses, which the remote treats as
// an absent entry rather than a failure.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	created, err := storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage
