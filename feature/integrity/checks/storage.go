package checks

import (
	"context"
	"fmt"
	"time"

	"diary-sync/core/reconcile"
	"diary-sync/core/storage"
	"diary-sync/core/utils"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// BucketReport describes the object storage bucket behind an s3 remote.
type BucketReport struct {
	Bucket  string `json:"bucket"`
	Exists  bool   `json:"exists"`
	Created bool   `json:"created,omitempty"`
	Sample  int    `json:"sample"`
}

// RemoteReport describes whether the remote can be listed.
type RemoteReport struct {
	Source    string `json:"source"`
	Reachable bool   `json:"reachable"`
	Dates     int    `json:"dates"`
	Newest    string `json:"newest,omitempty"`
	Oldest    string `json:"oldest,omitempty"`
	Error     string `json:"error,omitempty"`
}

// sampleKeys bounds the listing done by CheckBucket.
const sampleKeys = 10

// CheckBucket verifies the bucket exists and samples a few keys under prefix.
func CheckBucket(ctx context.Context, client storage.Client, bucket, prefix string) (*BucketReport, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report := &BucketReport{Bucket: bucket, Exists: exists}
	if !exists {
		return report, nil
	}

	opts := minio.ListObjectsOptions{Prefix: prefix, Recursive: true, MaxKeys: sampleKeys}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, obj.Err)
		}
		report.Sample++
		if report.Sample >= sampleKeys {
			break
		}
	}
	return report, nil
}

// FixBucket creates the bucket when it is missing.
func FixBucket(ctx context.Context, client storage.Client, bucket, region string, logger *zap.Logger) (bool, error) {
	created, err := storage.EnsureBucket(ctx, client, bucket, region)
	if err != nil {
		logger.Error("Failed to create bucket", zap.String("bucket", bucket), zap.Error(err))
		return false, err
	}
	if created {
		logger.Info("Created missing bucket", zap.String("bucket", bucket))
	}
	return created, nil
}

// CheckRemote lists the remote once, bounded by timeout.
func CheckRemote(ctx context.Context, src reconcile.Source, timeout time.Duration) RemoteReport {
	report := RemoteReport{Source: src.Name()}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	dates, err := src.ListDates(ctx)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Reachable = true
	report.Dates = len(dates)
	for _, d := range dates {
		if report.Newest == "" || utils.FormatDate(d) > report.Newest {
			report.Newest = utils.FormatDate(d)
		}
		if report.Oldest == "" || utils.FormatDate(d) < report.Oldest {
			report.Oldest = utils.FormatDate(d)
		}
	}
	return report
}
