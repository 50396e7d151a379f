package remote

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"diary-sync/core/storage"
	"diary-sync/core/utils"

	"github.com/minio/minio-go/v7"
)

// S3Source keeps one object per date, "<prefix><YYYY-MM-DD><ext>".
type S3Source struct {
	client storage.Client
	bucket string
	prefix string
	ext    string
}

// NewS3Source creates a remote over an S3 compatible bucket.
func NewS3Source(client storage.Client, bucket, prefix, ext string) *S3Source {
	if ext == "" {
		ext = ".txt"
	}
	return &S3Source{client: client, bucket: bucket, prefix: prefix, ext: ext}
}

// Name implements reconcile.Source.
func (s *S3Source) Name() string {
	return "s3:" + s.bucket + "/" + s.prefix
}

func (s *S3Source) key(date time.Time) string {
	return s.prefix + utils.FormatDate(date) + s.ext
}

// Get implements reconcile.Source.
func (s *S3Source) Get(ctx context.Context, date time.Time) (string, bool, error) {
	key := s.key(date)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		if storage.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return string(data), true, nil
}

// ListDates implements reconcile.Source.
func (s *S3Source) ListDates(ctx context.Context) ([]time.Time, error) {
	// Cancelling stops the listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var dates []time.Time
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", s.bucket, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if d, ok := utils.DateFromFilename(name, s.ext); ok {
			dates = append(dates, d)
		}
	}
	return dates, nil
}

// Put implements reconcile.Sink.
func (s *S3Source) Put(ctx context.Context, date time.Time, text string) error {
	key := s.key(date)
	_, err := s.client.PutObject(ctx, s.bucket, key, strings.NewReader(text), int64(len(text)),
		minio.PutObjectOptions{ContentType: "text/plain; charset=utf-8"})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
