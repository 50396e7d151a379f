package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"diary-sync/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestS3Source_Get(t *testing.T) {
	ctx := context.Background()
	m := new(mocks.Client)
	src := NewS3Source(m, "diary", "entries/", "")

	m.On("GetObject", mock.Anything, "diary", "entries/2024-03-01.txt", mock.Anything).Return(mocks.Body("hello"), nil)
	m.On("GetObject", mock.Anything, "diary", "entries/2024-03-02.txt", mock.Anything).
		Return(mocks.FailingBody(minio.ErrorResponse{Code: "NoSuchKey"}), nil)
	m.On("GetObject", mock.Anything, "diary", "entries/2024-03-03.txt", mock.Anything).
		Return(nil, errors.New("connection refused"))

	text, ok, err := src.Get(ctx, day("2024-03-01"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", text)

	_, ok, err = src.Get(ctx, day("2024-03-02"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = src.Get(ctx, day("2024-03-03"))
	assert.ErrorContains(t, err, "connection refused")

	assert.Equal(t, "s3:diary/entries/", src.Name())
}

func TestS3Source_ListDates(t *testing.T) {
	m := new(mocks.Client)
	src := NewS3Source(m, "diary", "entries/", ".txt")

	m.On("ListObjects", mock.Anything, "diary", minio.ListObjectsOptions{Prefix: "entries/"}).
		Return(mocks.Objects("entries/2024-03-01.txt", "entries/notes.md", "entries/2024-03-05.txt", "entries/2024-13-01.txt"))

	dates, err := src.ListDates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-01"), day("2024-03-05")}, dates)
}

func TestS3Source_ListDatesError(t *testing.T) {
	m := new(mocks.Client)
	src := NewS3Source(m, "diary", "", ".txt")

	ch := make(chan minio.ObjectInfo, 1)
	ch <- minio.ObjectInfo{Err: errors.New("access denied")}
	close(ch)
	m.On("ListObjects", mock.Anything, "diary", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	_, err := src.ListDates(context.Background())
	assert.ErrorContains(t, err, "access denied")
}

func TestS3Source_ListDatesErrorStopsListing(t *testing.T) {
	m := new(mocks.Client)
	src := NewS3Source(m, "diary", "", ".txt")

	// Mimics minio's producer: it keeps sending until the context ends.
	ch := make(chan minio.ObjectInfo)
	stopped := make(chan struct{})
	m.On("ListObjects", mock.Anything, "diary", mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			go func() {
				defer close(stopped)
				defer close(ch)
				select {
				case ch <- minio.ObjectInfo{Err: errors.New("slow down")}:
				case <-ctx.Done():
					return
				}
				for {
					select {
					case ch <- minio.ObjectInfo{Key: "2024-03-01.txt"}:
					case <-ctx.Done():
						return
					}
				}
			}()
		}).
		Return((<-chan minio.ObjectInfo)(ch))

	_, err := src.ListDates(context.Background())
	assert.ErrorContains(t, err, "slow down")

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listing goroutine still running after ListDates returned")
	}
}

func TestS3Source_Put(t *testing.T) {
	m := new(mocks.Client)
	src := NewS3Source(m, "diary", "", ".txt")

	m.On("PutObject", mock.Anything, "diary", "2024-03-01.txt", mock.Anything, int64(5), mock.MatchedBy(func(o minio.PutObjectOptions) bool {
		return o.ContentType == "text/plain; charset=utf-8"
	})).Return(minio.UploadInfo{}, nil).Once()
	require.NoError(t, src.Put(context.Background(), day("2024-03-01"), "hello"))

	m.On("PutObject", mock.Anything, "diary", "2024-03-02.txt", mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("quota"))
	assert.ErrorContains(t, src.Put(context.Background(), day("2024-03-02"), "x"), "quota")
	m.AssertExpectations(t)
}
