package integrity

import (
	"context"
	"testing"
	"time"

	"diary-sync/core/database"
	"diary-sync/core/repository"
	"diary-sync/core/storage/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// setupMockDB creates a mock GORM DB for testing.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

type memSource map[time.Time]string

func (m memSource) Name() string { return "mem" }

func (m memSource) Get(_ context.Context, date time.Time) (string, bool, error) {
	text, ok := m[date]
	return text, ok, nil
}

func (m memSource) ListDates(context.Context) ([]time.Time, error) {
	out := make([]time.Time, 0, len(m))
	for d := range m {
		out = append(out, d)
	}
	return out, nil
}

// setupService builds a service on a migrated in-memory database.
func setupService(t *testing.T, client *mocks.Client) *Service {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	opts := Options{Bucket: "diary", RemoteTimeout: time.Second}
	if client != nil {
		opts.Client = client
	}
	src := memSource{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC): "a"}
	return NewService(db, repository.New(db), src, opts, zap.NewNop())
}

func TestService_Schema(t *testing.T) {
	svc := setupService(t, nil)
	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.True(t, report.Matched)
}

func TestService_SchemaMockDB(t *testing.T) {
	db, sqlMock := setupMockDB(t)
	svc := NewService(db, nil, memSource{}, Options{}, zap.NewNop())

	sqlMock.ExpectQuery(".*").WillReturnError(assert.AnError)
	sqlMock.ExpectQuery(".*").WillReturnError(assert.AnError)
	sqlMock.ExpectQuery(".*").WillReturnError(assert.AnError)

	report, err := svc.CheckSchema()
	require.NoError(t, err)
	assert.False(t, report.Matched)
	assert.Len(t, report.Errors, 3)
	assert.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestService_Bucket(t *testing.T) {
	client := new(mocks.Client)
	svc := setupService(t, client)
	assert.True(t, svc.HasBucket())
	assert.False(t, setupService(t, nil).HasBucket())

	client.On("BucketExists", mock.Anything, "diary").Return(false, nil).Once()
	report, err := svc.CheckBucket(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Exists)

	client.On("BucketExists", mock.Anything, "diary").Return(false, nil).Once()
	client.On("MakeBucket", mock.Anything, "diary", mock.Anything).Return(nil)
	created, err := svc.FixBucket(context.Background())
	require.NoError(t, err)
	assert.True(t, created)
}

func TestService_RemoteAndEpisodes(t *testing.T) {
	svc := setupService(t, nil)

	remote := svc.CheckRemote(context.Background())
	assert.True(t, remote.Reachable)
	assert.Equal(t, 1, remote.Dates)

	episodes, err := svc.CheckEpisodes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, episodes.Pending)
}
