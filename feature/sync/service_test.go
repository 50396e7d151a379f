package sync

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	stdsync "sync"
	"testing"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/database"
	"diary-sync/core/lock"
	"diary-sync/core/middleware/errorhandler"
	"diary-sync/core/models"
	"diary-sync/core/reconcile"
	"diary-sync/core/repository"
	"diary-sync/core/utils"
	"diary-sync/feature/diary"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRemote struct {
	mu      stdsync.Mutex
	texts   map[time.Time]string
	listErr error
	block   chan struct{}
}

func newMemRemote() *memRemote {
	return &memRemote{texts: make(map[time.Time]string)}
}

func (m *memRemote) Name() string { return "mem" }

func (m *memRemote) Get(_ context.Context, date time.Time) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	text, ok := m.texts[date]
	return text, ok, nil
}

func (m *memRemote) ListDates(ctx context.Context) ([]time.Time, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]time.Time, 0, len(m.texts))
	for d := range m.texts {
		out = append(out, d)
	}
	return out, nil
}

func (m *memRemote) Put(_ context.Context, date time.Time, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts[date] = text
	return nil
}

type fixture struct {
	svc    *Service
	store  repository.Store
	remote *memRemote
	notes  *diary.Service
}

func setup(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := repository.New(db)

	locks := lock.New()
	remote := newMemRemote()
	engine := reconcile.NewEngine(store, remote, locks, zap.NewNop(), 0)
	notes := diary.NewService(store, locks, zap.NewNop(), time.UTC)
	return &fixture{
		svc:    NewService(engine, notes, cfg, zap.NewNop()),
		store:  store,
		remote: remote,
		notes:  notes,
	}
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func (f *fixture) putLocal(t *testing.T, date time.Time, text string) {
	t.Helper()
	require.NoError(t, f.store.PutEntry(context.Background(), &models.DiaryEntry{Date: date, Text: text, LastModified: time.Now().UTC()}))
}

func TestSyncAll_MergesCacheFirst(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{Workers: 2})
	f.remote.texts[day("2024-03-02")] = "from remote"
	f.putLocal(t, day("2024-03-03"), "same")
	f.remote.texts[day("2024-03-03")] = "same"

	_, err := f.notes.Insert(ctx, "quick")
	require.NoError(t, err)

	res, err := f.svc.SyncAll(ctx, f.svc.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, res.Merged, 1)

	// The note's day, the remote-only day and the shared day.
	assert.Equal(t, 3, res.Report.Summary.Total)
	assert.Equal(t, 1, res.Report.Summary.Updated)
	assert.Equal(t, 2, res.Report.Summary.Unchanged)

	left, err := f.store.ListCache(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSyncAll_KeepsNotesForPendingDate(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{})
	today := utils.NormalizeDate(time.Now().UTC())
	f.putLocal(t, today, "local")
	f.remote.texts[today] = "remote"

	res := f.svc.SyncDate(ctx, today, reconcile.Options{})
	require.Equal(t, reconcile.OutcomeConflicted, res.Outcome)

	_, err := f.notes.Insert(ctx, "quick")
	require.NoError(t, err)

	run, err := f.svc.SyncAll(ctx, reconcile.Options{})
	require.NoError(t, err)
	assert.Empty(t, run.Merged)

	entry, err := f.store.GetEntry(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, "local", entry.Text)

	left, err := f.store.ListCache(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	episodes, err := f.store.Episodes(ctx, &today)
	require.NoError(t, err)
	assert.Len(t, episodes, 1)
}

func TestSyncAll_DryRunSkipsMerge(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{})
	_, err := f.notes.Insert(ctx, "quick")
	require.NoError(t, err)

	res, err := f.svc.SyncAll(ctx, reconcile.Options{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, res.Merged)

	left, err := f.store.ListCache(ctx)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestSyncAll_OneRunAtATime(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{})
	f.remote.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SyncAll(ctx, reconcile.Options{})
		done <- err
	}()
	assert.Eventually(t, f.svc.running.Load, time.Second, 5*time.Millisecond)

	_, err := f.svc.SyncAll(ctx, reconcile.Options{})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	close(f.remote.block)
	require.NoError(t, <-done)
	assert.False(t, f.svc.running.Load())
}

func TestSyncDateAndExport(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{})
	f.putLocal(t, day("2024-03-01"), "local")
	f.remote.texts[day("2024-03-01")] = "remote"

	res := f.svc.SyncDate(ctx, time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), reconcile.Options{})
	assert.Equal(t, reconcile.OutcomeConflicted, res.Outcome)

	res = f.svc.SyncDate(ctx, day("2024-03-01"), reconcile.Options{})
	assert.Equal(t, reconcile.OutcomePending, res.Outcome)

	require.NoError(t, f.svc.Export(ctx, day("2024-03-01")))
	assert.Equal(t, "local", f.remote.texts[day("2024-03-01")])

	err := f.svc.Export(ctx, day("2024-03-09"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestRemoteDates(t *testing.T) {
	ctx := context.Background()
	f := setup(t, Config{})
	f.remote.texts[day("2024-01-01")] = "a"
	f.remote.texts[day("2024-02-01")] = "b"

	dates, err := f.svc.RemoteDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-02-01"), day("2024-01-01")}, dates)

	f.remote.listErr = errors.New("offline")
	_, err = f.svc.RemoteDates(ctx)
	assert.ErrorIs(t, err, apperror.ErrUpstreamUnavailable)
}

func TestConfig(t *testing.T) {
	cfg := Config{Workers: 3, FetchTimeoutSeconds: 5, IndexTTLSeconds: 60, IntervalMinutes: 15, Export: true}
	opts := cfg.Options()
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 5*time.Second, opts.FetchTimeout)
	assert.True(t, opts.Export)
	assert.False(t, opts.Supersede)
	assert.Equal(t, time.Minute, cfg.IndexTTL())
	assert.Equal(t, 15*time.Minute, cfg.Interval())
	assert.Equal(t, time.Duration(0), Config{IntervalMinutes: -1}.Interval())
}

func TestScheduler(t *testing.T) {
	f := setup(t, Config{})
	f.remote.texts[day("2024-03-01")] = "remote"

	s := NewScheduler(f.svc, 20*time.Millisecond, nil)
	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		_, err := f.store.GetEntry(context.Background(), day("2024-03-01"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()
	s.Stop()

	idle := NewScheduler(f.svc, 0, nil)
	idle.Start(context.Background())
	idle.Stop()
}

func TestHandlers(t *testing.T) {
	f := setup(t, Config{})
	f.putLocal(t, day("2024-03-01"), "local")
	f.remote.texts[day("2024-03-01")] = "remote"
	f.remote.texts[day("2024-03-02")] = "new"

	app := fiber.New(fiber.Config{ErrorHandler: errorhandler.New(nil)})
	require.NoError(t, NewFeature(f.svc).Load(app))

	resp, err := app.Test(httptest.NewRequest("POST", "/sync?dry_run=true", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var run RunResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, 2, run.Report.Summary.Total)
	assert.Equal(t, 1, run.Report.Summary.Conflicted)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/2024-03-01", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/2024-03-01", nil))
	require.NoError(t, err)
	assert.Equal(t, 409, resp.StatusCode)
	var res reconcile.DateResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, reconcile.OutcomePending, res.Outcome)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/2024-03-01?supersede=true", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/bad-date", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync/2024-03-01/export", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "local", f.remote.texts[day("2024-03-01")])

	resp, err = app.Test(httptest.NewRequest("GET", "/sync/remote", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	var remote struct {
		Source string   `json:"source"`
		Dates  []string `json:"dates"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&remote))
	assert.Equal(t, "mem", remote.Source)
	assert.Equal(t, []string{"2024-03-02", "2024-03-01"}, remote.Dates)
}
