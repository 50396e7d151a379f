package diary

import (
	"context"
	"testing"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/database"
	"diary-sync/core/diff"
	"diary-sync/core/models"
	"diary-sync/core/repository"
	"diary-sync/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) // a Friday

func setupService(t *testing.T) (*Service, repository.Store) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	store := repository.New(db)

	svc := NewService(store, nil, zap.NewNop(), time.UTC)
	svc.now = func() time.Time { return fixedNow }
	return svc, store
}

func day(s string) time.Time {
	d, err := utils.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, svc *Service, entries map[string]string) {
	t.Helper()
	for d, text := range entries {
		_, err := svc.Put(context.Background(), day(d), text)
		require.NoError(t, err)
	}
}

func TestPutAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.Get(ctx, day("2024-03-01"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	entry, err := svc.Put(ctx, day("2024-03-01"), "first")
	require.NoError(t, err)
	assert.Equal(t, fixedNow, entry.LastModified)

	_, err = svc.Put(ctx, day("2024-03-01"), "second")
	require.NoError(t, err)

	got, err := svc.Get(ctx, day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
}

func TestListDates(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	seed(t, svc, map[string]string{
		"2024-01-01": "a", "2024-01-02": "b", "2024-01-03": "c", "2024-01-04": "d", "2024-01-05": "e",
	})

	all, err := svc.ListDates(ctx, ListQuery{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, day("2024-01-05"), all[0])

	// Consecutive windows are disjoint and cover the whole list.
	var paged []time.Time
	for start := 0; start < 5; start += 2 {
		page, err := svc.ListDates(ctx, ListQuery{Start: ptr(start), Limit: ptr(2)})
		require.NoError(t, err)
		paged = append(paged, page...)
	}
	assert.Equal(t, all, paged)

	ranged, err := svc.ListDates(ctx, ListQuery{MinDate: ptr(day("2024-01-02")), MaxDate: ptr(day("2024-01-03"))})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-01-03"), day("2024-01-02")}, ranged)

	empty, err := svc.ListDates(ctx, ListQuery{Limit: ptr(0)})
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.ListDates(ctx, ListQuery{Start: ptr(-1)})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)

	_, err = svc.ListDates(ctx, ListQuery{MinDate: ptr(day("2024-01-03")), MaxDate: ptr(day("2024-01-01"))})
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	seed(t, svc, map[string]string{
		"2023-12-31": "New year's eve party",
		"2024-03-01": "Coffee with Ana",
		"2024-03-14": "Rainy day",
		"2024-03-15": "Friday coffee",
	})
	require.NoError(t, store.InsertCache(ctx, &models.DiaryCache{
		DiaryDatetime: time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
		DiaryText:     "coffee beans ran out",
	}))

	tests := []struct {
		name  string
		query string
		dates []string
		kinds []string
	}{
		{"today", "today", []string{"2024-03-15"}, []string{"entry"}},
		{"exact date", "2024-03-01", []string{"2024-03-01"}, []string{"entry"}},
		{"month", "2024-03", []string{"2024-03-01", "2024-03-14", "2024-03-15"}, []string{"entry", "entry", "entry"}},
		{"year", "2023", []string{"2023-12-31"}, []string{"entry"}},
		{"natural phrase", "yesterday", []string{"2024-03-14"}, []string{"entry"}},
		{"text over entries and cache", "COFFEE", []string{"2024-03-01", "2024-03-10", "2024-03-15"}, []string{"entry", "cache", "entry"}},
		{"no match", "zebra", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := svc.Search(ctx, tt.query)
			require.NoError(t, err)
			var dates, kinds []string
			for _, r := range results {
				dates = append(dates, utils.FormatDate(r.Date))
				kinds = append(kinds, r.Kind)
			}
			assert.Equal(t, tt.dates, dates)
			assert.Equal(t, tt.kinds, kinds)
		})
	}

	_, err := svc.Search(ctx, "   ")
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)
}

func TestSearchDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	seed(t, svc, map[string]string{"2024-03-01": "hello"})

	results, err := svc.SearchDate(ctx, day("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "2024-03-01\nhello", results[0].String())

	results, err = svc.SearchDate(ctx, day("2024-03-02"))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInsertAndMergeCache(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	seed(t, svc, map[string]string{"2024-03-01": "morning"})

	_, err := svc.Insert(ctx, "  ")
	assert.ErrorIs(t, err, apperror.ErrInvalidRequest)

	for _, n := range []struct {
		at   time.Time
		text string
	}{
		{time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), "a"},
		{time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC), "b"},
		{time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), "c"},
	} {
		at := n.at
		svc.now = func() time.Time { return at }
		_, err := svc.Insert(ctx, n.text)
		require.NoError(t, err)
	}

	dates, err := svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-01"), day("2024-03-02")}, dates)

	first, err := svc.Get(ctx, day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "morning\n\n2024-03-01T09:00:00Z\na\n\n2024-03-01T18:00:00Z\nb", first.Text)

	second, err := svc.Get(ctx, day("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02T08:00:00Z\nc", second.Text)

	left, err := store.ListCache(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)

	dates, err = svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestMergeCacheUsesLocalDay(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)
	tokyo := time.FixedZone("JST", 9*3600)
	svc.location = tokyo

	// 20:00 UTC on the 1st is already the 2nd in Tokyo.
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 20, 0, 0, 0, time.UTC) }
	_, err := svc.Insert(ctx, "late note")
	require.NoError(t, err)

	dates, err := svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-02")}, dates)

	entry, err := svc.Get(ctx, day("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02T05:00:00+09:00\nlate note", entry.Text)
}

func TestMergeCacheHoldsBackPendingEpisode(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)
	seed(t, svc, map[string]string{"2024-03-01": "morning"})

	synced := time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertHunks(ctx, []models.ConflictHunk{{
		ID: "h1", SyncDatetime: synced, DiaryDate: day("2024-03-01"),
		DiffType: diff.Add, DiffText: "from remote", Included: true, BaseHash: "x",
	}}))

	for _, at := range []time.Time{
		time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
	} {
		svc.now = func() time.Time { return at }
		_, err := svc.Insert(ctx, "note")
		require.NoError(t, err)
	}

	dates, err := svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-02")}, dates)

	held, err := svc.Get(ctx, day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "morning", held.Text)

	left, err := store.ListCache(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), left[0].DiaryDatetime)

	_, err = store.DeleteEpisode(ctx, models.EpisodeKey{DiaryDate: day("2024-03-01"), SyncDatetime: synced})
	require.NoError(t, err)

	dates, err = svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-01")}, dates)

	merged, err := svc.Get(ctx, day("2024-03-01"))
	require.NoError(t, err)
	assert.Equal(t, "morning\n\n2024-03-01T09:00:00Z\nnote", merged.Text)
}

func TestInsertSameInstant(t *testing.T) {
	ctx := context.Background()
	svc, store := setupService(t)

	first, err := svc.Insert(ctx, "one")
	require.NoError(t, err)
	second, err := svc.Insert(ctx, "two")
	require.NoError(t, err)
	assert.Equal(t, first.DiaryDatetime.Add(time.Microsecond), second.DiaryDatetime)

	notes, err := store.ListCache(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "one", notes[0].DiaryText)
	assert.Equal(t, "two", notes[1].DiaryText)
}

func TestNewServiceDefaults(t *testing.T) {
	ctx := context.Background()
	_, store := setupService(t)
	svc := NewService(store, nil, nil, nil)
	svc.now = func() time.Time { return fixedNow }

	_, err := svc.Put(ctx, day("2024-03-01"), "text")
	require.NoError(t, err)
	_, err = svc.Insert(ctx, "note")
	require.NoError(t, err)

	dates, err := svc.MergeCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{day("2024-03-15")}, dates)
}
