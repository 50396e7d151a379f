package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/database"
	"diary-sync/core/diff"
	"diary-sync/core/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupStore(t *testing.T) Store {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: database.DriverSQLite, Name: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return New(db)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEntries(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	_, err := store.GetEntry(ctx, date("2024-01-01"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	mod := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: date("2024-01-01"), Text: "first", LastModified: mod}))

	got, err := store.GetEntry(ctx, date("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "first", got.Text)
	assert.Equal(t, date("2024-01-01"), got.Date)
	assert.True(t, got.LastModified.Equal(mod))

	// Upsert overwrites
	require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: date("2024-01-01"), Text: "second", LastModified: mod.Add(time.Hour)}))
	got, err = store.GetEntry(ctx, date("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "second", got.Text)
	assert.True(t, got.LastModified.Equal(mod.Add(time.Hour)))
}

func TestListDates_Pagination(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	start := date("2024-01-01")
	for i := 0; i < 25; i++ {
		d := start.AddDate(0, 0, i)
		require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: d, Text: "x", LastModified: d}))
	}

	first, err := store.ListDates(ctx, DateQuery{Start: 0, Limit: 10})
	require.NoError(t, err)
	second, err := store.ListDates(ctx, DateQuery{Start: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, first, 10)
	require.Len(t, second, 10)

	// Newest first, contiguous across the page boundary.
	assert.Equal(t, date("2024-01-25"), first[0])
	assert.Equal(t, first[9].AddDate(0, 0, -1), second[0])
	seen := map[time.Time]bool{}
	for _, d := range append(first, second...) {
		assert.False(t, seen[d])
		seen[d] = true
	}

	all, err := store.ListDates(ctx, DateQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 25)

	lo, hi := date("2024-01-05"), date("2024-01-07")
	window, err := store.ListDates(ctx, DateQuery{Min: &lo, Max: &hi})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{date("2024-01-07"), date("2024-01-06"), date("2024-01-05")}, window)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: date("2024-02-01"), Text: "Went hiking", LastModified: date("2024-02-01")}))
	require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: date("2024-02-02"), Text: "100% done", LastModified: date("2024-02-02")}))
	require.NoError(t, store.PutEntry(ctx, &models.DiaryEntry{Date: date("2024-03-01"), Text: "quiet", LastModified: date("2024-03-01")}))

	hits, err := store.SearchEntries(ctx, "HIKING")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, date("2024-02-01"), hits[0].Date)

	hits, err = store.SearchEntries(ctx, "0%")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "100% done", hits[0].Text)

	between, err := store.EntriesBetween(ctx, date("2024-02-01"), date("2024-02-29"))
	require.NoError(t, err)
	assert.Len(t, between, 2)
}

func hunk(id string, d, sync time.Time, typ diff.Type, text string, seq int) models.ConflictHunk {
	return models.ConflictHunk{
		ID: id, DiaryDate: d, SyncDatetime: sync, DiffType: typ, DiffText: text,
		Seq: seq, LocalLine: seq, Included: true, BaseHash: "h",
	}
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	d1, d2 := date("2024-04-01"), date("2024-04-02")
	s1 := time.Date(2024, 4, 3, 12, 0, 0, 123456000, time.UTC)

	require.NoError(t, store.InsertHunks(ctx, []models.ConflictHunk{
		hunk("a", d1, s1, diff.Add, "x", 1),
		hunk("b", d1, s1, diff.Rem, "b", 0),
		hunk("c", d2, s1, diff.Add, "y", 0),
	}))

	eps, err := store.Episodes(ctx, nil)
	require.NoError(t, err)
	require.Len(t, eps, 2)
	assert.Equal(t, d1, eps[0].DiaryDate)
	assert.True(t, eps[0].SyncDatetime.Equal(s1))
	assert.Equal(t, 2, eps[0].HunkCount)

	eps, err = store.Episodes(ctx, &d2)
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, 1, eps[0].HunkCount)

	key := models.EpisodeKey{DiaryDate: d1, SyncDatetime: s1}
	hunks, err := store.EpisodeHunks(ctx, key)
	require.NoError(t, err)
	require.Len(t, hunks, 2)
	assert.Equal(t, "b", hunks[0].ID, "ordered by seq")

	require.NoError(t, store.SetIncluded(ctx, "a", false))
	h, err := store.GetHunk(ctx, "a")
	require.NoError(t, err)
	assert.False(t, h.Included)

	assert.ErrorIs(t, store.SetIncluded(ctx, "zzz", true), apperror.ErrNotFound)
	assert.ErrorIs(t, store.DeleteHunk(ctx, "zzz"), apperror.ErrNotFound)

	require.NoError(t, store.DeleteHunk(ctx, "a"))
	n, err := store.DeleteEpisode(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.EpisodeHunks(ctx, key)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	n, err = store.DeleteDateEpisodes(ctx, d2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestInsertCacheTakenTimestamp(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertCache(ctx, &models.DiaryCache{DiaryDatetime: at, DiaryText: "first"}))
	require.NoError(t, store.InsertCache(ctx, &models.DiaryCache{DiaryDatetime: at.Add(time.Microsecond), DiaryText: "second"}))

	third := &models.DiaryCache{DiaryDatetime: at, DiaryText: "third"}
	require.NoError(t, store.InsertCache(ctx, third))
	assert.Equal(t, at.Add(2*time.Microsecond), third.DiaryDatetime)

	notes, err := store.ListCache(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, []string{"first", "second", "third"}, []string{notes[0].DiaryText, notes[1].DiaryText, notes[2].DiaryText})
}

func TestCache(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)

	t1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	require.NoError(t, store.InsertCache(ctx, &models.DiaryCache{DiaryDatetime: t2, DiaryText: "later note"}))
	require.NoError(t, store.InsertCache(ctx, &models.DiaryCache{DiaryDatetime: t1, DiaryText: "early note"}))

	notes, err := store.ListCache(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "early note", notes[0].DiaryText)

	hits, err := store.SearchCache(ctx, "later")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	require.NoError(t, store.DeleteCache(ctx, []time.Time{t1}))
	notes, err = store.ListCache(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.True(t, notes[0].DiaryDatetime.Equal(t2))
}

func TestTransaction_Rollback(t *testing.T) {
	ctx := context.Background()
	store := setupStore(t)
	d := date("2024-06-01")

	boom := apperror.Conflict("test", "abort")
	err := store.Transaction(ctx, func(tx Store) error {
		if err := tx.PutEntry(ctx, &models.DiaryEntry{Date: d, Text: "x", LastModified: d}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = store.GetEntry(ctx, d)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	err = store.Transaction(ctx, func(tx Store) error {
		return tx.PutEntry(ctx, &models.DiaryEntry{Date: d, Text: "y", LastModified: d})
	})
	require.NoError(t, err)
	got, err := store.GetEntry(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "y", got.Text)
}

func TestStorageFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{})
	require.NoError(t, err)
	store := New(db)

	mock.ExpectQuery("SELECT \\* FROM `diary_entries`").WillReturnError(errors.New("connection reset"))

	_, err = store.GetEntry(context.Background(), date("2024-01-01"))
	assert.ErrorIs(t, err, apperror.ErrStorageFailure)
	assert.ErrorContains(t, err, "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
