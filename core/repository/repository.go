// Package repository persists diary entries, conflict hunks and cached
// notes.
//
// The stores are expressed as interfaces so the sync engine and the
// resolution service can be exercised against any backend; production uses
// the single GORM implementation returned by New. Every error crossing the
// package boundary is an *apperror.Error: missing rows are NotFound and
// database failures are StorageFailure.
package repository

import (
	"context"
	"time"

	"diary-sync/core/models"
)

// DateQuery selects a window of entry dates.
type DateQuery struct {
	// Min and Max bound the dates inclusively when set.
	Min *time.Time
	Max *time.Time
	// Start skips that many dates of the newest-first ordering.
	Start int
	// Limit caps the page size. Zero or negative means no limit.
	Limit int
}

// EntryStore is the system of record for current diary text.
type EntryStore interface {
	// GetEntry returns the entry for date or a NotFound error.
	GetEntry(ctx context.Context, date time.Time) (*models.DiaryEntry, error)
	// PutEntry inserts or overwrites the entry for entry.Date.
	PutEntry(ctx context.Context, entry *models.DiaryEntry) error
	// ListDates returns entry dates newest first.
	ListDates(ctx context.Context, q DateQuery) ([]time.Time, error)
	// EntriesBetween returns entries with from <= date <= to, oldest first.
	EntriesBetween(ctx context.Context, from, to time.Time) ([]models.DiaryEntry, error)
	// SearchEntries returns entries whose text contains substr, oldest first.
	SearchEntries(ctx context.Context, substr string) ([]models.DiaryEntry, error)
}

// ConflictStore holds unresolved conflict episodes.
type ConflictStore interface {
	// InsertHunks stores the hunks of a new episode.
	InsertHunks(ctx context.Context, hunks []models.ConflictHunk) error
	// Episodes summarizes unresolved episodes, optionally for one date.
	Episodes(ctx context.Context, date *time.Time) ([]models.EpisodeSummary, error)
	// EpisodeHunks returns the hunks of one episode in edit script order.
	// A missing episode yields a NotFound error.
	EpisodeHunks(ctx context.Context, key models.EpisodeKey) ([]models.ConflictHunk, error)
	// GetHunk returns one hunk or a NotFound error.
	GetHunk(ctx context.Context, id string) (*models.ConflictHunk, error)
	// SetIncluded persists the inclusion flag of one hunk.
	SetIncluded(ctx context.Context, id string, included bool) error
	// DeleteHunk removes one hunk or returns a NotFound error.
	DeleteHunk(ctx context.Context, id string) error
	// DeleteEpisode removes every hunk of an episode and reports how many.
	DeleteEpisode(ctx context.Context, key models.EpisodeKey) (int64, error)
	// DeleteDateEpisodes removes every hunk recorded for a date.
	DeleteDateEpisodes(ctx context.Context, date time.Time) (int64, error)
}

// CacheStore holds quick notes awaiting a merge.
type CacheStore interface {
	// InsertCache stores one note.
	InsertCache(ctx context.Context, note *models.DiaryCache) error
	// ListCache returns every note, oldest first.
	ListCache(ctx context.Context) ([]models.DiaryCache, error)
	// DeleteCache removes the notes with the given timestamps.
	DeleteCache(ctx context.Context, datetimes []time.Time) error
	// SearchCache returns notes whose text contains substr, oldest first.
	SearchCache(ctx context.Context, substr string) ([]models.DiaryCache, error)
}

// Store bundles the three stores with transactional access.
type Store interface {
	EntryStore
	ConflictStore
	CacheStore

	// Transaction runs fn against a Store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	// fn must use only the Store it receives.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
