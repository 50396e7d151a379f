package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// New returns a Store backed by db.
func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Transaction implements Store.
func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
	if err == nil || apperror.KindOf(err) != "" {
		return err
	}
	return apperror.Wrap(apperror.KindStorageFailure, "transaction", err)
}

func storageErr(op string, err error) error {
	return apperror.Wrap(apperror.KindStorageFailure, op, err)
}

// likePattern builds a case-insensitive substring pattern escaped with '!'.
func likePattern(substr string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + strings.ToLower(r.Replace(substr)) + "%"
}

func normalizeEntry(e *models.DiaryEntry) {
	e.Date = e.Date.UTC()
	e.LastModified = e.LastModified.UTC()
}

func normalizeHunk(h *models.ConflictHunk) {
	h.DiaryDate = h.DiaryDate.UTC()
	h.SyncDatetime = h.SyncDatetime.UTC()
}

// GetEntry implements EntryStore.
func (s *gormStore) GetEntry(ctx context.Context, date time.Time) (*models.DiaryEntry, error) {
	var entry models.DiaryEntry
	err := s.conn(ctx).Where("diary_date = ?", date).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("get entry", "no entry for "+date.Format("2006-01-02"))
	}
	if err != nil {
		return nil, storageErr("get entry", err)
	}
	normalizeEntry(&entry)
	return &entry, nil
}

// PutEntry implements EntryStore.
func (s *gormStore) PutEntry(ctx context.Context, entry *models.DiaryEntry) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "diary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"diary_text", "last_modified"}),
	}).Create(entry).Error
	return storageErr("put entry", err)
}

// ListDates implements EntryStore.
func (s *gormStore) ListDates(ctx context.Context, q DateQuery) ([]time.Time, error) {
	tx := s.conn(ctx).Model(&models.DiaryEntry{})
	if q.Min != nil {
		tx = tx.Where("diary_date >= ?", *q.Min)
	}
	if q.Max != nil {
		tx = tx.Where("diary_date <= ?", *q.Max)
	}
	tx = tx.Order("diary_date DESC")
	if q.Start > 0 {
		tx = tx.Offset(q.Start)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var dates []time.Time
	if err := tx.Pluck("diary_date", &dates).Error; err != nil {
		return nil, storageErr("list dates", err)
	}
	for i := range dates {
		dates[i] = dates[i].UTC()
	}
	return dates, nil
}

// EntriesBetween implements EntryStore.
func (s *gormStore) EntriesBetween(ctx context.Context, from, to time.Time) ([]models.DiaryEntry, error) {
	var entries []models.DiaryEntry
	err := s.conn(ctx).
		Where("diary_date >= ? AND diary_date <= ?", from, to).
		Order("diary_date").
		Find(&entries).Error
	if err != nil {
		return nil, storageErr("entries between", err)
	}
	for i := range entries {
		normalizeEntry(&entries[i])
	}
	return entries, nil
}

// SearchEntries implements EntryStore.
func (s *gormStore) SearchEntries(ctx context.Context, substr string) ([]models.DiaryEntry, error) {
	var entries []models.DiaryEntry
	err := s.conn(ctx).
		Where("LOWER(diary_text) LIKE ? ESCAPE '!'", likePattern(substr)).
		Order("diary_date").
		Find(&entries).Error
	if err != nil {
		return nil, storageErr("search entries", err)
	}
	for i := range entries {
		normalizeEntry(&entries[i])
	}
	return entries, nil
}

// InsertHunks implements ConflictStore.
func (s *gormStore) InsertHunks(ctx context.Context, hunks []models.ConflictHunk) error {
	if len(hunks) == 0 {
		return nil
	}
	return storageErr("insert hunks", s.conn(ctx).CreateInBatches(hunks, 200).Error)
}

// Episodes implements ConflictStore.
func (s *gormStore) Episodes(ctx context.Context, date *time.Time) ([]models.EpisodeSummary, error) {
	tx := s.conn(ctx).Model(&models.ConflictHunk{}).
		Select("diary_date, sync_datetime, COUNT(*) AS hunk_count")
	if date != nil {
		tx = tx.Where("diary_date = ?", *date)
	}

	var out []models.EpisodeSummary
	err := tx.Group("diary_date, sync_datetime").
		Order("diary_date, sync_datetime").
		Scan(&out).Error
	if err != nil {
		return nil, storageErr("list episodes", err)
	}
	for i := range out {
		out[i].DiaryDate = out[i].DiaryDate.UTC()
		out[i].SyncDatetime = out[i].SyncDatetime.UTC()
	}
	return out, nil
}

// EpisodeHunks implements ConflictStore.
func (s *gormStore) EpisodeHunks(ctx context.Context, key models.EpisodeKey) ([]models.ConflictHunk, error) {
	var hunks []models.ConflictHunk
	err := s.conn(ctx).
		Where("diary_date = ? AND sync_datetime = ?", key.DiaryDate, key.SyncDatetime).
		Order("seq").
		Find(&hunks).Error
	if err != nil {
		return nil, storageErr("episode hunks", err)
	}
	if len(hunks) == 0 {
		return nil, apperror.NotFound("episode hunks", "no episode for "+key.DiaryDate.Format("2006-01-02")+" at "+key.SyncDatetime.Format(time.RFC3339Nano))
	}
	for i := range hunks {
		normalizeHunk(&hunks[i])
	}
	return hunks, nil
}

// GetHunk implements ConflictStore.
func (s *gormStore) GetHunk(ctx context.Context, id string) (*models.ConflictHunk, error) {
	var hunk models.ConflictHunk
	err := s.conn(ctx).Where("id = ?", id).Take(&hunk).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("get hunk", "no hunk "+id)
	}
	if err != nil {
		return nil, storageErr("get hunk", err)
	}
	normalizeHunk(&hunk)
	return &hunk, nil
}

// SetIncluded implements ConflictStore.
func (s *gormStore) SetIncluded(ctx context.Context, id string, included bool) error {
	res := s.conn(ctx).Model(&models.ConflictHunk{}).Where("id = ?", id).Update("included", included)
	if res.Error != nil {
		return storageErr("set included", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("set included", "no hunk "+id)
	}
	return nil
}

// DeleteHunk implements ConflictStore.
func (s *gormStore) DeleteHunk(ctx context.Context, id string) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&models.ConflictHunk{})
	if res.Error != nil {
		return storageErr("delete hunk", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NotFound("delete hunk", "no hunk "+id)
	}
	return nil
}

// DeleteEpisode implements ConflictStore.
func (s *gormStore) DeleteEpisode(ctx context.Context, key models.EpisodeKey) (int64, error) {
	res := s.conn(ctx).
		Where("diary_date = ? AND sync_datetime = ?", key.DiaryDate, key.SyncDatetime).
		Delete(&models.ConflictHunk{})
	if res.Error != nil {
		return 0, storageErr("delete episode", res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteDateEpisodes implements ConflictStore.
func (s *gormStore) DeleteDateEpisodes(ctx context.Context, date time.Time) (int64, error) {
	res := s.conn(ctx).Where("diary_date = ?", date).Delete(&models.ConflictHunk{})
	if res.Error != nil {
		return 0, storageErr("delete date episodes", res.Error)
	}
	return res.RowsAffected, nil
}

// maxCacheInsertAttempts bounds how far InsertCache walks forward past
// taken timestamps.
const maxCacheInsertAttempts = 100

// InsertCache implements CacheStore. Notes are keyed by their timestamp, so a
// taken timestamp is moved forward one microsecond at a time until it is free.
func (s *gormStore) InsertCache(ctx context.Context, note *models.DiaryCache) error {
	var err error
	for range maxCacheInsertAttempts {
		err = s.conn(ctx).Create(note).Error
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return storageErr("insert cache", err)
		}
		note.DiaryDatetime = note.DiaryDatetime.Add(time.Microsecond)
	}
	return apperror.Wrap(apperror.KindConflict, "insert cache", err)
}

// ListCache implements CacheStore.
func (s *gormStore) ListCache(ctx context.Context) ([]models.DiaryCache, error) {
	var notes []models.DiaryCache
	if err := s.conn(ctx).Order("diary_datetime").Find(&notes).Error; err != nil {
		return nil, storageErr("list cache", err)
	}
	for i := range notes {
		notes[i].DiaryDatetime = notes[i].DiaryDatetime.UTC()
	}
	return notes, nil
}

// DeleteCache implements CacheStore.
func (s *gormStore) DeleteCache(ctx context.Context, datetimes []time.Time) error {
	if len(datetimes) == 0 {
		return nil
	}
	err := s.conn(ctx).Where("diary_datetime IN ?", datetimes).Delete(&models.DiaryCache{}).Error
	return storageErr("delete cache", err)
}

// SearchCache implements CacheStore.
func (s *gormStore) SearchCache(ctx context.Context, substr string) ([]models.DiaryCache, error) {
	var notes []models.DiaryCache
	err := s.conn(ctx).
		Where("LOWER(diary_text) LIKE ? ESCAPE '!'", likePattern(substr)).
		Order("diary_datetime").
		Find(&notes).Error
	if err != nil {
		return nil, storageErr("search cache", err)
	}
	for i := range notes {
		notes[i].DiaryDatetime = notes[i].DiaryDatetime.UTC()
	}
	return notes, nil
}
