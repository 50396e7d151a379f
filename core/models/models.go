package models

import (
	"time"

	"diary-sync/core/diff"
)

// DiaryEntry is the current text for one calendar date.
type DiaryEntry struct {
	Date         time.Time `gorm:"column:diary_date;primaryKey;autoIncrement:false" json:"date"`
	Text         string    `gorm:"column:diary_text;not null" json:"text"`
	LastModified time.Time `gorm:"column:last_modified;not null" json:"last_modified"`
}

// TableName overrides the table name used by DiaryEntry.
func (DiaryEntry) TableName() string {
	return "diary_entries"
}

// ConflictHunk is one changed line of a conflict episode.
type ConflictHunk struct {
	ID           string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	SyncDatetime time.Time `gorm:"column:sync_datetime;not null;precision:6;index:idx_conflict_episode,priority:2" json:"sync_datetime"`
	DiaryDate    time.Time `gorm:"column:diary_date;not null;index:idx_conflict_episode,priority:1" json:"diary_date"`
	DiffType     diff.Type `gorm:"column:diff_type;type:varchar(8);not null" json:"diff_type"`
	DiffText     string    `gorm:"column:diff_text;not null" json:"diff_text"`
	Seq          int       `gorm:"column:seq;not null" json:"seq"`
	LocalLine    int       `gorm:"column:local_line;not null" json:"local_line"`
	Included     bool      `gorm:"column:included;not null" json:"included"`
	BaseHash     string    `gorm:"column:base_hash;type:varchar(64);not null" json:"-"`
}

// TableName overrides the table name used by ConflictHunk.
func (ConflictHunk) TableName() string {
	return "diary_conflicts"
}

// Op converts the hunk back into an edit script entry.
func (h ConflictHunk) Op() diff.Op {
	return diff.Op{Type: h.DiffType, Text: h.DiffText, LocalLine: h.LocalLine}
}

// DiaryCache is a quick note waiting to be merged into its day's entry.
type DiaryCache struct {
	DiaryDatetime time.Time `gorm:"column:diary_datetime;primaryKey;autoIncrement:false;precision:6" json:"diary_datetime"`
	DiaryText     string    `gorm:"column:diary_text;not null" json:"diary_text"`
}

// TableName overrides the table name used by DiaryCache.
func (DiaryCache) TableName() string {
	return "diary_cache"
}

// EpisodeKey identifies a conflict episode.
type EpisodeKey struct {
	DiaryDate    time.Time `json:"diary_date"`
	SyncDatetime time.Time `json:"sync_datetime"`
}

// EpisodeSummary describes one unresolved episode.
type EpisodeSummary struct {
	DiaryDate    time.Time `gorm:"column:diary_date" json:"diary_date"`
	SyncDatetime time.Time `gorm:"column:sync_datetime" json:"sync_datetime"`
	HunkCount    int       `gorm:"column:hunk_count" json:"hunk_count"`
}

// Key returns the episode identifiers.
func (s EpisodeSummary) Key() EpisodeKey {
	return EpisodeKey{DiaryDate: s.DiaryDate, SyncDatetime: s.SyncDatetime}
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&DiaryEntry{}, &ConflictHunk{}, &DiaryCache{}}
}
