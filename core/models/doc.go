// Package models defines the persisted records of the diary service.
//
//   - DiaryEntry: the current text of one date (diary_entries).
//   - ConflictHunk: one changed line of a sync episode (diary_conflicts).
//     Hunks sharing DiaryDate and SyncDatetime form an episode.
//   - DiaryCache: timestamped quick notes awaiting a merge (diary_cache).
//
// Dates are stored at UTC midnight and sync timestamps in UTC with
// microsecond precision, so equality lookups behave the same on every
// supported database.
package models
