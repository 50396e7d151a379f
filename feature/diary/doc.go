// Package diary serves the local diary: entries by date, search and the
// quick-note cache.
//
// # Entries
//
// Put overwrites an entry under the per-date lock shared with sync and
// conflict resolution. ListDates pages dates newest first.
//
// # Search
//
// "today", YYYY-MM-DD, YYYY-MM, YYYY and natural phrases ("yesterday",
// "last friday") select entries by date. Anything else is a case-insensitive
// substring match over entries and cached notes, ordered by date.
//
// # Quick notes
//
// Insert stores a timestamped note. MergeCache appends notes to the entry of
// the day they were taken on and removes them; a full sync runs it first.
package diary
