// Package conflict resolves the episodes recorded by the sync engine.
//
// An episode is the set of hunks one sync run recorded for one date, keyed
// by (date, sync datetime). Every hunk starts included. Callers toggle or
// discard hunks, then either commit the episode, which rewrites the entry
// from the included hunks and deletes the episode in one transaction, or
// discard it, which leaves the entry alone.
//
// A commit is refused with a conflict error when the entry changed after the
// episode was recorded. Resolved episodes no longer exist, so repeating a
// commit or discard reports not found.
//
// All mutations take the per-date lock shared with the sync engine.
package conflict
