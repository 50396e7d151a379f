// Package reconcile synchronizes the local diary with a remote copy and
// records divergence as conflict episodes instead of overwriting.
//
// # Architecture
//
//  1. Source: the remote seam. Implementations live in feature/remote (S3,
//     local directory, Google Drive); tests use in-memory fakes. Remotes
//     that accept uploads also implement Sink.
//
//  2. Engine: per-date reconciliation. For each date the remote copy is
//     fetched, the date lock is taken, and the local entry is compared:
//     - both absent, remote absent, or identical text: unchanged
//     - local absent: the entry is created from the remote (updated)
//     - both present and different: the line diff is stored as one episode
//     sharing a fresh sync_datetime (conflicted); the entry is untouched.
//
//  3. DateIndex cache: TTL-based listing of remote dates with stampede
//     protection, used to build the date set of a bulk run.
//
// # Pending episodes
//
// A date that already has an unresolved episode is rejected with a pending
// outcome carrying a Conflict error. With Options.Supersede the stale
// episode is deleted and the new one inserted in the same transaction, so a
// date never holds two unresolved episodes.
//
// # Bulk runs
//
// SyncAll processes the union of local and remote dates with bounded
// parallelism. Each date is isolated: a failed fetch or write is recorded in
// the Report and the run continues. Nothing is retried within a run.
//
// # Usage Example
//
//	engine := reconcile.NewEngine(store, source, locks, logger, 5*time.Minute)
//
//	// One date
//	res := engine.Sync(ctx, date, reconcile.Options{})
//
//	// Everything, uploading entries the remote lacks
//	report, err := engine.SyncAll(ctx, reconcile.Options{Export: true, Workers: 8})
package reconcile
