// Package sync exposes the reconciliation engine over HTTP and on a
// schedule.
//
// A full run first merges quick notes into their entries, then reconciles
// every date known locally or remotely. Only one full run is active at a
// time. Single dates can be synced or exported on demand, and the remote
// date listing can be inspected.
//
// The Scheduler repeats full runs on sync.interval_minutes. The directory
// watcher of the local remote calls OnFileChange.
package sync
