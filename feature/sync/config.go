package sync

import (
	"time"

	"diary-sync/core/reconcile"
)

// Config holds the sync settings.
type Config struct {
	// Workers bounds how many dates a full sync processes at once.
	Workers int `mapstructure:"workers" default:"4"`
	// FetchTimeoutSeconds bounds each remote read.
	FetchTimeoutSeconds int `mapstructure:"fetch_timeout_seconds" default:"30"`
	// IndexTTLSeconds is how long a remote date listing is reused.
	IndexTTLSeconds int `mapstructure:"index_ttl_seconds" default:"300"`
	// IntervalMinutes runs a full sync periodically. Zero disables it.
	IntervalMinutes int `mapstructure:"interval_minutes" default:"0"`
	// Supersede replaces unresolved episodes on scheduled runs.
	Supersede bool `mapstructure:"supersede" default:"false"`
	// Export uploads local-only entries on scheduled runs.
	Export bool `mapstructure:"export" default:"false"`
}

// IndexTTL returns IndexTTLSeconds as a duration.
func (c Config) IndexTTL() time.Duration {
	return time.Duration(max(c.IndexTTLSeconds, 0)) * time.Second
}

// Interval returns IntervalMinutes as a duration.
func (c Config) Interval() time.Duration {
	return time.Duration(max(c.IntervalMinutes, 0)) * time.Minute
}

// Options returns the run options configured for scheduled and default runs.
func (c Config) Options() reconcile.Options {
	return reconcile.Options{
		Supersede:    c.Supersede,
		Export:       c.Export,
		Workers:      c.Workers,
		FetchTimeout: time.Duration(max(c.FetchTimeoutSeconds, 0)) * time.Second,
	}
}
