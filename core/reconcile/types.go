package reconcile

import (
	"context"
	"time"
)

// Source is the read side of a remote copy of the diary.
type Source interface {
	// Name identifies the remote in logs and cache keys (e.g. "s3:diary").
	Name() string

	// Get returns the remote text for date. ok is false when the remote
	// holds nothing for that date. Errors mean the remote could not be read.
	Get(ctx context.Context, date time.Time) (text string, ok bool, err error)

	// ListDates returns every date the remote holds, in any order.
	ListDates(ctx context.Context) ([]time.Time, error)
}

// Sink is implemented by remotes that accept uploads.
type Sink interface {
	// Put stores text as the remote copy for date.
	Put(ctx context.Context, date time.Time, text string) error
}

// Outcome is the result of syncing one date.
type Outcome string

const (
	// OutcomeUpdated means the local entry was created from the remote.
	OutcomeUpdated Outcome = "updated"
	// OutcomeConflicted means a new conflict episode was recorded.
	OutcomeConflicted Outcome = "conflicted"
	// OutcomeUnchanged means nothing was written locally.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomePending means an unresolved episode blocked the re-diff.
	OutcomePending Outcome = "pending"
	// OutcomeFailed means the date could not be processed.
	OutcomeFailed Outcome = "failed"
)

// DateResult reports what happened to one date.
type DateResult struct {
	Date    time.Time `json:"date"`
	Outcome Outcome   `json:"outcome"`

	// SyncDatetime identifies the recorded episode when Outcome is
	// conflicted, or the blocking one when Outcome is pending.
	SyncDatetime *time.Time `json:"sync_datetime,omitempty"`

	// Hunks is the number of hunks recorded.
	Hunks int `json:"hunks,omitempty"`

	// Superseded is the number of stale hunks deleted before recording.
	Superseded int64 `json:"superseded,omitempty"`

	// Exported is set when the local entry was uploaded to the remote.
	Exported bool `json:"exported,omitempty"`

	// Error describes a pending or failed outcome.
	Error string `json:"error,omitempty"`

	// Err is the classified error behind Error.
	Err error `json:"-"`
}

// Summary provides aggregate counts for a sync run.
type Summary struct {
	Total      int `json:"total"`
	Updated    int `json:"updated"`
	Conflicted int `json:"conflicted"`
	Unchanged  int `json:"unchanged"`
	Pending    int `json:"pending"`
	Failed     int `json:"failed"`
	Exported   int `json:"exported"`
}

// Add counts one result.
func (s *Summary) Add(r DateResult) {
	s.Total++
	switch r.Outcome {
	case OutcomeUpdated:
		s.Updated++
	case OutcomeConflicted:
		s.Conflicted++
	case OutcomeUnchanged:
		s.Unchanged++
	case OutcomePending:
		s.Pending++
	case OutcomeFailed:
		s.Failed++
	}
	if r.Exported {
		s.Exported++
	}
}

// Report is the outcome of a sync run, one result per date sorted by date.
type Report struct {
	RunAt   time.Time    `json:"run_at"`
	Source  string       `json:"source"`
	Results []DateResult `json:"results"`
	Summary Summary      `json:"summary"`

	// ListError is set when the remote date listing failed and only local
	// dates were processed.
	ListError string `json:"list_error,omitempty"`
}

// Options controls a sync run.
type Options struct {
	// Supersede replaces an unresolved episode instead of rejecting the date.
	Supersede bool

	// Export uploads local entries the remote lacks, when it is a Sink.
	Export bool

	// Workers bounds how many dates are processed at once. Zero means 4.
	Workers int

	// FetchTimeout bounds each remote read. Zero means no extra bound.
	FetchTimeout time.Duration

	// DryRun computes outcomes without writing locally or remotely.
	DryRun bool
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return 4
	}
	return o.Workers
}
