package reconcile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/diff"
	"diary-sync/core/lock"
	"diary-sync/core/models"
	"diary-sync/core/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine reconciles the local entry store with one remote source.
type Engine struct {
	store  repository.Store
	source Source
	locks  *lock.Dates
	logger *zap.Logger
	index  *indexCache

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewEngine creates an engine. locks must be shared with every other
// writer of the same store. cacheTTL controls how long a remote date
// listing is reused; zero lists the remote on every bulk run.
func NewEngine(store repository.Store, source Source, locks *lock.Dates, logger *zap.Logger, cacheTTL time.Duration) *Engine {
	if locks == nil {
		locks = lock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		source: source,
		locks:  locks,
		logger: logger,
		index:  newIndexCache(cacheTTL),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Source returns the remote the engine compares against.
func (e *Engine) Source() Source {
	return e.source
}

// HashText fingerprints the local text an episode was computed against.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *Engine) runTime() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

// Sync reconciles one date. The result always describes the date; failures
// are reported through Outcome and Err rather than returned.
func (e *Engine) Sync(ctx context.Context, date time.Time, opts Options) DateResult {
	res := e.syncDate(ctx, dayOf(date), e.runTime(), opts)
	e.logResult(res)
	return res
}

// SyncAll reconciles every date known locally or remotely. Dates run in
// parallel up to opts.Workers; one date failing never stops the others.
func (e *Engine) SyncAll(ctx context.Context, opts Options) (*Report, error) {
	runAt := e.runTime()
	report := &Report{RunAt: runAt, Source: e.source.Name()}

	local, err := e.store.ListDates(ctx, repository.DateQuery{})
	if err != nil {
		return nil, err
	}

	set := make(map[time.Time]struct{}, len(local))
	for _, d := range local {
		set[dayOf(d)] = struct{}{}
	}

	idx, err := e.index.get(ctx, e.source)
	if err != nil {
		report.ListError = err.Error()
		e.logger.Warn("Remote listing failed, syncing local dates only",
			zap.String("source", e.source.Name()), zap.Error(err))
	} else {
		for d := range idx.Dates {
			set[d] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(set))
	for d := range set {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	results := make([]DateResult, len(dates))
	var g errgroup.Group
	g.SetLimit(opts.workers())
	for i, d := range dates {
		g.Go(func() error {
			results[i] = e.syncDate(ctx, d, runAt, opts)
			e.logResult(results[i])
			return nil
		})
	}
	_ = g.Wait()

	exported := false
	for _, r := range results {
		report.Summary.Add(r)
		exported = exported || r.Exported
	}
	report.Results = results
	if exported {
		e.index.invalidate(e.source)
	}

	e.logger.Info("Sync run completed",
		zap.String("source", report.Source),
		zap.Int("total", report.Summary.Total),
		zap.Int("updated", report.Summary.Updated),
		zap.Int("conflicted", report.Summary.Conflicted),
		zap.Int("pending", report.Summary.Pending),
		zap.Int("failed", report.Summary.Failed),
		zap.Int("exported", report.Summary.Exported),
	)
	return report, nil
}

// Export uploads the local entry for date to the remote, overwriting it.
func (e *Engine) Export(ctx context.Context, date time.Time) error {
	sink, ok := e.source.(Sink)
	if !ok {
		return apperror.Invalid("export", fmt.Sprintf("remote %s is read-only", e.source.Name()))
	}
	date = dayOf(date)

	unlock, err := e.locks.Lock(ctx, date)
	if err != nil {
		return err
	}
	defer unlock()

	entry, err := e.store.GetEntry(ctx, date)
	if err != nil {
		return err
	}
	if err := sink.Put(ctx, date, entry.Text); err != nil {
		return apperror.Wrap(apperror.KindUpstreamUnavailable, "export", err)
	}
	e.index.invalidate(e.source)
	return nil
}

// RemoteIndex returns the cached remote date listing.
func (e *Engine) RemoteIndex(ctx context.Context) (*DateIndex, error) {
	idx, err := e.index.get(ctx, e.source)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindUpstreamUnavailable, "list remote", err)
	}
	return idx, nil
}

func (e *Engine) fetch(ctx context.Context, date time.Time, timeout time.Duration) (string, bool, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	text, ok, err := e.source.Get(ctx, date)
	if err != nil {
		return "", false, apperror.Wrap(apperror.KindUpstreamUnavailable, "fetch remote", err)
	}
	// Blank remote copies carry no content.
	if !ok || strings.TrimSpace(text) == "" {
		return "", false, nil
	}
	return text, true, nil
}

func failed(date time.Time, err error) DateResult {
	return DateResult{Date: date, Outcome: OutcomeFailed, Error: err.Error(), Err: err}
}

func (e *Engine) syncDate(ctx context.Context, date time.Time, runAt time.Time, opts Options) DateResult {
	// The remote read happens outside the date lock so a slow remote never
	// blocks resolution of the same date.
	remote, remoteOK, err := e.fetch(ctx, date, opts.FetchTimeout)
	if err != nil {
		return failed(date, err)
	}

	unlock, err := e.locks.Lock(ctx, date)
	if err != nil {
		return failed(date, fmt.Errorf("lock %s: %w", date.Format("2006-01-02"), err))
	}
	defer unlock()

	var local *models.DiaryEntry
	entry, err := e.store.GetEntry(ctx, date)
	switch {
	case err == nil:
		local = entry
	case !errors.Is(err, apperror.ErrNotFound):
		return failed(date, err)
	}

	res := DateResult{Date: date, Outcome: OutcomeUnchanged}

	switch {
	case local == nil && !remoteOK:
		return res

	case local == nil:
		if opts.DryRun {
			res.Outcome = OutcomeUpdated
			return res
		}
		err := e.store.PutEntry(ctx, &models.DiaryEntry{Date: date, Text: remote, LastModified: e.now().UTC()})
		if err != nil {
			return failed(date, err)
		}
		res.Outcome = OutcomeUpdated
		return res

	case !remoteOK:
		// Local is authoritative when the remote has nothing.
		if opts.Export && strings.TrimSpace(local.Text) != "" {
			if sink, ok := e.source.(Sink); ok {
				if opts.DryRun {
					res.Exported = true
					return res
				}
				if err := sink.Put(ctx, date, local.Text); err != nil {
					return failed(date, apperror.Wrap(apperror.KindUpstreamUnavailable, "export", err))
				}
				res.Exported = true
			}
		}
		return res

	case local.Text == remote:
		return res
	}

	ops := diff.Texts(local.Text, remote)
	if len(ops) == 0 {
		return res
	}

	pending, err := e.store.Episodes(ctx, &date)
	if err != nil {
		return failed(date, err)
	}
	if len(pending) > 0 && !opts.Supersede {
		stale := pending[0].SyncDatetime
		err := apperror.Conflict("sync", fmt.Sprintf("unresolved episode %s pending for %s",
			stale.Format(time.RFC3339Nano), date.Format("2006-01-02")))
		res.Outcome = OutcomePending
		res.SyncDatetime = &stale
		res.Error = err.Error()
		res.Err = err
		return res
	}

	hunks := make([]models.ConflictHunk, len(ops))
	base := HashText(local.Text)
	for i, op := range ops {
		hunks[i] = models.ConflictHunk{
			ID:           e.newID(),
			SyncDatetime: runAt,
			DiaryDate:    date,
			DiffType:     op.Type,
			DiffText:     op.Text,
			Seq:          i,
			LocalLine:    op.LocalLine,
			Included:     true,
			BaseHash:     base,
		}
	}

	res.Outcome = OutcomeConflicted
	res.SyncDatetime = &runAt
	res.Hunks = len(hunks)
	if opts.DryRun {
		return res
	}

	err = e.store.Transaction(ctx, func(tx repository.Store) error {
		if len(pending) > 0 {
			n, err := tx.DeleteDateEpisodes(ctx, date)
			if err != nil {
				return err
			}
			res.Superseded = n
		}
		return tx.InsertHunks(ctx, hunks)
	})
	if err != nil {
		return failed(date, err)
	}
	return res
}

func (e *Engine) logResult(r DateResult) {
	fields := []zap.Field{
		zap.String("date", r.Date.Format("2006-01-02")),
		zap.String("outcome", string(r.Outcome)),
	}
	switch r.Outcome {
	case OutcomeFailed:
		e.logger.Warn("Date sync failed", append(fields, zap.Error(r.Err))...)
	case OutcomeConflicted:
		e.logger.Info("Conflict recorded", append(fields, zap.Int("hunks", r.Hunks), zap.Int64("superseded", r.Superseded))...)
	default:
		e.logger.Debug("Date synced", append(fields, zap.Bool("exported", r.Exported))...)
	}
}
