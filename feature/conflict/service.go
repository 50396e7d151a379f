package conflict

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/diff"
	"diary-sync/core/lock"
	"diary-sync/core/models"
	"diary-sync/core/reconcile"
	"diary-sync/core/repository"
	"diary-sync/core/utils"

	"go.uber.org/zap"
)

// Exporter pushes a committed entry back to the remote.
type Exporter interface {
	Export(ctx context.Context, date time.Time) error
}

// Service lists, edits and resolves conflict episodes.
type Service struct {
	store    repository.Store
	locks    *lock.Dates
	logger   *zap.Logger
	exporter Exporter

	now func() time.Time
}

// NewService creates a resolution service. locks must be the same set the
// sync engine uses. exporter may be nil when the remote is read-only.
func NewService(store repository.Store, locks *lock.Dates, logger *zap.Logger, exporter Exporter) *Service {
	if locks == nil {
		locks = lock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, locks: locks, logger: logger, exporter: exporter, now: time.Now}
}

// Episode is an unresolved episode with its hunks in edit-script order.
type Episode struct {
	DiaryDate    time.Time             `json:"diary_date"`
	SyncDatetime time.Time             `json:"sync_datetime"`
	Hunks        []models.ConflictHunk `json:"hunks"`

	// Preview is the text a commit would write right now.
	Preview string `json:"preview"`
	// Stale is set when the local entry changed after the episode was
	// recorded; such an episode can only be discarded.
	Stale bool `json:"stale"`
}

// ListEpisodes returns unresolved episodes, optionally for one date.
func (s *Service) ListEpisodes(ctx context.Context, date *time.Time) ([]models.EpisodeSummary, error) {
	if date != nil {
		d := utils.NormalizeDate(*date)
		date = &d
	}
	return s.store.Episodes(ctx, date)
}

// Episodes yields unresolved episodes. Each range queries the store again;
// a query failure is yielded once as the error.
func (s *Service) Episodes(ctx context.Context, date *time.Time) iter.Seq2[models.EpisodeSummary, error] {
	return func(yield func(models.EpisodeSummary, error) bool) {
		list, err := s.ListEpisodes(ctx, date)
		if err != nil {
			yield(models.EpisodeSummary{}, err)
			return
		}
		for _, ep := range list {
			if !yield(ep, nil) {
				return
			}
		}
	}
}

func normalizeKey(key models.EpisodeKey) models.EpisodeKey {
	return models.EpisodeKey{
		DiaryDate:    utils.NormalizeDate(key.DiaryDate),
		SyncDatetime: utils.NormalizeSyncTime(key.SyncDatetime),
	}
}

// ShowEpisode returns one episode with a preview of its commit.
func (s *Service) ShowEpisode(ctx context.Context, key models.EpisodeKey) (*Episode, error) {
	key = normalizeKey(key)
	hunks, err := s.store.EpisodeHunks(ctx, key)
	if err != nil {
		return nil, err
	}
	local, err := s.localText(ctx, key.DiaryDate)
	if err != nil {
		return nil, err
	}

	ep := &Episode{DiaryDate: key.DiaryDate, SyncDatetime: key.SyncDatetime, Hunks: hunks}
	if reconcile.HashText(local) != hunks[0].BaseHash {
		ep.Stale = true
		ep.Preview = local
		return ep, nil
	}
	ep.Preview = merge(local, hunks)
	return ep, nil
}

// ToggleHunk flips whether a hunk is part of the commit. direction must be
// the hunk's own diff type.
func (s *Service) ToggleHunk(ctx context.Context, id string, direction diff.Type) (*models.ConflictHunk, error) {
	if !direction.Valid() {
		return nil, apperror.Invalid("toggle hunk", fmt.Sprintf("unknown direction %q", direction))
	}

	var out *models.ConflictHunk
	err := s.withHunkLock(ctx, id, func(h *models.ConflictHunk) error {
		if h.DiffType != direction {
			return apperror.Invalid("toggle hunk",
				fmt.Sprintf("hunk %s is %s, not %s", id, h.DiffType, direction))
		}
		h.Included = !h.Included
		if err := s.store.SetIncluded(ctx, id, h.Included); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DiscardHunk removes one hunk from its episode.
func (s *Service) DiscardHunk(ctx context.Context, id string) error {
	return s.withHunkLock(ctx, id, func(h *models.ConflictHunk) error {
		if err := s.store.DeleteHunk(ctx, id); err != nil {
			return err
		}
		s.logger.Debug("Hunk discarded", zap.String("id", id), zap.String("date", utils.FormatDate(h.DiaryDate)))
		return nil
	})
}

// withHunkLock runs fn on the current state of a hunk while holding its
// date lock.
func (s *Service) withHunkLock(ctx context.Context, id string, fn func(h *models.ConflictHunk) error) error {
	h, err := s.store.GetHunk(ctx, id)
	if err != nil {
		return err
	}
	unlock, err := s.locks.Lock(ctx, h.DiaryDate)
	if err != nil {
		return err
	}
	defer unlock()

	// The episode may have been resolved while waiting for the lock.
	h, err = s.store.GetHunk(ctx, id)
	if err != nil {
		return err
	}
	return fn(h)
}

// CommitEpisode applies the included hunks to the local entry and removes
// the episode, atomically.
func (s *Service) CommitEpisode(ctx context.Context, key models.EpisodeKey) (*models.DiaryEntry, error) {
	key = normalizeKey(key)
	unlock, err := s.locks.Lock(ctx, key.DiaryDate)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var entry *models.DiaryEntry
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		hunks, err := tx.EpisodeHunks(ctx, key)
		if err != nil {
			return err
		}
		local, err := localText(ctx, tx, key.DiaryDate)
		if err != nil {
			return err
		}
		if reconcile.HashText(local) != hunks[0].BaseHash {
			return apperror.Conflict("commit episode",
				fmt.Sprintf("entry %s changed after the episode was recorded; discard it and sync again", utils.FormatDate(key.DiaryDate)))
		}

		entry = &models.DiaryEntry{Date: key.DiaryDate, Text: merge(local, hunks), LastModified: s.now().UTC()}
		if err := tx.PutEntry(ctx, entry); err != nil {
			return err
		}
		_, err = tx.DeleteEpisode(ctx, key)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Episode committed",
		zap.String("date", utils.FormatDate(key.DiaryDate)),
		zap.String("sync", utils.FormatSyncTime(key.SyncDatetime)))
	return entry, nil
}

// DiscardEpisode removes an episode and leaves the entry untouched.
func (s *Service) DiscardEpisode(ctx context.Context, key models.EpisodeKey) error {
	key = normalizeKey(key)
	unlock, err := s.locks.Lock(ctx, key.DiaryDate)
	if err != nil {
		return err
	}
	defer unlock()

	n, err := s.store.DeleteEpisode(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("discard episode",
			fmt.Sprintf("no episode %s for %s", utils.FormatSyncTime(key.SyncDatetime), utils.FormatDate(key.DiaryDate)))
	}
	s.logger.Info("Episode discarded", zap.String("date", utils.FormatDate(key.DiaryDate)), zap.Int64("hunks", n))
	return nil
}

// Push uploads the entry for date to the remote.
func (s *Service) Push(ctx context.Context, date time.Time) error {
	if s.exporter == nil {
		return apperror.Invalid("push", "remote does not accept uploads")
	}
	return s.exporter.Export(ctx, utils.NormalizeDate(date))
}

func (s *Service) localText(ctx context.Context, date time.Time) (string, error) {
	return localText(ctx, s.store, date)
}

// localText returns the entry text, treating a missing entry as empty.
func localText(ctx context.Context, store repository.EntryStore, date time.Time) (string, error) {
	entry, err := store.GetEntry(ctx, date)
	if errors.Is(err, apperror.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return entry.Text, nil
}

// merge applies the included hunks to local.
func merge(local string, hunks []models.ConflictHunk) string {
	ops := make([]diff.Op, 0, len(hunks))
	for _, h := range hunks {
		if h.Included {
			ops = append(ops, h.Op())
		}
	}
	return diff.Join(diff.Apply(diff.Split(local), ops))
}
