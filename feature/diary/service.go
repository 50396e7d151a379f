package diary

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/lock"
	"diary-sync/core/models"
	"diary-sync/core/repository"
	"diary-sync/core/utils"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"go.uber.org/zap"
)

// Service implements entry access, search and the quick-note cache.
type Service struct {
	store    repository.Store
	locks    *lock.Dates
	logger   *zap.Logger
	location *time.Location
	parser   *when.Parser

	now func() time.Time
}

// NewService creates a diary service. loc decides which calendar day a
// quick note or "today" falls on; nil means UTC.
func NewService(store repository.Store, locks *lock.Dates, logger *zap.Logger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if locks == nil {
		locks = lock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)

	return &Service{
		store:    store,
		locks:    locks,
		logger:   logger,
		location: loc,
		parser:   parser,
		now:      time.Now,
	}
}

func (s *Service) today() time.Time {
	return utils.NormalizeDate(s.now().In(s.location))
}

// Get returns the entry for date.
func (s *Service) Get(ctx context.Context, date time.Time) (*models.DiaryEntry, error) {
	return s.store.GetEntry(ctx, utils.NormalizeDate(date))
}

// Put overwrites the text for date without diffing.
func (s *Service) Put(ctx context.Context, date time.Time, text string) (*models.DiaryEntry, error) {
	date = utils.NormalizeDate(date)
	unlock, err := s.locks.Lock(ctx, date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry := &models.DiaryEntry{Date: date, Text: text, LastModified: s.now().UTC()}
	if err := s.store.PutEntry(ctx, entry); err != nil {
		return nil, err
	}
	s.logger.Debug("Entry written", zap.String("date", utils.FormatDate(date)), zap.Int("bytes", len(text)))
	return entry, nil
}

// ListQuery selects a page of dates.
type ListQuery struct {
	MinDate *time.Time
	MaxDate *time.Time
	Start   *int
	Limit   *int
}

// ListDates returns entry dates newest first.
func (s *Service) ListDates(ctx context.Context, q ListQuery) ([]time.Time, error) {
	dq := repository.DateQuery{Min: q.MinDate, Max: q.MaxDate}
	if q.Start != nil {
		if *q.Start < 0 {
			return nil, apperror.Invalid("list dates", "start must not be negative")
		}
		dq.Start = *q.Start
	}
	if q.Limit != nil {
		if *q.Limit < 0 {
			return nil, apperror.Invalid("list dates", "limit must not be negative")
		}
		if *q.Limit == 0 {
			return []time.Time{}, nil
		}
		dq.Limit = *q.Limit
	}
	if q.MinDate != nil && q.MaxDate != nil && q.MaxDate.Before(*q.MinDate) {
		return nil, apperror.Invalid("list dates", "max_date is before min_date")
	}
	return s.store.ListDates(ctx, dq)
}

// SearchResult is one search hit.
type SearchResult struct {
	Date time.Time `json:"date"`
	Text string    `json:"text"`
	// Kind is "entry" or "cache".
	Kind string `json:"kind"`
}

// String renders the hit as "<date>\n<text>".
func (r SearchResult) String() string {
	if r.Kind == "cache" {
		return r.Date.Format(time.RFC3339) + "\n" + r.Text
	}
	return utils.FormatDate(r.Date) + "\n" + r.Text
}

var (
	dayPattern   = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	monthPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	yearPattern  = regexp.MustCompile(`^(\d{4})$`)
)

// Search finds entries by date or text. Date-shaped queries ("today",
// YYYY-MM-DD, YYYY-MM, YYYY, or a natural phrase like "last friday")
// select entries by date; anything else is a case-insensitive substring
// match over entries and cached notes.
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperror.Invalid("search", "empty query")
	}

	if from, to, ok := s.dateRange(query); ok {
		entries, err := s.store.EntriesBetween(ctx, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]SearchResult, 0, len(entries))
		for _, e := range entries {
			out = append(out, SearchResult{Date: e.Date, Text: e.Text, Kind: "entry"})
		}
		return out, nil
	}

	entries, err := s.store.SearchEntries(ctx, query)
	if err != nil {
		return nil, err
	}
	notes, err := s.store.SearchCache(ctx, query)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(entries)+len(notes))
	for _, e := range entries {
		out = append(out, SearchResult{Date: e.Date, Text: e.Text, Kind: "entry"})
	}
	for _, n := range notes {
		out = append(out, SearchResult{Date: n.DiaryDatetime, Text: n.DiaryText, Kind: "cache"})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// SearchDate returns the entry for one date as a search result list.
func (s *Service) SearchDate(ctx context.Context, date time.Time) ([]SearchResult, error) {
	entry, err := s.Get(ctx, date)
	if errors.Is(err, apperror.ErrNotFound) {
		return []SearchResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return []SearchResult{{Date: entry.Date, Text: entry.Text, Kind: "entry"}}, nil
}

// dateRange interprets query as an inclusive range of dates.
func (s *Service) dateRange(query string) (time.Time, time.Time, bool) {
	if strings.EqualFold(query, "today") {
		d := s.today()
		return d, d, true
	}
	if m := dayPattern.FindStringSubmatch(query); m != nil {
		d, err := utils.ParseDate(query)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
		return d, d, true
	}
	if m := monthPattern.FindStringSubmatch(query); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if mo < 1 || mo > 12 {
			return time.Time{}, time.Time{}, false
		}
		from := time.Date(y, time.Month(mo), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, -1), true
	}
	if m := yearPattern.FindStringSubmatch(query); m != nil {
		y, _ := strconv.Atoi(m[1])
		from := time.Date(y, 1, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, -1), true
	}

	// Natural phrases only count when they make up the whole query.
	r, err := s.parser.Parse(query, s.now().In(s.location))
	if err != nil || r == nil || !strings.EqualFold(strings.TrimSpace(r.Text), query) {
		return time.Time{}, time.Time{}, false
	}
	d := utils.NormalizeDate(r.Time)
	return d, d, true
}

// Insert stores a timestamped quick note.
func (s *Service) Insert(ctx context.Context, text string) (*models.DiaryCache, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperror.Invalid("insert", "empty note")
	}
	note := &models.DiaryCache{DiaryDatetime: utils.NormalizeSyncTime(s.now()), DiaryText: text}
	if err := s.store.InsertCache(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// MergeCache appends every cached note to the entry of the day it was taken
// on, creating the entry when needed, and clears the merged notes. Notes for
// a date with an unresolved conflict episode stay cached until the episode is
// resolved. It returns the dates that changed.
func (s *Service) MergeCache(ctx context.Context) ([]time.Time, error) {
	notes, err := s.store.ListCache(ctx)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time][]models.DiaryCache)
	for _, n := range notes {
		d := utils.NormalizeDate(n.DiaryDatetime.In(s.location))
		byDate[d] = append(byDate[d], n)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	merged := make([]time.Time, 0, len(dates))
	count := 0
	for _, d := range dates {
		ok, err := s.mergeDate(ctx, d, byDate[d])
		if err != nil {
			return nil, fmt.Errorf("merge cache for %s: %w", utils.FormatDate(d), err)
		}
		if !ok {
			s.logger.Info("Cached notes held back by pending episode",
				zap.String("date", utils.FormatDate(d)), zap.Int("notes", len(byDate[d])))
			continue
		}
		merged = append(merged, d)
		count += len(byDate[d])
	}
	if len(merged) > 0 {
		s.logger.Info("Merged cached notes", zap.Int("notes", count), zap.Int("dates", len(merged)))
	}
	return merged, nil
}

// mergeDate reports false when date has a pending episode and nothing was merged.
func (s *Service) mergeDate(ctx context.Context, date time.Time, notes []models.DiaryCache) (bool, error) {
	unlock, err := s.locks.Lock(ctx, date)
	if err != nil {
		return false, err
	}
	defer unlock()

	pending, err := s.store.Episodes(ctx, &date)
	if err != nil {
		return false, err
	}
	if len(pending) > 0 {
		return false, nil
	}

	blocks := make([]string, len(notes))
	stamps := make([]time.Time, len(notes))
	for i, n := range notes {
		blocks[i] = n.DiaryDatetime.In(s.location).Format(time.RFC3339) + "\n" + n.DiaryText
		stamps[i] = n.DiaryDatetime
	}
	joined := strings.Join(blocks, "\n\n")

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		text := joined
		current, err := tx.GetEntry(ctx, date)
		switch {
		case err == nil:
			text = current.Text + "\n\n" + joined
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
		if err := tx.PutEntry(ctx, &models.DiaryEntry{Date: date, Text: text, LastModified: s.now().UTC()}); err != nil {
			return err
		}
		return tx.DeleteCache(ctx, stamps)
	})
	return err == nil, err
}
