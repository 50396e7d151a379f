package checks

import (
	"context"
	"fmt"
	"sort"
	"time"

	"diary-sync/core/repository"
	"diary-sync/core/utils"
)

// EpisodeReport summarizes unresolved conflict episodes.
type EpisodeReport struct {
	Pending int      `json:"pending"`
	Hunks   int      `json:"hunks"`
	Dates   []string `json:"dates"`
	// OldestSync is the sync datetime of the longest waiting episode.
	OldestSync string `json:"oldest_sync,omitempty"`
}

// CheckEpisodes counts the episodes still waiting for a resolution.
func CheckEpisodes(ctx context.Context, store repository.ConflictStore) (*EpisodeReport, error) {
	episodes, err := store.Episodes(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}

	report := &EpisodeReport{Pending: len(episodes), Dates: []string{}}
	seen := make(map[string]bool)
	var oldest time.Time
	for _, ep := range episodes {
		report.Hunks += ep.HunkCount
		d := utils.FormatDate(ep.DiaryDate)
		if !seen[d] {
			seen[d] = true
			report.Dates = append(report.Dates, d)
		}
		if oldest.IsZero() || ep.SyncDatetime.Before(oldest) {
			oldest = ep.SyncDatetime
		}
	}
	sort.Strings(report.Dates)
	if !oldest.IsZero() {
		report.OldestSync = utils.FormatSyncTime(oldest)
	}
	return report, nil
}
