package cmd

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"diary-sync/core/apperror"
	"diary-sync/core/diff"
	"diary-sync/core/models"
	"diary-sync/core/utils"
	"diary-sync/feature/conflict"

	"github.com/spf13/cobra"
)

var (
	pushFlag   bool
	yesConfirm bool
)

// conflictCmd is the parent command for conflict resolution.
var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Review and resolve conflict episodes",
	Long: `An episode holds the hunks one sync recorded for one date. Every hunk
starts included; toggle or drop hunks, then commit the episode to rewrite the
entry, or discard it to keep the entry as is.

SYNC may be omitted when DATE has a single episode.`,
}

// episodeKey resolves "DATE [SYNC]" arguments.
func episodeKey(ctx context.Context, svc *conflict.Service, args []string) (models.EpisodeKey, error) {
	date, err := utils.ParseDate(args[0])
	if err != nil {
		return models.EpisodeKey{}, err
	}
	if len(args) > 1 {
		sync, err := utils.ParseSyncTime(args[1])
		if err != nil {
			return models.EpisodeKey{}, err
		}
		return models.EpisodeKey{DiaryDate: date, SyncDatetime: sync}, nil
	}

	episodes, err := svc.ListEpisodes(ctx, &date)
	if err != nil {
		return models.EpisodeKey{}, err
	}
	switch len(episodes) {
	case 0:
		return models.EpisodeKey{}, apperror.NotFound("episode", "no episode for "+utils.FormatDate(date))
	case 1:
		return episodes[0].Key(), nil
	default:
		return models.EpisodeKey{}, apperror.Invalid("episode", fmt.Sprintf("%d episodes for %s, give SYNC", len(episodes), utils.FormatDate(date)))
	}
}

var conflictListCmd = &cobra.Command{
	Use:   "list [DATE]",
	Short: "List unresolved episodes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		var date *time.Time
		if len(args) == 1 {
			d, err := utils.ParseDate(args[0])
			if err != nil {
				return err
			}
			date = &d
		}
		n := 0
		for ep, err := range a.conflicts.Episodes(ctx, date) {
			if err != nil {
				return err
			}
			n++
			fmt.Printf("%s  %s  %d hunks\n", utils.FormatDate(ep.DiaryDate), utils.FormatSyncTime(ep.SyncDatetime), ep.HunkCount)
		}
		if n == 0 {
			fmt.Println("No unresolved episodes.")
		}
		return nil
	},
}

var conflictShowCmd = &cobra.Command{
	Use:   "show DATE [SYNC]",
	Short: "Show the hunks of an episode and the text a commit would produce",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		key, err := episodeKey(ctx, a.conflicts, args)
		if err != nil {
			return err
		}
		ep, err := a.conflicts.ShowEpisode(ctx, key)
		if err != nil {
			return err
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("%s @ %s", utils.FormatDate(ep.DiaryDate), utils.FormatSyncTime(ep.SyncDatetime))))
		if ep.Stale {
			fmt.Println(remStyle.Render("The entry changed after this sync; commit will be refused."))
		}
		for _, h := range ep.Hunks {
			fmt.Println(renderHunk(h))
		}
		fmt.Println(headerStyle.Render("\n--- preview ---"))
		fmt.Println(ep.Preview)
		return nil
	},
}

var conflictToggleCmd = &cobra.Command{
	Use:   "toggle HUNK_ID add|rem",
	Short: "Flip whether a hunk is applied on commit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		h, err := a.conflicts.ToggleHunk(ctx, args[0], diff.Type(args[1]))
		if err != nil {
			return err
		}
		fmt.Println(renderHunk(*h))
		return nil
	},
}

var conflictDropCmd = &cobra.Command{
	Use:   "drop-hunk HUNK_ID",
	Short: "Remove a hunk from its episode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.conflicts.DiscardHunk(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Dropped hunk %s\n", args[0])
		return nil
	},
}

var conflictCommitCmd = &cobra.Command{
	Use:   "commit DATE [SYNC]",
	Short: "Apply the included hunks and close the episode",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		key, err := episodeKey(ctx, a.conflicts, args)
		if err != nil {
			return err
		}
		entry, err := a.conflicts.CommitEpisode(ctx, key)
		if err != nil {
			return err
		}
		fmt.Printf("Committed %s\n", utils.FormatDate(entry.Date))

		if pushFlag {
			if err := a.conflicts.Push(ctx, entry.Date); err != nil {
				return fmt.Errorf("committed, but push failed: %w", err)
			}
			fmt.Printf("Pushed %s to %s\n", utils.FormatDate(entry.Date), a.source.Name())
		}
		return nil
	},
}

var conflictDiscardCmd = &cobra.Command{
	Use:   "discard DATE [SYNC]",
	Short: "Close the episode without touching the entry",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		key, err := episodeKey(ctx, a.conflicts, args)
		if err != nil {
			return err
		}
		if !confirmDestructiveAction(cmd) {
			fmt.Println("Aborted.")
			return nil
		}
		if err := a.conflicts.DiscardEpisode(ctx, key); err != nil {
			return err
		}
		fmt.Printf("Discarded episode %s @ %s\n", utils.FormatDate(key.DiaryDate), utils.FormatSyncTime(key.SyncDatetime))
		return nil
	},
}

func init() {
	conflictCommitCmd.Flags().BoolVar(&pushFlag, "push", false, "Upload the merged entry to the remote")
	conflictDiscardCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Skip the confirmation prompt")

	conflictCmd.AddCommand(conflictListCmd, conflictShowCmd, conflictToggleCmd, conflictDropCmd, conflictCommitCmd, conflictDiscardCmd)
	RootCmd.AddCommand(conflictCmd)
}

// confirmDestructiveAction asks for "yes" on stdin unless --yes was given.
func confirmDestructiveAction(cmd *cobra.Command) bool {
	if yesConfirm {
		return true
	}

	fmt.Print("Type 'yes' to discard every hunk of this episode: ")
	reader := bufio.NewReader(cmd.InOrStdin())
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
