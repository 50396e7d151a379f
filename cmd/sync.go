package cmd

import (
	"fmt"

	"diary-sync/core/reconcile"
	"diary-sync/core/utils"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	supersedeFlag bool
	exportFlag    bool
	dryRunFlag    bool
	exportOnly    bool
)

// syncCmd reconciles the local diary with the remote.
var syncCmd = &cobra.Command{
	Use:   "sync [DATE]",
	Short: "Sync the diary with the remote",
	Long: `Syncs every date, or only DATE (YYYY-MM-DD), with the configured remote.

A date whose local and remote text differ becomes a conflict episode that is
resolved with the conflict commands. Dates with an unresolved episode are
skipped unless --supersede is given.

Examples:
  # Full sync, quick notes are merged first
  diary sync

  # Preview a full sync
  diary sync --dry-run

  # Replace stale episodes and upload local-only entries
  diary sync --supersede --export

  # Upload one entry as is
  diary sync 2024-03-01 --push`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()

		opts := a.sync.DefaultOptions()
		if cmd.Flags().Changed("supersede") {
			opts.Supersede = supersedeFlag
		}
		if cmd.Flags().Changed("export") {
			opts.Export = exportFlag
		}
		opts.DryRun = dryRunFlag

		if len(args) == 0 {
			if exportOnly {
				return fmt.Errorf("--push needs a DATE")
			}
			res, err := a.sync.SyncAll(ctx, opts)
			if err != nil {
				return err
			}
			printSummary(res.Report)
			if len(res.Merged) > 0 {
				fmt.Printf("Merged quick notes into: %v\n", res.Merged)
			}
			a.logger.Info("Sync completed",
				zap.Int("total", res.Report.Summary.Total),
				zap.Int("conflicted", res.Report.Summary.Conflicted),
				zap.Int("failed", res.Report.Summary.Failed))
			return nil
		}

		date, err := utils.ParseDate(args[0])
		if err != nil {
			return err
		}
		if exportOnly {
			if err := a.sync.Export(ctx, date); err != nil {
				return err
			}
			fmt.Printf("Pushed %s to %s\n", utils.FormatDate(date), a.source.Name())
			return nil
		}

		res := a.sync.SyncDate(ctx, date, opts)
		printResult(res)
		if res.Err != nil {
			return res.Err
		}
		return nil
	},
}

func printResult(r reconcile.DateResult) {
	line := fmt.Sprintf("%s  %-10s", utils.FormatDate(r.Date), r.Outcome)
	if r.SyncDatetime != nil {
		line += "  episode " + utils.FormatSyncTime(*r.SyncDatetime)
	}
	if r.Hunks > 0 {
		line += fmt.Sprintf("  %d hunks", r.Hunks)
	}
	if r.Exported {
		line += "  exported"
	}
	if r.Error != "" {
		line += "  " + r.Error
	}
	fmt.Println(line)
}

func printSummary(r *reconcile.Report) {
	for _, res := range r.Results {
		if res.Outcome != reconcile.OutcomeUnchanged {
			printResult(res)
		}
	}
	s := r.Summary
	fmt.Println(headerStyle.Render("\n=== Sync Summary ==="))
	fmt.Printf("Remote: %s\n", r.Source)
	fmt.Printf("Total: %d\n", s.Total)
	fmt.Printf("Updated: %d\n", s.Updated)
	fmt.Printf("Conflicted: %d\n", s.Conflicted)
	fmt.Printf("Pending: %d\n", s.Pending)
	fmt.Printf("Unchanged: %d\n", s.Unchanged)
	fmt.Printf("Failed: %d\n", s.Failed)
	fmt.Printf("Exported: %d\n", s.Exported)
	if r.ListError != "" {
		fmt.Printf("Remote listing failed: %s\n", r.ListError)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&supersedeFlag, "supersede", false, "Replace unresolved episodes instead of skipping the date")
	syncCmd.Flags().BoolVar(&exportFlag, "export", false, "Upload local entries the remote lacks")
	syncCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report outcomes without writing anything")
	syncCmd.Flags().BoolVar(&exportOnly, "push", false, "Upload the local entry of DATE without syncing")
	RootCmd.AddCommand(syncCmd)
}
