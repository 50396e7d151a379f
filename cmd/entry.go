package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"diary-sync/core/utils"
	"diary-sync/feature/diary"

	"github.com/spf13/cobra"
)

var (
	entryFile     string
	listMinDate   string
	listMaxDate   string
	listStart     int
	listLimit     int
	entryJSONFlag bool
)

// entryCmd is the parent command for local entry operations.
var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Read and write local diary entries",
}

var entryGetCmd = &cobra.Command{
	Use:   "get DATE",
	Short: "Print the entry of DATE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := utils.ParseDate(args[0])
		if err != nil {
			return err
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.diary.Get(cmd.Context(), date)
		if err != nil {
			return err
		}
		if entryJSONFlag {
			return printJSON(entry)
		}
		fmt.Println(entry.Text)
		return nil
	},
}

var entryPutCmd = &cobra.Command{
	Use:   "put DATE [TEXT]",
	Short: "Create or overwrite the entry of DATE",
	Long:  `The text comes from TEXT, from --file, or from stdin when neither is given.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := utils.ParseDate(args[0])
		if err != nil {
			return err
		}

		var text string
		switch {
		case len(args) == 2:
			text = args[1]
		case entryFile != "":
			data, err := os.ReadFile(entryFile)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", entryFile, err)
			}
			text = string(data)
		default:
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			text = string(data)
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		entry, err := a.diary.Put(cmd.Context(), date, text)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%d bytes)\n", utils.FormatDate(entry.Date), len(entry.Text))
		return nil
	},
}

var entryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List entry dates, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q diary.ListQuery
		if listMinDate != "" {
			d, err := utils.ParseDate(listMinDate)
			if err != nil {
				return err
			}
			q.MinDate = &d
		}
		if listMaxDate != "" {
			d, err := utils.ParseDate(listMaxDate)
			if err != nil {
				return err
			}
			q.MaxDate = &d
		}
		if cmd.Flags().Changed("start") {
			q.Start = &listStart
		}
		if cmd.Flags().Changed("limit") {
			q.Limit = &listLimit
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		dates, err := a.diary.ListDates(cmd.Context(), q)
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Println(utils.FormatDate(d))
		}
		return nil
	},
}

var entrySearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search entries and quick notes",
	Long: `QUERY is "today", a date (YYYY-MM-DD), a month (YYYY-MM), a year (YYYY),
a phrase like "last friday", or any text to look for.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		results, err := a.diary.Search(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if entryJSONFlag {
			return printJSON(results)
		}
		for i, r := range results {
			if i > 0 {
				fmt.Println()
			}
			fmt.Println(r.String())
		}
		return nil
	},
}

var entryNoteCmd = &cobra.Command{
	Use:   "note TEXT",
	Short: "Add a quick note, merged into its day on the next sync",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		note, err := a.diary.Insert(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Noted at %s\n", note.DiaryDatetime.Local().Format(time.RFC3339))
		return nil
	},
}

var entryMergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge quick notes into their entries now",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		dates, err := a.diary.MergeCache(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Printf("Merged into %s\n", utils.FormatDate(d))
		}
		if len(dates) == 0 {
			fmt.Println("No quick notes to merge.")
		}
		return nil
	},
}

func init() {
	entryPutCmd.Flags().StringVar(&entryFile, "file", "", "Read the text from this file")
	entryListCmd.Flags().StringVar(&listMinDate, "min-date", "", "Oldest date to list (YYYY-MM-DD)")
	entryListCmd.Flags().StringVar(&listMaxDate, "max-date", "", "Newest date to list (YYYY-MM-DD)")
	entryListCmd.Flags().IntVar(&listStart, "start", 0, "Skip this many dates")
	entryListCmd.Flags().IntVar(&listLimit, "limit", 0, "Return at most this many dates")
	entryGetCmd.Flags().BoolVar(&entryJSONFlag, "json", false, "Output JSON")
	entrySearchCmd.Flags().BoolVar(&entryJSONFlag, "json", false, "Output JSON")

	entryCmd.AddCommand(entryGetCmd, entryPutCmd, entryListCmd, entrySearchCmd, entryNoteCmd, entryMergeCmd)
	RootCmd.AddCommand(entryCmd)
}
