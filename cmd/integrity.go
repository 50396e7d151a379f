package cmd

import (
	"context"
	"fmt"

	"diary-sync/feature/integrity"
	"diary-sync/feature/integrity/checks"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Check the database schema, the remote and pending episodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, true, true)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the diary tables against the models",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), true, false, false)
	},
}

var remoteCheckCmd = &cobra.Command{
	Use:   "remote",
	Short: "Check that the remote can be listed",
	Long:  `For an s3 remote the bucket is checked too; --fix creates it when missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, true, false)
	},
}

var episodesCmd = &cobra.Command{
	Use:   "episodes",
	Short: "Report unresolved conflict episodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIntegrityChecks(cmd.Context(), false, false, true)
	},
}

func init() {
	RootCmd.AddCommand(integrityCmd)
	integrityCmd.AddCommand(schemaCmd, remoteCheckCmd, episodesCmd)
	remoteCheckCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create a missing bucket")
}

func runIntegrityChecks(ctx context.Context, runSchema, runRemote, runEpisodes bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logg := a.logger
	svc := a.integrity

	if runSchema {
		logg.Info("Checking database schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return fmt.Errorf("schema check failed: %w", err)
		}
		if report.Matched {
			logg.Info("Schema matches the models.", zap.String("dialect", report.Dialect))
		} else {
			logg.Warn("Schema mismatches found", zap.String("dialect", report.Dialect))
			logSchemaReport(logg, report.Tables)
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
		}
	}

	if runRemote {
		if svc.HasBucket() {
			checkBucket(ctx, logg, svc)
		}
		logg.Info("Listing remote...")
		remote := svc.CheckRemote(ctx)
		if remote.Reachable {
			logg.Info("Remote is reachable",
				zap.String("source", remote.Source),
				zap.Int("dates", remote.Dates),
				zap.String("oldest", remote.Oldest),
				zap.String("newest", remote.Newest))
		} else {
			logg.Error("Remote is unreachable", zap.String("source", remote.Source), zap.String("error", remote.Error))
		}
	}

	if runEpisodes {
		report, err := svc.CheckEpisodes(ctx)
		if err != nil {
			return fmt.Errorf("episode check failed: %w", err)
		}
		if report.Pending == 0 {
			logg.Info("No unresolved episodes.")
		} else {
			logg.Warn("Unresolved episodes",
				zap.Int("episodes", report.Pending),
				zap.Int("hunks", report.Hunks),
				zap.Strings("dates", report.Dates),
				zap.String("oldest_sync", report.OldestSync))
		}
	}
	return nil
}

func logSchemaReport(logg *zap.Logger, tables map[string]checks.TableReport) {
	for table, tbl := range tables {
		if tbl.Status == "ok" {
			continue
		}
		if len(tbl.MissingColumns) > 0 {
			logg.Warn("Missing Columns", zap.String("table", table), zap.Strings("columns", tbl.MissingColumns))
		}
		if len(tbl.TypeMismatches) > 0 {
			logg.Warn("Type Mismatches", zap.String("table", table), zap.Strings("mismatches", tbl.TypeMismatches))
		}
	}
}

func checkBucket(ctx context.Context, logg *zap.Logger, svc *integrity.Service) {
	logg.Info("Checking bucket...")
	bucket, err := svc.CheckBucket(ctx)
	if err != nil {
		logg.Error("Bucket check failed", zap.Error(err))
		return
	}
	if bucket.Exists {
		logg.Info("Bucket exists.", zap.String("bucket", bucket.Bucket))
		return
	}
	logg.Warn("Bucket is missing", zap.String("bucket", bucket.Bucket))
	if !fixFlag {
		logg.Info("Run with --fix to create it.")
		return
	}
	if _, err := svc.FixBucket(ctx); err != nil {
		logg.Error("Failed to create bucket", zap.Error(err))
		return
	}
	logg.Info("Bucket created.", zap.String("bucket", bucket.Bucket))
}
