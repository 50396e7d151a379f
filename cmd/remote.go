package cmd

import (
	"fmt"

	"diary-sync/core/config"
	"diary-sync/core/utils"
	"diary-sync/feature/remote"

	"github.com/spf13/cobra"
)

// remoteCmd is the parent command for remote operations.
var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Inspect and authorize the remote copy",
}

var remoteAuthCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize Google Drive access and store the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return remote.Authorize(cmd.Context(), cfg.Remote, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var remoteListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the dates the remote holds, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		dates, err := a.sync.RemoteDates(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range dates {
			fmt.Println(utils.FormatDate(d))
		}
		return nil
	},
}

func init() {
	remoteCmd.AddCommand(remoteAuthCmd, remoteListCmd)
	RootCmd.AddCommand(remoteCmd)
}
