package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/logging"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Manage log files",
}

var logsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove log files older than LOG_RETENTION",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := logging.Prune(cfg.Log.Dir, cfg.Log.Retention, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d log file(s)\n", len(removed))
		return nil
	},
}

func init() {
	logsCmd.AddCommand(logsPruneCmd)
	rootCmd.AddCommand(logsCmd)
}
