package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/archive"
	"github.com/simulative/grade-ingestion-service/internal/ingestion"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

var (
	loadStart string
	loadEnd   string
)

var loadCmd = &cobra.Command{
	Use:     "load",
	Short:   "Fetch attempts for a date range and insert them",
	Example: "  grades load --start 2023-04-01 --end 2023-04-05",
	Args:    cobra.NoArgs,
	RunE:    runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&loadStart, "start", "", "first day, YYYY-MM-DD")
	loadCmd.Flags().StringVar(&loadEnd, "end", "", "last day, YYYY-MM-DD (inclusive)")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	start, end, err := parseRange(loadStart, loadEnd)
	if err != nil {
		return err
	}
	if cfg.Ingestion.Client == "" || cfg.Ingestion.ClientKey == "" {
		return fmt.Errorf("CLIENT and CLIENT_KEY must be set")
	}

	arc, err := archive.NewArchive(cmd.Context(), cfg.Archive)
	if err != nil {
		return err
	}
	defer func() {
		if err := arc.Close(); err != nil {
			log.Warn().Err(err).Msg("closing archive")
		}
	}()

	return withConn(func(conn *storage.Conn) error {
		svc := ingestion.NewService(cfg.Ingestion, storage.NewRepository(conn), arc)
		status, err := svc.Load(cmd.Context(), start, end)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "run %s: fetched %d, inserted %d\n",
			status.RunID, status.RecordsFetched, status.RecordsIngested)
		return nil
	})
}
