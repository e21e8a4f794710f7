// Package cli wires the grades command tree. Every command loads the
// configuration, sets up logging and owns a single database connection
// that is closed before the command returns.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/logging"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

var (
	// envFile is the --env-file flag value
	envFile string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "grades",
	Short: "Load student attempt statistics and report on them",
	Long: `grades pulls assessment attempts from the statistics API into the
students_grade table and delivers daily counts to a spreadsheet or by email.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment")
}

// Execute runs the root command. Errors are logged before the log file
// is closed.
func Execute() error {
	defer func() {
		if logCloser != nil {
			logCloser.Close()
		}
	}()
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		log.Error().Err(err).Str("command", rootCmd.Name()).Msg("command failed")
	}
	return err
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadFile(envFile)
	if err != nil {
		return err
	}
	cfg = loaded

	now := time.Now()
	closer, err := logging.Setup(cfg.Log, now)
	if err != nil {
		return err
	}
	logCloser = closer

	if cfg.Log.Retention > 0 {
		if _, err := logging.Prune(cfg.Log.Dir, cfg.Log.Retention, now); err != nil {
			log.Warn().Err(err).Msg("log pruning failed")
		}
	}
	return nil
}

// withConn hands fn a connection to the service database and closes it
// afterwards, whatever fn returns.
func withConn(fn func(conn *storage.Conn) error) error {
	conn := storage.NewConn(cfg.Database, cfg.Database.Name)
	defer func() {
		if err := conn.Disconnect(); err != nil {
			log.Warn().Err(err).Msg("closing database connection")
		}
	}()
	return fn(conn)
}
