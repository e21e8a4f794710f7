package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simulative/grade-ingestion-service/internal/archive"
	"github.com/simulative/grade-ingestion-service/internal/server"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve sample rows, daily reports and ingestion status over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides SERVER_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	arc, err := archive.NewArchive(cmd.Context(), cfg.Archive)
	if err != nil {
		return err
	}
	defer arc.Close()

	return withConn(func(conn *storage.Conn) error {
		if _, err := conn.Connect(cmd.Context()); err != nil {
			return err
		}
		httpServer := server.NewServer(cfg.Server, storage.NewRepository(conn), arc)

		// Handle graceful shutdown
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		errChan := make(chan error, 1)
		go func() {
			log.Info().Int("port", cfg.Server.Port).Msg("starting HTTP server")
			if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		select {
		case err := <-errChan:
			return err
		case <-sigChan:
			log.Info().Msg("shutdown signal received, gracefully shutting down")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("shutdown complete")
		return nil
	})
}
