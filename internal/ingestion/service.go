package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/archive"
	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
	"github.com/simulative/grade-ingestion-service/internal/storage"
)

// Service handles data ingestion from the statistics API
type Service struct {
	config  config.IngestionConfig
	client  *Client
	storage storage.Storage
	archive archive.Archive
	now     func() time.Time
}

// NewService creates a new ingestion service
func NewService(cfg config.IngestionConfig, store storage.Storage, arc archive.Archive) *Service {
	return &Service{
		config:  cfg,
		client:  NewClient(cfg.APIEndpoint, cfg.Timeout),
		storage: store,
		archive: arc,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Load fetches the attempts created between start and end, archives the
// raw batch, normalizes it and inserts the rows in one transaction. The
// returned status is also written to the archive.
func (s *Service) Load(ctx context.Context, start, end time.Time) (models.IngestionStatus, error) {
	runID := uuid.NewString()
	status := models.IngestionStatus{
		RunID:       runID,
		LastAttempt: s.now(),
		Status:      "running",
	}
	if prev, err := s.archive.GetIngestionStatus(ctx); err == nil {
		status.LastSuccessfulRun = prev.LastSuccessfulRun
	}

	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().
		Str("start", start.Format(RequestTimeLayout)).
		Str("end", end.Format(RequestTimeLayout)).
		Msg("ingestion started")

	fetched, inserted, err := s.load(ctx, runID, start, end)
	status.RecordsFetched = fetched
	status.RecordsIngested = inserted
	if err != nil {
		status.Status = "failure"
		status.ErrorMessage = err.Error()
		logger.Error().Err(err).Msg("ingestion failed")
	} else {
		status.Status = "success"
		status.LastSuccessfulRun = status.LastAttempt
		logger.Info().Int("fetched", fetched).Int("inserted", inserted).Msg("ingestion finished")
	}

	if uerr := s.archive.UpdateIngestionStatus(ctx, status); uerr != nil {
		logger.Warn().Err(uerr).Msg("failed to record ingestion status")
	}
	return status, err
}

func (s *Service) load(ctx context.Context, runID string, start, end time.Time) (int, int, error) {
	raw, err := s.client.FetchRaw(ctx, s.config.Client, s.config.ClientKey, start, end)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch attempts: %w", err)
	}

	batch := models.RawBatch{
		RunID:     runID,
		Start:     start.Format(RequestTimeLayout),
		End:       end.Format(RequestTimeLayout),
		FetchedAt: s.now(),
		Attempts:  raw,
	}
	if err := s.archive.StoreBatch(ctx, batch); err != nil {
		log.Warn().Err(err).Str("run_id", runID).Msg("failed to archive raw batch")
	}

	records, err := Normalize(raw)
	if err != nil {
		return len(raw), 0, fmt.Errorf("failed to normalize attempts: %w", err)
	}

	n, err := s.storage.InsertRecords(ctx, records)
	if err != nil {
		return len(raw), 0, fmt.Errorf("failed to store attempts: %w", err)
	}
	return len(raw), n, nil
}
