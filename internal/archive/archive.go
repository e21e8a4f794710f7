// Package archive keeps the raw statistics API batches and the status of
// the last ingestion run outside of the relational table.
package archive

import (
	"context"
	"fmt"
	"sync"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

// StatusNeverRun is reported before the first ingestion run.
const StatusNeverRun = "never_run"

// Archive defines the contract for raw batch and status storage
type Archive interface {
	StoreBatch(ctx context.Context, batch models.RawBatch) error
	UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error
	GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error)
	Close() error
}

// NewArchive creates an archive based on configuration
func NewArchive(ctx context.Context, cfg config.ArchiveConfig) (Archive, error) {
	switch cfg.Type {
	case "", "none":
		return NewMemoryArchive(), nil
	case "dynamodb":
		return NewDynamoDBArchive(cfg)
	case "mongodb":
		return NewMongoDBArchive(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported archive type: %s", cfg.Type)
	}
}

// MemoryArchive drops raw batches and remembers the last status for the
// lifetime of the process.
type MemoryArchive struct {
	mu     sync.Mutex
	status *models.IngestionStatus
}

// NewMemoryArchive creates an empty in-process archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{}
}

func (m *MemoryArchive) StoreBatch(ctx context.Context, batch models.RawBatch) error {
	return nil
}

func (m *MemoryArchive) UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = &status
	return nil
}

func (m *MemoryArchive) GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		return &models.IngestionStatus{Status: StatusNeverRun}, nil
	}
	s := *m.status
	return &s, nil
}

func (m *MemoryArchive) Close() error {
	return nil
}
