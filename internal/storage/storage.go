package storage

import (
	"context"
	"errors"
	"time"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

// TableName is the single results table.
const TableName = "students_grade"

var (
	// ErrConnection marks failures to establish the database connection.
	// Callers treat it as fatal for the run.
	ErrConnection = errors.New("database connection failed")

	// ErrInvalidQuery is returned for an unknown query or a count without a date.
	ErrInvalidQuery = errors.New("invalid aggregate query")
)

// Storage interface defines the contract for attempt record storage
type Storage interface {
	InsertRecords(ctx context.Context, records []models.AttemptRecord) (int, error)
	ClearRecords(ctx context.Context) error
	Sample(ctx context.Context) ([]models.AttemptRecord, error)
	Summary(ctx context.Context, date time.Time) (models.Summary, error)
}

var _ Storage = (*Repository)(nil)
