package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

const (
	batchCollection  = "raw_batches"
	statusCollection = "ingestion_status"
)

// MongoDBArchive implements Archive using MongoDB
type MongoDBArchive struct {
	client   *mongo.Client
	batches  *mongo.Collection
	statuses *mongo.Collection
}

// NewMongoDBArchive connects to cfg.MongoDBURI and verifies the connection
func NewMongoDBArchive(ctx context.Context, cfg config.ArchiveConfig) (*MongoDBArchive, error) {
	if cfg.MongoDBURI == "" {
		return nil, errors.New("mongodb archive requires MONGODB_URI")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoDBURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return newMongoDBArchive(client, client.Database(cfg.MongoDatabase)), nil
}

func newMongoDBArchive(client *mongo.Client, db *mongo.Database) *MongoDBArchive {
	return &MongoDBArchive{
		client:   client,
		batches:  db.Collection(batchCollection),
		statuses: db.Collection(statusCollection),
	}
}

// StoreBatch inserts the raw batch as one document
func (m *MongoDBArchive) StoreBatch(ctx context.Context, batch models.RawBatch) error {
	if _, err := m.batches.InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("failed to store batch %s: %w", batch.RunID, err)
	}
	log.Debug().Str("run_id", batch.RunID).Int("attempts", len(batch.Attempts)).Msg("raw batch archived in MongoDB")
	return nil
}

// UpdateIngestionStatus upserts the single status document
func (m *MongoDBArchive) UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error {
	_, err := m.statuses.ReplaceOne(ctx,
		bson.M{"_id": statusKey},
		status,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to store ingestion status: %w", err)
	}
	return nil
}

// GetIngestionStatus retrieves the current ingestion status
func (m *MongoDBArchive) GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error) {
	var status models.IngestionStatus
	err := m.statuses.FindOne(ctx, bson.M{"_id": statusKey}).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.IngestionStatus{Status: StatusNeverRun}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}
	return &status, nil
}

// Close disconnects the client
func (m *MongoDBArchive) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
