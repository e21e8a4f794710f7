package archive

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

// chunkSize bounds the attempts per item to stay under the 400KB item limit.
const chunkSize = 200

const statusKey = "ingestion_status"

// DynamoDBArchive implements Archive using AWS DynamoDB
type DynamoDBArchive struct {
	client      *dynamodb.DynamoDB
	tableName   string
	statusTable string
}

// batchChunk is one stored slice of a raw batch.
type batchChunk struct {
	RunID     string              `dynamodbav:"run_id"`
	Seq       int                 `dynamodbav:"seq"`
	Start     string              `dynamodbav:"start"`
	End       string              `dynamodbav:"end"`
	FetchedAt string              `dynamodbav:"fetched_at"`
	Attempts  []models.RawAttempt `dynamodbav:"attempts"`
}

// NewDynamoDBArchive creates a new DynamoDB archive instance
func NewDynamoDBArchive(cfg config.ArchiveConfig) (*DynamoDBArchive, error) {
	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	a := &DynamoDBArchive{
		client:      dynamodb.New(sess),
		tableName:   cfg.TableName,
		statusTable: cfg.TableName + "_status",
	}

	batchKeys := []*dynamodb.KeySchemaElement{
		{AttributeName: aws.String("run_id"), KeyType: aws.String("HASH")},
		{AttributeName: aws.String("seq"), KeyType: aws.String("RANGE")},
	}
	batchAttrs := []*dynamodb.AttributeDefinition{
		{AttributeName: aws.String("run_id"), AttributeType: aws.String("S")},
		{AttributeName: aws.String("seq"), AttributeType: aws.String("N")},
	}
	if err := a.ensureTable(a.tableName, batchKeys, batchAttrs); err != nil {
		return nil, fmt.Errorf("failed to ensure table exists: %w", err)
	}

	statusKeys := []*dynamodb.KeySchemaElement{
		{AttributeName: aws.String("id"), KeyType: aws.String("HASH")},
	}
	statusAttrs := []*dynamodb.AttributeDefinition{
		{AttributeName: aws.String("id"), AttributeType: aws.String("S")},
	}
	if err := a.ensureTable(a.statusTable, statusKeys, statusAttrs); err != nil {
		return nil, fmt.Errorf("failed to ensure status table exists: %w", err)
	}

	return a, nil
}

// ensureTable creates the DynamoDB table if it doesn't exist
func (d *DynamoDBArchive) ensureTable(name string, keys []*dynamodb.KeySchemaElement, attrs []*dynamodb.AttributeDefinition) error {
	_, err := d.client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err == nil {
		return nil // Table already exists
	}

	_, err = d.client.CreateTable(&dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		KeySchema:            keys,
		AttributeDefinitions: attrs,
		BillingMode:          aws.String("PAY_PER_REQUEST"),
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", name, err)
	}

	return d.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
}

// StoreBatch stores a raw batch as one item per chunk of attempts
func (d *DynamoDBArchive) StoreBatch(ctx context.Context, batch models.RawBatch) error {
	fetchedAt := batch.FetchedAt.UTC().Format("2006-01-02T15:04:05.000000Z")

	seq := 0
	for start := 0; start < len(batch.Attempts) || seq == 0; start += chunkSize {
		end := min(start+chunkSize, len(batch.Attempts))
		item, err := dynamodbattribute.MarshalMap(batchChunk{
			RunID:     batch.RunID,
			Seq:       seq,
			Start:     batch.Start,
			End:       batch.End,
			FetchedAt: fetchedAt,
			Attempts:  batch.Attempts[start:end],
		})
		if err != nil {
			return fmt.Errorf("failed to marshal batch %s chunk %d: %w", batch.RunID, seq, err)
		}

		_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(d.tableName),
			Item:      item,
		})
		if err != nil {
			return fmt.Errorf("failed to store batch %s chunk %d: %w", batch.RunID, seq, err)
		}
		seq++
	}

	log.Debug().Str("run_id", batch.RunID).Int("chunks", seq).Msg("raw batch archived in DynamoDB")
	return nil
}

// UpdateIngestionStatus updates the ingestion status
func (d *DynamoDBArchive) UpdateIngestionStatus(ctx context.Context, status models.IngestionStatus) error {
	item, err := dynamodbattribute.MarshalMap(status)
	if err != nil {
		return fmt.Errorf("failed to marshal ingestion status: %w", err)
	}

	// Add a fixed key for the status record
	item["id"] = &dynamodb.AttributeValue{S: aws.String(statusKey)}

	_, err = d.client.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.statusTable),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to store ingestion status: %w", err)
	}
	return nil
}

// GetIngestionStatus retrieves the current ingestion status
func (d *DynamoDBArchive) GetIngestionStatus(ctx context.Context) (*models.IngestionStatus, error) {
	result, err := d.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.statusTable),
		Key: map[string]*dynamodb.AttributeValue{
			"id": {S: aws.String(statusKey)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get ingestion status: %w", err)
	}

	if result.Item == nil {
		return &models.IngestionStatus{Status: StatusNeverRun}, nil
	}

	var status models.IngestionStatus
	if err := dynamodbattribute.UnmarshalMap(result.Item, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ingestion status: %w", err)
	}

	return &status, nil
}

// Close closes the DynamoDB connection
func (d *DynamoDBArchive) Close() error {
	// DynamoDB client doesn't need explicit closing
	return nil
}
