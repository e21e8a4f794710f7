package storage

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simulative/grade-ingestion-service/internal/config"
	"github.com/simulative/grade-ingestion-service/internal/models"
)

// Runs against a real server when GRADES_TEST_DB_HOST is set, e.g.
//
//	GRADES_TEST_DB_HOST=localhost GRADES_TEST_DB_PASSWORD=postgres go test ./internal/storage/
func integrationConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	host := os.Getenv("GRADES_TEST_DB_HOST")
	if host == "" {
		t.Skip("GRADES_TEST_DB_HOST not set")
	}
	port := 5432
	if p := os.Getenv("GRADES_TEST_DB_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		require.NoError(t, err)
	}
	user := os.Getenv("GRADES_TEST_DB_USER")
	if user == "" {
		user = "postgres"
	}
	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: os.Getenv("GRADES_TEST_DB_PASSWORD"),
		Name:     "grades_integration_test",
		AdminDB:  "postgres",
		SSLMode:  "disable",
	}
}

func TestIntegration_Lifecycle(t *testing.T) {
	cfg := integrationConfig(t)
	ctx := context.Background()

	conn := NewConn(cfg, cfg.Name)
	defer conn.Disconnect()
	schema := NewSchema(conn, cfg.Name, cfg.AdminDB)

	require.NoError(t, schema.CreateDatabase(ctx))
	require.NoError(t, schema.CreateDatabase(ctx))
	defer func() {
		assert.NoError(t, schema.DropDatabase(ctx))
	}()

	require.NoError(t, schema.CreateTable(ctx))
	require.NoError(t, schema.CreateTable(ctx))

	repo := NewRepository(conn)
	require.NoError(t, repo.ClearRecords(ctx))

	day := time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)
	at := day.Add(10 * time.Hour)
	records := []models.AttemptRecord{
		sampleRecord("u1", at),
		sampleRecord("u1", at.Add(time.Minute)),
		sampleRecord("u2", at.Add(2*time.Minute)),
	}
	records[2].AttemptType = models.Ptr("run")

	n, err := repo.InsertRecords(ctx, records)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	attempts, err := repo.Count(ctx, QueryAttempts, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), attempts)

	users, err := repo.Count(ctx, QueryUniqueUsers, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), users)

	summary, err := repo.Summary(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, int64(2), summary.Submits)

	require.NoError(t, repo.ClearRecords(ctx))
	attempts, err = repo.Count(ctx, QueryAttempts, day)
	require.NoError(t, err)
	assert.Zero(t, attempts)

	_, err = repo.InsertRecords(ctx, records[:1])
	require.NoError(t, err)
	rows, err := repo.Sample(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)

	require.NoError(t, schema.DropTable(ctx))
	require.NoError(t, schema.DropTable(ctx))
}
