package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/models"
)

// DateLayout is the calendar date format the aggregate queries filter on.
const DateLayout = "2006-01-02"

// SampleLimit caps the rows returned by QuerySample.
const SampleLimit = 10

// Query names one of the canned aggregate reads.
type Query int

const (
	QuerySample      Query = iota // up to SampleLimit raw rows, no date filter
	QueryUniqueUsers              // distinct users on a date
	QueryAttempts                 // attempts on a date
	QuerySubmits                  // submit attempts on a date
)

var queryNames = map[Query]string{
	QuerySample:      "sample",
	QueryUniqueUsers: "unique_users",
	QueryAttempts:    "attempts",
	QuerySubmits:     "submits",
}

func (q Query) String() string {
	if name, ok := queryNames[q]; ok {
		return name
	}
	return fmt.Sprintf("query(%d)", int(q))
}

// ParseQuery maps a query name back to its Query.
func ParseQuery(name string) (Query, error) {
	for q, n := range queryNames {
		if n == name {
			return q, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown query %q", ErrInvalidQuery, name)
}

var querySQL = map[Query]string{
	QuerySample: `SELECT id, user_id, oauth_consumer_key, lis_result_sourcedid,
       lis_outcome_service_url, is_correct, attempt_type, created_at
FROM students_grade
ORDER BY id
LIMIT 10`,
	QueryUniqueUsers: `SELECT count(DISTINCT user_id) FROM students_grade WHERE DATE(created_at) = $1`,
	QueryAttempts:    `SELECT count(*) FROM students_grade WHERE DATE(created_at) = $1`,
	QuerySubmits:     `SELECT count(*) FROM students_grade WHERE DATE(created_at) = $1 AND attempt_type = 'submit'`,
}

const (
	insertSQL = `INSERT INTO students_grade (user_id, oauth_consumer_key, lis_result_sourcedid,
    lis_outcome_service_url, is_correct, attempt_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	clearSQL = `TRUNCATE TABLE students_grade RESTART IDENTITY`
)

// Result is the outcome of Fetch: Rows for QuerySample, Count otherwise.
type Result struct {
	Query Query
	Count int64
	Rows  []models.AttemptRecord
}

// Repository reads and writes students_grade.
type Repository struct {
	conn *Conn
}

// NewRepository creates a repository on conn. The connection must target
// the service database.
func NewRepository(conn *Conn) *Repository {
	return &Repository{conn: conn}
}

// InsertRecords inserts all records in one transaction. Either every record
// is stored or none is.
func (r *Repository) InsertRecords(ctx context.Context, records []models.AttemptRecord) (int, error) {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return 0, err
	}

	err = inTx(ctx, db, nil, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSQL)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, rec := range records {
			if _, err := stmt.ExecContext(ctx,
				rec.UserID,
				rec.OAuthConsumerKey,
				rec.LISResultSourcedID,
				rec.LISOutcomeServiceURL,
				rec.IsCorrect,
				rec.AttemptType,
				rec.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert record %d (user %s): %w", i, rec.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("writing records failed, transaction rolled back")
		return 0, err
	}

	log.Info().Int("count", len(records)).Msg("records inserted")
	return len(records), nil
}

// ClearRecords empties the table and restarts the id sequence.
func (r *Repository) ClearRecords(ctx context.Context) error {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return err
	}

	err = inTx(ctx, db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, clearSQL)
		return err
	})
	if err != nil {
		log.Error().Err(err).Msg("clearing records failed")
		return fmt.Errorf("clearing %s: %w", TableName, err)
	}

	log.Info().Str("table", TableName).Msg("table cleared, identity reset")
	return nil
}

// Fetch runs q. A zero date forces QuerySample, which returns rows; every
// other query returns a single count for the date.
func (r *Repository) Fetch(ctx context.Context, q Query, date time.Time) (Result, error) {
	if date.IsZero() {
		if q != QuerySample {
			log.Info().Stringer("query", q).Msg("no date given, running sample query")
		}
		rows, err := r.Sample(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Query: QuerySample, Rows: rows}, nil
	}

	count, err := r.Count(ctx, q, date)
	if err != nil {
		return Result{}, err
	}
	return Result{Query: q, Count: count}, nil
}

// Sample returns up to SampleLimit rows ordered by id.
func (r *Repository) Sample(ctx context.Context) ([]models.AttemptRecord, error) {
	db, err := r.conn.Connect(ctx)
	if err != nil {
		return nil, err
	}

	var records []models.AttemptRecord
	err = inTx(ctx, db, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, querySQL[QuerySample])
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rec    models.AttemptRecord
				userID sql.NullString
			)
			if err := rows.Scan(
				&rec.ID,
				&userID,
				&rec.OAuthConsumerKey,
				&rec.LISResultSourcedID,
				&rec.LISOutcomeServiceURL,
				&rec.IsCorrect,
				&rec.AttemptType,
				&rec.CreatedAt,
			); err != nil {
				return err
			}
			rec.UserID = userID.String
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		log.Error().Err(err).Stringer("query", QuerySample).Msg("reading records failed")
		return nil, fmt.Errorf("running %s: %w", QuerySample, err)
	}

	log.Info().Int("count", len(records)).Msg("records read")
	return records, nil
}

// Count runs one of the dated count queries.
func (r *Repository) Count(ctx context.Context, q Query, date time.Time) (int64, error) {
	if q == QuerySample || querySQL[q] == "" {
		return 0, fmt.Errorf("%w: %s is not a count query", ErrInvalidQuery, q)
	}
	if date.IsZero() {
		return 0, fmt.Errorf("%w: %s needs a date", ErrInvalidQuery, q)
	}

	db, err := r.conn.Connect(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	err = inTx(ctx, db, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		var err error
		count, err = countIn(ctx, tx, q, date)
		return err
	})
	if err != nil {
		log.Error().Err(err).Stringer("query", q).Msg("reading aggregate failed")
		return 0, err
	}
	return count, nil
}

// Summary runs the three count queries for date in one read-only
// transaction and returns them in report order.
func (r *Repository) Summary(ctx context.Context, date time.Time) (models.Summary, error) {
	if date.IsZero() {
		return models.Summary{}, fmt.Errorf("%w: summary needs a date", ErrInvalidQuery)
	}

	db, err := r.conn.Connect(ctx)
	if err != nil {
		return models.Summary{}, err
	}

	summary := models.Summary{Date: date}
	targets := []struct {
		q   Query
		dst *int64
	}{
		{QueryUniqueUsers, &summary.UniqueUsers},
		{QueryAttempts, &summary.Attempts},
		{QuerySubmits, &summary.Submits},
	}

	err = inTx(ctx, db, &sql.TxOptions{ReadOnly: true}, func(tx *sql.Tx) error {
		for _, t := range targets {
			n, err := countIn(ctx, tx, t.q, date)
			if err != nil {
				return err
			}
			*t.dst = n
		}
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("date", date.Format(DateLayout)).Msg("building summary failed")
		return models.Summary{}, err
	}
	return summary, nil
}

func countIn(ctx context.Context, tx *sql.Tx, q Query, date time.Time) (int64, error) {
	day := date.Format(DateLayout)
	log.Debug().Stringer("query", q).Str("date", day).Msg("running aggregate query")

	var count int64
	if err := tx.QueryRowContext(ctx, querySQL[q], day).Scan(&count); err != nil {
		return 0, fmt.Errorf("running %s for %s: %w", q, day, err)
	}
	return count, nil
}
