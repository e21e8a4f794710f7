package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const (
	databaseExistsSQL = `SELECT 1 FROM pg_catalog.pg_database WHERE datname = $1`

	createTableSQL = `
CREATE TABLE IF NOT EXISTS students_grade (
    id                      SERIAL PRIMARY KEY,
    user_id                 VARCHAR(100),
    oauth_consumer_key      VARCHAR(255),
    lis_result_sourcedid    VARCHAR(255),
    lis_outcome_service_url VARCHAR(255),
    is_correct              INTEGER,
    attempt_type            VARCHAR(25),
    created_at              TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

	dropTableSQL = `DROP TABLE IF EXISTS students_grade`

	// SQLSTATE duplicate_database
	codeDuplicateDatabase = "42P04"
)

// Schema creates and drops the service database and its table.
type Schema struct {
	conn    *Conn
	name    string
	adminDB string
}

// NewSchema returns a schema manager for database name. adminDB is the
// database used while creating or dropping name.
func NewSchema(conn *Conn, name, adminDB string) *Schema {
	return &Schema{conn: conn, name: name, adminDB: adminDB}
}

// CreateDatabase creates the database unless it already exists.
// CREATE DATABASE cannot run inside a transaction, so it is executed
// directly on the autocommit session.
func (s *Schema) CreateDatabase(ctx context.Context) error {
	db, err := s.connectTo(ctx, s.adminDB)
	if err != nil {
		return err
	}

	exists, err := s.databaseExists(ctx, db)
	if err != nil {
		log.Error().Err(err).Str("database", s.name).Msg("database lookup failed")
		return err
	}
	if exists {
		log.Info().Str("database", s.name).Msg("database already exists")
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(s.name)); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == codeDuplicateDatabase {
			log.Info().Str("database", s.name).Msg("database already exists")
			return nil
		}
		log.Error().Err(err).Str("database", s.name).Msg("database creation failed")
		return fmt.Errorf("creating database %s: %w", s.name, err)
	}

	log.Info().Str("database", s.name).Msg("database created")
	return nil
}

// DropDatabase drops the database if it exists. The connection is moved to
// the admin database first since a database cannot drop itself.
func (s *Schema) DropDatabase(ctx context.Context) error {
	db, err := s.connectTo(ctx, s.adminDB)
	if err != nil {
		return err
	}

	exists, err := s.databaseExists(ctx, db)
	if err != nil {
		log.Error().Err(err).Str("database", s.name).Msg("database lookup failed")
		return err
	}
	if !exists {
		log.Info().Str("database", s.name).Msg("database does not exist")
		return nil
	}

	if _, err := db.ExecContext(ctx, "DROP DATABASE "+pq.QuoteIdentifier(s.name)); err != nil {
		log.Error().Err(err).Str("database", s.name).Msg("database drop failed")
		return fmt.Errorf("dropping database %s: %w", s.name, err)
	}

	log.Info().Str("database", s.name).Msg("database dropped")
	return nil
}

// CreateTable creates students_grade if it does not exist.
func (s *Schema) CreateTable(ctx context.Context) error {
	if err := s.execInTx(ctx, createTableSQL); err != nil {
		log.Error().Err(err).Str("table", TableName).Msg("table creation failed")
		return fmt.Errorf("creating table %s: %w", TableName, err)
	}
	log.Info().Str("table", TableName).Msg("table created")
	return nil
}

// DropTable drops students_grade if it exists.
func (s *Schema) DropTable(ctx context.Context) error {
	if err := s.execInTx(ctx, dropTableSQL); err != nil {
		log.Error().Err(err).Str("table", TableName).Msg("table drop failed")
		return fmt.Errorf("dropping table %s: %w", TableName, err)
	}
	log.Info().Str("table", TableName).Msg("table dropped")
	return nil
}

func (s *Schema) connectTo(ctx context.Context, database string) (*sql.DB, error) {
	if err := s.conn.UseDatabase(database); err != nil {
		return nil, fmt.Errorf("closing previous connection: %w", err)
	}
	return s.conn.Connect(ctx)
}

func (s *Schema) databaseExists(ctx context.Context, db *sql.DB) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, databaseExistsSQL, s.name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking database %s: %w", s.name, err)
	}
	return true, nil
}

func (s *Schema) execInTx(ctx context.Context, stmt string) error {
	db, err := s.connectTo(ctx, s.name)
	if err != nil {
		return err
	}
	return inTx(ctx, db, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, stmt)
		return err
	})
}

// inTx runs fn in a transaction, committing on success and rolling back
// on any error.
func inTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
