package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq" // registers the "postgres" driver
	"github.com/rs/zerolog/log"

	"github.com/simulative/grade-ingestion-service/internal/config"
)

const driverName = "postgres"

// sqlOpen is swapped in tests.
var sqlOpen = sql.Open

// Conn owns the single database handle of a command run. It is created
// explicitly and passed to the schema manager and repository.
type Conn struct {
	cfg      config.DatabaseConfig
	database string
	db       *sql.DB
}

// NewConn creates a connection manager targeting database. An empty
// database lets the server pick its default (the user's name).
func NewConn(cfg config.DatabaseConfig, database string) *Conn {
	return &Conn{cfg: cfg, database: database}
}

// DSN returns the lib/pq connection URL for the current target database.
func (c *Conn) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port)),
		Path:   "/" + c.database,
	}
	if c.cfg.Password != "" {
		u.User = url.UserPassword(c.cfg.User, c.cfg.Password)
	} else if c.cfg.User != "" {
		u.User = url.User(c.cfg.User)
	}
	if c.cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Database returns the database the next Connect will reach.
func (c *Conn) Database() string {
	return c.database
}

// Connect opens the connection if it is not already open and verifies it
// with a ping. It is a no-op when a connection exists.
func (c *Conn) Connect(ctx context.Context) (*sql.DB, error) {
	if c.db != nil {
		return c.db, nil
	}

	db, err := sqlOpen(driverName, c.DSN())
	if err != nil {
		log.Error().Err(err).Str("database", c.database).Msg("connection failed")
		return nil, fmt.Errorf("%w: open: %w", ErrConnection, err)
	}
	// One command run uses one session; DDL such as CREATE DATABASE relies
	// on running outside of a transaction on that session.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Error().Err(err).Str("database", c.database).Msg("connection failed")
		return nil, fmt.Errorf("%w: ping %s:%d: %w", ErrConnection, c.cfg.Host, c.cfg.Port, err)
	}

	c.db = db
	log.Info().Str("database", c.database).Msg("connection established")
	return db, nil
}

// Disconnect closes the connection. It is safe to call when not connected.
func (c *Conn) Disconnect() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	log.Info().Str("database", c.database).Msg("connection closed")
	return err
}

// DB returns the current handle, or nil when not connected.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// UseDatabase retargets the connection. An open connection to another
// database is closed; the next Connect reaches the new target.
func (c *Conn) UseDatabase(name string) error {
	if name == c.database {
		return nil
	}
	err := c.Disconnect()
	c.database = name
	return err
}
