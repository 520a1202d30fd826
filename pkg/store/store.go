// Package store implements the bitemporal knowledge-graph store (C3):
// ontology editions and entity editions over database/sql, with a
// Postgres driver for production and a sqlite driver for tests —
// mirroring the teacher's dual postgres/sqlite store split, folded
// into one dialect-parameterized Store rather than duplicated structs,
// since C3's operation surface is large enough that duplication would
// double the package for no benefit (see DESIGN.md).
package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect isolates the handful of places Postgres and sqlite SQL
// diverge; here that is only the positional-parameter syntax.
type Dialect interface {
	// Placeholder returns the driver's bound-parameter marker for the
	// i'th parameter (1-indexed).
	Placeholder(i int) string
	// Name identifies the dialect for logging.
	Name() string
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }
func (postgresDialect) Name() string             { return "postgres" }

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string { return "?" }
func (sqliteDialect) Name() string           { return "sqlite" }

// Store is the bitemporal store. It wraps a database/sql handle with
// the dialect needed to render parameter placeholders; every query
// method below builds its SQL through ph(n), never hardcoding "$1" or
// "?" directly, so the same Go source serves both drivers.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewPostgresStore wraps an existing *sql.DB opened against Postgres.
// Schema migrations are assumed to be applied externally (spec.md §1
// non-goal: "schema migration tooling").
func NewPostgresStore(db *sql.DB) *Store {
	return &Store{db: db, dialect: postgresDialect{}}
}

// NewSQLiteStore wraps a *sql.DB opened against modernc.org/sqlite and
// applies the in-process test schema. Intended for unit tests and
// local examples only.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*Store, error) {
	s := &Store{db: db, dialect: sqliteDialect{}}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("store: migrate sqlite schema: %w", err)
	}
	return s, nil
}

// ph renders the dialect's i'th placeholder.
func (s *Store) ph(i int) string { return s.dialect.Placeholder(i) }

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS ontology_ids (
		ontology_id TEXT PRIMARY KEY,
		base_url TEXT NOT NULL,
		version INTEGER NOT NULL,
		kind TEXT NOT NULL,
		UNIQUE(base_url, version)
	);
	CREATE TABLE IF NOT EXISTS ontology_editions (
		ontology_id TEXT NOT NULL,
		schema_json TEXT NOT NULL,
		web_id TEXT NOT NULL,
		transaction_time_start TEXT NOT NULL,
		transaction_time_end TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (ontology_id, transaction_time_start)
	);
	CREATE TABLE IF NOT EXISTS entities (
		entity_id TEXT PRIMARY KEY,
		entity_type_ids TEXT NOT NULL,
		left_entity_id TEXT,
		right_entity_id TEXT
	);
	CREATE TABLE IF NOT EXISTS entity_editions (
		entity_id TEXT NOT NULL,
		edition_id TEXT NOT NULL,
		properties_json TEXT NOT NULL,
		transaction_time_start TEXT NOT NULL,
		transaction_time_end TEXT,
		decision_time_start TEXT NOT NULL,
		decision_time_end TEXT,
		archived INTEGER NOT NULL DEFAULT 0,
		draft INTEGER NOT NULL DEFAULT 0,
		confidence REAL,
		provenance_json TEXT,
		PRIMARY KEY (edition_id)
	);
	CREATE INDEX IF NOT EXISTS idx_entity_editions_entity ON entity_editions(entity_id);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
