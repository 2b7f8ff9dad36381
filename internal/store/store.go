// Package store provides durable persistence on Postgres: the contact set
// keyed by unique identifier, the append-only export log, the import
// history, and a small settings slot for the identifier counter and other
// per-installation values. Every exported operation is atomic per call; the
// import controller serializes batches, so there is never a second writer.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Store wraps a connection pool with the application's persistence
// operations. Single-statement operations go through db; batch upserts
// take a transaction from the pool directly.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

// New creates a Store on an existing pool. The caller owns the pool's
// lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// schema is applied on startup. Idempotent; no migration framework is
// warranted for four tables owned by a single writer.
const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	unique_id         TEXT PRIMARY KEY,
	name              TEXT NOT NULL DEFAULT '',
	address           TEXT NOT NULL DEFAULT '',
	postal_code       TEXT NOT NULL DEFAULT '',
	city              TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	mobile            TEXT NOT NULL DEFAULT '',
	phone2            TEXT NOT NULL DEFAULT '',
	email             TEXT NOT NULL DEFAULT '',
	website           TEXT NOT NULL DEFAULT '',
	category          TEXT NOT NULL DEFAULT '',
	siret             TEXT NOT NULL DEFAULT '',
	siren             TEXT NOT NULL DEFAULT '',
	naf               TEXT NOT NULL DEFAULT '',
	description       TEXT NOT NULL DEFAULT '',
	api_enriched      BOOLEAN NOT NULL DEFAULT FALSE,
	api_status        TEXT NOT NULL DEFAULT '',
	api_effectif_code TEXT NOT NULL DEFAULT '',
	api_effectif_label TEXT NOT NULL DEFAULT '',
	api_naf           TEXT NOT NULL DEFAULT '',
	api_date_creation TEXT NOT NULL DEFAULT '',
	api_dirigeants    TEXT NOT NULL DEFAULT '',
	lat               DOUBLE PRECISION,
	lon               DOUBLE PRECISION,
	geo_status        TEXT NOT NULL DEFAULT '',
	distance_meters   DOUBLE PRECISION,
	duration_seconds  DOUBLE PRECISION,
	route_status      TEXT NOT NULL DEFAULT '',
	source_file       TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	last_exported_at  TIMESTAMPTZ,
	export_count      INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_contacts_phone ON contacts (phone);
CREATE INDEX IF NOT EXISTS idx_contacts_siret ON contacts (siret);
CREATE INDEX IF NOT EXISTS idx_contacts_postal_code ON contacts (postal_code);

CREATE TABLE IF NOT EXISTS exports (
	id           BIGSERIAL PRIMARY KEY,
	exported_at  TIMESTAMPTZ NOT NULL,
	record_count INTEGER NOT NULL,
	contact_ids  TEXT[] NOT NULL
);

CREATE TABLE IF NOT EXISTS import_history (
	id          BIGSERIAL PRIMARY KEY,
	file_name   TEXT NOT NULL,
	mode        TEXT NOT NULL,
	total_rows  INTEGER NOT NULL,
	unique_rows INTEGER NOT NULL,
	duplicates  INTEGER NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Migrate creates the schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
