// Package postgres provides the Postgres-backed job history store.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/ecowise/idftab/internal/apperr"
	"github.com/ecowise/idftab/internal/jobstore"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	version      TEXT NOT NULL DEFAULT '',
	objects      INTEGER NOT NULL DEFAULT 0,
	rows         INTEGER NOT NULL DEFAULT 0,
	edits        INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	warning      TEXT NOT NULL DEFAULT '',
	detail       TEXT NOT NULL DEFAULT '',
	artifact_key TEXT NOT NULL DEFAULT '',
	checksum     TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC);
`

// Store persists job records to Postgres through the pgx stdlib driver.
type Store struct {
	conn *sql.DB
}

// Open connects using the given DSN and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("jobstore: open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobstore: ping postgres: %w", err)
	}
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jobstore: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Put inserts or replaces a job record.
func (s *Store) Put(ctx context.Context, rec jobstore.Record) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO jobs (id, kind, name, version, objects, rows, edits, status, warning, detail, artifact_key, checksum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			kind         = excluded.kind,
			name         = excluded.name,
			version      = excluded.version,
			objects      = excluded.objects,
			rows         = excluded.rows,
			edits        = excluded.edits,
			status       = excluded.status,
			warning      = excluded.warning,
			detail       = excluded.detail,
			artifact_key = excluded.artifact_key,
			checksum     = excluded.checksum,
			created_at   = excluded.created_at
	`, rec.ID, rec.Kind, rec.Name, rec.Version, rec.Objects, rec.Rows, rec.Edits,
		rec.Status, rec.Warning, rec.Detail, rec.ArtifactKey, rec.Checksum, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("jobstore: put: %w", err)
	}
	return nil
}

// Get returns one record by id.
func (s *Store) Get(ctx context.Context, id string) (*jobstore.Record, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT id, kind, name, version, objects, rows, edits, status, warning, detail, artifact_key, checksum, created_at
		FROM jobs WHERE id = $1
	`, id)

	var rec jobstore.Record
	err := row.Scan(&rec.ID, &rec.Kind, &rec.Name, &rec.Version, &rec.Objects, &rec.Rows, &rec.Edits,
		&rec.Status, &rec.Warning, &rec.Detail, &rec.ArtifactKey, &rec.Checksum, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("jobstore: job %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("jobstore: get: %w", err)
	}
	return &rec, nil
}

// List returns records newest first plus the total count.
func (s *Store) List(ctx context.Context, limit, offset int) ([]jobstore.Record, int, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("jobstore: count: %w", err)
	}

	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, kind, name, version, objects, rows, edits, status, warning, detail, artifact_key, checksum, created_at
		FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("jobstore: list: %w", err)
	}
	defer rows.Close()

	var out []jobstore.Record
	for rows.Next() {
		var rec jobstore.Record
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Name, &rec.Version, &rec.Objects, &rec.Rows, &rec.Edits,
			&rec.Status, &rec.Warning, &rec.Detail, &rec.ArtifactKey, &rec.Checksum, &rec.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("jobstore: scan: %w", err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

var _ jobstore.Store = (*Store)(nil)
