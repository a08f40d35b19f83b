// Package db opens the PostgreSQL database backing the mutation audit log
// and keeps it within its retention window.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS mutation_audit (
    id TEXT PRIMARY KEY,
    actor_client_record_id BIGINT NOT NULL,
    external_auth_id TEXT NOT NULL DEFAULT '',
    entity TEXT NOT NULL,
    record_id BIGINT NOT NULL,
    fields TEXT[] NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS mutation_audit_actor_idx
    ON mutation_audit (actor_client_record_id, created_at DESC);
`

// InitPostgres connects to dsn and creates the audit schema if needed.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
