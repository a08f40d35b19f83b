// Package repository provides the PostgreSQL persistence of the mutation
// audit log.
package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/lib/pq"
)

// PostgresAuditRepository stores audit entries in the mutation_audit table.
type PostgresAuditRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuditRepository creates a PostgresAuditRepository using the
// provided *sql.DB, which must be connected to a PostgreSQL instance whose
// schema was created by db.InitPostgres.
func NewPostgresAuditRepository(db *sql.DB) *PostgresAuditRepository {
	return &PostgresAuditRepository{DB: db}
}

// Record inserts one audit entry. Entries are immutable; inserting an ID
// twice is a no-op.
func (r *PostgresAuditRepository) Record(ctx context.Context, e models.AuditEntry) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO mutation_audit
			(id, actor_client_record_id, external_auth_id, entity, record_id, fields, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, e.ID, e.ActorClientRecordID, e.ExternalAuthID, e.Entity, e.RecordID, pq.Array(e.Fields), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// ListByClient returns the most recent entries made by a client, newest
// first.
//
//	ctx:            context for cancellation and deadlines
//	clientRecordID: the acting client's record ID
//	limit:          maximum number of entries returned
func (r *PostgresAuditRepository) ListByClient(ctx context.Context, clientRecordID int64, limit int) ([]models.AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, actor_client_record_id, external_auth_id, entity, record_id, fields, created_at
		  FROM mutation_audit
		 WHERE actor_client_record_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2
	`, clientRecordID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorClientRecordID, &e.ExternalAuthID, &e.Entity, &e.RecordID, pq.Array(&e.Fields), &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
