// Package service provides the record access layer: it turns domain
// operations into record store calls using the field mapping table and
// enforces which records and fields a caller may touch.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Domain errors. Handlers map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound means no record matches the identity or record ID.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the record belongs to another client.
	ErrUnauthorized = errors.New("record does not belong to this client")
	// ErrValidation means the caller's input was rejected.
	ErrValidation = errors.New("invalid input")
	// ErrDataIntegrity means the store returned rows that break an
	// invariant, such as two clients sharing one identity.
	ErrDataIntegrity = errors.New("data integrity violation")
)

// RecordStore defines the remote operations needed by the services.
type RecordStore interface {
	// Query returns the rows of q.From matching q.Where.
	Query(ctx context.Context, q recordstore.QueryRequest) ([]recordstore.Row, error)
	// Upsert writes rows and returns the store's acknowledgment.
	Upsert(ctx context.Context, u recordstore.UpsertRequest) (*recordstore.UpsertResult, error)
}

// AuditRecorder persists accepted mutations.
type AuditRecorder interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// Option configures a service.
type Option func(*deps)

// WithAudit records every successful mutation with rec.
func WithAudit(rec AuditRecorder) Option {
	return func(d *deps) { d.audit = rec }
}

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(log *zap.Logger) Option {
	return func(d *deps) { d.log = log }
}

type deps struct {
	store RecordStore
	audit AuditRecorder
	log   *zap.Logger
	now   func() time.Time
}

func newDeps(store RecordStore, opts []Option) deps {
	d := deps{store: store, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(&d)
	}
	return d
}

// record stores an audit entry. A failure is logged and never undoes or
// fails the mutation that already reached the store.
func (d *deps) record(ctx context.Context, entry models.AuditEntry) {
	if d.audit == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = d.now().UTC()
	if err := d.audit.Record(ctx, entry); err != nil {
		d.log.Warn("failed to record audit entry",
			zap.String("entity", entry.Entity),
			zap.Int64("record_id", entry.RecordID),
			zap.Error(err),
		)
	}
}
