package service_test

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
)

type mockStore struct {
	QueryFunc  func(ctx context.Context, q recordstore.QueryRequest) ([]recordstore.Row, error)
	UpsertFunc func(ctx context.Context, u recordstore.UpsertRequest) (*recordstore.UpsertResult, error)

	queries []recordstore.QueryRequest
	upserts []recordstore.UpsertRequest
}

func (m *mockStore) Query(ctx context.Context, q recordstore.QueryRequest) ([]recordstore.Row, error) {
	m.queries = append(m.queries, q)
	return m.QueryFunc(ctx, q)
}

func (m *mockStore) Upsert(ctx context.Context, u recordstore.UpsertRequest) (*recordstore.UpsertResult, error) {
	m.upserts = append(m.upserts, u)
	if m.UpsertFunc == nil {
		return &recordstore.UpsertResult{}, nil
	}
	return m.UpsertFunc(ctx, u)
}

type mockAudit struct {
	mu      sync.Mutex
	entries []models.AuditEntry
	err     error
}

func (m *mockAudit) Record(ctx context.Context, e models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func num(n int64) json.Number {
	return json.Number(strconv.FormatInt(n, 10))
}

func rows(rs ...recordstore.Row) func(context.Context, recordstore.QueryRequest) ([]recordstore.Row, error) {
	return func(context.Context, recordstore.QueryRequest) ([]recordstore.Row, error) {
		return rs, nil
	}
}

func clientRow(id int64, authID string) recordstore.Row {
	return recordstore.Row{
		"3":  {Value: num(id)},
		"6":  {Value: authID},
		"7":  {Value: "Harbor Marine LLC"},
		"8":  {Value: "ops@harbor.example"},
		"9":  {Value: "555-0000"},
		"10": {Value: "1 Dock Rd"},
	}
}
