package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/VesselPortal/internal/fieldmap"
	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
)

// ClientService reads and updates Client records.
type ClientService struct {
	deps
	table fieldmap.Table
}

// NewClientService constructs a ClientService over the Clients table of schema.
func NewClientService(store RecordStore, schema *fieldmap.Schema, opts ...Option) *ClientService {
	return &ClientService{deps: newDeps(store, opts), table: schema.Clients}
}

// GetClientByIdentity returns the Client owned by externalAuthID.
// It fails with ErrNotFound when no row matches and with ErrDataIntegrity
// when more than one does.
func (s *ClientService) GetClientByIdentity(ctx context.Context, externalAuthID string) (*models.Client, error) {
	if externalAuthID == "" {
		return nil, fmt.Errorf("empty identity: %w", ErrValidation)
	}

	rows, err := s.store.Query(ctx, recordstore.QueryRequest{
		From:   s.table.ID,
		Where:  recordstore.Equals(s.table.MustFieldID(fieldmap.ExternalAuthID), externalAuthID),
		Select: s.table.Select(),
	})
	if err != nil {
		return nil, fmt.Errorf("get client by identity: %w", err)
	}

	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("client: %w", ErrNotFound)
	case 1:
	default:
		return nil, fmt.Errorf("%d clients share one identity: %w", len(rows), ErrDataIntegrity)
	}

	client, err := s.clientFromRow(rows[0])
	if err != nil {
		return nil, err
	}
	if client.ExternalAuthID != externalAuthID {
		return nil, fmt.Errorf("client %d returned for another identity: %w", client.RecordID, ErrDataIntegrity)
	}
	return client, nil
}

// UpdateClientContact writes the contact fields present in updates to the
// client record. Only email, phone and address are eligible; other keys are
// dropped, as are empty strings. The caller must have resolved
// clientRecordID from its own identity; see UpdateContactForIdentity.
func (s *ClientService) UpdateClientContact(ctx context.Context, clientRecordID int64, updates map[string]any) (*recordstore.UpsertResult, error) {
	if clientRecordID <= 0 {
		return nil, fmt.Errorf("client record id %d: %w", clientRecordID, ErrValidation)
	}
	return s.upsertContact(ctx, clientRecordID, "", contactValues(updates))
}

// UpdateContactForIdentity resolves the caller's client record from
// externalAuthID and updates its contact fields, so the mutation can only
// ever reach the caller's own record.
func (s *ClientService) UpdateContactForIdentity(ctx context.Context, externalAuthID string, updates map[string]any) (*recordstore.UpsertResult, error) {
	client, err := s.GetClientByIdentity(ctx, externalAuthID)
	if err != nil {
		return nil, err
	}
	return s.upsertContact(ctx, client.RecordID, externalAuthID, contactValues(updates))
}

type contactValue struct {
	name  string
	value string
}

// contactValues picks the whitelisted fields out of updates in a stable
// order. Unknown keys, empty strings and non-string values are dropped.
func contactValues(updates map[string]any) []contactValue {
	var out []contactValue
	for _, name := range fieldmap.ClientContactFields {
		v, ok := updates[name].(string)
		if !ok || v == "" {
			continue
		}
		out = append(out, contactValue{name: name, value: v})
	}
	return out
}

func (s *ClientService) upsertContact(ctx context.Context, clientRecordID int64, externalAuthID string, values []contactValue) (*recordstore.UpsertResult, error) {
	row := recordstore.Row{
		s.table.Key(fieldmap.RecordID): {Value: clientRecordID},
	}
	fields := make([]string, 0, len(values))
	for _, cv := range values {
		row[s.table.Key(cv.name)] = recordstore.FieldValue{Value: cv.value}
		fields = append(fields, cv.name)
	}

	res, err := s.store.Upsert(ctx, recordstore.UpsertRequest{
		To:   s.table.ID,
		Data: []recordstore.Row{row},
	})
	if err != nil {
		return nil, fmt.Errorf("update client contact: %w", err)
	}

	if len(fields) == 0 {
		return res, nil
	}
	s.record(ctx, models.AuditEntry{
		ActorClientRecordID: clientRecordID,
		ExternalAuthID:      externalAuthID,
		Entity:              models.EntityClient,
		RecordID:            clientRecordID,
		Fields:              fields,
	})
	return res, nil
}

func (s *ClientService) clientFromRow(row recordstore.Row) (*models.Client, error) {
	id, err := row.Int64(s.table.Key(fieldmap.RecordID))
	if err != nil {
		return nil, fmt.Errorf("client row: %w", err)
	}
	return &models.Client{
		RecordID:       id,
		ExternalAuthID: row.String(s.table.Key(fieldmap.ExternalAuthID)),
		CompanyName:    row.String(s.table.Key(fieldmap.CompanyName)),
		Email:          row.String(s.table.Key(fieldmap.Email)),
		Phone:          row.String(s.table.Key(fieldmap.Phone)),
		Address:        row.String(s.table.Key(fieldmap.Address)),
	}, nil
}
