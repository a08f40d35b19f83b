package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/VesselPortal/internal/fieldmap"
	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
)

// VesselService reads vessels and toggles their status on behalf of the
// owning client.
type VesselService struct {
	deps
	table fieldmap.Table
}

// NewVesselService constructs a VesselService over the Vessels table of schema.
func NewVesselService(store RecordStore, schema *fieldmap.Schema, opts ...Option) *VesselService {
	return &VesselService{deps: newDeps(store, opts), table: schema.Vessels}
}

// GetVesselsByClient lists the vessels whose owner reference is clientRecordID.
func (s *VesselService) GetVesselsByClient(ctx context.Context, clientRecordID int64) ([]models.Vessel, error) {
	rows, err := s.store.Query(ctx, recordstore.QueryRequest{
		From:   s.table.ID,
		Where:  recordstore.EqualsInt(s.table.MustFieldID(fieldmap.OwnerClientRecordID), clientRecordID),
		Select: s.table.Select(),
	})
	if err != nil {
		return nil, fmt.Errorf("get vessels by client: %w", err)
	}

	vessels := make([]models.Vessel, 0, len(rows))
	for _, row := range rows {
		v, err := s.vesselFromRow(row, true)
		if err != nil {
			return nil, err
		}
		if v.OwnerClientRecordID != clientRecordID {
			return nil, fmt.Errorf("vessel %d returned for client %d: %w", v.RecordID, clientRecordID, ErrDataIntegrity)
		}
		vessels = append(vessels, *v)
	}
	return vessels, nil
}

// GetVesselByID returns the record ID and owner reference of a vessel.
// It exists to verify ownership before a mutation.
func (s *VesselService) GetVesselByID(ctx context.Context, vesselRecordID int64) (*models.Vessel, error) {
	row, err := s.queryOne(ctx, vesselRecordID, s.table.Select(fieldmap.RecordID, fieldmap.OwnerClientRecordID))
	if err != nil {
		return nil, err
	}
	return s.vesselFromRow(row, false)
}

// GetVesselForClient returns the full vessel record if it belongs to
// clientRecordID and ErrUnauthorized otherwise.
func (s *VesselService) GetVesselForClient(ctx context.Context, vesselRecordID, clientRecordID int64) (*models.Vessel, error) {
	row, err := s.queryOne(ctx, vesselRecordID, s.table.Select())
	if err != nil {
		return nil, err
	}
	v, err := s.vesselFromRow(row, true)
	if err != nil {
		return nil, err
	}
	if v.OwnerClientRecordID != clientRecordID {
		return nil, fmt.Errorf("vessel %d: %w", vesselRecordID, ErrUnauthorized)
	}
	return v, nil
}

// UpdateVesselStatus sets the active flag of a vessel owned by
// requestingClientRecordID. The ownership check and the write are two
// separate store calls; the owner reference is never written here, so the
// check cannot be invalidated by this API.
func (s *VesselService) UpdateVesselStatus(ctx context.Context, vesselRecordID, requestingClientRecordID int64, isActive bool) (*recordstore.UpsertResult, error) {
	vessel, err := s.GetVesselByID(ctx, vesselRecordID)
	if err != nil {
		return nil, err
	}
	if vessel.OwnerClientRecordID != requestingClientRecordID {
		return nil, fmt.Errorf("vessel %d: %w", vesselRecordID, ErrUnauthorized)
	}

	res, err := s.store.Upsert(ctx, recordstore.UpsertRequest{
		To: s.table.ID,
		Data: []recordstore.Row{{
			s.table.Key(fieldmap.RecordID): {Value: vesselRecordID},
			s.table.Key(fieldmap.IsActive): {Value: isActive},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("update vessel status: %w", err)
	}

	s.record(ctx, models.AuditEntry{
		ActorClientRecordID: requestingClientRecordID,
		Entity:              models.EntityVessel,
		RecordID:            vesselRecordID,
		Fields:              []string{fieldmap.IsActive},
	})
	return res, nil
}

func (s *VesselService) queryOne(ctx context.Context, vesselRecordID int64, fields []int) (recordstore.Row, error) {
	if vesselRecordID <= 0 {
		return nil, fmt.Errorf("vessel record id %d: %w", vesselRecordID, ErrValidation)
	}
	rows, err := s.store.Query(ctx, recordstore.QueryRequest{
		From:   s.table.ID,
		Where:  recordstore.EqualsInt(s.table.MustFieldID(fieldmap.RecordID), vesselRecordID),
		Select: fields,
	})
	if err != nil {
		return nil, fmt.Errorf("get vessel: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, fmt.Errorf("vessel %d: %w", vesselRecordID, ErrNotFound)
	case 1:
		return rows[0], nil
	default:
		return nil, fmt.Errorf("%d vessels share record id %d: %w", len(rows), vesselRecordID, ErrDataIntegrity)
	}
}

func (s *VesselService) vesselFromRow(row recordstore.Row, full bool) (*models.Vessel, error) {
	id, err := row.Int64(s.table.Key(fieldmap.RecordID))
	if err != nil {
		return nil, fmt.Errorf("vessel row: %w", err)
	}
	owner, err := row.Int64(s.table.Key(fieldmap.OwnerClientRecordID))
	if err != nil {
		return nil, fmt.Errorf("vessel %d owner: %w", id, err)
	}
	v := &models.Vessel{RecordID: id, OwnerClientRecordID: owner}
	if !full {
		return v, nil
	}

	if v.LengthFeet, err = row.Float64(s.table.Key(fieldmap.LengthFeet)); err != nil {
		return nil, fmt.Errorf("vessel %d: %w", id, err)
	}
	if v.IsActive, err = row.Bool(s.table.Key(fieldmap.IsActive)); err != nil {
		return nil, fmt.Errorf("vessel %d: %w", id, err)
	}
	v.Name = row.String(s.table.Key(fieldmap.VesselName))
	v.RegistrationNumber = row.String(s.table.Key(fieldmap.RegistrationNumber))
	v.Type = row.String(s.table.Key(fieldmap.VesselType))
	v.HomePort = row.String(s.table.Key(fieldmap.HomePort))
	return v, nil
}
