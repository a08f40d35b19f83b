package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/atinyakov/VesselPortal/internal/fieldmap"
	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"github.com/atinyakov/VesselPortal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetClientByIdentity_Found(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "user_abc"))}
	svc := service.NewClientService(store, fieldmap.Default())

	got, err := svc.GetClientByIdentity(context.Background(), "user_abc")
	require.NoError(t, err)

	assert.Equal(t, &models.Client{
		RecordID:       42,
		ExternalAuthID: "user_abc",
		CompanyName:    "Harbor Marine LLC",
		Email:          "ops@harbor.example",
		Phone:          "555-0000",
		Address:        "1 Dock Rd",
	}, got)

	require.Len(t, store.queries, 1)
	q := store.queries[0]
	assert.Equal(t, fieldmap.DefaultClientsTableID, q.From)
	assert.Equal(t, "{6.EX.'user_abc'}", q.Where)
	assert.Equal(t, []int{3, 6, 7, 8, 9, 10}, q.Select)
}

func TestGetClientByIdentity_NoNumericKeysInOutput(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "user_abc"))}
	svc := service.NewClientService(store, fieldmap.Default())

	got, err := svc.GetClientByIdentity(context.Background(), "user_abc")
	require.NoError(t, err)

	b, err := json.Marshal(got)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))

	schema := fieldmap.Default()
	var ids []int
	for key := range out {
		_, parseErr := json.Number(key).Int64()
		assert.Error(t, parseErr, "numeric key %q leaked into output", key)

		id, ok := schema.Clients.FieldID(key)
		require.True(t, ok, "output key %q has no field mapping", key)
		ids = append(ids, id)
	}
	sort.Ints(ids)

	// Every selected field comes back under a logical name and nothing else does.
	want := append([]int(nil), store.queries[0].Select...)
	sort.Ints(want)
	assert.Equal(t, want, ids)
}

func TestGetClientByIdentity_NotFound(t *testing.T) {
	store := &mockStore{QueryFunc: rows()}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.GetClientByIdentity(context.Background(), "nobody")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestGetClientByIdentity_Duplicate(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "user_abc"), clientRow(43, "user_abc"))}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.GetClientByIdentity(context.Background(), "user_abc")
	assert.ErrorIs(t, err, service.ErrDataIntegrity)
}

func TestGetClientByIdentity_ForeignRow(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "someone_else"))}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.GetClientByIdentity(context.Background(), "user_abc")
	assert.ErrorIs(t, err, service.ErrDataIntegrity)
}

func TestGetClientByIdentity_EmptyIdentity(t *testing.T) {
	store := &mockStore{}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.GetClientByIdentity(context.Background(), "")
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Empty(t, store.queries)
}

func TestGetClientByIdentity_EscapesIdentity(t *testing.T) {
	store := &mockStore{QueryFunc: rows()}
	svc := service.NewClientService(store, fieldmap.Default())

	_, _ = svc.GetClientByIdentity(context.Background(), "x'}OR{3.GT.0")
	require.Len(t, store.queries, 1)
	assert.Equal(t, `{6.EX.'x\'}OR{3.GT.0'}`, store.queries[0].Where)
}

func TestGetClientByIdentity_StoreError(t *testing.T) {
	storeErr := &recordstore.RemoteStoreError{Op: "query", StatusCode: 500}
	store := &mockStore{QueryFunc: func(context.Context, recordstore.QueryRequest) ([]recordstore.Row, error) {
		return nil, storeErr
	}}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.GetClientByIdentity(context.Background(), "user_abc")
	var rse *recordstore.RemoteStoreError
	require.ErrorAs(t, err, &rse)
	assert.Equal(t, 500, rse.StatusCode)
}

func TestUpdateClientContact_Whitelist(t *testing.T) {
	tests := []struct {
		name    string
		updates map[string]any
		want    recordstore.Row
	}{
		{
			name:    "phone only, unknown keys dropped",
			updates: map[string]any{"phone": "555-1111", "companyName": "Evil Corp", "bogus": "x"},
			want: recordstore.Row{
				"3": {Value: int64(42)},
				"9": {Value: "555-1111"},
			},
		},
		{
			name:    "all contact fields",
			updates: map[string]any{"email": "a@b.c", "phone": "1", "address": "2 Pier"},
			want: recordstore.Row{
				"3":  {Value: int64(42)},
				"8":  {Value: "a@b.c"},
				"9":  {Value: "1"},
				"10": {Value: "2 Pier"},
			},
		},
		{
			name:    "empty strings dropped",
			updates: map[string]any{"email": "", "address": "2 Pier", "recordId": float64(7)},
			want: recordstore.Row{
				"3":  {Value: int64(42)},
				"10": {Value: "2 Pier"},
			},
		},
		{
			name:    "non-string value dropped",
			updates: map[string]any{"phone": 5551111, "email": "a@b.c"},
			want: recordstore.Row{
				"3": {Value: int64(42)},
				"8": {Value: "a@b.c"},
			},
		},
		{
			name:    "nothing eligible sends key only",
			updates: map[string]any{"companyName": "x", "bogus": true},
			want: recordstore.Row{
				"3": {Value: int64(42)},
			},
		},
		{
			name:    "nil map sends key only",
			updates: nil,
			want: recordstore.Row{
				"3": {Value: int64(42)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			svc := service.NewClientService(store, fieldmap.Default())

			_, err := svc.UpdateClientContact(context.Background(), 42, tt.updates)
			require.NoError(t, err)

			require.Len(t, store.upserts, 1)
			assert.Equal(t, fieldmap.DefaultClientsTableID, store.upserts[0].To)
			require.Len(t, store.upserts[0].Data, 1)
			assert.Equal(t, tt.want, store.upserts[0].Data[0])
		})
	}
}

func TestUpdateClientContact_BadRecordID(t *testing.T) {
	store := &mockStore{}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.UpdateClientContact(context.Background(), 0, map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.Empty(t, store.upserts)
}

func TestUpdateContactForIdentity_ResolvesOwnRecord(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "user_abc"))}
	audit := &mockAudit{}
	svc := service.NewClientService(store, fieldmap.Default(), service.WithAudit(audit))

	_, err := svc.UpdateContactForIdentity(context.Background(), "user_abc", map[string]any{"phone": "555-1111", "bogus": "x"})
	require.NoError(t, err)

	require.Len(t, store.queries, 1)
	require.Len(t, store.upserts, 1)
	payload, err := json.Marshal(store.upserts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"bq7xyz123","data":[{"3":{"value":42},"9":{"value":"555-1111"}}]}`, string(payload))
	assert.NotContains(t, string(payload), "bogus")

	require.Len(t, audit.entries, 1)
	e := audit.entries[0]
	assert.Equal(t, models.EntityClient, e.Entity)
	assert.Equal(t, int64(42), e.RecordID)
	assert.Equal(t, "user_abc", e.ExternalAuthID)
	assert.Equal(t, []string{fieldmap.Phone}, e.Fields)
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestUpdateContactForIdentity_NothingEligible(t *testing.T) {
	store := &mockStore{QueryFunc: rows(clientRow(42, "user_abc"))}
	audit := &mockAudit{}
	svc := service.NewClientService(store, fieldmap.Default(), service.WithAudit(audit))

	res, err := svc.UpdateContactForIdentity(context.Background(), "user_abc",
		map[string]any{"bogus": "x", "companyName": "Evil", "phone": 5551111})
	require.NoError(t, err)
	require.NotNil(t, res)

	require.Len(t, store.upserts, 1)
	payload, err := json.Marshal(store.upserts[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"to":"bq7xyz123","data":[{"3":{"value":42}}]}`, string(payload))
	assert.Empty(t, audit.entries)
}

func TestUpdateContactForIdentity_NotFound(t *testing.T) {
	store := &mockStore{QueryFunc: rows()}
	svc := service.NewClientService(store, fieldmap.Default())

	_, err := svc.UpdateContactForIdentity(context.Background(), "nobody", map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.Empty(t, store.upserts)
}

func TestUpdateClientContact_StoreErrorSkipsAudit(t *testing.T) {
	store := &mockStore{UpsertFunc: func(context.Context, recordstore.UpsertRequest) (*recordstore.UpsertResult, error) {
		return nil, recordstore.ErrTimeout
	}}
	audit := &mockAudit{}
	svc := service.NewClientService(store, fieldmap.Default(), service.WithAudit(audit))

	_, err := svc.UpdateClientContact(context.Background(), 42, map[string]any{"phone": "1"})
	assert.ErrorIs(t, err, recordstore.ErrTimeout)
	assert.Empty(t, audit.entries)
}

func TestUpdateClientContact_AuditFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := &mockStore{}
	audit := &mockAudit{err: errors.New("db down")}
	svc := service.NewClientService(store, fieldmap.Default(),
		service.WithAudit(audit),
		service.WithLogger(zap.New(core)),
	)

	_, err := svc.UpdateClientContact(context.Background(), 42, map[string]any{"phone": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("failed to record audit entry").Len())
}
