package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/VesselPortal/internal/middleware"
	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ClientResolver maps the caller's identity to their client record.
type ClientResolver interface {
	GetClientByIdentity(ctx context.Context, externalAuthID string) (*models.Client, error)
}

// VesselService defines the vessel operations required by the handlers.
type VesselService interface {
	// GetVesselsByClient lists the vessels owned by a client record.
	GetVesselsByClient(ctx context.Context, clientRecordID int64) ([]models.Vessel, error)
	// GetVesselForClient returns one vessel if the client owns it.
	GetVesselForClient(ctx context.Context, vesselRecordID, clientRecordID int64) (*models.Vessel, error)
	// UpdateVesselStatus sets the active flag of a vessel the client owns.
	UpdateVesselStatus(ctx context.Context, vesselRecordID, clientRecordID int64, isActive bool) (*recordstore.UpsertResult, error)
}

// VesselHandler serves the caller's vessels.
type VesselHandler struct {
	Clients ClientResolver
	Vessels VesselService
	Logger  *zap.Logger
}

type statusRequest struct {
	IsActive *bool `json:"isActive"`
}

func (h *VesselHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// clientRecordID resolves the caller's client record, writing the error
// response itself when it fails.
func (h *VesselHandler) clientRecordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	client, err := h.Clients.GetClientByIdentity(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, h.logger(), "resolve client", err)
		return 0, false
	}
	return client.RecordID, true
}

func vesselIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "vesselID"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid vessel id")
		return 0, false
	}
	return id, true
}

// List handles GET /api/vessels.
func (h *VesselHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.clientRecordID(w, r)
	if !ok {
		return
	}
	vessels, err := h.Vessels.GetVesselsByClient(r.Context(), clientID)
	if err != nil {
		writeServiceError(w, r, h.logger(), "list vessels", err)
		return
	}
	writeJSON(w, http.StatusOK, vessels)
}

// Get handles GET /api/vessels/{vesselID}.
func (h *VesselHandler) Get(w http.ResponseWriter, r *http.Request) {
	vesselID, ok := vesselIDParam(w, r)
	if !ok {
		return
	}
	clientID, ok := h.clientRecordID(w, r)
	if !ok {
		return
	}
	vessel, err := h.Vessels.GetVesselForClient(r.Context(), vesselID, clientID)
	if err != nil {
		writeServiceError(w, r, h.logger(), "get vessel", err)
		return
	}
	writeJSON(w, http.StatusOK, vessel)
}

// UpdateStatus handles PATCH /api/vessels/{vesselID}/status with a body of
// {"isActive": bool}.
func (h *VesselHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	vesselID, ok := vesselIDParam(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.IsActive == nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	clientID, ok := h.clientRecordID(w, r)
	if !ok {
		return
	}

	res, err := h.Vessels.UpdateVesselStatus(r.Context(), vesselID, clientID, *req.IsActive)
	if err != nil {
		writeServiceError(w, r, h.logger(), "update vessel status", err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Success: true,
		Message: "Vessel status updated",
		Data:    res.Metadata,
	})
}
