package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/VesselPortal/internal/middleware"
	"github.com/atinyakov/VesselPortal/internal/models"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"go.uber.org/zap"
)

// ClientService defines the client operations required by the handlers.
type ClientService interface {
	// GetClientByIdentity returns the client owned by an external auth ID.
	GetClientByIdentity(ctx context.Context, externalAuthID string) (*models.Client, error)
	// UpdateContactForIdentity updates the whitelisted contact fields of the
	// client owned by an external auth ID.
	UpdateContactForIdentity(ctx context.Context, externalAuthID string, updates map[string]any) (*recordstore.UpsertResult, error)
}

// ActivityLister reads the audit log of a client.
type ActivityLister interface {
	ListByClient(ctx context.Context, clientRecordID int64, limit int) ([]models.AuditEntry, error)
}

// activityLimit caps the entries returned by Activity.
const activityLimit = 50

// UserHandler serves the caller's own client record.
type UserHandler struct {
	// ClientService performs the record lookups and updates.
	ClientService ClientService
	// Activity reads the audit log; the activity route is not mounted
	// when it is nil.
	Activity ActivityLister
	// Logger records failures; defaults to a no-op logger.
	Logger *zap.Logger
}

func (h *UserHandler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	client, err := h.ClientService.GetClientByIdentity(ctx, userID)
	if err != nil {
		writeServiceError(w, r, h.logger(), "get client", err)
		return
	}
	writeJSON(w, http.StatusOK, client)
}

// UpdateMe handles PATCH /api/users/me. The body may carry email, phone and
// address; any other key is ignored.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var updates map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&updates); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	res, err := h.ClientService.UpdateContactForIdentity(ctx, userID, updates)
	if err != nil {
		writeServiceError(w, r, h.logger(), "update client contact", err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{
		Success: true,
		Message: "Contact information updated",
		Data:    res.Metadata,
	})
}

// MyActivity handles GET /api/users/me/activity, listing the caller's most
// recent accepted changes.
func (h *UserHandler) MyActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserIDFromContext(ctx)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	client, err := h.ClientService.GetClientByIdentity(ctx, userID)
	if err != nil {
		writeServiceError(w, r, h.logger(), "get client", err)
		return
	}

	entries, err := h.Activity.ListByClient(ctx, client.RecordID, activityLimit)
	if err != nil {
		writeServiceError(w, r, h.logger(), "list activity", err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
