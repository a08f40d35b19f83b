package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/atinyakov/VesselPortal/internal/middleware"
	"github.com/atinyakov/VesselPortal/internal/recordstore"
	"github.com/atinyakov/VesselPortal/internal/service"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// mutationResponse is the body returned by successful updates.
type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps a domain error to the HTTP status and the message shown to
// the client. Messages never carry store details.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrDataIntegrity):
		return http.StatusConflict, "Conflicting records"
	case errors.Is(err, recordstore.ErrTimeout):
		return http.StatusGatewayTimeout, "Upstream timeout"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeServiceError answers with the mapped status and logs the full error.
// Expected outcomes are logged at debug level, faults at error level.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, op string, err error) {
	status, msg := statusFor(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.Int("status", status),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError || status == http.StatusConflict {
		logger.Error("request failed", fields...)
	} else {
		logger.Debug("request rejected", fields...)
	}
	writeError(w, status, msg)
}

// Health answers the unauthenticated liveness probe.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed answers known routes called with the wrong verb.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
