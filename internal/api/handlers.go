package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"translator/internal/models"
	"translator/internal/storage"
	"translator/internal/translate"
	"translator/internal/version"
)

// maxBodyBytes bounds translate request bodies.
const maxBodyBytes = 1 << 20

// Handlers contains HTTP handlers for the agent API
type Handlers struct {
	service translate.ServiceInterface
	store   storage.Store
	version version.Info
}

// NewHandlers creates a new handlers instance
func NewHandlers(service translate.ServiceInterface, store storage.Store, ver version.Info) *Handlers {
	return &Handlers{
		service: service,
		store:   store,
		version: ver,
	}
}

// QuotaStatus reports the signed-in user's quota
// GET /api/v1/quota
func (h *Handlers) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.Status(r.Context()))
}

// RegisterUsage counts a translation performed outside the agent
// POST /api/v1/quota/usage
func (h *Handlers) RegisterUsage(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, h.service.RegisterUsage(r.Context()))
}

// ResetQuota starts a new window
// POST /api/v1/quota/reset
func (h *Handlers) ResetQuota(w http.ResponseWriter, r *http.Request) {
	slog.InfoContext(r.Context(), "Quota reset requested", "request_id", requestIDFrom(r.Context()))
	h.writeJSONResponse(w, http.StatusOK, h.service.Reset(r.Context()))
}

// Translate performs a quota-gated translation
// POST /api/v1/translate
func (h *Handlers) Translate(w http.ResponseWriter, r *http.Request) {
	var req models.TranslateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeErrorResponse(w, r, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid JSON body", nil)
		return
	}

	response, err := h.service.Translate(r.Context(), &req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, response)
}

// HealthCheck handles health check requests
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := models.NewHealthCheckResponse(models.StatusHealthy)
	response.Version = h.version.Version

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		response.Status = models.StatusUnhealthy
		response.AddComponent("storage", models.StatusUnhealthy, err.Error())
		status = http.StatusServiceUnavailable
	} else {
		response.AddComponent("storage", models.StatusHealthy, "Storage is operational")
	}
	response.AddComponent("api", models.StatusHealthy, "API is operational")

	h.writeJSONResponse(w, status, response)
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var serviceErr *translate.ServiceError
	if errors.As(err, &serviceErr) {
		if serviceErr.StatusCode >= http.StatusInternalServerError {
			slog.ErrorContext(r.Context(), "Translate request failed",
				"code", serviceErr.Code,
				"error", err,
				"request_id", requestIDFrom(r.Context()))
		}
		h.writeErrorResponse(w, r, serviceErr.StatusCode, serviceErr.Code, serviceErr.Message, serviceErr.Details)
		return
	}

	slog.ErrorContext(r.Context(), "Unexpected translate error", "error", err)
	h.writeErrorResponse(w, r, http.StatusInternalServerError, models.ErrorCodeInternalError, "Internal server error", nil)
}

// writeJSONResponse writes a JSON response
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, data)
}

// writeErrorResponse writes an error response tagged with the request ID
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, errorCode, message string, details map[string]string) {
	errorResp := models.NewErrorResponse(message, errorCode)
	errorResp.Details = details
	errorResp.RequestID = requestIDFrom(r.Context())

	h.writeJSONResponse(w, statusCode, errorResp)
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers are already written; nothing left to send.
		slog.Error("Error encoding JSON response", "error", err)
	}
}
