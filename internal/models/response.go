// Package models - API response types and error handling.
// This file defines the outgoing structures of the local agent API with a
// consistent JSON shape across endpoints.
package models

import (
	"time"
)

// QuotaStatusResponse is what the UI renders next to the translate button.
// Remaining and TimeUntilResetMs are null for exempt actors.
type QuotaStatusResponse struct {
	Allowed          bool       `json:"allowed"`
	Exempt           bool       `json:"exempt"`
	Limit            int        `json:"limit"`
	Remaining        *int       `json:"remaining"`
	TimeUntilResetMs *int64     `json:"time_until_reset_ms"`
	ResetAt          *time.Time `json:"reset_at,omitempty"`
	Countdown        string     `json:"countdown,omitempty"`
}

// TranslateResponse carries the translated text together with the quota
// status after the usage was registered.
type TranslateResponse struct {
	TranslatedText string              `json:"translated_text"`
	FromLang       string              `json:"from_lang"`
	ToLang         string              `json:"to_lang"`
	Quota          QuotaStatusResponse `json:"quota"`
}

// ErrorResponse provides structured error information.
// Details carries machine-readable context such as the remaining quota.
type ErrorResponse struct {
	Error     string            `json:"error"`                // Error type (always "error")
	Message   string            `json:"message"`              // Human-readable error description
	Code      string            `json:"code,omitempty"`       // Machine-readable error code
	Details   map[string]string `json:"details,omitempty"`    // Extra context
	Timestamp time.Time         `json:"timestamp"`            // Error occurrence time
	RequestID string            `json:"request_id,omitempty"` // Unique request identifier
}

type HealthCheckResponse struct {
	Status     string                     `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

type ComponentHealth struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// Standard error codes returned by the agent API.
const (
	ErrorCodeInvalidRequest     = "INVALID_REQUEST"     // 400: Invalid request data
	ErrorCodeValidation         = "VALIDATION_ERROR"    // 422: Input validation failed
	ErrorCodeUnauthorized       = "UNAUTHORIZED"        // 401: No signed-in session
	ErrorCodeQuotaExhausted     = "QUOTA_EXHAUSTED"     // 429: Translation window used up
	ErrorCodeUpstreamFailure    = "UPSTREAM_FAILURE"    // 502: Translation backend failed
	ErrorCodeInternalError      = "INTERNAL_ERROR"      // 500: Agent-side error
	ErrorCodeServiceUnavailable = "SERVICE_UNAVAILABLE" // 503: Dependency down
)

func NewErrorResponse(message string, code string) *ErrorResponse {
	return &ErrorResponse{
		Error:     "error",
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

func NewHealthCheckResponse(status string) *HealthCheckResponse {
	return &HealthCheckResponse{
		Status:     status,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}
}

func (h *HealthCheckResponse) AddComponent(name, status, message string) {
	h.Components[name] = ComponentHealth{
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
