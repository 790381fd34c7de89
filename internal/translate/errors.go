package translate

import (
	"fmt"
	"net/http"
	"time"
	"translator/internal/models"
	"translator/internal/quota"
)

// ServiceError represents errors from the translate service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Details    map[string]string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func NewUnauthorizedError(err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUnauthorized,
		Message:    "sign in to translate",
		StatusCode: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewQuotaExhaustedError carries the countdown the UI shows until the window
// resets.
func NewQuotaExhaustedError(e quota.Eligibility) *ServiceError {
	details := map[string]string{
		"limit":     fmt.Sprintf("%d", e.Limit),
		"remaining": fmt.Sprintf("%d", e.Remaining),
	}
	message := "translation limit reached"
	if e.TimeUntilReset != nil {
		countdown := quota.FormatCountdown(*e.TimeUntilReset)
		details["countdown"] = countdown
		details["reset_at"] = e.ResetAt.UTC().Format(time.RFC3339)
		message = fmt.Sprintf("translation limit reached, try again in %s", countdown)
	}
	return &ServiceError{
		Code:       models.ErrorCodeQuotaExhausted,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Details:    details,
	}
}

func NewUpstreamError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeUpstreamFailure,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
