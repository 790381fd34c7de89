package translate

import (
	"context"
	"translator/internal/models"
	"translator/internal/quota"
)

// ServiceInterface defines the operations the local API exposes
type ServiceInterface interface {
	// Translate performs a quota-gated translation for the signed-in user
	Translate(ctx context.Context, req *models.TranslateRequest) (*models.TranslateResponse, error)

	// Status reports the quota without consuming it
	Status(ctx context.Context) models.QuotaStatusResponse

	// RegisterUsage counts one translation against the window
	RegisterUsage(ctx context.Context) models.QuotaStatusResponse

	// Reset starts a new window
	Reset(ctx context.Context) models.QuotaStatusResponse
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)

// Ensure the quota controller satisfies Gate
var _ Gate = (*quota.Controller)(nil)
