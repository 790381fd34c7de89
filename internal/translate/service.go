package translate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"translator/internal/models"
	"translator/internal/quota"
	"translator/internal/session"
)

// Translator is the upstream call the service gates.
type Translator interface {
	Translate(ctx context.Context, token, text, fromLang, toLang string) (string, error)
}

// Gate is the part of the quota controller the service needs.
type Gate interface {
	CheckEligibility(ctx context.Context, actor models.Actor) quota.Eligibility
	RegisterUsage(ctx context.Context, actor models.Actor) quota.Eligibility
	Reset(ctx context.Context)
}

// Service performs quota-gated translations for the signed-in user.
type Service struct {
	sessions session.Provider
	gate     Gate
	upstream Translator
}

// NewService creates a new translate service
func NewService(sessions session.Provider, gate Gate, upstream Translator) *Service {
	return &Service{
		sessions: sessions,
		gate:     gate,
		upstream: upstream,
	}
}

// Translate checks the quota, calls the backend and counts the usage only when
// the translation succeeded.
func (s *Service) Translate(ctx context.Context, req *models.TranslateRequest) (*models.TranslateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewValidationError(err.Error(), err)
	}
	req.Normalize()

	current, err := s.sessions.Current(ctx)
	if errors.Is(err, session.ErrNoSession) {
		return nil, NewUnauthorizedError(err)
	}
	if err != nil {
		return nil, NewInternalError("failed to resolve session", err)
	}
	if current.Token == "" {
		return nil, NewUnauthorizedError(session.ErrNoSession)
	}
	actor := current.Actor()

	eligibility := s.gate.CheckEligibility(ctx, actor)
	if !eligibility.Allowed {
		slog.InfoContext(ctx, "Translation blocked by quota",
			"user_id", actor.ID,
			"reset_at", eligibility.ResetAt)
		return nil, NewQuotaExhaustedError(eligibility)
	}

	translated, err := s.upstream.Translate(ctx, current.Token, req.Text, req.FromLang, req.ToLang)
	if err != nil {
		var upstreamErr *UpstreamError
		if errors.As(err, &upstreamErr) && upstreamErr.StatusCode == http.StatusUnauthorized {
			return nil, NewUnauthorizedError(err)
		}
		return nil, NewUpstreamError("translation failed", err)
	}

	after := s.gate.RegisterUsage(ctx, actor)

	return &models.TranslateResponse{
		TranslatedText: translated,
		FromLang:       req.FromLang,
		ToLang:         req.ToLang,
		Quota:          StatusFromEligibility(after),
	}, nil
}

// Status reports the quota for the signed-in user without consuming it.
func (s *Service) Status(ctx context.Context) models.QuotaStatusResponse {
	return StatusFromEligibility(s.gate.CheckEligibility(ctx, s.actor(ctx)))
}

// RegisterUsage counts one translation performed outside the agent.
func (s *Service) RegisterUsage(ctx context.Context) models.QuotaStatusResponse {
	return StatusFromEligibility(s.gate.RegisterUsage(ctx, s.actor(ctx)))
}

// Reset starts a new window and reports the fresh status.
func (s *Service) Reset(ctx context.Context) models.QuotaStatusResponse {
	s.gate.Reset(ctx)
	return s.Status(ctx)
}

// actor is empty when nobody is signed in; the controller then skips the
// escalation.
func (s *Service) actor(ctx context.Context) models.Actor {
	current, err := s.sessions.Current(ctx)
	if err != nil {
		return models.Actor{}
	}
	return current.Actor()
}

// StatusFromEligibility maps the controller's answer onto the API shape.
// Remaining and the countdown are null for exempt actors.
func StatusFromEligibility(e quota.Eligibility) models.QuotaStatusResponse {
	status := models.QuotaStatusResponse{
		Allowed: e.Allowed,
		Exempt:  e.Exempt,
		Limit:   e.Limit,
	}
	if e.Exempt {
		return status
	}

	remaining := e.Remaining
	status.Remaining = &remaining
	if e.TimeUntilReset != nil {
		ms := e.TimeUntilReset.Milliseconds()
		status.TimeUntilResetMs = &ms
		status.Countdown = quota.FormatCountdown(*e.TimeUntilReset)
	}
	if !e.ResetAt.IsZero() {
		resetAt := e.ResetAt.UTC()
		status.ResetAt = &resetAt
	}
	return status
}
