package translate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"translator/internal/models"
	"translator/internal/quota"
	"translator/internal/session"
	"translator/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

type stubTranslator struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubTranslator) Translate(ctx context.Context, token, text, fromLang, toLang string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "[" + toLang + "] " + text, nil
}

type nopDispatcher struct{}

func (nopDispatcher) NotifyLocal(ctx context.Context, n models.LocalNotification) error { return nil }
func (nopDispatcher) NotifyRemote(ctx context.Context, audience string, payload models.Escalation) error {
	return nil
}

type serviceHarness struct {
	service  *Service
	sessions *session.StaticSession
	upstream *stubTranslator
	ctrl     *quota.Controller
}

func newServiceHarness(t *testing.T, role string) *serviceHarness {
	t.Helper()
	sessions := session.NewStaticSession(session.Session{
		Token: "tok-1",
		User:  session.User{ID: "u-1", Name: "Ana", Role: role},
	})
	fakeClock := clocktesting.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	ctrl, err := quota.NewController(
		quota.Config{Limit: 2, Window: 30 * time.Second, StateKey: "translation_rate_limit"},
		storage.NewMemoryStore(), sessions, nopDispatcher{},
		quota.WithClock(fakeClock),
	)
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	upstream := &stubTranslator{}
	return &serviceHarness{
		service:  NewService(sessions, ctrl, upstream),
		sessions: sessions,
		upstream: upstream,
		ctrl:     ctrl,
	}
}

func translateReq() *models.TranslateRequest {
	return &models.TranslateRequest{Text: "hello", FromLang: " en ", ToLang: "es"}
}

func TestService_TranslateConsumesQuota(t *testing.T) {
	h := newServiceHarness(t, "user")
	ctx := context.Background()

	resp, err := h.service.Translate(ctx, translateReq())
	require.NoError(t, err)
	assert.Equal(t, "[es] hello", resp.TranslatedText)
	assert.Equal(t, "en", resp.FromLang)
	require.NotNil(t, resp.Quota.Remaining)
	assert.Equal(t, 1, *resp.Quota.Remaining)
	assert.True(t, resp.Quota.Allowed)

	resp, err = h.service.Translate(ctx, translateReq())
	require.NoError(t, err)
	assert.Equal(t, 0, *resp.Quota.Remaining)
	assert.False(t, resp.Quota.Allowed)
	assert.Equal(t, "30s", resp.Quota.Countdown)

	_, err = h.service.Translate(ctx, translateReq())
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, models.ErrorCodeQuotaExhausted, serviceErr.Code)
	assert.Equal(t, 429, serviceErr.StatusCode)
	assert.Equal(t, "30s", serviceErr.Details["countdown"])
	assert.Equal(t, "0", serviceErr.Details["remaining"])

	assert.Equal(t, 2, h.upstream.calls)
}

func TestService_FailedTranslationIsFree(t *testing.T) {
	h := newServiceHarness(t, "user")
	h.upstream.err = &UpstreamError{StatusCode: 500, Message: "Error al traducir el texto"}

	_, err := h.service.Translate(context.Background(), translateReq())
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, models.ErrorCodeUpstreamFailure, serviceErr.Code)

	state, ok := h.ctrl.Snapshot()
	require.True(t, ok)
	assert.Zero(t, state.UsedCount)
}

func TestService_Unauthorized(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		h := newServiceHarness(t, "user")
		h.sessions.Set(session.Session{})

		_, err := h.service.Translate(context.Background(), translateReq())
		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, models.ErrorCodeUnauthorized, serviceErr.Code)
		assert.Zero(t, h.upstream.calls)
	})

	t.Run("backend rejects token", func(t *testing.T) {
		h := newServiceHarness(t, "user")
		h.upstream.err = &UpstreamError{StatusCode: 401, Message: "Unauthorized"}

		_, err := h.service.Translate(context.Background(), translateReq())
		var serviceErr *ServiceError
		require.True(t, errors.As(err, &serviceErr))
		assert.Equal(t, models.ErrorCodeUnauthorized, serviceErr.Code)
	})
}

func TestService_Validation(t *testing.T) {
	h := newServiceHarness(t, "user")

	_, err := h.service.Translate(context.Background(), &models.TranslateRequest{Text: "  ", FromLang: "en", ToLang: "es"})
	var serviceErr *ServiceError
	require.True(t, errors.As(err, &serviceErr))
	assert.Equal(t, models.ErrorCodeValidation, serviceErr.Code)
	assert.Zero(t, h.upstream.calls)
}

func TestService_AdminIsUnlimited(t *testing.T) {
	h := newServiceHarness(t, session.RoleAdmin)

	for range 5 {
		resp, err := h.service.Translate(context.Background(), translateReq())
		require.NoError(t, err)
		assert.True(t, resp.Quota.Exempt)
		assert.Nil(t, resp.Quota.Remaining)
		assert.Nil(t, resp.Quota.TimeUntilResetMs)
	}
	assert.Equal(t, 5, h.upstream.calls)
}

func TestService_StatusAndRegisterUsage(t *testing.T) {
	h := newServiceHarness(t, "user")
	ctx := context.Background()

	status := h.service.Status(ctx)
	assert.Equal(t, 2, *status.Remaining)
	assert.Equal(t, int64(30000), *status.TimeUntilResetMs)

	status = h.service.RegisterUsage(ctx)
	assert.Equal(t, 1, *status.Remaining)

	status = h.service.Reset(ctx)
	assert.Equal(t, 2, *status.Remaining)
	assert.True(t, status.Allowed)
}

func TestStatusFromEligibility(t *testing.T) {
	until := 1500 * time.Millisecond
	resetAt := time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC)

	status := StatusFromEligibility(quota.Eligibility{
		Allowed:        true,
		Remaining:      3,
		Limit:          7,
		TimeUntilReset: &until,
		ResetAt:        resetAt,
	})
	assert.Equal(t, 3, *status.Remaining)
	assert.Equal(t, int64(1500), *status.TimeUntilResetMs)
	assert.Equal(t, "2s", status.Countdown)
	assert.Equal(t, resetAt, *status.ResetAt)

	exempt := StatusFromEligibility(quota.Eligibility{Allowed: true, Remaining: quota.Unlimited, Limit: 7, Exempt: true})
	assert.Nil(t, exempt.Remaining)
	assert.Nil(t, exempt.ResetAt)
	assert.Empty(t, exempt.Countdown)
}
