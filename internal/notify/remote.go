package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"translator/internal/models"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// LimitReachedPath is the backend endpoint that fans escalations out to
// administrators' push channels.
const LimitReachedPath = "/api/notifications/limit-reached"

// TokenSource returns the bearer token of the signed-in user.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RemoteNotifier posts escalations to the backend. Outbound requests are
// throttled so a misbehaving client cannot flood administrators.
type RemoteNotifier struct {
	baseURL   string
	client    *http.Client
	tokens    TokenSource
	limiter   *rate.Limiter
	userAgent string
}

// NewRemoteNotifier allows perMinute escalations per minute with a burst of
// one; zero or less disables throttling.
func NewRemoteNotifier(baseURL string, client *http.Client, tokens TokenSource, perMinute int, userAgent string) *RemoteNotifier {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RemoteNotifier{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		tokens:    tokens,
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

// Escalate fails fast when the throttle would not admit the request before
// ctx's deadline.
func (r *RemoteNotifier) Escalate(ctx context.Context, payload models.Escalation) error {
	token, err := r.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("no credentials for escalation: %w", err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("escalation throttled: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode escalation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+LimitReachedPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("escalation request failed: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("failed to read escalation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(reply, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("escalation rejected with status %d: %s", resp.StatusCode, msg)
	}

	slog.InfoContext(ctx, "Escalation delivered",
		"user_id", payload.UserID,
		"sent_to", gjson.GetBytes(reply, "sentTo").Int())
	return nil
}
