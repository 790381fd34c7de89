package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TranslatePath is the backend endpoint that performs the translation.
const TranslatePath = "/api/translate/translate"

// UpstreamError is returned when the backend answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Client calls the translation backend.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

func NewClient(baseURL string, httpClient *http.Client, userAgent string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      httpClient,
		userAgent: userAgent,
	}
}

type backendRequest struct {
	Text     string `json:"text"`
	FromLang string `json:"fromLang"`
	ToLang   string `json:"toLang"`
}

// Translate returns the translated text. The token is sent as a bearer
// credential and never logged.
func (c *Client) Translate(ctx context.Context, token, text, fromLang, toLang string) (string, error) {
	body, err := json.Marshal(backendRequest{Text: text, FromLang: fromLang, ToLang: toLang})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+TranslatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read translate response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(reply, "error").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	translated := gjson.GetBytes(reply, "translatedText")
	if !translated.Exists() {
		return "", fmt.Errorf("translate response has no translatedText")
	}
	return translated.String(), nil
}
