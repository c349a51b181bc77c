package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

const provider = "gemini"

// Client talks to the Gemini REST API (embedContent / generateContent).
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiKey        string
	embedModel    string
	generateModel string
	logger        *zap.Logger
}

// Config holds the Gemini gateway settings.
type Config struct {
	APIKey        string
	BaseURL       string
	EmbedModel    string
	GenerateModel string
	Timeout       time.Duration
	Logger        *zap.Logger
}

// NewClient creates a Gemini REST client.
func NewClient(cfg *Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		embedModel:    cfg.EmbedModel,
		generateModel: cfg.GenerateModel,
		logger:        logger,
	}
}

// post issues a JSON POST to {base}/models/{model}:{op} and decodes the reply into out.
// Transport failures (including deadline expiry) map to ErrUpstreamUnavailable,
// non-2xx statuses to ErrUpstreamRejected.
func (c *Client) post(ctx context.Context, model, op string, payload, out any) error {
	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s",
		c.baseURL, model, op, url.QueryEscape(c.apiKey))

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", op, model, err, domain.ErrUpstreamUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", op, model, err, domain.ErrUpstreamUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := extractAPIError(raw)
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d: %s: %w",
			op, model, resp.StatusCode, detail, domain.ErrUpstreamRejected)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w: %w",
			op, model, err, domain.ErrMalformedResponse)
	}

	return nil
}

// extractAPIError pulls the error message from a Gemini error body.
func extractAPIError(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return ""
}

// errType classifies a gateway error for the error_type metric label.
func errType(err error) string {
	switch {
	case errors.Is(err, domain.ErrUpstreamRejected):
		return "rejected"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed"
	default:
		return "transport"
	}
}
