package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StoryBuilder/internal/config"
	"StoryBuilder/internal/ports"
)

// DalleClient implements ports.ImageSynthesizer against a hosted
// images/generations endpoint, mapping the status contract onto the
// sentinel errors the retry machine dispatches on.
type DalleClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.ImageSynthesizer = (*DalleClient)(nil)

// NewDalleClient builds a client from configuration. The endpoint is the
// full images/generations URL.
func NewDalleClient(cfg config.ImageGenConfig) *DalleClient {
	return &DalleClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type generationResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Synthesize posts one prompt and returns the hosted result URL.
// Status mapping: 429 -> ErrRateLimited, 400/403 -> ErrPolicyRejected,
// unparseable 200 -> ErrMalformedResponse, other non-200 -> plain error.
func (c *DalleClient) Synthesize(ctx context.Context, prompt, size string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return "", fmt.Errorf("image synthesis client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"prompt": prompt,
		"n":      1,
		"size":   size,
	})
	if err != nil {
		return "", fmt.Errorf("marshal synthesis payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var parsed generationResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return "", fmt.Errorf("%w: %v", ports.ErrMalformedResponse, err)
		}
		if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
			return "", fmt.Errorf("%w: no image URL in response", ports.ErrMalformedResponse)
		}
		return parsed.Data[0].URL, nil
	case http.StatusTooManyRequests:
		return "", ports.ErrRateLimited
	case http.StatusBadRequest, http.StatusForbidden:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("%w: %s", ports.ErrPolicyRejected, strings.TrimSpace(string(snippet)))
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return "", fmt.Errorf("synthesis error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
}
