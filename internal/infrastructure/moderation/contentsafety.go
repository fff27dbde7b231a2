package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"StoryBuilder/internal/config"
	"StoryBuilder/internal/ports"
)

// ContentSafetyClient implements ports.Moderator against the Azure Content
// Safety text:analyze endpoint.
type ContentSafetyClient struct {
	endpoint   string
	apiKey     string
	apiVersion string
	httpClient *http.Client
}

var _ ports.Moderator = (*ContentSafetyClient)(nil)

// NewContentSafetyClient builds a client from configuration.
func NewContentSafetyClient(cfg config.ModerationConfig) *ContentSafetyClient {
	return &ContentSafetyClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// analyzeResponse covers both the categoriesAnalysis list shape and the
// legacy per-category object shape.
type analyzeResponse struct {
	CategoriesAnalysis []struct {
		Severity *int `json:"severity"`
	} `json:"categoriesAnalysis"`
	Hate     *categorySeverity `json:"hate"`
	Violence *categorySeverity `json:"violence"`
	Sexual   *categorySeverity `json:"sexual"`
	SelfHarm *categorySeverity `json:"selfHarm"`
}

type categorySeverity struct {
	Severity *int `json:"severity"`
}

// MaxSeverity analyzes the text and returns the highest severity across all
// reported categories. Transport and status failures surface as errors; the
// caller decides the fail-open policy.
func (c *ContentSafetyClient) MaxSeverity(ctx context.Context, text string) (int, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, fmt.Errorf("marshal moderation payload: %w", err)
	}

	url := fmt.Sprintf("%s/contentsafety/text:analyze?api-version=%s", c.endpoint, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("moderation returned %s", resp.Status)
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode moderation response: %w", err)
	}

	max := 0
	for _, cat := range parsed.CategoriesAnalysis {
		if cat.Severity != nil && *cat.Severity > max {
			max = *cat.Severity
		}
	}
	for _, cat := range []*categorySeverity{parsed.Hate, parsed.Violence, parsed.Sexual, parsed.SelfHarm} {
		if cat != nil && cat.Severity != nil && *cat.Severity > max {
			max = *cat.Severity
		}
	}
	return max, nil
}
