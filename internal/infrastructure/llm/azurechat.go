package llm

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

// AzureChatClient implements ports.CompletionClient against Azure
// OpenAI-compatible chat/completions deployments, including vision input.
type AzureChatClient struct {
	endpoint   string
	deployment string
	apiVersion string
	apiKey     string
	httpClient *http.Client
}

var _ ports.CompletionClient = (*AzureChatClient)(nil)

// NewAzureChatClient builds a client from configuration.
func NewAzureChatClient(cfg config.CompletionConfig) *AzureChatClient {
	return &AzureChatClient{
		endpoint:   strings.TrimSuffix(cfg.Endpoint, "/"),
		deployment: cfg.Deployment,
		apiVersion: cfg.APIVersion,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete posts one system+user exchange and returns the reply text.
// Any non-200 status is an error carrying the status and a body snippet.
func (c *AzureChatClient) Complete(ctx context.Context, req ports.CompletionRequest) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.deployment == "" {
		return "", fmt.Errorf("completion client misconfigured")
	}

	payload := map[string]any{
		"messages": []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: userContent(req.UserParts)},
		},
		"temperature": req.Temperature,
		"max_tokens":  req.MaxTokens,
	}
	if req.ForceJSON {
		payload["response_format"] = map[string]string{"type": "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion payload: %w", err)
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.endpoint, c.deployment, c.apiVersion)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return "", fmt.Errorf("completion error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// userContent renders a single text part as a plain string and anything else
// as the multi-part content array the vision API expects.
func userContent(parts []ports.MessagePart) any {
	if len(parts) == 1 && parts[0].ImageDataURL == "" {
		return parts[0].Text
	}

	content := make([]map[string]any, 0, len(parts))
	for _, part := range parts {
		if part.ImageDataURL != "" {
			content = append(content, map[string]any{
				"type":      "image_url",
				"image_url": map[string]string{"url": part.ImageDataURL},
			})
			continue
		}
		content = append(content, map[string]any{
			"type": "text",
			"text": part.Text,
		})
	}
	return content
}
