package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StoryBuilder/internal/config"
	"StoryBuilder/internal/ports"
)

func newTestClient(handler http.HandlerFunc) (*AzureChatClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewAzureChatClient(config.CompletionConfig{
		Endpoint:   server.URL,
		Deployment: "gpt-4o",
		APIVersion: "2024-08-01-preview",
		APIKey:     "test-key",
	})
	return client, server
}

const replyBody = `{"choices": [{"message": {"content": "hello"}}]}`

func TestCompleteSendsTextOnlyRequest(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openai/deployments/gpt-4o/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("api-version") != "2024-08-01-preview" {
			t.Errorf("unexpected api-version: %s", r.URL.RawQuery)
		}
		if r.Header.Get("api-key") != "test-key" {
			t.Errorf("missing api-key header")
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(replyBody))
	})
	defer server.Close()

	reply, err := client.Complete(context.Background(), ports.CompletionRequest{
		System:      "be terse",
		UserParts:   []ports.MessagePart{{Text: "say hello"}},
		Temperature: 0.5,
		MaxTokens:   100,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "hello" {
		t.Fatalf("unexpected reply: %s", reply)
	}

	messages := captured["messages"].([]any)
	user := messages[1].(map[string]any)
	if content, ok := user["content"].(string); !ok || content != "say hello" {
		t.Fatalf("single text part should be a plain string, got %v", user["content"])
	}
	if _, ok := captured["response_format"]; ok {
		t.Fatalf("response_format must be omitted unless JSON is forced")
	}
}

func TestCompleteSendsVisionParts(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.Write([]byte(replyBody))
	})
	defer server.Close()

	_, err := client.Complete(context.Background(), ports.CompletionRequest{
		System: "extract",
		UserParts: []ports.MessagePart{
			{Text: "read this"},
			{ImageDataURL: "data:image/png;base64,AAAA"},
		},
		ForceJSON: true,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	format := captured["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Fatalf("unexpected response_format: %v", format)
	}

	messages := captured["messages"].([]any)
	content := messages[1].(map[string]any)["content"].([]any)
	if len(content) != 2 {
		t.Fatalf("expected 2 content parts, got %d", len(content))
	}
	text := content[0].(map[string]any)
	if text["type"] != "text" || text["text"] != "read this" {
		t.Fatalf("unexpected text part: %v", text)
	}
	image := content[1].(map[string]any)
	if image["type"] != "image_url" {
		t.Fatalf("unexpected image part: %v", image)
	}
	if url := image["image_url"].(map[string]any)["url"]; url != "data:image/png;base64,AAAA" {
		t.Fatalf("unexpected image url: %v", url)
	}
}

func TestCompleteSurfacesErrorStatus(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("throttled"))
	})
	defer server.Close()

	_, err := client.Complete(context.Background(), ports.CompletionRequest{
		UserParts: []ports.MessagePart{{Text: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("error should carry status and body snippet: %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})
	defer server.Close()

	if _, err := client.Complete(context.Background(), ports.CompletionRequest{
		UserParts: []ports.MessagePart{{Text: "hi"}},
	}); err == nil {
		t.Fatalf("expected error for empty choices")
	}
}

func TestCompleteRequiresConfiguration(t *testing.T) {
	t.Parallel()

	client := NewAzureChatClient(config.CompletionConfig{})
	if _, err := client.Complete(context.Background(), ports.CompletionRequest{
		UserParts: []ports.MessagePart{{Text: "hi"}},
	}); err == nil {
		t.Fatalf("expected error for missing configuration")
	}
}
