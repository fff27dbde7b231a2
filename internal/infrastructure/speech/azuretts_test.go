package speech

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"StoryBuilder/internal/config"
)

func newTestClient(handler http.HandlerFunc) (*AzureTTSClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewAzureTTSClient(config.SpeechConfig{
		Endpoint: server.URL,
		APIKey:   "test-key",
	})
	return client, server
}

func TestSynthesizeSendsSSML(t *testing.T) {
	t.Parallel()

	var body string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		if r.Header.Get("Ocp-Apim-Subscription-Key") != "test-key" {
			t.Errorf("missing subscription key header")
		}
		if r.Header.Get("X-Microsoft-OutputFormat") != outputFormat {
			t.Errorf("unexpected output format: %s", r.Header.Get("X-Microsoft-OutputFormat"))
		}
		if r.Header.Get("Content-Type") != "application/ssml+xml" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}
		w.Write([]byte("mp3-bytes"))
	})
	defer server.Close()

	audio, err := client.Synthesize(context.Background(), "hello world", "hi-IN-SwaraNeural")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("unexpected audio: %q", audio)
	}
	if !strings.Contains(body, `xml:lang='hi-IN'`) {
		t.Fatalf("language should derive from the voice name: %s", body)
	}
	if !strings.Contains(body, `<voice name='hi-IN-SwaraNeural'>hello world</voice>`) {
		t.Fatalf("unexpected ssml body: %s", body)
	}
}

func TestSynthesizeEscapesText(t *testing.T) {
	t.Parallel()

	var body string
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Write([]byte("mp3"))
	})
	defer server.Close()

	if _, err := client.Synthesize(context.Background(), "salt & <pepper>", "en-US-JennyNeural"); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.Contains(body, "salt &amp; &lt;pepper&gt;") {
		t.Fatalf("text should be XML-escaped: %s", body)
	}
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(http.ResponseWriter, *http.Request) {})
	defer server.Close()

	if _, err := client.Synthesize(context.Background(), "hi", "v"); err == nil {
		t.Fatalf("expected error for empty audio body")
	}
}

func TestSynthesizeErrorStatus(t *testing.T) {
	t.Parallel()

	client, server := newTestClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	defer server.Close()

	if _, err := client.Synthesize(context.Background(), "hi", "v"); err == nil {
		t.Fatalf("expected error for non-200 status")
	}
}
