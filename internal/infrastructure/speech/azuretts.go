package speech

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StoryBuilder/internal/config"
	"StoryBuilder/internal/ports"
)

const outputFormat = "audio-24khz-48kbitrate-mono-mp3"

// AzureTTSClient implements ports.SpeechSynthesizer against the Azure
// Cognitive Services text-to-speech REST endpoint.
type AzureTTSClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

var _ ports.SpeechSynthesizer = (*AzureTTSClient)(nil)

// NewAzureTTSClient builds a client from configuration. The endpoint is the
// full cognitiveservices/v1 synthesis URL.
func NewAzureTTSClient(cfg config.SpeechConfig) *AzureTTSClient {
	return &AzureTTSClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Synthesize renders text with the given voice and returns MP3 bytes.
func (c *AzureTTSClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if c.apiKey == "" || c.endpoint == "" {
		return nil, fmt.Errorf("speech client misconfigured")
	}

	body := ssml(text, voice)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech synthesis returned %s", resp.Status)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio body: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech synthesis returned empty audio")
	}
	return audio, nil
}

// ssml wraps the text in the minimal speak/voice envelope, escaping the
// payload so note text cannot break the XML.
func ssml(text, voice string) string {
	lang := "en-US"
	if parts := strings.SplitN(voice, "-", 3); len(parts) >= 2 {
		lang = parts[0] + "-" + parts[1]
	}

	var escaped strings.Builder
	_ = xml.EscapeText(&escaped, []byte(text))

	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice name='%s'>%s</voice></speak>`,
		lang, voice, escaped.String())
}
