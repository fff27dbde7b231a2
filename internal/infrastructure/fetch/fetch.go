package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"StoryBuilder/internal/ports"
	"StoryBuilder/internal/source"
)

// RegistrySource implements ports.NotesSource via registered fetcher
// strategies, resolving by the shape of the input reference.
type RegistrySource struct {
	registry *source.Registry
	logger   *slog.Logger
}

var _ ports.NotesSource = (*RegistrySource)(nil)

// NewRegistrySource wires the fetcher registry.
func NewRegistrySource(reg *source.Registry, log *slog.Logger) *RegistrySource {
	return &RegistrySource{registry: reg, logger: log}
}

// Fetch resolves ref to a strategy and loads the notes image bytes + MIME.
func (s *RegistrySource) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	if s.registry == nil {
		return nil, "", fmt.Errorf("source registry is not configured")
	}

	name := "file"
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		name = "http"
	}

	strategy, err := s.registry.Resolve(name)
	if err != nil {
		return nil, "", err
	}

	if s.logger != nil {
		s.logger.Debug("fetch notes image", "strategy", name, "ref", ref)
	}
	return strategy.Fetch(ctx, ref)
}

// FileFetcher reads notes images from the local filesystem.
type FileFetcher struct{}

var _ source.Fetcher = (*FileFetcher)(nil)

// NewFileFetcher builds the local-file strategy.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Name identifies the strategy inside the registry.
func (f *FileFetcher) Name() string {
	return "file"
}

// Fetch loads the file and derives its MIME type from the extension, falling
// back to content sniffing.
func (f *FileFetcher) Fetch(_ context.Context, ref string) ([]byte, string, error) {
	raw, err := os.ReadFile(ref)
	if err != nil {
		return nil, "", fmt.Errorf("read notes image %s: %w", ref, err)
	}
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("notes image %s is empty", ref)
	}
	return raw, mimeFor(ref, raw), nil
}

// HTTPFetcher downloads notes images from http(s) URLs.
type HTTPFetcher struct {
	client *http.Client
}

var _ source.Fetcher = (*HTTPFetcher)(nil)

// NewHTTPFetcher wires an HTTP client with a sane default timeout.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPFetcher{client: client}
}

// Name identifies the strategy inside the registry.
func (f *HTTPFetcher) Name() string {
	return "http"
}

// Fetch downloads the image; MIME comes from the Content-Type header when it
// names an image type, otherwise from sniffing.
func (f *HTTPFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request notes image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("notes image fetch returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read notes image body: %w", err)
	}

	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = mimeFor(ref, raw)
	}
	return raw, mime, nil
}

func mimeFor(ref string, raw []byte) string {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return http.DetectContentType(raw)
}

// ArtifactFetcher downloads generated artifact bytes from result URLs.
type ArtifactFetcher struct {
	client *http.Client
}

var _ ports.ImageFetcher = (*ArtifactFetcher)(nil)

// NewArtifactFetcher wires an HTTP client; the timeout matches the synthesis
// capability's own.
func NewArtifactFetcher(client *http.Client) *ArtifactFetcher {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &ArtifactFetcher{client: client}
}

// Fetch downloads the bytes behind a synthesis result URL.
func (f *ArtifactFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artifact fetch returned %s", resp.Status)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read artifact body: %w", err)
	}
	return raw, nil
}
