package ports

import (
	"context"
	"errors"

	"StoryBuilder/internal/domain"
)

// MessagePart is one element of a user message: plain text or an inline image.
type MessagePart struct {
	Text         string
	ImageDataURL string
}

// CompletionRequest carries one chat-completion exchange.
type CompletionRequest struct {
	System      string
	UserParts   []MessagePart
	Temperature float32
	MaxTokens   int
	// ForceJSON requests strict-JSON output mode. Callers must still be
	// prepared for free text when the capability ignores the flag.
	ForceJSON bool
}

// CompletionClient talks to a hosted text+vision chat model.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Sentinel errors implementing the image-synthesis status contract.
var (
	// ErrRateLimited maps HTTP 429; retry after a backoff.
	ErrRateLimited = errors.New("image synthesis rate limited")
	// ErrPolicyRejected maps HTTP 400/403; retry with the fallback prompt.
	ErrPolicyRejected = errors.New("image synthesis rejected by content policy")
	// ErrMalformedResponse marks a 200 reply whose body could not be parsed.
	ErrMalformedResponse = errors.New("image synthesis response malformed")
)

// ImageSynthesizer turns one prompt into one hosted image URL.
type ImageSynthesizer interface {
	Synthesize(ctx context.Context, prompt, size string) (string, error)
}

// Moderator scores text against content-safety categories.
type Moderator interface {
	// MaxSeverity returns the highest severity across all categories.
	MaxSeverity(ctx context.Context, text string) (int, error)
}

// SpeechSynthesizer renders text to audio bytes with the given voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ObjectStore persists artifact bytes and derives their display URLs.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	URL(key string) string
}

// ImageFetcher downloads generated artifact bytes from a result URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// NotesSource resolves an input reference (file path, URL) to image bytes
// plus their declared MIME type.
type NotesSource interface {
	Fetch(ctx context.Context, ref string) ([]byte, string, error)
}

// StoryRun is the persisted snapshot of one finished pipeline run.
type StoryRun struct {
	Slug           string
	Title          string
	LanguageCode   string
	Document       []byte
	DegradedSlides int
}

// StoryRepository persists finished runs for deduplication and audit.
type StoryRepository interface {
	AlreadyBuilt(ctx context.Context, slug string) (bool, error)
	SaveRun(ctx context.Context, run StoryRun) error
}

// Notifier announces finished stories to an outbound channel.
type Notifier interface {
	PublishStory(ctx context.Context, record domain.StoryRecord, degraded int) error
}

// InboxWatcher drives batch mode: it invokes job once per newly seen input.
type InboxWatcher interface {
	Start(ctx context.Context, job func(ref string)) error
	Stop(ctx context.Context) error
}
