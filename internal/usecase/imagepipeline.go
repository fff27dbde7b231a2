package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"StoryBuilder/internal/domain"
	"StoryBuilder/internal/imaging"
	"StoryBuilder/internal/ports"
)

const (
	synthesisSize = "1024x1024"
	maxAttempts   = 3

	slideWidth  = 720
	slideHeight = 1200
	coverWidth  = 640
	coverHeight = 853
)

// attemptState drives the per-slide retry machine; the attempt counter is
// the only other mutable state.
type attemptState int

const (
	statePending attemptState = iota
	stateRateLimited
	statePolicyRejected
	stateSucceeded
	stateFailed
	stateExhausted
)

// ImagePipeline produces one stored image artifact per slide plus the derived
// portrait cover. It never fails a run: slides degrade to the placeholder.
type ImagePipeline struct {
	sanitizer   *Sanitizer
	synthesizer ports.ImageSynthesizer
	fetcher     ports.ImageFetcher
	store       ports.ObjectStore
	prefix      string
	placeholder string
	backoff     time.Duration
	sleep       func(time.Duration)
	logger      *slog.Logger
}

// NewImagePipeline wires all image-side collaborators. The backoff sleep is
// the fixed pause applied after a rate-limit reply.
func NewImagePipeline(
	sanitizer *Sanitizer,
	synthesizer ports.ImageSynthesizer,
	fetcher ports.ImageFetcher,
	store ports.ObjectStore,
	prefix, placeholder string,
	backoff time.Duration,
	logger *slog.Logger,
) *ImagePipeline {
	return &ImagePipeline{
		sanitizer:   sanitizer,
		synthesizer: synthesizer,
		fetcher:     fetcher,
		store:       store,
		prefix:      prefix,
		placeholder: placeholder,
		backoff:     backoff,
		sleep:       time.Sleep,
		logger:      logger,
	}
}

// Run processes slides 1..6 in order and then derives the cover from slide
// 1's stored artifact. The record is augmented in place; no field is removed.
func (p *ImagePipeline) Run(ctx context.Context, record *domain.StoryRecord) {
	slug := record.Slug()

	var coverSource []byte
	for slide := 1; slide <= domain.SlideCount; slide++ {
		source, url := p.produceSlide(ctx, slug, slide, record.Prompt(slide))
		if url == "" {
			url = p.placeholder
		}
		record.SetImage(slide, url)
		if slide == 1 {
			coverSource = source
		}
		p.log("slide processed", "slide", fmt.Sprintf("%d/%d", slide, domain.SlideCount), "degraded", url == p.placeholder)
	}

	record.CoverURL = p.deriveCover(ctx, slug, coverSource)
}

// produceSlide runs sanitize -> synthesize -> fetch -> resize -> store for a
// single slide. It returns the fetched source bytes (slide 1 feeds the cover)
// and the display URL, or zero values on degradation.
func (p *ImagePipeline) produceSlide(ctx context.Context, slug string, slide int, prompt string) ([]byte, string) {
	safePrompt := p.sanitizer.Sanitize(ctx, prompt)

	resultURL, ok := p.synthesize(ctx, slide, safePrompt)
	if !ok {
		return nil, ""
	}

	raw, err := p.fetcher.Fetch(ctx, resultURL)
	if err != nil {
		p.log("fetch of generated image failed", "slide", slide, "error", err)
		return nil, ""
	}

	resized, err := imaging.ResizeJPEG(raw, slideWidth, slideHeight)
	if err != nil {
		p.log("resize of generated image failed", "slide", slide, "error", err)
		return nil, ""
	}

	key := fmt.Sprintf("%s/%s/slide%d.jpg", p.prefix, slug, slide)
	if err := p.store.Put(ctx, key, resized, "image/jpeg"); err != nil {
		p.log("store of generated image failed", "slide", slide, "error", err)
		return nil, ""
	}

	return raw, p.store.URL(key)
}

// synthesize drives the bounded retry machine against the synthesis
// capability: 429 backs off and retries, 400/403 swaps in the fallback
// prompt, anything else is terminal for the slide.
func (p *ImagePipeline) synthesize(ctx context.Context, slide int, prompt string) (string, bool) {
	state := statePending
	attempts := 0

	var resultURL string
	for state != stateSucceeded && state != stateFailed && state != stateExhausted {
		if attempts >= maxAttempts {
			state = stateExhausted
			break
		}
		attempts++

		url, err := p.synthesizer.Synthesize(ctx, prompt, synthesisSize)
		switch {
		case err == nil:
			resultURL = url
			state = stateSucceeded
		case errors.Is(err, ports.ErrPolicyRejected):
			p.log("prompt rejected by content policy, retrying with fallback", "slide", slide)
			prompt = SafeFallback
			state = statePolicyRejected
		case errors.Is(err, ports.ErrRateLimited):
			p.log("synthesis rate limited, backing off", "slide", slide, "backoff", p.backoff)
			p.sleep(p.backoff)
			state = stateRateLimited
		default:
			p.log("synthesis failed", "slide", slide, "error", err)
			state = stateFailed
		}
	}

	if state == stateExhausted {
		p.log("synthesis attempts exhausted", "slide", slide, "attempts", attempts)
	}
	return resultURL, state == stateSucceeded
}

// deriveCover resizes slide 1's fetched bytes into the portrait cover. A
// degraded slide 1 degrades the cover too; a cover is never synthesized on
// its own.
func (p *ImagePipeline) deriveCover(ctx context.Context, slug string, source []byte) string {
	if len(source) == 0 {
		return p.placeholder
	}

	resized, err := imaging.ResizeJPEG(source, coverWidth, coverHeight)
	if err != nil {
		p.log("cover resize failed", "error", err)
		return p.placeholder
	}

	key := fmt.Sprintf("%s/%s/portrait_cover.jpg", p.prefix, slug)
	if err := p.store.Put(ctx, key, resized, "image/jpeg"); err != nil {
		p.log("cover store failed", "error", err)
		return p.placeholder
	}

	return p.store.URL(key)
}

func (p *ImagePipeline) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
