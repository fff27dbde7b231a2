package usecase

import (
	"context"
	"log/slog"
	"strings"

	"StoryBuilder/internal/ports"
)

// SafeFallback is the policy-compliant illustration description substituted
// when a prompt cannot be made safe within one rewrite.
const SafeFallback = "A joyful, abstract geometric illustration symbolizing unity and learning — " +
	"soft shapes, harmonious gradients, friendly silhouettes, " +
	"no text, no logos, no brands, no real persons, family-friendly, " +
	"flat vector style, bright colors."

const rewriteSystemPrompt = "Rewrite image prompts to be safe, positive, inclusive, and family-friendly. " +
	"Remove any hate/harassment/violence/adult/illegal/extremist content, slogans, logos, " +
	"or real-person likenesses. Keep the core educational idea and flat vector art style. " +
	"Return ONLY the rewritten prompt text."

// Sanitizer enforces the content-safety policy on illustration prompts with a
// tiered flow: moderation pre-check, one model rewrite, re-check, fixed
// fallback. Without a configured moderator the prompt passes through as-is.
type Sanitizer struct {
	moderator  ports.Moderator
	completion ports.CompletionClient
	threshold  int
	logger     *slog.Logger
}

// NewSanitizer wires the moderation and completion capabilities; moderator
// may be nil when no moderation service is configured.
func NewSanitizer(moderator ports.Moderator, completion ports.CompletionClient, threshold int, logger *slog.Logger) *Sanitizer {
	return &Sanitizer{
		moderator:  moderator,
		completion: completion,
		threshold:  threshold,
		logger:     logger,
	}
}

// Sanitize returns a prompt that passes the risk policy, or the fixed
// fallback text when no guarantee is obtainable. It never returns the
// original text once risk was detected, and never returns empty text.
func (s *Sanitizer) Sanitize(ctx context.Context, prompt string) string {
	if s.moderator == nil {
		return prompt
	}
	if !s.risky(ctx, prompt) {
		return prompt
	}

	rewritten, err := s.rewrite(ctx, prompt)
	if err != nil || rewritten == "" {
		s.log("prompt rewrite failed, using fallback", "error", err)
		return SafeFallback
	}

	// At most one rewrite attempt: a still-risky rewrite is replaced wholesale.
	if s.risky(ctx, rewritten) {
		s.log("rewritten prompt still risky, using fallback")
		return SafeFallback
	}

	return rewritten
}

// risky asks the moderator for the max category severity; any transport or
// parse failure is fail-open and only logged.
func (s *Sanitizer) risky(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}

	severity, err := s.moderator.MaxSeverity(ctx, text)
	if err != nil {
		s.log("moderation check failed, treating prompt as not risky", "error", err)
		return false
	}
	return severity >= s.threshold
}

func (s *Sanitizer) rewrite(ctx context.Context, prompt string) (string, error) {
	reply, err := s.completion.Complete(ctx, ports.CompletionRequest{
		System: rewriteSystemPrompt,
		UserParts: []ports.MessagePart{
			{Text: "Original prompt:\n" + prompt + "\n\nRewritten safe prompt:"},
		},
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (s *Sanitizer) log(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}
