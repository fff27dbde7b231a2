package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"StoryBuilder/internal/domain"
	"StoryBuilder/internal/ports"
)

// Defaults returned whenever SEO generation fails in any way.
const (
	DefaultSEODescription = "Explore this insightful story."
	DefaultSEOKeywords    = "web story, inspiration"
)

// MetadataGenerator asks the completion capability for a two-field SEO
// summary. Its output is always populated, falling back to fixed defaults.
type MetadataGenerator struct {
	completion ports.CompletionClient
	logger     *slog.Logger
}

// NewMetadataGenerator wires the completion capability.
func NewMetadataGenerator(completion ports.CompletionClient, logger *slog.Logger) *MetadataGenerator {
	return &MetadataGenerator{completion: completion, logger: logger}
}

// Generate fills SEODescription and SEOKeywords on the record. Failures are
// contained: the record always ends up with non-empty metadata.
func (g *MetadataGenerator) Generate(ctx context.Context, record *domain.StoryRecord) {
	description, keywords := g.generate(ctx, record)
	record.SEODescription = description
	record.SEOKeywords = keywords
}

func (g *MetadataGenerator) generate(ctx context.Context, record *domain.StoryRecord) (string, string) {
	reply, err := g.completion.Complete(ctx, ports.CompletionRequest{
		System: "You are an expert SEO assistant.",
		UserParts: []ports.MessagePart{
			{Text: seoPrompt(record)},
		},
		Temperature: 0.5,
		MaxTokens:   300,
		ForceJSON:   true,
	})
	if err != nil {
		g.log("seo completion failed, using defaults", "error", err)
		return DefaultSEODescription, DefaultSEOKeywords
	}

	var parsed struct {
		MetaDescription string `json:"metadescription"`
		MetaKeywords    string `json:"metakeywords"`
	}
	if err := decodeLoose(reply, &parsed); err != nil {
		g.log("seo reply unparseable, using defaults", "error", err)
		return DefaultSEODescription, DefaultSEOKeywords
	}

	if parsed.MetaDescription == "" {
		parsed.MetaDescription = DefaultSEODescription
	}
	if parsed.MetaKeywords == "" {
		parsed.MetaKeywords = DefaultSEOKeywords
	}
	return parsed.MetaDescription, parsed.MetaKeywords
}

func seoPrompt(record *domain.StoryRecord) string {
	var b strings.Builder
	b.WriteString("Generate SEO metadata for a web story with the following title and slide summaries.\n\n")
	fmt.Fprintf(&b, "Title: %s\nSlides:\n", record.Title)
	for i := 0; i < domain.ParagraphCount; i++ {
		fmt.Fprintf(&b, "- %s\n", record.Paragraphs[i])
	}
	if record.LanguageCode != "" {
		fmt.Fprintf(&b, "\nAnswer in the language with code %q.\n", record.LanguageCode)
	}
	b.WriteString("\nRespond strictly in this JSON format:\n{\n  \"metadescription\": \"...\",\n  \"metakeywords\": \"keyword1, keyword2, ...\"\n}\n")
	return b.String()
}

func (g *MetadataGenerator) log(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Info(msg, args...)
	}
}
