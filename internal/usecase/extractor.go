package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"StoryBuilder/internal/domain"
	"StoryBuilder/internal/ports"
)

const extractionSystemPrompt = `You are a teaching assistant. The student has uploaded a notes image.

Your job:
1) Detect the language of the notes and return its BCP-47 code -> language
2) Extract a short and catchy title -> storytitle
3) Summarise the whole content into 5 slides (s2paragraph1..s6paragraph1), each <= 400 characters.
4) For each paragraph (including the title), write an image-generation prompt (s1alt1..s6alt1) for a 1024x1024 flat vector illustration: bright colors, clean lines, no text/captions/logos.

SAFETY & POSITIVITY RULES (MANDATORY):
- If the source includes hate, harassment, violence, adult content, self-harm, illegal acts, or extremist symbols, DO NOT reproduce them.
- Reinterpret into a positive, inclusive, family-friendly, educational scene (unity, learning, empathy, community, peace).
- Replace any hateful/violent symbol with abstract shapes, nature, or neutral motifs.
- Never include real people's likeness or sensitive groups in a negative way.
- Avoid slogans, gestures, flags, trademarks, or captions. Absolutely NO TEXT in the image.

Respond strictly in this JSON format:
{
  "language": "...",
  "storytitle": "...",
  "s2paragraph1": "...",
  "s3paragraph1": "...",
  "s4paragraph1": "...",
  "s5paragraph1": "...",
  "s6paragraph1": "...",
  "s1alt1": "...",
  "s2alt1": "...",
  "s3alt1": "...",
  "s4alt1": "...",
  "s5alt1": "...",
  "s6alt1": "..."
}`

const repairSystemPrompt = `You receive malformed output that was supposed to be a single JSON object with the keys: language, storytitle, s2paragraph1..s6paragraph1, s1alt1..s6alt1. Return ONLY the corrected JSON object, nothing else.`

const rawSampleLimit = 500

// ExtractionFailedError is the only hard stop in the pipeline: without a
// parsed record there is nothing to continue with.
type ExtractionFailedError struct {
	RawSample string
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extraction produced no parseable JSON; reply sample: %s", e.RawSample)
}

// Extractor turns one notes image into a populated StoryRecord via a single
// vision completion call plus a one-shot JSON repair fallback.
type Extractor struct {
	completion ports.CompletionClient
	logger     *slog.Logger
}

// NewExtractor wires the completion capability.
func NewExtractor(completion ports.CompletionClient, logger *slog.Logger) *Extractor {
	return &Extractor{completion: completion, logger: logger}
}

// extractionReply mirrors the model's JSON schema; missing keys decode to
// empty strings so every slide slot always exists.
type extractionReply struct {
	Language     string `json:"language"`
	StoryTitle   string `json:"storytitle"`
	S2Paragraph1 string `json:"s2paragraph1"`
	S3Paragraph1 string `json:"s3paragraph1"`
	S4Paragraph1 string `json:"s4paragraph1"`
	S5Paragraph1 string `json:"s5paragraph1"`
	S6Paragraph1 string `json:"s6paragraph1"`
	S1Alt1       string `json:"s1alt1"`
	S2Alt1       string `json:"s2alt1"`
	S3Alt1       string `json:"s3alt1"`
	S4Alt1       string `json:"s4alt1"`
	S5Alt1       string `json:"s5alt1"`
	S6Alt1       string `json:"s6alt1"`
}

// Extract runs the completion call and parses its reply into a StoryRecord.
// Transport or status errors are fatal; a malformed reply gets one repair
// attempt before the typed failure is returned.
func (e *Extractor) Extract(ctx context.Context, image []byte, mime string) (domain.StoryRecord, error) {
	if len(image) == 0 {
		return domain.StoryRecord{}, fmt.Errorf("source image is empty")
	}

	reply, err := e.completion.Complete(ctx, ports.CompletionRequest{
		System: extractionSystemPrompt,
		UserParts: []ports.MessagePart{
			{Text: "Please analyze this notes image and return the structured JSON as requested."},
			{ImageDataURL: dataURL(image, mime)},
		},
		Temperature: 0.7,
		MaxTokens:   1000,
		ForceJSON:   true,
	})
	if err != nil {
		return domain.StoryRecord{}, fmt.Errorf("extraction completion: %w", err)
	}

	var parsed extractionReply
	if err := decodeLoose(reply, &parsed); err != nil {
		e.log("direct parse of extraction reply failed, attempting repair", "error", err)
		parsed, err = e.repair(ctx, reply)
		if err != nil {
			return domain.StoryRecord{}, &ExtractionFailedError{RawSample: sample(reply)}
		}
	}

	return parsed.toRecord(), nil
}

// repair asks the model to fix its own malformed output once.
func (e *Extractor) repair(ctx context.Context, malformed string) (extractionReply, error) {
	reply, err := e.completion.Complete(ctx, ports.CompletionRequest{
		System: repairSystemPrompt,
		UserParts: []ports.MessagePart{
			{Text: "Malformed output:\n" + malformed},
		},
		Temperature: 0,
		MaxTokens:   1000,
		ForceJSON:   true,
	})
	if err != nil {
		return extractionReply{}, fmt.Errorf("repair completion: %w", err)
	}

	var parsed extractionReply
	if err := decodeLoose(reply, &parsed); err != nil {
		return extractionReply{}, fmt.Errorf("repair reply: %w", err)
	}
	return parsed, nil
}

func (r extractionReply) toRecord() domain.StoryRecord {
	return domain.StoryRecord{
		Title:        r.StoryTitle,
		LanguageCode: r.Language,
		Paragraphs: [domain.ParagraphCount]string{
			r.S2Paragraph1, r.S3Paragraph1, r.S4Paragraph1, r.S5Paragraph1, r.S6Paragraph1,
		},
		Prompts: [domain.SlideCount]string{
			r.S1Alt1, r.S2Alt1, r.S3Alt1, r.S4Alt1, r.S5Alt1, r.S6Alt1,
		},
	}
}

// dataURL inlines the image bytes; unknown or non-image MIME types default
// to image/jpeg.
func dataURL(image []byte, mime string) string {
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func sample(reply string) string {
	if len(reply) > rawSampleLimit {
		return reply[:rawSampleLimit]
	}
	return reply
}

func (e *Extractor) log(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
