package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"StoryBuilder/internal/domain"
	"StoryBuilder/internal/ports"
)

// voiceTable maps detected language codes to speech-synthesis voices.
// Lookup tries the exact tag first, then the primary subtag.
var voiceTable = map[string]string{
	"en":    "en-US-JennyNeural",
	"en-IN": "en-IN-NeerjaNeural",
	"hi":    "hi-IN-SwaraNeural",
	"bn":    "bn-IN-TanishaaNeural",
	"ta":    "ta-IN-PallaviNeural",
	"te":    "te-IN-ShrutiNeural",
	"mr":    "mr-IN-AarohiNeural",
	"gu":    "gu-IN-DhwaniNeural",
	"kn":    "kn-IN-SapnaNeural",
	"ml":    "ml-IN-SobhanaNeural",
}

// Narrator converts the title and paragraphs to stored audio artifacts.
// Per-slide failures degrade to the placeholder URL; the run never aborts.
type Narrator struct {
	speech       ports.SpeechSynthesizer
	store        ports.ObjectStore
	prefix       string
	placeholder  string
	defaultVoice string
	logger       *slog.Logger
}

// NewNarrator wires the speech and storage capabilities.
func NewNarrator(speech ports.SpeechSynthesizer, store ports.ObjectStore, prefix, placeholder, defaultVoice string, logger *slog.Logger) *Narrator {
	return &Narrator{
		speech:       speech,
		store:        store,
		prefix:       prefix,
		placeholder:  placeholder,
		defaultVoice: defaultVoice,
		logger:       logger,
	}
}

// Run narrates slide 1 (title) and slides 2..6 (paragraphs), storing MP3
// artifacts and recording their display URLs on the record.
func (n *Narrator) Run(ctx context.Context, record *domain.StoryRecord) {
	voice := n.voiceFor(record.LanguageCode)
	slug := record.Slug()

	for slide := 1; slide <= domain.SlideCount; slide++ {
		text := record.Title
		if slide > 1 {
			text = record.Paragraph(slide)
		}
		if strings.TrimSpace(text) == "" {
			record.SetAudio(slide, n.placeholder)
			continue
		}
		record.SetAudio(slide, n.narrate(ctx, slug, slide, text, voice))
	}
}

func (n *Narrator) narrate(ctx context.Context, slug string, slide int, text, voice string) string {
	audio, err := n.speech.Synthesize(ctx, text, voice)
	if err != nil {
		n.log("speech synthesis failed", "slide", slide, "error", err)
		return n.placeholder
	}

	key := fmt.Sprintf("%s/%s/slide%d.mp3", n.prefix, slug, slide)
	if err := n.store.Put(ctx, key, audio, "audio/mpeg"); err != nil {
		n.log("audio store failed", "slide", slide, "error", err)
		return n.placeholder
	}

	return n.store.URL(key)
}

// voiceFor resolves the narration voice from the detected language code.
func (n *Narrator) voiceFor(languageCode string) string {
	if voice, ok := voiceTable[languageCode]; ok {
		return voice
	}
	if primary, _, found := strings.Cut(languageCode, "-"); found {
		if voice, ok := voiceTable[primary]; ok {
			return voice
		}
	}
	return n.defaultVoice
}

func (n *Narrator) log(msg string, args ...any) {
	if n.logger != nil {
		n.logger.Info(msg, args...)
	}
}
