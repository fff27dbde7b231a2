package usecase

import (
	"context"
	"errors"
	"testing"

	"StoryBuilder/internal/domain"
)

// fakeSpeech records requested voices and texts.
type fakeSpeech struct {
	voices []string
	texts  []string
	err    error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	f.texts = append(f.texts, text)
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3"), nil
}

func narrationRecord() domain.StoryRecord {
	record := domain.StoryRecord{Title: "My Story", LanguageCode: "hi"}
	record.Paragraphs = [domain.ParagraphCount]string{"p2", "p3", "p4", "p5", "p6"}
	return record
}

func TestNarratorStoresAudioPerSlide(t *testing.T) {
	t.Parallel()

	speech := &fakeSpeech{}
	store := newMemoryStore()
	n := NewNarrator(speech, store, "media", testPlaceholder, "en-US-JennyNeural", nil)

	record := narrationRecord()
	n.Run(context.Background(), &record)

	if len(record.Audio) != domain.SlideCount {
		t.Fatalf("expected %d audio fields, got %d", domain.SlideCount, len(record.Audio))
	}
	if record.Audio["s1audio1"] != "https://cdn.example.com/media/my-story/slide1.mp3" {
		t.Fatalf("unexpected title audio URL: %s", record.Audio["s1audio1"])
	}
	if speech.texts[0] != "My Story" {
		t.Fatalf("slide 1 should narrate the title, got %q", speech.texts[0])
	}
	if speech.texts[1] != "p2" {
		t.Fatalf("slide 2 should narrate paragraph 2, got %q", speech.texts[1])
	}
	for _, voice := range speech.voices {
		if voice != "hi-IN-SwaraNeural" {
			t.Fatalf("expected hindi voice, got %s", voice)
		}
	}
}

func TestNarratorVoiceLookup(t *testing.T) {
	t.Parallel()

	n := NewNarrator(&fakeSpeech{}, newMemoryStore(), "media", testPlaceholder, "default-voice", nil)

	if got := n.voiceFor("en-IN"); got != "en-IN-NeerjaNeural" {
		t.Fatalf("exact tag lookup failed: %s", got)
	}
	if got := n.voiceFor("ta-LK"); got != "ta-IN-PallaviNeural" {
		t.Fatalf("primary subtag lookup failed: %s", got)
	}
	if got := n.voiceFor(""); got != "default-voice" {
		t.Fatalf("undetected language should use the default voice: %s", got)
	}
	if got := n.voiceFor("xx-YY"); got != "default-voice" {
		t.Fatalf("unknown language should use the default voice: %s", got)
	}
}

func TestNarratorDegradesOnSynthesisFailure(t *testing.T) {
	t.Parallel()

	speech := &fakeSpeech{err: errors.New("speech down")}
	n := NewNarrator(speech, newMemoryStore(), "media", testPlaceholder, "v", nil)

	record := narrationRecord()
	n.Run(context.Background(), &record)

	for name, url := range record.Audio {
		if url != testPlaceholder {
			t.Fatalf("field %s should be the placeholder, got %s", name, url)
		}
	}
}

func TestNarratorSkipsEmptyText(t *testing.T) {
	t.Parallel()

	speech := &fakeSpeech{}
	n := NewNarrator(speech, newMemoryStore(), "media", testPlaceholder, "v", nil)

	record := narrationRecord()
	record.Paragraphs[2] = "   " // slide 4
	n.Run(context.Background(), &record)

	if record.Audio["s4audio1"] != testPlaceholder {
		t.Fatalf("blank paragraph should degrade to placeholder, got %s", record.Audio["s4audio1"])
	}
	if len(speech.texts) != domain.SlideCount-1 {
		t.Fatalf("expected %d synthesis calls, got %d", domain.SlideCount-1, len(speech.texts))
	}
}
