package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"StoryBuilder/internal/ports"
)

// fakeCompletion serves scripted replies/errors in call order and records
// every request it saw.
type fakeCompletion struct {
	replies []string
	errs    []error
	reqs    []ports.CompletionRequest
}

func (f *fakeCompletion) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	i := len(f.reqs) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var reply string
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return reply, err
}

const validExtraction = `{
  "language": "en",
  "storytitle": "Photosynthesis",
  "s2paragraph1": "p2",
  "s3paragraph1": "p3",
  "s4paragraph1": "p4",
  "s5paragraph1": "p5",
  "s6paragraph1": "p6",
  "s1alt1": "a1",
  "s2alt1": "a2",
  "s3alt1": "a3",
  "s4alt1": "a4",
  "s5alt1": "a5",
  "s6alt1": "a6"
}`

func TestExtractParsesDirectJSON(t *testing.T) {
	t.Parallel()

	completion := &fakeCompletion{replies: []string{validExtraction}}
	extractor := NewExtractor(completion, nil)

	record, err := extractor.Extract(context.Background(), []byte("img"), "image/png")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if record.Title != "Photosynthesis" {
		t.Fatalf("unexpected title: %s", record.Title)
	}
	if record.LanguageCode != "en" {
		t.Fatalf("unexpected language: %s", record.LanguageCode)
	}
	if record.Paragraph(4) != "p4" {
		t.Fatalf("unexpected paragraph 4: %s", record.Paragraph(4))
	}
	if record.Prompt(6) != "a6" {
		t.Fatalf("unexpected prompt 6: %s", record.Prompt(6))
	}

	if len(completion.reqs) != 1 {
		t.Fatalf("expected 1 completion call, got %d", len(completion.reqs))
	}
	req := completion.reqs[0]
	if !req.ForceJSON {
		t.Fatalf("extraction should request strict JSON")
	}
	if len(req.UserParts) != 2 {
		t.Fatalf("expected text + image parts, got %d", len(req.UserParts))
	}
	if !strings.HasPrefix(req.UserParts[1].ImageDataURL, "data:image/png;base64,") {
		t.Fatalf("unexpected data URL: %s", req.UserParts[1].ImageDataURL)
	}
}

func TestExtractDefaultsUnknownMimeToJPEG(t *testing.T) {
	t.Parallel()

	completion := &fakeCompletion{replies: []string{validExtraction}}
	extractor := NewExtractor(completion, nil)

	if _, err := extractor.Extract(context.Background(), []byte("img"), "application/pdf"); err != nil {
		t.Fatalf("extract: %v", err)
	}

	url := completion.reqs[0].UserParts[1].ImageDataURL
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data URL: %s", url)
	}
}

func TestExtractParsesProseWrappedJSON(t *testing.T) {
	t.Parallel()

	reply := "Here is the JSON you asked for: " + validExtraction + " Hope that helps!"
	completion := &fakeCompletion{replies: []string{reply}}
	extractor := NewExtractor(completion, nil)

	record, err := extractor.Extract(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Title != "Photosynthesis" {
		t.Fatalf("unexpected title: %s", record.Title)
	}
	if len(completion.reqs) != 1 {
		t.Fatalf("prose-wrapped JSON must not trigger a repair call, got %d calls", len(completion.reqs))
	}
}

func TestExtractRepairsMalformedReply(t *testing.T) {
	t.Parallel()

	completion := &fakeCompletion{replies: []string{"not json at all", validExtraction}}
	extractor := NewExtractor(completion, nil)

	record, err := extractor.Extract(context.Background(), []byte("img"), "image/jpeg")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if record.Title != "Photosynthesis" {
		t.Fatalf("unexpected title: %s", record.Title)
	}
	if len(completion.reqs) != 2 {
		t.Fatalf("expected repair call, got %d calls", len(completion.reqs))
	}
	if !strings.Contains(completion.reqs[1].UserParts[0].Text, "not json at all") {
		t.Fatalf("repair request should carry the malformed text")
	}
}

func TestExtractFailsAfterRepairFailure(t *testing.T) {
	t.Parallel()

	completion := &fakeCompletion{replies: []string{"garbage one", "garbage two"}}
	extractor := NewExtractor(completion, nil)

	_, err := extractor.Extract(context.Background(), []byte("img"), "image/jpeg")

	var failure *ExtractionFailedError
	if !errors.As(err, &failure) {
		t.Fatalf("expected ExtractionFailedError, got %v", err)
	}
	if failure.RawSample != "garbage one" {
		t.Fatalf("unexpected raw sample: %s", failure.RawSample)
	}
}

func TestExtractPropagatesTransportFailure(t *testing.T) {
	t.Parallel()

	completion := &fakeCompletion{errs: []error{errors.New("completion error 500")}}
	extractor := NewExtractor(completion, nil)

	_, err := extractor.Extract(context.Background(), []byte("img"), "image/jpeg")
	if err == nil {
		t.Fatalf("expected error")
	}
	var failure *ExtractionFailedError
	if errors.As(err, &failure) {
		t.Fatalf("transport failure must not be an ExtractionFailedError")
	}
	if len(completion.reqs) != 1 {
		t.Fatalf("transport failure must not trigger repair, got %d calls", len(completion.reqs))
	}
}

func TestExtractRejectsEmptyImage(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(&fakeCompletion{}, nil)
	if _, err := extractor.Extract(context.Background(), nil, "image/jpeg"); err == nil {
		t.Fatalf("expected error for empty image")
	}
}

func TestFirstJSONObjectHonorsStrings(t *testing.T) {
	t.Parallel()

	text := `prefix {"a": "brace } inside", "b": {"c": 1}} suffix {"other": 2}`
	object, ok := firstJSONObject(text)
	if !ok {
		t.Fatalf("expected an object")
	}
	if object != `{"a": "brace } inside", "b": {"c": 1}}` {
		t.Fatalf("unexpected object: %s", object)
	}

	if _, ok := firstJSONObject("no braces here"); ok {
		t.Fatalf("expected no object")
	}
}
