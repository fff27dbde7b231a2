package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// SlideCount is the fixed number of slide positions in every story:
// one title slide plus five paragraph slides.
const SlideCount = 6

// ParagraphCount is the number of body paragraphs (slides 2..6).
const ParagraphCount = 5

// StoryRecord is the single document threaded through every pipeline stage.
// The Extractor creates it; every later stage only adds fields.
type StoryRecord struct {
	Title        string
	LanguageCode string

	// Paragraphs holds body text for slides 2..6 (index 0 -> slide 2).
	Paragraphs [ParagraphCount]string

	// Prompts holds one illustration prompt per slide (index 0 -> slide 1).
	Prompts [SlideCount]string

	// Images holds one display URL per slide; after the image pipeline runs
	// every entry is either a stored-artifact URL or the placeholder.
	Images [SlideCount]string

	// CoverURL is derived from slide 1's stored artifact.
	CoverURL string

	// Audio maps document field names (s1audio1..s6audio1) to display URLs.
	// Populated only when narration runs.
	Audio map[string]string

	SEODescription string
	SEOKeywords    string
}

// Paragraph returns the body text for slide n (2..6).
func (r *StoryRecord) Paragraph(slide int) string {
	if slide < 2 || slide > SlideCount {
		return ""
	}
	return r.Paragraphs[slide-2]
}

// Prompt returns the illustration prompt for slide n (1..6).
func (r *StoryRecord) Prompt(slide int) string {
	if slide < 1 || slide > SlideCount {
		return ""
	}
	return r.Prompts[slide-1]
}

// SetImage records the display URL for slide n (1..6).
func (r *StoryRecord) SetImage(slide int, url string) {
	if slide >= 1 && slide <= SlideCount {
		r.Images[slide-1] = url
	}
}

// Image returns the display URL for slide n (1..6).
func (r *StoryRecord) Image(slide int) string {
	if slide < 1 || slide > SlideCount {
		return ""
	}
	return r.Images[slide-1]
}

// SetAudio records a narration URL under the document field for slide n.
func (r *StoryRecord) SetAudio(slide int, url string) {
	if slide < 1 || slide > SlideCount {
		return
	}
	if r.Audio == nil {
		r.Audio = map[string]string{}
	}
	r.Audio[fmt.Sprintf("s%daudio1", slide)] = url
}

// Slug derives the storage key prefix from the title: lowercased, spaces
// become hyphens, colons and dots are dropped.
func (r *StoryRecord) Slug() string {
	slug := strings.ToLower(r.Title)
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, ":", "")
	slug = strings.ReplaceAll(slug, ".", "")
	return slug
}

// FileName builds the output document name from the title and a timestamp.
func (r *StoryRecord) FileName(ts time.Time) string {
	name := strings.ToLower(r.Title)
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, ":", "")
	return fmt.Sprintf("%s_%s.json", name, ts.Format("20060102_150405"))
}

// FlatMap exposes every populated document field under its stable external
// name, for template filling. Image and cover fields are always present once
// the image pipeline has run; audio and language fields only when set.
func (r *StoryRecord) FlatMap() map[string]string {
	fields := map[string]string{
		"storytitle":      r.Title,
		"potraitcoverurl": r.CoverURL,
		"metadescription": r.SEODescription,
		"metakeywords":    r.SEOKeywords,
	}
	for i := 0; i < ParagraphCount; i++ {
		fields[fmt.Sprintf("s%dparagraph1", i+2)] = r.Paragraphs[i]
	}
	for i := 0; i < SlideCount; i++ {
		fields[fmt.Sprintf("s%dalt1", i+1)] = r.Prompts[i]
		fields[fmt.Sprintf("s%dimage1", i+1)] = r.Images[i]
	}
	if r.LanguageCode != "" {
		fields["language"] = r.LanguageCode
	}
	for name, url := range r.Audio {
		fields[name] = url
	}
	return fields
}

// storyDocument is the external serialization shape. Field names are the
// stable contract consumed by downstream template filling and must not change.
type storyDocument struct {
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
	S1Image1     string `json:"s1image1"`
	S2Image1     string `json:"s2image1"`
	S3Image1     string `json:"s3image1"`
	S4Image1     string `json:"s4image1"`
	S5Image1     string `json:"s5image1"`
	S6Image1     string `json:"s6image1"`
	// potraitcoverurl keeps its historical spelling for compatibility.
	PortraitCoverURL string            `json:"potraitcoverurl"`
	Audio            map[string]string `json:"-"`
	MetaDescription  string            `json:"metadescription"`
	MetaKeywords     string            `json:"metakeywords"`
	Language         string            `json:"language,omitempty"`
}

// MarshalDocument renders the record as the indented UTF-8 JSON artifact.
func (r *StoryRecord) MarshalDocument() ([]byte, error) {
	doc := storyDocument{
		StoryTitle:       r.Title,
		S2Paragraph1:     r.Paragraphs[0],
		S3Paragraph1:     r.Paragraphs[1],
		S4Paragraph1:     r.Paragraphs[2],
		S5Paragraph1:     r.Paragraphs[3],
		S6Paragraph1:     r.Paragraphs[4],
		S1Alt1:           r.Prompts[0],
		S2Alt1:           r.Prompts[1],
		S3Alt1:           r.Prompts[2],
		S4Alt1:           r.Prompts[3],
		S5Alt1:           r.Prompts[4],
		S6Alt1:           r.Prompts[5],
		S1Image1:         r.Images[0],
		S2Image1:         r.Images[1],
		S3Image1:         r.Images[2],
		S4Image1:         r.Images[3],
		S5Image1:         r.Images[4],
		S6Image1:         r.Images[5],
		PortraitCoverURL: r.CoverURL,
		MetaDescription:  r.SEODescription,
		MetaKeywords:     r.SEOKeywords,
		Language:         r.LanguageCode,
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal story document: %w", err)
	}

	if len(r.Audio) == 0 {
		return raw, nil
	}

	// Audio fields are dynamic; splice them into the object rather than
	// widening the fixed struct.
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("reshape story document: %w", err)
	}
	for name, url := range r.Audio {
		generic[name] = url
	}

	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal story document with audio: %w", err)
	}
	return out, nil
}

// DegradedSlides counts slide image fields that ended up as the placeholder.
func (r *StoryRecord) DegradedSlides(placeholder string) int {
	count := 0
	for _, url := range r.Images {
		if url == placeholder {
			count++
		}
	}
	return count
}
