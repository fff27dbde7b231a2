package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"StoryBuilder/internal/domain"
)

// PipelineDeps wires all stage components into the orchestration pipeline.
type PipelineDeps struct {
	Extractor *Extractor
	Images    *ImagePipeline
	Metadata  *MetadataGenerator
	Narrator  *Narrator
	Logger    *slog.Logger
}

// Pipeline implements the notes-to-story workflow: extract, illustrate,
// describe, optionally narrate. Each stage augments the single StoryRecord;
// only extraction can abort the run.
type Pipeline struct {
	extractor *Extractor
	images    *ImagePipeline
	metadata  *MetadataGenerator
	narrator  *Narrator
	logger    *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		extractor: deps.Extractor,
		images:    deps.Images,
		metadata:  deps.Metadata,
		narrator:  deps.Narrator,
		logger:    deps.Logger,
	}
}

// BuildStory runs the full sequential workflow over one notes image.
func (p *Pipeline) BuildStory(ctx context.Context, image []byte, mime string) (domain.StoryRecord, error) {
	if p.extractor == nil {
		return domain.StoryRecord{}, fmt.Errorf("extractor is not configured")
	}

	record, err := p.extractor.Extract(ctx, image, mime)
	if err != nil {
		return domain.StoryRecord{}, fmt.Errorf("extract slides: %w", err)
	}
	p.log("slides extracted", "title", record.Title, "language", record.LanguageCode)

	if p.images != nil {
		p.images.Run(ctx, &record)
		p.log("images produced", "cover", record.CoverURL)
	}

	if p.metadata != nil {
		p.metadata.Generate(ctx, &record)
	}

	if p.narrator != nil {
		p.narrator.Run(ctx, &record)
		p.log("narration produced", "artifacts", len(record.Audio))
	}

	return record, nil
}

func (p *Pipeline) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
