package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"StoryBuilder/internal/config"
	"StoryBuilder/internal/domain"
	"StoryBuilder/internal/infrastructure/fetch"
	"StoryBuilder/internal/infrastructure/imagegen"
	"StoryBuilder/internal/infrastructure/llm"
	"StoryBuilder/internal/infrastructure/moderation"
	"StoryBuilder/internal/infrastructure/speech"
	"StoryBuilder/internal/infrastructure/storage"
	"StoryBuilder/internal/infrastructure/telegram"
	"StoryBuilder/internal/infrastructure/watch"
	"StoryBuilder/internal/logging"
	"StoryBuilder/internal/ports"
	"StoryBuilder/internal/source"
	"StoryBuilder/internal/template"
	"StoryBuilder/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	src      ports.NotesSource
	pipeline *usecase.Pipeline
	repo     ports.StoryRepository
	notifier ports.Notifier
}

// New builds a runnable application instance. Completion, image synthesis,
// and object storage are required; moderation, narration, run history, and
// notification wire in only when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	completion := llm.NewAzureChatClient(cfg.Completion)

	var moderator ports.Moderator
	if cfg.Moderation.Enabled() {
		moderator = moderation.NewContentSafetyClient(cfg.Moderation)
	}

	store, err := storage.NewS3Store(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}

	sanitizer := usecase.NewSanitizer(
		moderator,
		completion,
		cfg.Moderation.SeverityThreshold,
		baseLogger.With("component", "sanitizer"),
	)

	images := usecase.NewImagePipeline(
		sanitizer,
		imagegen.NewDalleClient(cfg.ImageGen),
		fetch.NewArtifactFetcher(nil),
		store,
		cfg.Storage.Prefix,
		cfg.Storage.PlaceholderURL,
		cfg.ImageGen.Backoff,
		baseLogger.With("component", "images"),
	)

	var narrator *usecase.Narrator
	if cfg.Speech.Enabled() {
		narrator = usecase.NewNarrator(
			speech.NewAzureTTSClient(cfg.Speech),
			store,
			cfg.Storage.Prefix,
			cfg.Storage.PlaceholderURL,
			cfg.Speech.DefaultVoice,
			baseLogger.With("component", "narrator"),
		)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Extractor: usecase.NewExtractor(completion, baseLogger.With("component", "extractor")),
		Images:    images,
		Metadata:  usecase.NewMetadataGenerator(completion, baseLogger.With("component", "metadata")),
		Narrator:  narrator,
		Logger:    baseLogger.With("component", "pipeline"),
	})

	var repo ports.StoryRepository
	if cfg.Database.DSN != "" {
		db, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("init run history: %w", err)
		}
		repo = storage.NewPostgresRepository(db)
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	registry := source.NewRegistry()
	registry.Register(fetch.NewFileFetcher())
	registry.Register(fetch.NewHTTPFetcher(nil))

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		src:      fetch.NewRegistrySource(registry, baseLogger.With("component", "source")),
		pipeline: pipeline,
		repo:     repo,
		notifier: notifier,
	}, nil
}

// Run executes one pipeline run for the configured input, or enters watch
// mode over the inbox directory when one is configured.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Watch.InboxDir != "" {
		return a.runWatch(ctx)
	}

	if a.cfg.Input.Ref == "" {
		return fmt.Errorf("no input: set input.ref or pass an image path")
	}
	return a.ProcessOne(ctx, a.cfg.Input.Ref)
}

func (a *Application) runWatch(ctx context.Context) error {
	watcher := watch.NewInboxWatcher(a.cfg.Watch.InboxDir, a.cfg.Watch.Interval)
	batch := usecase.NewBatch(watcher, func(jobCtx context.Context, ref string) {
		if err := a.ProcessOne(jobCtx, ref); err != nil {
			a.logger.Error("run failed", "ref", ref, "error", err)
		}
	})

	if err := batch.Start(ctx); err != nil {
		return fmt.Errorf("start inbox watcher: %w", err)
	}
	a.logger.Info("watching inbox", "dir", a.cfg.Watch.InboxDir, "interval", a.cfg.Watch.Interval)

	<-ctx.Done()
	return batch.Stop(context.Background())
}

// ProcessOne drives the full workflow for a single notes image reference and
// performs the terminal actions: document write, template fill, run history,
// notification.
func (a *Application) ProcessOne(ctx context.Context, ref string) error {
	image, mime, err := a.src.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch notes image: %w", err)
	}

	record, err := a.pipeline.BuildStory(ctx, image, mime)
	if err != nil {
		return err
	}

	docPath, err := a.writeDocument(&record)
	if err != nil {
		return err
	}
	a.logger.Info("story document written", "path", docPath)

	if a.cfg.Output.TemplatesDir != "" {
		a.fillTemplates(&record)
	}

	degraded := record.DegradedSlides(a.cfg.Storage.PlaceholderURL)

	if a.repo != nil {
		doc, err := record.MarshalDocument()
		if err == nil {
			exists, _ := a.repo.AlreadyBuilt(ctx, record.Slug())
			if exists {
				a.logger.Info("updating existing run", "slug", record.Slug())
			}
			if err := a.repo.SaveRun(ctx, ports.StoryRun{
				Slug:           record.Slug(),
				Title:          record.Title,
				LanguageCode:   record.LanguageCode,
				Document:       doc,
				DegradedSlides: degraded,
			}); err != nil {
				a.logger.Warn("persist run failed", "error", err)
			}
		}
	}

	if a.notifier != nil {
		if err := a.notifier.PublishStory(ctx, record, degraded); err != nil {
			a.logger.Warn("notify failed", "error", err)
		}
	}

	return nil
}

func (a *Application) writeDocument(record *domain.StoryRecord) (string, error) {
	doc, err := record.MarshalDocument()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(a.cfg.Output.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(a.cfg.Output.Dir, record.FileName(time.Now()))
	if err := os.WriteFile(path, doc, 0o644); err != nil {
		return "", fmt.Errorf("write story document: %w", err)
	}
	return path, nil
}

// fillTemplates substitutes record fields into every template in the
// configured directory. Missing fields are reported, never fatal.
func (a *Application) fillTemplates(record *domain.StoryRecord) {
	entries, err := os.ReadDir(a.cfg.Output.TemplatesDir)
	if err != nil {
		a.logger.Warn("read templates dir failed", "error", err)
		return
	}

	values := record.FlatMap()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch filepath.Ext(entry.Name()) {
		case ".html", ".txt":
		default:
			continue
		}

		raw, err := os.ReadFile(filepath.Join(a.cfg.Output.TemplatesDir, entry.Name()))
		if err != nil {
			a.logger.Warn("read template failed", "template", entry.Name(), "error", err)
			continue
		}

		filled, missing := template.Fill(values, string(raw))
		if len(missing) > 0 {
			a.logger.Warn("template has unmatched fields", "template", entry.Name(), "missing", missing)
		}

		out := filepath.Join(a.cfg.Output.Dir, "filled_"+entry.Name())
		if err := os.WriteFile(out, []byte(filled), 0o644); err != nil {
			a.logger.Warn("write filled template failed", "template", entry.Name(), "error", err)
			continue
		}
		a.logger.Info("template filled", "path", out)
	}
}
