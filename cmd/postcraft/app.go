package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/config"
	"github.com/jonathan/postcraft/internal/content"
	"github.com/jonathan/postcraft/internal/db"
	"github.com/jonathan/postcraft/internal/fetch"
	"github.com/jonathan/postcraft/internal/ingestion"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/observability"
	"github.com/jonathan/postcraft/internal/pipeline"
	"github.com/jonathan/postcraft/internal/storage"
	"github.com/jonathan/postcraft/internal/visual"
)

// browserTimeout bounds one headless render of a script-heavy page.
const browserTimeout = 45 * time.Second

// loadConfig merges, in increasing precedence, the built-in defaults, the config file
// at path (if any) and the environment. Callers apply flag overrides and then Validate.
func loadConfig(path string, getenv func(string) string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return cfg, err
	}
	return cfg.MergeWithDefaults(config.Defaults()), nil
}

// inputFlags are the business material flags shared by generate and analyze.
type inputFlags struct {
	text  string
	urls  []string
	files []string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "Free-text business description")
	cmd.Flags().StringArrayVar(&f.urls, "url", nil, "Business website or product page (repeatable)")
	cmd.Flags().StringArrayVar(&f.files, "file", nil, "Document or image describing the business (repeatable)")
}

func (f *inputFlags) inputs() (business.Inputs, error) {
	in := business.Inputs{URLs: f.urls, Text: f.text}
	for _, path := range f.files {
		file, err := ingestion.LoadFile(path)
		if err != nil {
			return in, err
		}
		in.Files = append(in.Files, file)
	}
	if in.Empty() {
		return in, fmt.Errorf("provide at least one of --text, --url or --file")
	}
	return in, nil
}

// app holds the wired components for one command invocation.
type app struct {
	cfg          config.Config
	logger       *logrus.Logger
	registry     *prometheus.Registry
	service      *llm.Service
	builder      *business.Builder
	orchestrator *pipeline.Orchestrator
	database     *db.DB
	closers      []func()
}

// newApp wires every component from cfg. Missing credentials leave the matching
// provider unset so the stages fall back instead of failing.
func newApp(ctx context.Context, cfg config.Config, out io.Writer) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logging.NewLogger(cfg.LogLevel, cfg.LogFormat),
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	providers, err := a.providers(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.service = llm.NewService(providers, llm.ServiceConfig{
		TextTimeout:       cfg.TextTimeout(),
		ImageTimeout:      cfg.ImageTimeout(),
		VideoTimeout:      cfg.VideoTimeout(),
		MaxRetries:        cfg.MaxRetries,
		MaxConcurrent:     cfg.MaxConcurrentCalls,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.MaxConcurrentCalls,
	}, llm.WithLogger(a.logger), llm.WithMetrics(llm.NewMetrics(a.registry)))

	store, err := a.store(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.builder = business.NewBuilder(a.service, a.fetcher(), business.DefaultConfig(), a.logger)
	text := content.NewGenerator(a.service, content.Config{MaxPostsPerBatch: cfg.MaxPostsPerBatch}, a.logger)
	visuals := visual.NewGenerator(visual.Providers{
		Image: a.service,
		Video: a.service,
		Text:  a.service,
	}, store, visual.Config{
		Concurrency:          cfg.VisualConcurrency,
		MaxVisualsPerRequest: cfg.MaxVisualsPerRequest,
		VideoDurationSeconds: cfg.VideoDurationSeconds,
		RefinePrompts:        cfg.RefinePrompts,
	}, a.logger)

	opts := []pipeline.Option{pipeline.WithLogger(a.logger)}
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.database = database
		a.closers = append(a.closers, database.Close)
		if err := database.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithSink(database))
	}
	if cfg.Verbose {
		opts = append(opts, pipeline.WithPrinter(observability.NewPrinter(out)))
	}
	a.orchestrator = pipeline.New(a.builder, text, visuals, opts...)

	a.logger.WithFields(logging.Fields{
		"text":    a.service.Available(llm.ClassText),
		"image":   a.service.Available(llm.ClassImage),
		"video":   a.service.Available(llm.ClassVideo),
		"persist": a.database != nil,
	}).Debug("pipeline wired")
	return a, nil
}

func (a *app) providers(ctx context.Context) (llm.Providers, error) {
	var providers llm.Providers
	cfg := a.cfg

	if cfg.GeminiAPIKey != "" {
		llmCfg := llm.DefaultConfig()
		if cfg.TextModel != "" {
			llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.TextModel)
		}
		client, err := llm.NewGeminiClient(ctx, llmCfg, cfg.GeminiAPIKey)
		if err != nil {
			return providers, fmt.Errorf("failed to create text client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		providers.Text = client
	} else {
		a.logger.Warn("GEMINI_API_KEY not set, text stages will use deterministic fallbacks")
	}

	image, err := llm.NewOpenRouterImageClient(cfg.OpenRouterURL, cfg.OpenRouterAPIKey, cfg.ImageModel)
	switch {
	case err == nil:
		providers.Image = image
	case errors.Is(err, llm.ErrServiceUnavailable):
		a.logger.Debug("image provider not configured")
	default:
		return providers, fmt.Errorf("failed to create image client: %w", err)
	}

	video, err := llm.NewHTTPVideoClient(cfg.VideoAPIURL, cfg.VideoAPIKey, cfg.VideoModel)
	switch {
	case err == nil:
		providers.Video = video
	case errors.Is(err, llm.ErrServiceUnavailable):
		a.logger.Debug("video provider not configured")
	default:
		return providers, fmt.Errorf("failed to create video client: %w", err)
	}

	return providers, nil
}

func (a *app) fetcher() fetch.Fetcher {
	var renderer fetch.Renderer
	if a.cfg.UseBrowser {
		renderer = fetch.ChromeRenderer(browserTimeout, a.logger)
	}
	page := fetch.NewPageFetcher(fetch.DefaultOptions(), renderer, a.logger)
	if a.cfg.RedisAddr == "" {
		return page
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	return fetch.NewCachedFetcher(page, rdb, nil, a.logger)
}

func (a *app) store(ctx context.Context) (storage.Store, error) {
	if a.cfg.S3Bucket != "" {
		return storage.NewS3Store(ctx, storage.S3Config{
			Bucket:        a.cfg.S3Bucket,
			Prefix:        a.cfg.S3Prefix,
			Region:        a.cfg.AWSRegion,
			Endpoint:      a.cfg.AWSEndpointURL,
			PublicBaseURL: a.cfg.S3PublicBaseURL,
		}, a.logger)
	}
	return storage.NewLocalStore(a.cfg.AssetDir, a.cfg.AssetBaseURL)
}

// Close releases clients and connections in reverse order of creation.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
