// Package business builds the structured business context that grounds every generated post.
package business

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/postcraft/internal/fetch"
	"github.com/jonathan/postcraft/internal/ingestion"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/prompts"
	"github.com/jonathan/postcraft/internal/types"
)

// Stage is the stage label attached to generative calls made while building a context.
const Stage = types.StageContext

// Inputs is the raw material supplied by the caller. At least one channel must be set.
type Inputs struct {
	URLs  []string
	Files []ingestion.File
	Text  string
}

// Empty reports whether no input channel carries anything.
func (in Inputs) Empty() bool {
	if strings.TrimSpace(in.Text) != "" {
		return false
	}
	for _, u := range in.URLs {
		if strings.TrimSpace(u) != "" {
			return false
		}
	}
	return len(in.Files) == 0
}

// Config bounds how much material is collected.
type Config struct {
	MaxCharsPerURL    int
	MaxCharsPerFile   int
	MaxTotalChars     int
	SourceConcurrency int
}

// DefaultConfig returns the default collection limits.
func DefaultConfig() Config {
	return Config{
		MaxCharsPerURL:    8000,
		MaxCharsPerFile:   8000,
		MaxTotalChars:     40000,
		SourceConcurrency: 4,
	}
}

// Builder turns Inputs into a BusinessContext.
type Builder struct {
	gen     llm.TextProvider
	fetcher fetch.Fetcher
	cfg     Config
	logger  *logrus.Logger
}

// NewBuilder creates a Builder. fetcher may be nil when no URLs will be supplied.
func NewBuilder(gen llm.TextProvider, fetcher fetch.Fetcher, cfg Config, logger *logrus.Logger) *Builder {
	def := DefaultConfig()
	if cfg.MaxCharsPerURL <= 0 {
		cfg.MaxCharsPerURL = def.MaxCharsPerURL
	}
	if cfg.MaxCharsPerFile <= 0 {
		cfg.MaxCharsPerFile = def.MaxCharsPerFile
	}
	if cfg.MaxTotalChars <= 0 {
		cfg.MaxTotalChars = def.MaxTotalChars
	}
	if cfg.SourceConcurrency <= 0 {
		cfg.SourceConcurrency = def.SourceConcurrency
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{gen: gen, fetcher: fetcher, cfg: cfg, logger: logger}
}

// material is the text collected from one source.
type material struct {
	source types.Source
	title  string
	text   string
}

// Build collects material from every input channel and analyzes it into a context.
// It returns ErrInsufficientInput when no channel yields usable material, and
// ctx.Err() once ctx is done. Service failures during analysis degrade to a
// deterministic context instead of failing.
func (b *Builder) Build(ctx context.Context, in Inputs) (*types.BusinessContext, error) {
	if in.Empty() {
		return nil, ErrInsufficientInput
	}

	collected := b.collect(ctx, in)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if text := ingestion.CleanText(in.Text); text != "" {
		collected = append(collected, material{
			source: types.Source{Kind: types.SourceText, Ref: "description", Chars: len(text)},
			text:   text,
		})
	}
	if len(collected) == 0 {
		return nil, ErrInsufficientInput
	}

	corpus := b.compose(collected)
	sources := make([]types.Source, 0, len(collected))
	titles := []string{}
	websiteURL := ""
	for _, m := range collected {
		sources = append(sources, m.source)
		if m.title != "" {
			titles = append(titles, m.title)
		}
		if websiteURL == "" && m.source.Kind == types.SourceURL {
			websiteURL = m.source.Ref
		}
	}

	bc, err := b.analyze(ctx, corpus)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		b.logger.WithFields(logging.Fields{
			"stage":   Stage,
			"sources": len(sources),
		}).WithError(err).Warn("business analysis failed, using deterministic context")
		bc = Fallback(rawText(collected, b.cfg.MaxTotalChars), sources, titles)
	}

	bc.Sources = sources
	if bc.WebsiteURL == "" || fetch.ValidateURL(bc.WebsiteURL) != nil {
		bc.WebsiteURL = websiteURL
	}

	b.logger.WithFields(logging.Fields{
		"stage":      Stage,
		"company":    bc.CompanyName,
		"sources":    len(sources),
		"fallback":   bc.Fallback,
		"confidence": bc.ConfidenceScore,
	}).Info("business context built")
	return bc, nil
}

// collect reads every URL and file concurrently. Failed sources are logged and skipped;
// the returned slice keeps input order.
func (b *Builder) collect(ctx context.Context, in Inputs) []material {
	urls := make([]string, 0, len(in.URLs))
	for _, u := range in.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}

	slots := make([]*material, len(urls)+len(in.Files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.SourceConcurrency)

	for i, u := range urls {
		g.Go(func() error {
			m, err := b.readURL(gctx, u)
			if err != nil {
				b.logger.WithField("url", u).WithError(err).Warn("skipping URL source")
				return nil
			}
			slots[i] = m
			return nil
		})
	}
	for j, f := range in.Files {
		g.Go(func() error {
			m, err := b.readFile(gctx, f)
			if err != nil {
				b.logger.WithField("file", f.Name).WithError(err).Warn("skipping file source")
				return nil
			}
			slots[len(urls)+j] = m
			return nil
		})
	}
	_ = g.Wait()

	out := make([]material, 0, len(slots))
	for _, m := range slots {
		if m != nil {
			out = append(out, *m)
		}
	}
	return out
}

func (b *Builder) readURL(ctx context.Context, u string) (*material, error) {
	if b.fetcher == nil {
		return nil, errors.New("no fetcher configured")
	}
	text, meta, err := ingestion.IngestFromURL(ctx, b.fetcher, u, b.cfg.MaxCharsPerURL)
	if err != nil {
		return nil, err
	}
	return &material{
		source: types.Source{Kind: types.SourceURL, Ref: u, Chars: meta.Chars},
		title:  meta.Title,
		text:   text,
	}, nil
}

func (b *Builder) readFile(ctx context.Context, f ingestion.File) (*material, error) {
	switch kind := ingestion.Classify(f); kind {
	case ingestion.FileText, ingestion.FileHTML:
		text, meta, err := ingestion.ReadTextFile(f, b.cfg.MaxCharsPerFile)
		if err != nil {
			return nil, err
		}
		return &material{
			source: types.Source{Kind: types.SourceFile, Ref: f.Name, Chars: meta.Chars},
			text:   text,
		}, nil
	case ingestion.FileImage, ingestion.FilePDF:
		return b.describeFile(ctx, f, kind)
	default:
		return nil, fmt.Errorf("unsupported file type %s", ingestion.DetectMIMEType(f))
	}
}

// describeFile asks the multimodal model what an image or document shows.
func (b *Builder) describeFile(ctx context.Context, f ingestion.File, kind ingestion.FileKind) (*material, error) {
	if b.gen == nil {
		return nil, llm.ErrServiceUnavailable
	}
	if len(f.Data) > ingestion.MaxFileBytes {
		return nil, fmt.Errorf("file %s exceeds %d bytes", f.Name, ingestion.MaxFileBytes)
	}

	label := "image"
	if kind == ingestion.FilePDF {
		label = "document"
	}
	prompt, err := prompts.Render(prompts.ContextFile, "describe-attachment", map[string]string{
		"Kind": label,
		"Name": f.Name,
	})
	if err != nil {
		return nil, err
	}

	description, err := b.gen.GenerateText(ctx, prompt, llm.TextOptions{
		Stage: Stage,
		Tier:  llm.TierLite,
		Attachments: []llm.Attachment{{
			Name:     f.Name,
			MIMEType: ingestion.DetectMIMEType(f),
			Data:     f.Data,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", f.Name, err)
	}

	text := ingestion.CleanText(description)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ingestion.ErrEmptyContent, f.Name)
	}
	text, _ = ingestion.Truncate(text, b.cfg.MaxCharsPerFile)
	return &material{
		source: types.Source{Kind: types.SourceFile, Ref: f.Name, Chars: len(text)},
		text:   text,
	}, nil
}

// compose joins collected material under source headers and bounds the total size.
func (b *Builder) compose(collected []material) string {
	var sb strings.Builder
	for _, m := range collected {
		header := prompts.Format(prompts.MustGet(prompts.ContextFile, "source-header"), map[string]string{
			"Kind": string(m.source.Kind),
			"Ref":  m.source.Ref,
		})
		sb.WriteString(header)
		sb.WriteString("\n")
		if m.title != "" {
			sb.WriteString("Title: ")
			sb.WriteString(m.title)
			sb.WriteString("\n")
		}
		sb.WriteString(m.text)
		sb.WriteString("\n\n")
	}
	corpus, _ := ingestion.Truncate(strings.TrimSpace(sb.String()), b.cfg.MaxTotalChars)
	return corpus
}

// rawText joins collected material without source headers, for the heuristic fallback.
func rawText(collected []material, limit int) string {
	parts := make([]string, 0, len(collected))
	for _, m := range collected {
		parts = append(parts, m.text)
	}
	text, _ := ingestion.Truncate(strings.Join(parts, "\n\n"), limit)
	return text
}

// analyze runs the structured analysis call. A response that fails to parse is retried
// once with a stricter prompt; any other failure is returned for the caller to degrade.
func (b *Builder) analyze(ctx context.Context, corpus string) (*types.BusinessContext, error) {
	if b.gen == nil {
		return nil, llm.ErrServiceUnavailable
	}

	input := prompts.MustGet(prompts.ContextFile, "analysis-preamble") + "\n\n" + corpus
	schema := llm.BusinessContextSchema()

	var lastErr error
	for _, strict := range []bool{false, true} {
		response, err := b.gen.GenerateText(ctx, llm.BuildExtractionPrompt(schema, input, strict), llm.TextOptions{
			Stage: Stage,
			Tier:  llm.TierStandard,
			JSON:  true,
		})
		if err != nil {
			return nil, err
		}

		bc, err := parseContext(response)
		if err == nil {
			return bc, nil
		}
		lastErr = err

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			return nil, err
		}
		b.logger.WithField("strict", strict).WithError(err).Debug("analysis response rejected")
	}
	return nil, lastErr
}
