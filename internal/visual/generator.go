// Package visual generates the images and videos paired with draft posts.
package visual

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/prompts"
	"github.com/jonathan/postcraft/internal/storage"
	"github.com/jonathan/postcraft/internal/types"
)

// Defaults
const (
	DefaultConcurrency          = 3
	DefaultMaxVisualsPerRequest = 10
	DefaultVideoDurationSeconds = 8
)

// Config bounds visual generation.
type Config struct {
	Concurrency          int
	MaxVisualsPerRequest int
	VideoDurationSeconds int
	RefinePrompts        bool
}

// Options carries per-request settings.
type Options struct {
	MediaStyle string
	Platforms  []string
	// KeyPrefix namespaces stored assets, typically the run ID.
	KeyPrefix string
}

// Providers are the backends the generator calls. Text is only used for prompt refinement.
type Providers struct {
	Image llm.ImageProvider
	Video llm.VideoProvider
	Text  llm.TextProvider
}

// Report counts per-post outcomes of one Generate call.
type Report struct {
	Eligible  int
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled int
}

// Generator attaches visuals to posts with bounded parallelism.
type Generator struct {
	providers Providers
	store     storage.Store
	cfg       Config
	logger    *logrus.Logger
}

// NewGenerator creates a Generator.
func NewGenerator(providers Providers, store storage.Store, cfg Config, logger *logrus.Logger) *Generator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.MaxVisualsPerRequest <= 0 {
		cfg.MaxVisualsPerRequest = DefaultMaxVisualsPerRequest
	}
	if cfg.VideoDurationSeconds <= 0 {
		cfg.VideoDurationSeconds = DefaultVideoDurationSeconds
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{providers: providers, store: store, cfg: cfg, logger: logger}
}

// Generate attaches a visual to every text_image and text_video post that has no
// error. Each post succeeds or fails on its own: a failure sets only that post's
// Error and never touches its text. Posts past the per-request budget, and posts
// not started before ctx is cancelled, are marked failed as well.
func (g *Generator) Generate(ctx context.Context, posts []*types.DraftPost, bc *types.BusinessContext, opts Options) Report {
	var report Report
	eligible := make([]*types.DraftPost, 0, len(posts))
	for _, p := range posts {
		if p != nil && p.PostType.NeedsVisual() && p.Error == "" {
			eligible = append(eligible, p)
		}
	}
	report.Eligible = len(eligible)

	var eg errgroup.Group
	eg.SetLimit(g.cfg.Concurrency)

	for i, post := range eligible {
		if i >= g.cfg.MaxVisualsPerRequest {
			post.Fail(fmt.Sprintf("visual budget exceeded: at most %d visuals per request", g.cfg.MaxVisualsPerRequest))
			report.Skipped++
			continue
		}
		eg.Go(func() error {
			if ctx.Err() != nil {
				post.Fail(types.ErrCancelled)
				return nil
			}
			g.process(ctx, post, bc, opts)
			return nil
		})
	}
	_ = eg.Wait()

	for _, p := range eligible {
		switch {
		case p.Error == types.ErrCancelled:
			report.Cancelled++
		case p.Error != "":
			report.Failed++
		case p.Visual != nil:
			report.Succeeded++
		}
	}
	report.Failed -= report.Skipped

	g.logger.WithFields(logging.Fields{
		"stage":     types.StageVisuals,
		"eligible":  report.Eligible,
		"succeeded": report.Succeeded,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
		"cancelled": report.Cancelled,
	}).Info("visual generation finished")
	return report
}

func (g *Generator) process(ctx context.Context, post *types.DraftPost, bc *types.BusinessContext, opts Options) {
	kind := post.PostType.AssetKind()
	log := g.logger.WithFields(logging.Fields{
		"stage":   types.StageVisuals,
		"post_id": post.ID,
		"kind":    kind,
	})

	ratio := AspectRatio(PrimaryPlatform(post, opts.Platforms), kind)
	prompt, err := BuildPrompt(post, bc, opts.MediaStyle, ratio, g.cfg.VideoDurationSeconds)
	if err != nil {
		log.WithError(err).Error("failed to build visual prompt")
		post.Fail("could not build a visual prompt")
		return
	}
	if g.cfg.RefinePrompts {
		prompt = g.refine(ctx, kind, prompt, log)
	}

	asset, err := g.render(ctx, kind, prompt, ratio)
	if err != nil {
		if ctx.Err() != nil {
			post.Fail(types.ErrCancelled)
			return
		}
		log.WithError(err).Warn("visual generation failed")
		post.Fail(describeError(kind, err))
		return
	}

	meta := inspect(asset, ratio)
	key := fmt.Sprintf("%s.%s", post.ID, extension(meta.MIMEType, kind))
	if opts.KeyPrefix != "" {
		key = opts.KeyPrefix + "/" + key
	}
	if g.store == nil {
		post.Fail("asset storage is not configured")
		return
	}
	locator, err := g.store.Put(ctx, key, asset.Data, meta.MIMEType)
	if err != nil {
		if ctx.Err() != nil {
			post.Fail(types.ErrCancelled)
			return
		}
		log.WithError(err).Warn("asset storage failed")
		post.Fail(fmt.Sprintf("%s could not be stored", kind))
		return
	}

	post.AttachVisual(&types.VisualAsset{
		PostID:   post.ID,
		Kind:     kind,
		Prompt:   prompt,
		Locator:  locator,
		Metadata: meta,
	})
	log.WithField("locator", locator).Debug("visual attached")
}

func (g *Generator) render(ctx context.Context, kind types.AssetKind, prompt, ratio string) (*llm.Asset, error) {
	switch kind {
	case types.AssetKindImage:
		if g.providers.Image == nil {
			return nil, llm.ErrServiceUnavailable
		}
		return g.providers.Image.GenerateImage(ctx, prompt, llm.ImageOptions{Stage: types.StageVisuals, AspectRatio: ratio})
	case types.AssetKindVideo:
		if g.providers.Video == nil {
			return nil, llm.ErrServiceUnavailable
		}
		return g.providers.Video.GenerateVideo(ctx, prompt, llm.VideoOptions{
			Stage:           types.StageVisuals,
			AspectRatio:     ratio,
			DurationSeconds: g.cfg.VideoDurationSeconds,
		})
	default:
		return nil, fmt.Errorf("post type has no visual kind")
	}
}

// refine asks the text model for a more concrete prompt. Any failure keeps the original.
func (g *Generator) refine(ctx context.Context, kind types.AssetKind, prompt string, log *logrus.Entry) string {
	if g.providers.Text == nil {
		return prompt
	}
	request, err := prompts.Render(prompts.VisualFile, "refine", map[string]string{
		"Kind":   string(kind),
		"Prompt": prompt,
	})
	if err != nil {
		return prompt
	}
	refined, err := g.providers.Text.GenerateText(ctx, request, llm.TextOptions{
		Stage:       types.StageVisuals,
		Tier:        llm.TierLite,
		Temperature: 0.4,
	})
	if err != nil || strings.TrimSpace(refined) == "" {
		log.WithError(err).Debug("prompt refinement skipped")
		return prompt
	}
	return strings.TrimSpace(refined)
}

// describeError turns a generation failure into a cause a user can act on.
func describeError(kind types.AssetKind, err error) string {
	if errors.Is(err, llm.ErrServiceUnavailable) && !isServiceError(err) {
		return fmt.Sprintf("%s generation is not configured", kind)
	}

	var se *llm.ServiceError
	if !errors.As(err, &se) {
		return fmt.Sprintf("%s generation failed", kind)
	}
	switch se.Kind {
	case llm.KindRateLimited:
		return fmt.Sprintf("%s generation was rate limited, try again later", kind)
	case llm.KindTimeout:
		return fmt.Sprintf("%s generation timed out", kind)
	case llm.KindUnavailable:
		return fmt.Sprintf("%s generation service is unavailable", kind)
	case llm.KindInvalidInput:
		return fmt.Sprintf("%s generation rejected the prompt", kind)
	case llm.KindUnauthorized:
		return fmt.Sprintf("%s generation credentials were rejected", kind)
	case llm.KindCancelled:
		return types.ErrCancelled
	default:
		return fmt.Sprintf("%s generation failed", kind)
	}
}

func isServiceError(err error) bool {
	var se *llm.ServiceError
	return errors.As(err, &se)
}
