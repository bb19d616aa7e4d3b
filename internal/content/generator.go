// Package content writes batches of draft social media posts from a business context.
package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/postcraft/internal/fetch"
	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/prompts"
	"github.com/jonathan/postcraft/internal/types"
)

// ProductLinkPlaceholder stands in for the product link when none is known.
const ProductLinkPlaceholder = types.ProductLinkPlaceholder

// DefaultMaxPostsPerBatch caps how many posts one request may ask for.
const DefaultMaxPostsPerBatch = 20

// DefaultCreativity is used when a request leaves creativity unset.
const DefaultCreativity = 5

// Config bounds batch generation.
type Config struct {
	MaxPostsPerBatch int
}

// Batch is the output of one Generate call. It always holds EffectiveCount posts.
type Batch struct {
	Posts          []*types.DraftPost
	FallbackUsed   bool
	FallbackSlots  []int
	RequestedCount int
	EffectiveCount int
	// Cancelled is set when ctx ended before the batch call returned. Every slot is
	// then a cancelled entry rather than a deterministic post.
	Cancelled bool
}

// Generator writes post batches with a single generative call per batch.
type Generator struct {
	gen    llm.TextProvider
	cfg    Config
	logger *logrus.Logger
}

// NewGenerator creates a Generator. gen may be nil, in which case every batch is
// produced deterministically.
func NewGenerator(gen llm.TextProvider, cfg Config, logger *logrus.Logger) *Generator {
	if cfg.MaxPostsPerBatch <= 0 {
		cfg.MaxPostsPerBatch = DefaultMaxPostsPerBatch
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{gen: gen, cfg: cfg, logger: logger}
}

// EffectiveCount is the number of posts a request for requested posts yields.
func (g *Generator) EffectiveCount(requested int) int {
	return min(requested, g.cfg.MaxPostsPerBatch)
}

// Generate returns exactly min(req.Count, MaxPostsPerBatch) posts. Slots the model
// did not fill are replaced by deterministic posts, and a failed service call makes
// the whole batch deterministic unless ctx was cancelled, in which case every slot is
// marked cancelled. The only error is an invalid request.
func (g *Generator) Generate(ctx context.Context, req types.GenerationRequest) (*Batch, error) {
	if req.Creativity == 0 {
		req.Creativity = DefaultCreativity
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generation request: %w", err)
	}

	count := g.EffectiveCount(req.Count)
	platforms := ResolvePlatforms(&req)
	log := g.logger.WithFields(logging.Fields{
		"stage":     types.StageText,
		"post_type": req.PostType,
		"count":     count,
	})
	if count < req.Count {
		log.WithField("requested", req.Count).Warn("post count clamped to batch ceiling")
	}

	batch := &Batch{
		Posts:          make([]*types.DraftPost, count),
		RequestedCount: req.Count,
		EffectiveCount: count,
	}

	parsed, err := g.request(ctx, &req, count, platforms)
	if err != nil && ctx.Err() != nil {
		log.WithError(err).Warn("text generation cancelled")
		for slot := 1; slot <= count; slot++ {
			batch.Posts[slot-1] = types.CancelledPost(req.PostType, slot)
		}
		batch.Cancelled = true
		return batch, nil
	}
	if err != nil {
		log.WithError(err).Warn("text generation failed, using deterministic posts")
		batch.FallbackUsed = true
	}

	for slot := 1; slot <= count; slot++ {
		item, ok := parsed.items[slot]
		fallback := !ok
		if fallback {
			if perr, bad := parsed.errors[slot]; bad {
				log.WithField("slot", slot).WithError(perr).Debug("item rejected")
			}
			item = fallbackItem(req.Context, req.PostType, slot)
			batch.FallbackSlots = append(batch.FallbackSlots, slot)
		}
		batch.Posts[slot-1] = g.buildPost(&req, slot, item, fallback, platforms)
	}
	if len(batch.FallbackSlots) == count {
		batch.FallbackUsed = true
	}

	log.WithFields(logging.Fields{
		"fallback_used":  batch.FallbackUsed,
		"fallback_slots": len(batch.FallbackSlots),
	}).Info("text batch generated")
	return batch, nil
}

// request makes the batch call. A response with no usable items is retried once
// with a stricter format reminder.
func (g *Generator) request(ctx context.Context, req *types.GenerationRequest, count int, platforms []string) (parseResult, error) {
	empty := parseResult{items: map[int]*postItem{}, errors: map[int]error{}}
	if g.gen == nil {
		return empty, llm.ErrServiceUnavailable
	}

	prompt, err := buildPrompt(req, count, platforms)
	if err != nil {
		return empty, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			prompt += "\n\nYour previous answer could not be parsed. Return exactly " + strconv.Itoa(count) +
				" numbered items, each a single-line JSON object, and nothing else."
		}
		response, err := g.gen.GenerateText(ctx, prompt, llm.TextOptions{
			Stage:       types.StageText,
			Tier:        llm.TierStandard,
			Temperature: Temperature(req.Creativity),
		})
		if err != nil {
			return empty, err
		}
		if parsed := parseItems(response, count); len(parsed.items) > 0 {
			return parsed, nil
		}
	}
	return empty, &ParseError{Message: "response contained no usable numbered items"}
}

// Temperature maps a creativity level of 1..10 onto a sampling temperature.
func Temperature(creativity int) float32 {
	creativity = max(1, min(10, creativity))
	return float32(creativity) / 10
}

func buildPrompt(req *types.GenerationRequest, count int, platforms []string) (string, error) {
	typeInstructions, err := prompts.Get(prompts.ContentFile, "type-"+string(req.PostType))
	if err != nil {
		return "", err
	}

	productURL := "none"
	if req.PostType == types.PostTypeTextURL {
		if link := defaultProductURL(req); link != ProductLinkPlaceholder {
			productURL = link
		}
	}

	bc := req.Context
	return prompts.Render(prompts.ContentFile, "batch", map[string]string{
		"CompanyName":      bc.CompanyName,
		"Context":          strings.TrimSpace(bc.Summary()),
		"Count":            strconv.Itoa(count),
		"TypeInstructions": typeInstructions,
		"Creativity":       strconv.Itoa(req.Creativity),
		"Platforms":        strings.Join(platforms, ", "),
		"ProductURL":       productURL,
		"BrandVoice":       orDefault(bc.BrandVoice, "friendly and clear"),
		"Themes":           orDefault(strings.Join(bc.SuggestedThemes, ", "), "the business's products"),
	})
}

func (g *Generator) buildPost(req *types.GenerationRequest, slot int, item *postItem, fallback bool, platforms []string) *types.DraftPost {
	hashtags := normalizeHashtags(item.Hashtags)
	if len(hashtags) == 0 {
		hashtags = normalizeHashtags(req.Context.SuggestedTags)
		if len(hashtags) > 5 {
			hashtags = hashtags[:5]
		}
	}

	post := &types.DraftPost{
		ID:            uuid.NewString(),
		Index:         slot,
		PostType:      req.PostType,
		Body:          item.Body,
		Hashtags:      hashtags,
		PlatformHints: platformHints(item.Body, hashtags, item.PlatformVariants, platforms),
		Fallback:      fallback,
	}
	if req.PostType == types.PostTypeTextURL {
		post.ProductURL = resolveProductURL(item.ProductURL, req)
	}
	return post
}

// resolveProductURL picks the model's link when it is a valid absolute URL, then the
// request's link, then the business website, then the placeholder.
func resolveProductURL(candidate string, req *types.GenerationRequest) string {
	if candidate = strings.TrimSpace(candidate); candidate != "" && fetch.ValidateURL(candidate) == nil {
		return candidate
	}
	return defaultProductURL(req)
}

func defaultProductURL(req *types.GenerationRequest) string {
	if req.ProductURL != "" && fetch.ValidateURL(req.ProductURL) == nil {
		return req.ProductURL
	}
	if req.Context != nil && req.Context.WebsiteURL != "" && fetch.ValidateURL(req.Context.WebsiteURL) == nil {
		return req.Context.WebsiteURL
	}
	return ProductLinkPlaceholder
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimLeft(strings.TrimSpace(t), "#")
		out = append(out, strings.Join(strings.Fields(t), ""))
	}
	return types.UniqueStrings(out)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
