package visual

import (
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/postcraft/internal/prompts"
	"github.com/jonathan/postcraft/internal/types"
)

// Aspect ratios
const (
	RatioSquare    = "1:1"
	RatioPortrait  = "4:5"
	RatioVertical  = "9:16"
	RatioLandscape = "16:9"
)

// DefaultMediaStyle is used when the request carries no media style.
const DefaultMediaStyle = "clean, modern, high-quality"

var imageRatios = map[string]string{
	"instagram": RatioPortrait,
	"threads":   RatioPortrait,
	"facebook":  RatioSquare,
	"linkedin":  RatioSquare,
	"x":         RatioLandscape,
	"twitter":   RatioLandscape,
	"tiktok":    RatioVertical,
	"youtube":   RatioLandscape,
}

var videoRatios = map[string]string{
	"instagram": RatioVertical,
	"threads":   RatioVertical,
	"tiktok":    RatioVertical,
	"facebook":  RatioSquare,
	"linkedin":  RatioLandscape,
	"x":         RatioLandscape,
	"twitter":   RatioLandscape,
	"youtube":   RatioLandscape,
}

// platformPriority orders platforms when a post targets several; the first one
// present decides the frame.
var platformPriority = []string{"tiktok", "instagram", "threads", "facebook", "linkedin", "x", "twitter", "youtube"}

// PrimaryPlatform picks the platform whose frame a post's visual is composed for.
func PrimaryPlatform(post *types.DraftPost, platforms []string) string {
	if len(platforms) > 0 {
		return strings.ToLower(platforms[0])
	}
	for _, p := range platformPriority {
		if _, ok := post.PlatformHints[p]; ok {
			return p
		}
	}
	keys := make([]string, 0, len(post.PlatformHints))
	for k := range post.PlatformHints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		return keys[0]
	}
	return ""
}

// AspectRatio returns the frame for an asset kind on a platform.
func AspectRatio(platform string, kind types.AssetKind) string {
	table, def := imageRatios, RatioSquare
	if kind == types.AssetKindVideo {
		table, def = videoRatios, RatioVertical
	}
	if r, ok := table[strings.ToLower(platform)]; ok {
		return r
	}
	return def
}

// BuildPrompt derives the generation prompt for a post from its body and the brand.
func BuildPrompt(post *types.DraftPost, bc *types.BusinessContext, mediaStyle, aspectRatio string, durationSeconds int) (string, error) {
	kind := post.PostType.AssetKind()
	if strings.TrimSpace(mediaStyle) == "" {
		mediaStyle = DefaultMediaStyle
	}
	colors := "natural tones"
	if bc != nil && len(bc.BrandColors) > 0 {
		colors = strings.Join(bc.BrandColors, ", ")
	}

	data := map[string]string{
		"MediaStyle":  strings.TrimSpace(mediaStyle),
		"CompanyName": orDefault(bc, func(c *types.BusinessContext) string { return c.CompanyName }, "a small business"),
		"Industry":    orDefault(bc, func(c *types.BusinessContext) string { return c.Industry }, "retail"),
		"Body":        strings.TrimSpace(post.Body),
		"BrandVoice":  orDefault(bc, func(c *types.BusinessContext) string { return c.BrandVoice }, "friendly"),
		"Colors":      colors,
		"AspectRatio": aspectRatio,
	}
	if kind == types.AssetKindVideo {
		data["DurationSeconds"] = strconv.Itoa(durationSeconds)
		return prompts.Render(prompts.VisualFile, "video", data)
	}
	return prompts.Render(prompts.VisualFile, "image", data)
}

func orDefault(bc *types.BusinessContext, field func(*types.BusinessContext) string, def string) string {
	if bc == nil {
		return def
	}
	if v := strings.TrimSpace(field(bc)); v != "" {
		return v
	}
	return def
}
