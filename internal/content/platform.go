package content

import (
	"strings"

	"github.com/jonathan/postcraft/internal/types"
)

// PlatformLimits holds the character limit of each supported platform.
var PlatformLimits = map[string]int{
	"x":         280,
	"twitter":   280,
	"threads":   500,
	"instagram": 2200,
	"tiktok":    2200,
	"linkedin":  3000,
	"facebook":  5000,
	"youtube":   5000,
}

// DefaultPlatforms returns the platforms targeted when a request names none.
func DefaultPlatforms(t types.PostType) []string {
	switch t {
	case types.PostTypeTextImage:
		return []string{"instagram", "facebook"}
	case types.PostTypeTextVideo:
		return []string{"tiktok", "instagram"}
	default:
		return []string{"facebook", "linkedin", "x"}
	}
}

// ResolvePlatforms normalizes the requested platforms or falls back to the type defaults.
func ResolvePlatforms(req *types.GenerationRequest) []string {
	platforms := make([]string, 0, len(req.Platforms))
	for _, p := range req.Platforms {
		p = strings.ToLower(strings.TrimSpace(p))
		if _, ok := PlatformLimits[p]; ok {
			platforms = append(platforms, p)
		}
	}
	platforms = types.UniqueStrings(platforms)
	if len(platforms) == 0 {
		return DefaultPlatforms(req.PostType)
	}
	return platforms
}

// platformHints renders the post for each platform, preferring the model's own variant.
func platformHints(body string, hashtags []string, variants map[string]string, platforms []string) map[string]types.PlatformHint {
	tagLine := ""
	if len(hashtags) > 0 {
		tagLine = (&types.DraftPost{Hashtags: hashtags}).HashtagString()
	}

	hints := make(map[string]types.PlatformHint, len(platforms))
	for _, p := range platforms {
		limit := PlatformLimits[p]
		text := strings.TrimSpace(variants[p])
		if text == "" && p == "x" {
			text = strings.TrimSpace(variants["twitter"])
		}
		if text == "" {
			text = body
			if tagLine != "" {
				text += "\n\n" + tagLine
			}
		}
		hints[p] = types.PlatformHint{Text: FitToLimit(text, limit), MaxLength: limit}
	}
	return hints
}

// FitToLimit shortens text to at most limit runes, cutting at a word boundary when
// one is close and marking the cut with an ellipsis.
func FitToLimit(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	if limit == 1 {
		return "…"
	}
	cut := string(runes[:limit-1])
	if idx := strings.LastIndexAny(cut, " \n"); idx > len(cut)*3/4 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " \n.,;:") + "…"
}
