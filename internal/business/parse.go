package business

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/postcraft/internal/llm"
	"github.com/jonathan/postcraft/internal/schemas"
	"github.com/jonathan/postcraft/internal/types"
)

// analysisResponse mirrors llm.BusinessContextSchema.
type analysisResponse struct {
	CompanyName           string   `json:"company_name"`
	Industry              string   `json:"industry"`
	TargetAudience        string   `json:"target_audience"`
	BrandVoice            string   `json:"brand_voice"`
	BrandColors           []string `json:"brand_colors"`
	ValuePropositions     []string `json:"value_propositions"`
	CompetitiveAdvantages []string `json:"competitive_advantages"`
	SuggestedThemes       []string `json:"suggested_themes"`
	SuggestedTags         []string `json:"suggested_tags"`
	WebsiteURL            string   `json:"website_url"`
	ConfidenceScore       float64  `json:"confidence_score"`
}

// parseContext turns a model response into a BusinessContext.
func parseContext(response string) (*types.BusinessContext, error) {
	doc := llm.ExtractJSONObject(response)
	if doc == "" || !strings.HasPrefix(doc, "{") {
		return nil, &ParseError{Message: "response contains no JSON object"}
	}

	if err := schemas.Validate(schemas.BusinessContext, []byte(doc)); err != nil {
		return nil, &ParseError{Message: "response does not match the business context schema", Cause: err}
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(doc), &resp); err != nil {
		return nil, &ParseError{Message: "failed to decode response", Cause: err}
	}

	return &types.BusinessContext{
		CompanyName:           strings.TrimSpace(resp.CompanyName),
		Industry:              strings.TrimSpace(resp.Industry),
		TargetAudience:        strings.TrimSpace(resp.TargetAudience),
		BrandVoice:            strings.TrimSpace(resp.BrandVoice),
		BrandColors:           types.UniqueStrings(resp.BrandColors),
		ValuePropositions:     types.UniqueStrings(resp.ValuePropositions),
		CompetitiveAdvantages: types.UniqueStrings(resp.CompetitiveAdvantages),
		SuggestedThemes:       types.UniqueStrings(resp.SuggestedThemes),
		SuggestedTags:         normalizeTags(resp.SuggestedTags),
		WebsiteURL:            strings.TrimSpace(resp.WebsiteURL),
		ConfidenceScore:       clamp01(resp.ConfidenceScore),
	}, nil
}

// normalizeTags strips '#' and inner spaces and dedupes case-insensitively.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(t), "#"))
		t = strings.Join(strings.Fields(t), "")
		out = append(out, t)
	}
	return types.UniqueStrings(out)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
