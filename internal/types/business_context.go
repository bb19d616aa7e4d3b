// Package types provides type definitions for structured data used throughout the postcraft system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "strings"

// BusinessContext is the structured summary of a business that grounds all generation.
// It is created once per generation request and must not be mutated afterwards.
type BusinessContext struct {
	CompanyName           string   `json:"company_name"`
	Industry              string   `json:"industry"`
	TargetAudience        string   `json:"target_audience"`
	BrandVoice            string   `json:"brand_voice"`
	BrandColors           []string `json:"brand_colors,omitempty"`
	ValuePropositions     []string `json:"value_propositions"`
	CompetitiveAdvantages []string `json:"competitive_advantages"`
	SuggestedThemes       []string `json:"suggested_themes"`
	SuggestedTags         []string `json:"suggested_tags"`
	ConfidenceScore       float64  `json:"confidence_score"`
	WebsiteURL            string   `json:"website_url,omitempty"`
	Sources               []Source `json:"sources,omitempty"`
	Fallback              bool     `json:"fallback"`
}

// SourceKind identifies the input channel a piece of raw material came from.
type SourceKind string

// Source kinds
const (
	SourceURL  SourceKind = "url"
	SourceFile SourceKind = "file"
	SourceText SourceKind = "text"
)

// Source describes one raw input that contributed to a BusinessContext.
type Source struct {
	Kind  SourceKind `json:"kind"`
	Ref   string     `json:"ref"`
	Chars int        `json:"chars"`
}

// Summary renders the context as a compact block suitable for embedding in prompts.
func (c *BusinessContext) Summary() string {
	if c == nil {
		return ""
	}
	var sb strings.Builder
	writeLine := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		sb.WriteString(label)
		sb.WriteString(": ")
		sb.WriteString(value)
		sb.WriteString("\n")
	}
	writeLine("Company", c.CompanyName)
	writeLine("Industry", c.Industry)
	writeLine("Target audience", c.TargetAudience)
	writeLine("Brand voice", c.BrandVoice)
	writeLine("Brand colors", strings.Join(c.BrandColors, ", "))
	writeLine("Value propositions", strings.Join(c.ValuePropositions, "; "))
	writeLine("Competitive advantages", strings.Join(c.CompetitiveAdvantages, "; "))
	writeLine("Themes", strings.Join(c.SuggestedThemes, ", "))
	writeLine("Tags", strings.Join(c.SuggestedTags, ", "))
	writeLine("Website", c.WebsiteURL)
	return sb.String()
}

// UniqueStrings returns the input with blanks removed and case-insensitive duplicates
// dropped, keeping the first occurrence. Used to give themes and tags set semantics.
func UniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
