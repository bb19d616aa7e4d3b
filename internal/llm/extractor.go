// Package llm - extractor.go builds structured-extraction prompts from a field schema.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema describes the JSON object a structured call must return.
type ExtractionSchema struct {
	Name        string
	Description string
	Fields      []SchemaField
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint shown to the model
	Description string
	Required    bool
}

// RequiredFields lists the names of required fields.
func (s ExtractionSchema) RequiredFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}

// BuildExtractionPrompt constructs the prompt from schema and input text.
// Strict mode adds the reminders used when a previous answer failed validation.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string, strict bool) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Base every value on the input text. Use an empty string or empty list when unknown.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n")
	if strict {
		sb.WriteString("- Your previous answer was not valid. Every required field must be present with the exact type shown.\n")
		sb.WriteString(fmt.Sprintf("- Required fields: %s\n", strings.Join(schema.RequiredFields(), ", ")))
	}
	sb.WriteString("\n")

	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// BusinessContextSchema returns the extraction schema for business analysis.
func BusinessContextSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "BusinessContext",
		Description: `You are an expert brand strategist and social media marketer.
Your task is to analyze material about a business (website text, documents, notes) and describe it
so that a copywriter can produce on-brand social media posts.`,
		Fields: []SchemaField{
			{Name: "company_name", Type: "\"string\"", Description: "Business or brand name", Required: true},
			{Name: "industry", Type: "\"string\"", Description: "Industry or market category", Required: true},
			{Name: "target_audience", Type: "\"string\"", Description: "Who the business sells to", Required: true},
			{Name: "brand_voice", Type: "\"string\"", Description: "Tone of voice (e.g. 'warm, playful, expert')", Required: true},
			{Name: "brand_colors", Type: "[\"string\"]", Description: "Brand colors as names or hex codes"},
			{Name: "value_propositions", Type: "[\"string\"]", Description: "Main benefits offered to customers"},
			{Name: "competitive_advantages", Type: "[\"string\"]", Description: "What sets the business apart"},
			{Name: "suggested_themes", Type: "[\"string\"]", Description: "Post themes that would resonate with the audience", Required: true},
			{Name: "suggested_tags", Type: "[\"string\"]", Description: "Hashtags without the # sign", Required: true},
			{Name: "website_url", Type: "\"string\"", Description: "Primary website URL if mentioned"},
			{Name: "confidence_score", Type: "number", Description: "0.0 to 1.0, how well the input supports this analysis", Required: true},
		},
	}
}
