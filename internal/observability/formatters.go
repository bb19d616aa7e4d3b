// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/postcraft/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		// Truncate long lines
		if r := []rune(line); len(r) > boxWidth-4 {
			line = string(r[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// writeList writes up to max items of a list, noting how many were left out.
func writeList(sb *strings.Builder, label string, items []string, max int) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(label + ":\n")
	for _, it := range items[:min(len(items), max)] {
		sb.WriteString(fmt.Sprintf("  • %s\n", it))
	}
	if len(items) > max {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-max))
	}
}

// PrintBusinessContext outputs a human-readable summary of the analyzed business.
func (p *Printer) PrintBusinessContext(bc *types.BusinessContext) {
	if bc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:    %s\n", bc.CompanyName))
	sb.WriteString(fmt.Sprintf("Industry:   %s\n", bc.Industry))
	sb.WriteString(fmt.Sprintf("Audience:   %s\n", bc.TargetAudience))
	sb.WriteString(fmt.Sprintf("Voice:      %s\n", bc.BrandVoice))
	sb.WriteString(fmt.Sprintf("Confidence: %.2f", bc.ConfidenceScore))
	if bc.Fallback {
		sb.WriteString(" (derived without AI)")
	}
	sb.WriteString("\n\n")

	writeList(&sb, "Themes", bc.SuggestedThemes, maxItemsToShow)
	writeList(&sb, "Value propositions", bc.ValuePropositions, 3)
	if len(bc.SuggestedTags) > 0 {
		sb.WriteString("Tags: " + strings.Join(bc.SuggestedTags[:min(len(bc.SuggestedTags), 8)], ", ") + "\n")
	}

	p.printBox("BUSINESS CONTEXT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPosts outputs each post with its status.
func (p *Printer) PrintPosts(posts []*types.DraftPost) {
	if len(posts) == 0 {
		return
	}

	var sb strings.Builder
	for i, post := range posts {
		marker := "✓"
		switch {
		case post.Error != "":
			marker = "✗"
		case post.Fallback:
			marker = "~"
		}
		sb.WriteString(fmt.Sprintf("%s #%d [%s]\n", marker, post.Index, post.PostType))
		sb.WriteString(fmt.Sprintf("    %s\n", firstLine(post.Body)))
		if tags := post.HashtagString(); tags != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", tags))
		}
		switch {
		case post.Error != "":
			sb.WriteString(fmt.Sprintf("    Error: %s\n", post.Error))
		case post.NeedsLink():
			sb.WriteString("    Link: pending\n")
		case post.ProductURL != "":
			sb.WriteString(fmt.Sprintf("    Link: %s\n", post.ProductURL))
		case post.ImageURL != "":
			sb.WriteString(fmt.Sprintf("    Image: %s\n", post.ImageURL))
		case post.VideoURL != "":
			sb.WriteString(fmt.Sprintf("    Video: %s\n", post.VideoURL))
		}
		if i < len(posts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox(fmt.Sprintf("DRAFT POSTS (%d)", len(posts)), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRunSummary outputs the generation metadata of a finished run.
func (p *Printer) PrintRunSummary(result *types.PipelineResult) {
	if result == nil {
		return
	}
	meta := result.Metadata

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run:      %s\n", meta.RunID))
	sb.WriteString(fmt.Sprintf("State:    %s\n", meta.FinalState))
	sb.WriteString(fmt.Sprintf("Ready:    %d of %d\n", result.Succeeded(), len(result.Posts)))
	if meta.EffectiveCount < meta.RequestedCount {
		sb.WriteString(fmt.Sprintf("Clamped:  %d requested\n", meta.RequestedCount))
	}

	stages := make([]string, 0, len(meta.StageDurationsMS))
	for stage := range meta.StageDurationsMS {
		stages = append(stages, stage)
	}
	sort.Strings(stages)
	for _, stage := range stages {
		sb.WriteString(fmt.Sprintf("  %-8s %6d ms\n", stage, meta.StageDurationsMS[stage]))
	}

	var flags []string
	if meta.ContextFallback {
		flags = append(flags, "context fallback")
	}
	if meta.TextFallback {
		flags = append(flags, "text fallback")
	} else if len(meta.FallbackSlots) > 0 {
		flags = append(flags, fmt.Sprintf("%d fallback slots", len(meta.FallbackSlots)))
	}
	if meta.VisualFailures > 0 {
		flags = append(flags, fmt.Sprintf("%d visual failures", meta.VisualFailures))
	}
	if meta.Cancelled {
		flags = append(flags, "cancelled")
	}
	if len(flags) > 0 {
		sb.WriteString("Degraded: " + strings.Join(flags, ", ") + "\n")
	}

	p.printBox("RUN SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
