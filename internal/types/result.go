package types

import "time"

// AssetKind enumerates visual asset types.
type AssetKind string

// Asset kinds
const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// AssetMetadata holds technical details of a stored visual asset.
type AssetMetadata struct {
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Format          string  `json:"format,omitempty"`
	MIMEType        string  `json:"mime_type,omitempty"`
	Bytes           int64   `json:"bytes"`
	AspectRatio     string  `json:"aspect_ratio,omitempty"`
}

// VisualAsset is a generated image or video owned by a DraftPost.
type VisualAsset struct {
	PostID   string        `json:"post_id"`
	Kind     AssetKind     `json:"kind"`
	Prompt   string        `json:"prompt"`
	Locator  string        `json:"locator"`
	Metadata AssetMetadata `json:"metadata"`
}

// PipelineState is a state of the generation state machine.
type PipelineState string

// Pipeline states
const (
	StateIdle              PipelineState = "idle"
	StateAnalyzingContext  PipelineState = "analyzing_context"
	StateGeneratingText    PipelineState = "generating_text"
	StateGeneratingVisuals PipelineState = "generating_visuals"
	StateComplete          PipelineState = "complete"
	StateFailed            PipelineState = "failed"
)

// Stage names used for durations and progress events.
const (
	StageContext = "context"
	StageText    = "text"
	StageVisuals = "visuals"
)

// GenerationMetadata records observability data for one pipeline run.
type GenerationMetadata struct {
	RunID            string           `json:"run_id"`
	StartedAt        time.Time        `json:"started_at"`
	CompletedAt      time.Time        `json:"completed_at"`
	StageDurationsMS map[string]int64 `json:"stage_durations_ms"`
	ContextFallback  bool             `json:"context_fallback"`
	TextFallback     bool             `json:"text_fallback"`
	FallbackSlots    []int            `json:"fallback_slots,omitempty"`
	VisualFailures   int              `json:"visual_failures"`
	RequestedCount   int              `json:"requested_count"`
	EffectiveCount   int              `json:"effective_count"`
	Cancelled        bool             `json:"cancelled,omitempty"`
	FinalState       PipelineState    `json:"final_state"`
}

// PipelineResult is the terminal artifact of a generation run.
type PipelineResult struct {
	Posts    []*DraftPost       `json:"posts"`
	Context  *BusinessContext   `json:"context"`
	Metadata GenerationMetadata `json:"metadata"`
}

// Succeeded returns the number of populated posts.
func (r *PipelineResult) Succeeded() int {
	n := 0
	for _, p := range r.Posts {
		if p.Populated() {
			n++
		}
	}
	return n
}
