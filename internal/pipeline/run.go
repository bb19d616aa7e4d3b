// Package pipeline sequences context analysis, text generation and visual generation
// for one generation request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/postcraft/internal/business"
	"github.com/jonathan/postcraft/internal/content"
	"github.com/jonathan/postcraft/internal/logging"
	"github.com/jonathan/postcraft/internal/observability"
	"github.com/jonathan/postcraft/internal/types"
	"github.com/jonathan/postcraft/internal/visual"
)

// ErrInvalidRequest is returned when generation parameters fail validation. It is
// reported before any stage runs.
var ErrInvalidRequest = errors.New("invalid generation request")

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Request is one generation action: raw inputs plus generation parameters.
type Request struct {
	Inputs     business.Inputs
	PostType   types.PostType
	Count      int
	Creativity int
	MediaStyle string
	ProductURL string
	Platforms  []string
	OnProgress ProgressCallback
}

// ContextBuilder produces the business context.
type ContextBuilder interface {
	Build(ctx context.Context, in business.Inputs) (*types.BusinessContext, error)
}

// TextGenerator produces a full batch of draft posts.
type TextGenerator interface {
	Generate(ctx context.Context, req types.GenerationRequest) (*content.Batch, error)
	EffectiveCount(requested int) int
}

// VisualGenerator attaches visuals to posts in place.
type VisualGenerator interface {
	Generate(ctx context.Context, posts []*types.DraftPost, bc *types.BusinessContext, opts visual.Options) visual.Report
}

// ResultSink receives every completed result, for example to persist it.
type ResultSink interface {
	SaveResult(ctx context.Context, result *types.PipelineResult) error
}

// Orchestrator runs the stages in order. Each stage owns its retry and fallback
// policy; the orchestrator never retries a stage.
type Orchestrator struct {
	contexts ContextBuilder
	text     TextGenerator
	visuals  VisualGenerator
	sink     ResultSink
	logger   *logrus.Logger
	printer  *observability.Printer

	mu       sync.Mutex
	statuses map[string]*Status
	order    []string
}

// maxTrackedRuns bounds how many run statuses are kept for polling.
const maxTrackedRuns = 256

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSink sets the sink that receives completed results.
func WithSink(sink ResultSink) Option {
	return func(o *Orchestrator) { o.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPrinter enables verbose stage summaries.
func WithPrinter(p *observability.Printer) Option {
	return func(o *Orchestrator) { o.printer = p }
}

// New creates an Orchestrator.
func New(contexts ContextBuilder, text TextGenerator, visuals VisualGenerator, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		contexts: contexts,
		text:     text,
		visuals:  visuals,
		logger:   logging.Discard(),
		statuses: map[string]*Status{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the latest snapshot of a run started by this orchestrator.
func (o *Orchestrator) Status(runID string) (Snapshot, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s, ok := o.statuses[runID]
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

func (o *Orchestrator) track(s *Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses[s.runID] = s
	o.order = append(o.order, s.runID)
	if len(o.order) > maxTrackedRuns {
		delete(o.statuses, o.order[0])
		o.order = o.order[1:]
	}
}

// Run executes one generation action. It fails only for an invalid request or when
// the inputs yield no usable material; every other problem is absorbed by a stage
// and reported through the result's metadata and per-post errors. A run whose ctx
// ends early still completes: slots no stage got to carry types.ErrCancelled and
// Metadata.Cancelled is set.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*types.PipelineResult, error) {
	genReq := types.GenerationRequest{
		PostType:   req.PostType,
		Count:      req.Count,
		Creativity: req.Creativity,
		MediaStyle: req.MediaStyle,
		ProductURL: req.ProductURL,
		Platforms:  req.Platforms,
	}
	if genReq.Creativity == 0 {
		genReq.Creativity = content.DefaultCreativity
	}
	if err := validateParams(genReq); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	status := NewStatus(runID)
	o.track(status)
	log := o.logger.WithFields(logging.Fields{"run_id": runID, "post_type": req.PostType})
	emit := func(step, category, message string, payload any) {
		if req.OnProgress != nil {
			req.OnProgress(ProgressEvent{Step: step, Category: category, Message: message, RunID: runID, Content: payload})
		}
	}

	result := &types.PipelineResult{
		Metadata: types.GenerationMetadata{
			RunID:          runID,
			StartedAt:      status.Snapshot().StartedAt,
			RequestedCount: req.Count,
		},
	}

	// Stage 1: business context
	o.advance(status, types.StateAnalyzingContext, log)
	emit(string(types.StateAnalyzingContext), types.StageContext, "Analyzing business inputs", nil)
	status.beginStage()
	bc, err := o.contexts.Build(ctx, req.Inputs)
	status.endStage(types.StageContext)
	if ctx.Err() != nil {
		if err != nil {
			log.WithError(err).Warn("context analysis cancelled")
		}
		result.Context = bc
		if bc != nil {
			result.Metadata.ContextFallback = bc.Fallback
		}
		n := o.text.EffectiveCount(req.Count)
		result.Posts = make([]*types.DraftPost, n)
		for slot := 1; slot <= n; slot++ {
			result.Posts[slot-1] = types.CancelledPost(req.PostType, slot)
		}
		result.Metadata.EffectiveCount = n
		result.Metadata.Cancelled = true
		o.advance(status, types.StateGeneratingText, log)
		o.advance(status, types.StateGeneratingVisuals, log)
		return o.finish(ctx, status, result, log, emit), nil
	}
	if err != nil {
		if ferr := status.Fail(err); ferr != nil {
			log.WithError(ferr).Error("state machine rejected failure")
		}
		emit(string(types.StateFailed), types.StageContext, err.Error(), nil)
		log.WithError(err).Warn("pipeline failed during context analysis")
		return nil, fmt.Errorf("business context: %w", err)
	}
	result.Context = bc
	result.Metadata.ContextFallback = bc.Fallback
	emit(string(types.StateAnalyzingContext), types.StageContext, fmt.Sprintf("Business context ready for %s", bc.CompanyName), bc)
	if o.printer != nil {
		o.printer.PrintBusinessContext(bc)
	}

	// Stage 2: text
	o.advance(status, types.StateGeneratingText, log)
	emit(string(types.StateGeneratingText), types.StageText, fmt.Sprintf("Writing %d posts", req.Count), nil)
	genReq.Context = bc
	status.beginStage()
	batch, err := o.text.Generate(ctx, genReq)
	status.endStage(types.StageText)
	if err != nil {
		// Parameters were validated up front, so this is a programming error.
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	result.Posts = batch.Posts
	result.Metadata.TextFallback = batch.FallbackUsed
	result.Metadata.FallbackSlots = batch.FallbackSlots
	result.Metadata.EffectiveCount = batch.EffectiveCount
	result.Metadata.Cancelled = batch.Cancelled
	status.setPosts(len(batch.Posts), countReady(batch.Posts))
	emit(string(types.StateGeneratingText), types.StageText, fmt.Sprintf("Drafted %d posts", len(batch.Posts)), batch.Posts)

	// Stage 3: visuals
	o.advance(status, types.StateGeneratingVisuals, log)
	status.beginStage()
	if req.PostType.NeedsVisual() {
		emit(string(types.StateGeneratingVisuals), types.StageVisuals, "Generating visuals", nil)
		report := o.visuals.Generate(ctx, batch.Posts, bc, visual.Options{
			MediaStyle: req.MediaStyle,
			Platforms:  req.Platforms,
			KeyPrefix:  runID,
		})
		result.Metadata.VisualFailures = report.Failed + report.Skipped + report.Cancelled
		if report.Cancelled > 0 {
			result.Metadata.Cancelled = true
		}
		emit(string(types.StateGeneratingVisuals), types.StageVisuals,
			fmt.Sprintf("%d of %d visuals ready", report.Succeeded, report.Eligible), report)
	}
	status.endStage(types.StageVisuals)

	return o.finish(ctx, status, result, log, emit), nil
}

// finish moves the run to Complete, then persists and reports the result. The sink
// gets a context detached from cancellation so cancelled runs are still stored.
func (o *Orchestrator) finish(ctx context.Context, status *Status, result *types.PipelineResult, log *logrus.Entry, emit func(step, category, message string, payload any)) *types.PipelineResult {
	o.advance(status, types.StateComplete, log)
	snap := status.Snapshot()
	status.setPosts(len(result.Posts), countReady(result.Posts))
	result.Metadata.StageDurationsMS = snap.StageDurationsMS
	result.Metadata.CompletedAt = time.Now().UTC()
	result.Metadata.FinalState = types.StateComplete

	if o.sink != nil {
		if err := o.sink.SaveResult(context.WithoutCancel(ctx), result); err != nil {
			log.WithError(err).Warn("failed to persist pipeline result")
		}
	}
	if o.printer != nil {
		o.printer.PrintPosts(result.Posts)
		o.printer.PrintRunSummary(result)
	}

	log.WithFields(logging.Fields{
		"posts":            len(result.Posts),
		"ready":            result.Succeeded(),
		"links_pending":    countNeedsLink(result.Posts),
		"context_fallback": result.Metadata.ContextFallback,
		"text_fallback":    result.Metadata.TextFallback,
		"visual_failures":  result.Metadata.VisualFailures,
		"cancelled":        result.Metadata.Cancelled,
	}).Info("pipeline complete")
	emit(string(types.StateComplete), "lifecycle", fmt.Sprintf("%d of %d posts ready", result.Succeeded(), len(result.Posts)), nil)
	return result
}

func (o *Orchestrator) advance(status *Status, to types.PipelineState, log *logrus.Entry) {
	if err := status.Advance(to); err != nil {
		log.WithError(err).Error("state machine rejected transition")
	}
}

// validateParams checks generation parameters before any stage runs. The context
// does not exist yet, so a placeholder satisfies that field.
func validateParams(req types.GenerationRequest) error {
	req.Context = &types.BusinessContext{}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}

func countReady(posts []*types.DraftPost) int {
	n := 0
	for _, p := range posts {
		if p.Populated() {
			n++
		}
	}
	return n
}

func countNeedsLink(posts []*types.DraftPost) int {
	n := 0
	for _, p := range posts {
		if p.Populated() && p.NeedsLink() {
			n++
		}
	}
	return n
}
