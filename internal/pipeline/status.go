package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonathan/postcraft/internal/types"
)

// transitions lists the legal moves of the run state machine.
var transitions = map[types.PipelineState][]types.PipelineState{
	types.StateIdle:              {types.StateAnalyzingContext},
	types.StateAnalyzingContext:  {types.StateGeneratingText, types.StateFailed},
	types.StateGeneratingText:    {types.StateGeneratingVisuals},
	types.StateGeneratingVisuals: {types.StateComplete},
}

// Snapshot is a point-in-time view of a run, safe to hand to other goroutines.
type Snapshot struct {
	RunID            string              `json:"run_id"`
	State            types.PipelineState `json:"state"`
	StartedAt        time.Time           `json:"started_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	StageDurationsMS map[string]int64    `json:"stage_durations_ms"`
	PostsTotal       int                 `json:"posts_total"`
	PostsReady       int                 `json:"posts_ready"`
	Error            string              `json:"error,omitempty"`
}

// Status tracks one run's state. It replaces ad hoc "is generating" flags with a
// single object readers can poll while the run progresses.
type Status struct {
	mu         sync.RWMutex
	runID      string
	state      types.PipelineState
	startedAt  time.Time
	updatedAt  time.Time
	stageStart time.Time
	durations  map[string]int64
	postsTotal int
	postsReady int
	err        string
}

// NewStatus creates a Status in the Idle state.
func NewStatus(runID string) *Status {
	now := time.Now().UTC()
	return &Status{
		runID:     runID,
		state:     types.StateIdle,
		startedAt: now,
		updatedAt: now,
		durations: map[string]int64{},
	}
}

// Advance moves to the next state. Illegal transitions are rejected.
func (s *Status) Advance(to types.PipelineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			s.updatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("illegal pipeline transition %s -> %s", s.state, to)
}

// Fail moves to Failed and records the cause.
func (s *Status) Fail(cause error) error {
	if err := s.Advance(types.StateFailed); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cause != nil {
		s.err = cause.Error()
	}
	return nil
}

// beginStage marks the start of a timed stage.
func (s *Status) beginStage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stageStart = time.Now()
}

// endStage records the duration of the stage begun last.
func (s *Status) endStage(stage string) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := time.Since(s.stageStart)
	s.durations[stage] = d.Milliseconds()
	return d
}

func (s *Status) setPosts(total, ready int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postsTotal, s.postsReady = total, ready
}

// State returns the current state.
func (s *Status) State() types.PipelineState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Snapshot returns a copy of the current status.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	durations := make(map[string]int64, len(s.durations))
	for k, v := range s.durations {
		durations[k] = v
	}
	return Snapshot{
		RunID:            s.runID,
		State:            s.state,
		StartedAt:        s.startedAt,
		UpdatedAt:        s.updatedAt,
		StageDurationsMS: durations,
		PostsTotal:       s.postsTotal,
		PostsReady:       s.postsReady,
		Error:            s.err,
	}
}

// Done reports whether the run reached a terminal state.
func (s Snapshot) Done() bool {
	return s.State == types.StateComplete || s.State == types.StateFailed
}
