package domain

import (
	"fmt"
	"time"
)

// Stage identifies a step of the query pipeline state machine.
type Stage string

// Pipeline stages in execution order. Failed is terminal and reachable
// only from Embedding, Retrieval and Generation; Reranking degrades
// instead of failing, Filtering and CitationResolution are pure.
const (
	StageEmbedding          Stage = "embedding"
	StageRetrieval          Stage = "retrieval"
	StageReranking          Stage = "reranking"
	StageFiltering          Stage = "filtering"
	StageGeneration         Stage = "generation"
	StageCitationResolution Stage = "citation_resolution"
	StageComplete           Stage = "complete"
	StageFailed             Stage = "failed"
)

// String returns the string representation.
func (s Stage) String() string {
	return string(s)
}

// StageError tags a failure with the pipeline stage it occurred in.
// User-visible failures carry the stage, never a raw upstream trace.
type StageError struct {
	// Stage is where the pipeline failed.
	Stage Stage

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *StageError) Unwrap() error {
	return e.Err
}

// NewStageError wraps err with the failing stage.
func NewStageError(stage Stage, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}

// StageTimings records wall-clock durations per pipeline stage.
type StageTimings map[Stage]time.Duration

// Millis returns the recorded duration for a stage in milliseconds.
func (t StageTimings) Millis(stage Stage) float64 {
	return float64(t[stage].Microseconds()) / 1000.0
}
