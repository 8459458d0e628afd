package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrUnexpectedShape marks an observed-state payload that is missing fields
// the decision needs. It fails the whole phase.
var ErrUnexpectedShape = errors.New("unexpected observed state shape")

type StepStatus string

const (
	StepSuccess StepStatus = "success"
	StepSkipped StepStatus = "skipped"
	StepFailed  StepStatus = "failed"
)

// StepResult is the outcome of evaluating one dimension of one target.
type StepResult struct {
	Resource  string        `json:"resource"`
	Dimension Dimension     `json:"dimension"`
	Target    string        `json:"target"`
	Action    ScalingAction `json:"action"`
	Status    StepStatus    `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Err       error         `json:"-"`
}

func (s StepResult) Failed() bool {
	return s.Status == StepFailed
}

// RunResult accumulates step outcomes for a single run. It is discarded when
// the run ends.
type RunResult struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	Calendar    CalendarState   `json:"calendar"`
	Steps       []StepResult    `json:"steps"`
	podFailures map[string]bool
}

func NewRunResult(state CalendarState) *RunResult {
	return &RunResult{
		RunID:       uuid.NewString(),
		StartedAt:   time.Now(),
		Calendar:    state,
		podFailures: make(map[string]bool),
	}
}

func (r *RunResult) Record(step StepResult) {
	r.Steps = append(r.Steps, step)
	if step.Dimension == DimensionPods && step.Failed() {
		r.podFailures[step.Resource] = true
	}
}

// PodScalingFailed reports whether any pod step of the resource failed this run.
func (r *RunResult) PodScalingFailed(resource string) bool {
	return r.podFailures[resource]
}

// Count returns the number of steps with the given dimension and status.
func (r *RunResult) Count(dim Dimension, status StepStatus) int {
	n := 0
	for _, s := range r.Steps {
		if s.Dimension == dim && s.Status == status {
			n++
		}
	}
	return n
}
