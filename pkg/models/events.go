package models

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventTypeRunStarted      EventType = "run_started"
	EventTypeDecisionMade    EventType = "decision_made"
	EventTypeScalingComplete EventType = "scaling_complete"
	EventTypeScalingSkipped  EventType = "scaling_skipped"
	EventTypeScalingFailed   EventType = "scaling_failed"
	EventTypeRunFinished     EventType = "run_finished"
)

type EventSeverity string

const (
	SeverityInfo     EventSeverity = "info"
	SeverityWarning  EventSeverity = "warning"
	SeverityCritical EventSeverity = "critical"
)

// Event represents an internal system event
type Event struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Type      EventType     `json:"type"`
	Severity  EventSeverity `json:"severity"`
	Resource  string        `json:"resource,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Message   string        `json:"message"`
	Step      *StepResult   `json:"step,omitempty"`
	Calendar  CalendarState `json:"calendar"`
	Duration  time.Duration `json:"duration,omitempty"`
	Success   bool          `json:"success"`
}

func NewEvent(eventType EventType, runID, resource, message string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		RunID:     runID,
		Type:      eventType,
		Severity:  SeverityInfo,
		Resource:  resource,
		Timestamp: time.Now(),
		Message:   message,
	}
}

func (e *Event) WithSeverity(severity EventSeverity) *Event {
	e.Severity = severity
	return e
}

func (e *Event) WithStep(step StepResult) *Event {
	e.Step = &step
	return e
}

func (e *Event) WithCalendar(state CalendarState) *Event {
	e.Calendar = state
	return e
}
