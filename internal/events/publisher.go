package events

import (
	"context"
	"fmt"
	"time"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

type Publisher struct {
	bus      *EventBus
	runID    string
	calendar models.CalendarState
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

// WithRun returns a publisher stamping events with the run id and calendar
// state.
func (p *Publisher) WithRun(runID string, state models.CalendarState) *Publisher {
	return &Publisher{
		bus:      p.bus,
		runID:    runID,
		calendar: state,
	}
}

func (p *Publisher) publish(ctx context.Context, event *models.Event) {
	p.bus.Publish(ctx, event.WithCalendar(p.calendar))
}

func (p *Publisher) RunStarted(ctx context.Context) {
	msg := fmt.Sprintf("Run started on %s, %s", p.calendar.Day, p.calendar.Bucket)
	p.publish(ctx, models.NewEvent(models.EventTypeRunStarted, p.runID, "", msg))
}

func (p *Publisher) DecisionMade(ctx context.Context, resource string, dim models.Dimension, target string, action models.ScalingAction) {
	msg := fmt.Sprintf("Scaling decision for %s %s: %s", dim, target, action)
	event := models.NewEvent(models.EventTypeDecisionMade, p.runID, resource, msg).
		WithStep(models.StepResult{Resource: resource, Dimension: dim, Target: target, Action: action})
	p.publish(ctx, event)
}

// StepRecorded publishes the final outcome of a step.
func (p *Publisher) StepRecorded(ctx context.Context, step models.StepResult) {
	var event *models.Event
	switch step.Status {
	case models.StepFailed:
		msg := fmt.Sprintf("Scaling failed: %s %s", step.Dimension, step.Target)
		if step.Err != nil {
			msg += ": " + step.Err.Error()
		}
		event = models.NewEvent(models.EventTypeScalingFailed, p.runID, step.Resource, msg).
			WithSeverity(models.SeverityCritical)
	case models.StepSkipped:
		msg := fmt.Sprintf("Scaling skipped: %s %s", step.Dimension, step.Target)
		if step.Reason != "" {
			msg += ": " + step.Reason
		}
		event = models.NewEvent(models.EventTypeScalingSkipped, p.runID, step.Resource, msg).
			WithSeverity(models.SeverityWarning)
	default:
		msg := fmt.Sprintf("Scaling complete: %s %s %s", step.Dimension, step.Target, step.Action)
		event = models.NewEvent(models.EventTypeScalingComplete, p.runID, step.Resource, msg)
	}
	p.publish(ctx, event.WithStep(step))
}

func (p *Publisher) RunFinished(ctx context.Context, started time.Time, err error) {
	event := models.NewEvent(models.EventTypeRunFinished, p.runID, "", "Run finished")
	event.Duration = event.Timestamp.Sub(started)
	event.Success = err == nil
	if err != nil {
		event.Message = "Run failed: " + err.Error()
		event.WithSeverity(models.SeverityCritical)
	}
	p.publish(ctx, event)
}
