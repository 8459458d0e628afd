package events

import (
	"context"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/database/queries"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// HistoryStore persists the run audit trail.
type HistoryStore interface {
	Insert(ctx context.Context, rec *queries.ScalingStepRecord) error
	InsertRun(ctx context.Context, run queries.RunRecord) error
}

// EventLogger writes events to the structured log and, when a store is set,
// to the run history tables.
type EventLogger struct {
	store     HistoryStore
	startedAt map[string]models.Event
}

func NewEventLogger(store HistoryStore) *EventLogger {
	return &EventLogger{
		store:     store,
		startedAt: make(map[string]models.Event),
	}
}

func (l *EventLogger) Handle(ctx context.Context, event *models.Event) {
	entry := logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"run_id":     event.RunID,
		"severity":   event.Severity,
	})
	if event.Resource != "" {
		entry = entry.WithField("resource", event.Resource)
	}

	switch {
	case event.Severity == models.SeverityCritical:
		entry.Error(event.Message)
	case event.Severity == models.SeverityWarning:
		entry.Warn(event.Message)
	case event.Type == models.EventTypeRunStarted || event.Type == models.EventTypeRunFinished:
		entry.Info(event.Message)
	default:
		entry.Debug(event.Message)
	}

	if l.store == nil {
		return
	}

	switch event.Type {
	case models.EventTypeRunStarted:
		l.startedAt[event.RunID] = *event
	case models.EventTypeScalingComplete, models.EventTypeScalingSkipped, models.EventTypeScalingFailed:
		l.persistStep(ctx, event)
	case models.EventTypeRunFinished:
		l.persistRun(ctx, event)
	}
}

func (l *EventLogger) persistStep(ctx context.Context, event *models.Event) {
	if event.Step == nil {
		return
	}

	rec := queries.NewScalingStepRecord(event.RunID, event.Calendar, *event.Step, event.Timestamp)
	if err := l.store.Insert(ctx, &rec); err != nil {
		logger.Errorf("Failed to persist scaling step: %v", err)
	}
}

func (l *EventLogger) persistRun(ctx context.Context, event *models.Event) {
	started := event.Timestamp.Add(-event.Duration)
	if s, ok := l.startedAt[event.RunID]; ok {
		started = s.Timestamp
	}

	run := queries.RunRecord{
		RunID:      event.RunID,
		StartedAt:  started,
		FinishedAt: event.Timestamp,
		Day:        event.Calendar.Day.String(),
		Bucket:     string(event.Calendar.Bucket),
		Success:    event.Success,
		Message:    event.Message,
	}
	if err := l.store.InsertRun(ctx, run); err != nil {
		logger.Errorf("Failed to persist run: %v", err)
	}
}
