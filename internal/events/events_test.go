package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/staging-autoscaler/pkg/database/queries"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

type recorder struct {
	events []*models.Event
}

func (r *recorder) Handle(_ context.Context, e *models.Event) {
	r.events = append(r.events, e)
}

type fakeStore struct {
	steps []queries.ScalingStepRecord
	runs  []queries.RunRecord
	err   error
}

func (f *fakeStore) Insert(_ context.Context, rec *queries.ScalingStepRecord) error {
	f.steps = append(f.steps, *rec)
	return f.err
}

func (f *fakeStore) InsertRun(_ context.Context, run queries.RunRecord) error {
	f.runs = append(f.runs, run)
	return f.err
}

func TestEventBus_Publish(t *testing.T) {
	bus := NewEventBus()
	all := &recorder{}
	failures := &recorder{}
	bus.SubscribeAll(all)
	bus.Subscribe(models.EventTypeScalingFailed, failures)

	ctx := context.Background()
	bus.Publish(ctx, models.NewEvent(models.EventTypeRunStarted, "r", "", "start"))
	bus.Publish(ctx, models.NewEvent(models.EventTypeScalingFailed, "r", "shop", "boom"))

	assert.Len(t, all.events, 2)
	require.Len(t, failures.events, 1)
	assert.Equal(t, "shop", failures.events[0].Resource)

	bus.Close()
	bus.Publish(ctx, models.NewEvent(models.EventTypeRunFinished, "r", "", "done"))
	assert.Len(t, all.events, 2)
}

func TestPublisher_StepRecorded(t *testing.T) {
	bus := NewEventBus()
	rec := &recorder{}
	bus.SubscribeAll(rec)

	state := models.CalendarState{Day: time.Saturday, Bucket: models.BucketMorning}
	p := NewPublisher(bus).WithRun("run-7", state)
	ctx := context.Background()

	p.StepRecorded(ctx, models.StepResult{Resource: "a", Dimension: models.DimensionSync, Status: models.StepSuccess, Action: models.ActionScaleUp})
	p.StepRecorded(ctx, models.StepResult{Resource: "b", Dimension: models.DimensionDatabase, Status: models.StepSkipped, Reason: "instance not found"})
	p.StepRecorded(ctx, models.StepResult{Resource: "c", Dimension: models.DimensionPods, Status: models.StepFailed, Err: errors.New("502")})

	require.Len(t, rec.events, 3)
	assert.Equal(t, models.EventTypeScalingComplete, rec.events[0].Type)
	assert.Equal(t, models.EventTypeScalingSkipped, rec.events[1].Type)
	assert.Equal(t, models.SeverityWarning, rec.events[1].Severity)
	assert.Contains(t, rec.events[1].Message, "instance not found")
	assert.Equal(t, models.EventTypeScalingFailed, rec.events[2].Type)
	assert.Equal(t, models.SeverityCritical, rec.events[2].Severity)

	for _, e := range rec.events {
		assert.Equal(t, "run-7", e.RunID)
		assert.Equal(t, state, e.Calendar)
		require.NotNil(t, e.Step)
	}
}

func TestEventLogger_PersistsHistory(t *testing.T) {
	store := &fakeStore{}
	bus := NewEventBus()
	bus.SubscribeAll(NewEventLogger(store))

	state := models.CalendarState{Day: time.Sunday, Bucket: models.BucketNight}
	p := NewPublisher(bus).WithRun("run-9", state)
	ctx := context.Background()
	started := time.Now()

	p.RunStarted(ctx)
	p.DecisionMade(ctx, "shop", models.DimensionDatabase, "shop-db", models.ActionScaleDown)
	p.StepRecorded(ctx, models.StepResult{Resource: "shop", Dimension: models.DimensionDatabase, Target: "shop-db", Action: models.ActionScaleDown, Status: models.StepSuccess})
	p.RunFinished(ctx, started, errors.New("pod phase failed"))

	require.Len(t, store.steps, 1)
	assert.Equal(t, "Sunday", store.steps[0].Day)
	assert.Equal(t, "night", store.steps[0].Bucket)
	assert.Equal(t, "shop-db", store.steps[0].Target)

	require.Len(t, store.runs, 1)
	assert.False(t, store.runs[0].Success)
	assert.Equal(t, "Run failed: pod phase failed", store.runs[0].Message)
	assert.False(t, store.runs[0].StartedAt.After(store.runs[0].FinishedAt))
}

func TestEventLogger_StoreErrorsAreLogged(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	l := NewEventLogger(store)

	event := models.NewEvent(models.EventTypeScalingComplete, "r", "shop", "ok").
		WithStep(models.StepResult{Resource: "shop"})

	assert.NotPanics(t, func() { l.Handle(context.Background(), event) })
	assert.Len(t, store.steps, 1)
}
