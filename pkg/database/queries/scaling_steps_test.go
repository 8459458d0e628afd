package queries

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

func TestNewScalingStepRecord(t *testing.T) {
	at := time.Date(2026, 10, 19, 13, 5, 0, 0, time.UTC)
	state := models.CalendarState{Day: time.Monday, Bucket: models.BucketNight}
	step := models.StepResult{
		Resource:  "shop.staging",
		Dimension: models.DimensionPods,
		Target:    "shop-staging-sidekiq",
		Action:    models.ActionScaleDown,
		Status:    models.StepFailed,
		Err:       errors.New("patch rejected"),
	}

	rec := NewScalingStepRecord("run-1", state, step, at)

	assert.Equal(t, ScalingStepRecord{
		RunID:      "run-1",
		RecordedAt: at,
		Day:        "Monday",
		Bucket:     "night",
		Resource:   "shop.staging",
		Dimension:  "server",
		Target:     "shop-staging-sidekiq",
		Action:     "SCALE_DOWN",
		Status:     "failed",
		Error:      "patch rejected",
	}, rec)
}
