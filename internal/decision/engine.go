// Package decision holds the schedule policy table shared by every scaling
// dimension.
package decision

import (
	"time"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// Decide reconciles a resource's policy, the calendar state and the observed
// criteria of one dimension into an action. It has no side effects.
//
// Always-on resources are only ever healed towards the up state. For
// calendar-gated resources the morning run opens the operating window and
// the night run closes it; working hours never move anything.
func Decide(r models.ManagedResource, state models.CalendarState, c models.ScalingCriteria) models.ScalingAction {
	if !r.AutoScaleDown {
		if c.ScaleUp {
			return models.ActionScaleUp
		}
		return models.ActionNoOp
	}

	switch state.Bucket {
	case models.BucketMorning:
		return morning(r.OperateDay, state.Day, c)
	case models.BucketNight:
		return night(r.OperateDay, state.Day, c)
	default:
		return models.ActionNoOp
	}
}

func morning(op models.OperateDay, day time.Weekday, c models.ScalingCriteria) models.ScalingAction {
	// Scale down rules take precedence over scale up ones.
	if c.ScaleDown && (day == time.Sunday || (day == time.Saturday && op == models.OperateWeekdays)) {
		return models.ActionScaleDown
	}

	if c.ScaleUp {
		switch {
		case day != time.Saturday && day != time.Sunday:
			return models.ActionScaleUp
		case day == time.Saturday && op == models.OperateWeekend:
			return models.ActionScaleUp
		}
	}

	return models.ActionNoOp
}

func night(op models.OperateDay, day time.Weekday, c models.ScalingCriteria) models.ScalingAction {
	weekday := day != time.Saturday && day != time.Sunday

	// Weekend resources are brought up on weekday nights so they are ready
	// ahead of the weekend. This rule is evaluated before any scale down.
	if c.ScaleUp && weekday && op == models.OperateWeekend {
		return models.ActionScaleUp
	}

	if c.ScaleDown {
		switch {
		case day == time.Sunday:
			return models.ActionScaleDown
		case day == time.Saturday && op == models.OperateWeekend:
			return models.ActionScaleDown
		case weekday && op == models.OperateWeekdays:
			return models.ActionScaleDown
		}
	}

	return models.ActionNoOp
}
