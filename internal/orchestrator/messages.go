package orchestrator

import (
	"fmt"

	"github.com/OldStager01/staging-autoscaler/internal/decision"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// noOp describes a dimension that was left untouched.
type noOp struct {
	dim      models.Dimension
	resource models.ManagedResource
	// target is the deployment or instance acted on. observed is its current
	// state as shown in logs.
	target   string
	observed string
	criteria models.ScalingCriteria
}

// message renders the diagnostic for a no-op. warn is set when the line
// belongs at warning level.
func (n noOp) message(state models.CalendarState) (msg string, warn bool) {
	name := n.resource.Name

	if n.resource.IsAlwaysOn() && n.criteria.ScaleDown {
		switch n.dim {
		case models.DimensionPods:
			return fmt.Sprintf("No scaling up needed as replica = %s for %s", n.observed, n.target), false
		case models.DimensionDatabase:
			return fmt.Sprintf("No database scaling up needed as db status = %s for %s", n.observed, n.target), false
		default:
			return fmt.Sprintf("No manual sync needed for %s", name), false
		}
	}

	if state.Bucket == models.BucketWorkingHours {
		switch n.dim {
		case models.DimensionPods:
			return fmt.Sprintf("Scaling for %s will not run during working hour", name), true
		case models.DimensionDatabase:
			return fmt.Sprintf("Database scaling for %s will not run during working hour", name), true
		default:
			return fmt.Sprintf("Manual sync for %s will not run during working hour", name), true
		}
	}

	if decision.ClassifyNoOp(state.Bucket, n.resource.OperateDay, state.Day) == models.NoOpBoundary {
		subject := name
		if n.dim == models.DimensionDatabase {
			subject = n.target
		}
		return fmt.Sprintf("No scaling needed for %s because operation day is set to %s and today is %s",
			subject, n.resource.OperateDay, state.Day), false
	}

	switch n.dim {
	case models.DimensionPods:
		if state.Bucket == models.BucketNight {
			return fmt.Sprintf("No scaling down needed as replica = %s for %s", n.observed, n.target), false
		}
		return fmt.Sprintf("No scaling up needed as replica = %s for %s", n.observed, n.target), false
	case models.DimensionDatabase:
		return fmt.Sprintf("No scaling up needed for %s as db status = %s", n.target, n.observed), false
	default:
		return fmt.Sprintf("No manual sync needed for %s", name), false
	}
}
