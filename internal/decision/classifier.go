package decision

import (
	"time"

	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// ClassifyNoOp tells whether a no-op sits on a schedule boundary, where the
// log message should cite the operate day and today. It never changes the
// decision.
func ClassifyNoOp(bucket models.TimeBucket, op models.OperateDay, day time.Weekday) models.NoOpKind {
	switch bucket {
	case models.BucketMorning:
		if op == models.OperateWeekdays && (day == time.Saturday || day == time.Sunday) {
			return models.NoOpBoundary
		}
		if op == models.OperateWeekend && day == time.Sunday {
			return models.NoOpBoundary
		}
	case models.BucketNight:
		if op == models.OperateWeekend && day != time.Saturday {
			return models.NoOpBoundary
		}
		if op == models.OperateWeekdays && day == time.Sunday {
			return models.NoOpBoundary
		}
	}
	return models.NoOpRoutine
}
