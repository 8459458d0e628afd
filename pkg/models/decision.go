package models

import "fmt"

type ScalingAction string

const (
	ActionScaleUp   ScalingAction = "SCALE_UP"
	ActionScaleDown ScalingAction = "SCALE_DOWN"
	ActionNoOp      ScalingAction = "NO_OP"
)

// ScalingCriteria is derived from the currently observed state of one dimension.
// Both flags set at once means the observed state is inconsistent.
type ScalingCriteria struct {
	ScaleUp   bool `json:"scale_up"`
	ScaleDown bool `json:"scale_down"`
}

// SyncCriteria: auto-sync absent is a scale up candidate.
func SyncCriteria(autoSyncEnabled bool) ScalingCriteria {
	return ScalingCriteria{ScaleUp: !autoSyncEnabled, ScaleDown: autoSyncEnabled}
}

func ReplicaCriteria(replicas int64) ScalingCriteria {
	return ScalingCriteria{ScaleUp: replicas == 0, ScaleDown: replicas > 0}
}

func DatabaseCriteria(status DatabaseStatus) ScalingCriteria {
	return ScalingCriteria{
		ScaleUp:   status == DatabaseStopped,
		ScaleDown: status == DatabaseAvailable,
	}
}

// Dimension is one of the independently scaled aspects of a resource.
type Dimension string

const (
	DimensionSync     Dimension = "sync"
	DimensionPods     Dimension = "server"
	DimensionDatabase Dimension = "database"
)

// NoOpKind selects how a no-op outcome is reported.
type NoOpKind int

const (
	NoOpRoutine NoOpKind = iota
	NoOpBoundary
)

func (k NoOpKind) String() string {
	switch k {
	case NoOpRoutine:
		return "routine"
	case NoOpBoundary:
		return "boundary"
	default:
		return fmt.Sprintf("NoOpKind(%d)", int(k))
	}
}

type DatabaseStatus string

const (
	DatabaseAvailable DatabaseStatus = "available"
	DatabaseStopped   DatabaseStatus = "stopped"
)
