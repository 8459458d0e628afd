package models

// OperateDay is the part of the week a calendar-gated resource is meant to run.
type OperateDay string

const (
	OperateWeekdays OperateDay = "weekdays"
	OperateWeekend  OperateDay = "weekend"
)

// ManagedResource is one entry of the fleet configuration.
type ManagedResource struct {
	Name          string     `json:"name" yaml:"name" mapstructure:"name" validate:"required,resourcename"`
	AutoScaleDown bool       `json:"autoscaledown" yaml:"autoscaledown" mapstructure:"autoscaledown"`
	OperateDay    OperateDay `json:"operate_day,omitempty" yaml:"operate_day,omitempty" mapstructure:"operate_day" validate:"omitempty,operateday"`
	Database      string     `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database" validate:"omitempty,resourcename"`
}

// IsAlwaysOn reports whether the resource is only ever healed towards the up state.
func (r ManagedResource) IsAlwaysOn() bool {
	return !r.AutoScaleDown
}

// DatabaseKey returns the name used to look up the backing database instance
// and whether it was set explicitly.
func (r ManagedResource) DatabaseKey() (string, bool) {
	if r.Database != "" {
		return r.Database, true
	}
	return r.Name, false
}

// Deployment is a workload reported in an application's resource tree.
type Deployment struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Group     string `json:"group"`
	Version   string `json:"version"`
}

const KindDeployment = "Deployment"
