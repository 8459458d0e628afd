package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OldStager01/staging-autoscaler/internal/calendar"
	"github.com/OldStager01/staging-autoscaler/pkg/config"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

// report is what validate prints: the calendar state a run started now
// would use and the fleet it would act on.
type report struct {
	Day             string                   `yaml:"day"`
	Status          models.TimeBucket        `yaml:"status"`
	Timezone        string                   `yaml:"timezone"`
	ScaleUp         string                   `yaml:"scale_up"`
	ScaleDown       string                   `yaml:"scale_down"`
	DatabaseScaling bool                     `yaml:"database_scaling"`
	Notifications   bool                     `yaml:"notifications"`
	Servers         []models.ManagedResource `yaml:"server"`
	Databases       []models.ManagedResource `yaml:"database,omitempty"`
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print the resolved run plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidConfig(opts)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), cfg, time.Now())
		},
	}
}

func writeReport(w io.Writer, cfg *config.Config, now time.Time) error {
	state, err := calendar.Resolve(now, orchestratorConfig(cfg).Calendar)
	if err != nil {
		return err
	}

	r := report{
		Day:             state.Day.String(),
		Status:          state.Bucket,
		Timezone:        cfg.Schedule.Timezone,
		ScaleUp:         clock(cfg.Schedule.ScaleUp),
		ScaleDown:       clock(cfg.Schedule.ScaleDown),
		DatabaseScaling: cfg.AWS.Enabled(),
		Notifications:   cfg.Slack.Enabled(),
		Servers:         cfg.Servers,
		Databases:       cfg.Databases,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return enc.Close()
}

func clock(c models.ClockTime) string {
	return fmt.Sprintf("%02d:%02d UTC", c.Hours, c.Minutes)
}
