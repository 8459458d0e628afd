package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/OldStager01/staging-autoscaler/pkg/validation"
)

func (c *Config) Validate() error {
	var errs []error

	// App validation
	if c.App.Name == "" {
		errs = append(errs, errors.New("app.name is required"))
	}

	validModes := map[string]bool{"development": true, "production": true, "test": true}
	if !validModes[c.App.Mode] {
		errs = append(errs, fmt.Errorf("app.mode must be one of: development, production, test"))
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Errorf("app.log_level must be one of: debug, info, warn, error"))
	}

	// Schedule validation
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil || c.Schedule.Timezone == "" {
		errs = append(errs, fmt.Errorf("schedule.timezone %q is not a known timezone", c.Schedule.Timezone))
	}
	if !c.Schedule.ScaleUp.Valid() {
		errs = append(errs, errors.New("schedule.scale_up must be a valid hours/minutes pair"))
	}
	if !c.Schedule.ScaleDown.Valid() {
		errs = append(errs, errors.New("schedule.scale_down must be a valid hours/minutes pair"))
	}
	if c.Schedule.ScaleUp.SinceMidnight() >= c.Schedule.ScaleDown.SinceMidnight() {
		errs = append(errs, errors.New("schedule.scale_up must be earlier than schedule.scale_down"))
	}

	// ArgoCD validation
	if c.ArgoCD.URL == "" {
		errs = append(errs, errors.New("argocd.url is required"))
	} else if u, err := url.Parse(c.ArgoCD.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("argocd.url %q must be an absolute URL", c.ArgoCD.URL))
	}
	if c.ArgoCD.Username == "" || c.ArgoCD.Password == "" {
		errs = append(errs, errors.New("argocd.username and argocd.password are required"))
	}
	if c.ArgoCD.Timeout <= 0 {
		errs = append(errs, errors.New("argocd.timeout must be positive"))
	}

	// AWS validation
	if c.AWS.AccessKeyID != "" && c.AWS.SecretAccessKey == "" {
		errs = append(errs, errors.New("aws.aws_secret_access_key is required with aws.aws_access_key_id"))
	}
	if c.AWS.Enabled() && c.AWS.Region == "" {
		errs = append(errs, errors.New("aws.region_name is required when database scaling is enabled"))
	}

	// Slack validation
	if c.Slack.Enabled() && c.Slack.Channel == "" {
		errs = append(errs, errors.New("slack.channel is required when slack.token is set"))
	}

	// History validation
	if c.History.Enabled {
		if c.History.Database.Host == "" {
			errs = append(errs, errors.New("history.database.host is required"))
		}
		if c.History.Database.Port <= 0 || c.History.Database.Port > 65535 {
			errs = append(errs, errors.New("history.database.port must be between 1 and 65535"))
		}
		if c.History.Database.MaxConnections <= 0 {
			errs = append(errs, errors.New("history.database.max_connections must be positive"))
		}
	}

	// Fleet validation
	v := validation.New()
	errs = append(errs, validation.ValidateResources(v, "server", c.Servers)...)
	errs = append(errs, validation.ValidateResources(v, "database", c.Databases)...)

	seen := make(map[string]bool)
	for _, r := range c.AllResources() {
		if seen[r.Name] {
			errs = append(errs, fmt.Errorf("resource %q is declared more than once", r.Name))
		}
		seen[r.Name] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %v", errs)
	}

	return nil
}
