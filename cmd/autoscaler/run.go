package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OldStager01/staging-autoscaler/internal/argocd"
	"github.com/OldStager01/staging-autoscaler/internal/calendar"
	"github.com/OldStager01/staging-autoscaler/internal/events"
	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/internal/metrics"
	"github.com/OldStager01/staging-autoscaler/internal/notify"
	"github.com/OldStager01/staging-autoscaler/internal/orchestrator"
	"github.com/OldStager01/staging-autoscaler/internal/rds"
	"github.com/OldStager01/staging-autoscaler/internal/resilience"
	"github.com/OldStager01/staging-autoscaler/internal/simulator"
	"github.com/OldStager01/staging-autoscaler/pkg/config"
	"github.com/OldStager01/staging-autoscaler/pkg/database"
	"github.com/OldStager01/staging-autoscaler/pkg/database/queries"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate the schedule once and scale the fleet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "read the live fleet but only print the changes a run would make")
	return cmd
}

func runOnce(ctx context.Context, out io.Writer, opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	m := metrics.New()
	notifier := newNotifier(cfg, m)

	if err := cfg.Validate(); err != nil {
		notifier.Fail(ctx, notify.CategoryInit, "invalid configuration", err.Error())
		return fmt.Errorf("invalid config: %w", err)
	}

	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	logger.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Mode)

	bus := events.NewEventBus()
	defer bus.Close()
	bus.SubscribeAll(m)

	var store events.HistoryStore
	if cfg.History.Enabled && !opts.dryRun {
		db, err := database.Open(ctx, cfg.History.Store())
		if err != nil {
			logger.Warnf("Run history disabled: %v", err)
		} else {
			defer db.Close()
			store = queries.NewScalingStepRepository(db.DB)
		}
	}
	bus.SubscribeAll(events.NewEventLogger(store))

	apps := argocd.NewClient(argocd.Config{
		URL:         cfg.ArgoCD.URL,
		Username:    cfg.ArgoCD.Username,
		Password:    cfg.ArgoCD.Password,
		Timeout:     cfg.ArgoCD.Timeout,
		MaxFailures: cfg.ArgoCD.CircuitBreaker.MaxFailures,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("Circuit breaker %s changed from %s to %s", name, from, to)
			m.SetCircuitBreakerState(name, to)
		},
	})
	defer apps.Close()

	if err := apps.Login(ctx); err != nil {
		logger.Errorf("Failed to get session token: %v", err)
		notifier.Fail(ctx, notify.CategoryToken, "Session Token", err.Error())
		return fmt.Errorf("failed to establish argocd session: %w", err)
	}

	var databases orchestrator.DatabaseClient
	if cfg.AWS.Enabled() {
		client, err := rds.New(ctx, rds.Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Timeout:         cfg.AWS.Timeout,
		})
		if err != nil {
			notifier.Fail(ctx, notify.CategoryInit, "database client", err.Error())
			return err
		}
		databases = client
	} else {
		logger.Info("No AWS secret found, disabling database scaling")
	}

	var applications orchestrator.ApplicationClient = apps
	var fleet *simulator.Fleet
	if opts.dryRun {
		logger.Warn("Dry run: no change will be applied")
		fleet = simulator.NewFleet()
		applications = fleet.Applications(apps)
		if databases != nil {
			databases = fleet.Databases(databases)
		}
	}

	orch := orchestrator.New(orchestratorConfig(cfg), applications, databases, notifier, bus)

	_, runErr := orch.Run(ctx)
	if runErr != nil {
		if errors.Is(runErr, calendar.ErrInvalidOverride) {
			notifier.Fail(ctx, notify.CategoryInit, "invalid calendar override", runErr.Error())
		}
		logger.Errorf("Oops something went wrong: %v", runErr)
	}

	if fleet != nil {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]interface{}{"changes": fleet.Changes()}); err != nil {
			logger.Warnf("Failed to print dry run changes: %v", err)
		}
		_ = enc.Close()
	}

	if err := m.Push(ctx, metrics.PushConfig{
		URL:      cfg.Metrics.PushgatewayURL,
		Job:      cfg.Metrics.Job,
		Instance: cfg.App.Name,
	}); err != nil {
		logger.Warnf("Failed to push metrics: %v", err)
	}

	return runErr
}

func newNotifier(cfg *config.Config, m *metrics.Metrics) notify.Notifier {
	var n notify.Notifier = notify.Noop{}
	if cfg.Slack.Enabled() {
		n = notify.NewSlack(notify.SlackConfig{
			Token:    cfg.Slack.Token,
			Channel:  cfg.Slack.Channel,
			Redirect: cfg.Slack.Redirect,
			APIURL:   cfg.Slack.APIURL,
			Timeout:  cfg.Slack.Timeout,
		})
	}
	return notify.WithCounter(n, func(cat notify.Category, sev notify.Severity) {
		m.IncNotification(string(cat), sev.String())
	})
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	return orchestrator.Config{
		Calendar: calendar.Config{
			Timezone:  cfg.Schedule.Timezone,
			ScaleUp:   cfg.Schedule.ScaleUp,
			ScaleDown: cfg.Schedule.ScaleDown,
			Day:       cfg.Schedule.Day,
			Status:    cfg.Schedule.Status,
		},
		Servers:   cfg.Servers,
		Databases: cfg.Databases,
	}
}
