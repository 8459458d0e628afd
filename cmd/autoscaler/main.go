package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/config"
)

// Set at build time with -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	secretPath string
	day        string
	status     string
	logLevel   string
	dryRun     bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "autoscaler",
		Short: "Scale staging applications and databases on a weekly schedule",
		Long: `autoscaler evaluates the weekly schedule once and moves every configured
application and database towards the state the schedule asks for: ArgoCD
auto-sync, deployment replicas and RDS instance power.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to config file (default ./config.yml)")
	flags.StringVar(&opts.secretPath, "secret", "", "path to secret file")
	flags.StringVar(&opts.day, "day", "", "force the day of week, e.g. Monday")
	flags.StringVar(&opts.status, "status", "", "force the time bucket: morning, night or work_hours")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	root.Flags().BoolVar(&opts.dryRun, "dry-run", false, "read the live fleet but only print the changes a run would make")

	root.AddCommand(
		newRunCmd(opts),
		newValidateCmd(opts),
		newMigrateCmd(opts),
		newHistoryCmd(opts),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration and applies command line overrides.
// It does not validate.
func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath, opts.secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.day != "" {
		cfg.Schedule.Day = opts.day
	}
	if opts.status != "" {
		cfg.Schedule.Status = opts.status
	}
	if opts.logLevel != "" {
		cfg.App.LogLevel = opts.logLevel
	}
	return cfg, nil
}

func loadValidConfig(opts *options) (*config.Config, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger.Setup(cfg.App.LogLevel, cfg.App.Mode)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "autoscaler %s (commit %s)\n", version, commit)
		},
	}
}
