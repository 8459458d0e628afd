package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/pkg/config"
	"github.com/OldStager01/staging-autoscaler/pkg/database"
	"github.com/OldStager01/staging-autoscaler/pkg/database/queries"
)

var (
	errHistoryDisabled    = errors.New("run history is disabled, set history.enabled")
	errHistoryNotMigrated = errors.New("run history tables are missing, run autoscaler migrate first")
)

func openHistory(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	if !cfg.History.Enabled {
		return nil, errHistoryDisabled
	}
	db, err := database.Open(ctx, cfg.History.Store())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply run history database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidConfig(opts)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.History.Database.MigrationTimeout)
			defer cancel()

			db, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			logger.Info("Running database migrations")
			applied, err := database.NewMigrator(db).Run(ctx)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Infof("Migrations completed successfully, %d applied", len(applied))
			return nil
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	var (
		limit    int
		resource string
		since    time.Duration
		stats    bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recently recorded scaling steps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadValidConfig(opts)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := openHistory(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			ready, err := db.Ready(ctx)
			if err != nil {
				return err
			}
			if !ready {
				return errHistoryNotMigrated
			}

			repo := queries.NewScalingStepRepository(db.DB)
			to := time.Now()
			from := to.Add(-since)

			var out interface{}
			switch {
			case stats:
				out, err = repo.GetStats(ctx, from, to)
			case resource != "":
				out, err = repo.GetByResource(ctx, resource, from, to, limit)
			default:
				out, err = repo.GetRecent(ctx, limit)
			}
			if err != nil {
				return fmt.Errorf("failed to read run history: %w", err)
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of steps to print")
	cmd.Flags().StringVar(&resource, "resource", "", "only steps of this resource")
	cmd.Flags().DurationVar(&since, "since", 7*24*time.Hour, "how far back to look with --resource or --stats")
	cmd.Flags().BoolVar(&stats, "stats", false, "print step counts instead of steps")
	return cmd
}
