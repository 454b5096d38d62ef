package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibelist/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the example configuration to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in [credentials.spotify] and [credentials.openai]\n")
	r.writePlain("2. Run 'vibelist setup database'\n")
	r.writePlain("3. Run 'vibelist auth login'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	if err := r.openStore(); err != nil {
		return err
	}
	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.SetupStatus(ctx, cmd)
}

// SetupStatus lists known migrations and whether each has been applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}

	statuses, err := shared.MigrationStatuses(r.db)
	if err != nil {
		return err
	}

	r.writePlainHeader("Migrations: " + r.config.Database.Path)
	for _, s := range statuses {
		mark := "✗ pending"
		if s.Applied {
			mark = "✓ applied"
		}
		r.writePlain("%04d %-28s %s\n", s.Version, s.Name, mark)
	}
	return nil
}

// SetupRollback reverts the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	if err := r.openStore(); err != nil {
		return err
	}
	if err := shared.RollbackMigration(r.db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.logger.Warn("rolled back latest migration", "path", r.config.Database.Path)
	return r.SetupStatus(ctx, cmd)
}
