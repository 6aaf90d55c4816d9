package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/certcheck/internal/cli"
	"github.com/Veraticus/certcheck/internal/config"
	"github.com/Veraticus/certcheck/internal/storage"
)

// versioned is implemented by stores with numbered migrations.
type versioned interface {
	SchemaVersion(ctx context.Context) (int, error)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

This command ensures the reference and audit tables exist with all the
indexes the verifier relies on.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := config.LoadStorageConfig(viper.GetViper())
	if err != nil {
		return err
	}

	if status {
		if cfg.Driver != config.DriverSQLite {
			fmt.Fprintln(out, cli.FormatInfo("Schema status is only tracked for the sqlite driver; postgres uses AutoMigrate"))
			return nil
		}
		store, err := storage.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()

		current, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatTitle("Database Migration Status"))
		fmt.Fprintf(out, "Database: %s\nCurrent version: %d\nLatest version: %d\n", cfg.Path, current, storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(out, cli.FormatWarning("Migrations pending. Run 'certcheck migrate' to apply them."))
		}
		return nil
	}

	slog.Info("Running database migrations", "driver", cfg.Driver)
	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer store.Close()

	if v, ok := store.(versioned); ok {
		current, err := v.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database migrations completed (schema version %d)", current)))
		return nil
	}
	fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed"))
	return nil
}
