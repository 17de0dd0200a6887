// AngelaMos | 2026
// migrate.go

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/carterperez-dev/crm-backend/internal/config"
	"github.com/carterperez-dev/crm-backend/internal/core"
	"github.com/carterperez-dev/crm-backend/internal/migrate"
)

const commandTimeout = 5 * time.Minute

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			applied, err := m.Up(ctx)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			}
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			name, err := m.Down(ctx)
			if errors.Is(err, migrate.ErrNothingToRollback) {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to roll back")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", name)
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			applied, err := m.Status(ctx)
			if err != nil {
				return err
			}
			pending, err := m.Pending(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range applied {
				fmt.Fprintf(out, "[x] %s\n", name)
			}
			for _, name := range pending {
				fmt.Fprintf(out, "[ ] %s\n", name)
			}
			return nil
		}),
	})

	return cmd
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load reference data such as roles and lead sources",
		RunE: withManager(func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error {
			applied, err := m.Seed(ctx)
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "seeds already applied")
			}
			return nil
		}),
	}
}

type managerFunc func(ctx context.Context, cmd *cobra.Command, m *migrate.Manager) error

// withManager connects to the database named by --database-url or
// $DATABASE_URL and hands a migration manager to fn.
func withManager(fn managerFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		url, err := cmd.Flags().GetString("database-url")
		if err != nil {
			return err
		}
		if url == "" {
			url = os.Getenv("DATABASE_URL")
		}
		if url == "" {
			return errors.New("database url is required: pass --database-url or set DATABASE_URL")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
		defer cancel()

		db, err := core.NewDatabase(ctx, config.DatabaseConfig{
			URL:             url,
			MaxOpenConns:    2,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
			ConnMaxIdleTime: time.Minute,
			QueryTimeout:    commandTimeout,
		})
		if err != nil {
			return err
		}
		defer db.Close() //nolint:errcheck // process is exiting

		return fn(ctx, cmd, migrate.NewManager(db.DB))
	}
}
