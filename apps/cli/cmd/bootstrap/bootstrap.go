package bootstrap

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
)

// Command groups bootstrap helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources",
		Long:  "Bootstrap platform resources such as the Postgres schema, tables and row-level security policies.",
	}

	cmd.AddCommand(schemaCommand())
	return cmd
}

func schemaCommand() *cobra.Command {
	var (
		databaseURL string
		schema      string
	)

	c := &cobra.Command{
		Use:   "schema",
		Short: "Create the tenant registry and document tables (idempotent)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
				ConnString:      databaseURL,
				ApplicationName: "freightdesk-cli",
				ConnectAttempts: 3,
			})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			if err := persistence.Bootstrap(ctx, pool, schema); err != nil {
				return fmt.Errorf("bootstrap schema: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Schema %q is ready.\n", schema)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&schema, "schema", persistence.DefaultSchema, "Postgres schema that holds FreightDesk tables")

	_ = c.MarkFlagRequired("database-url")

	return c
}
