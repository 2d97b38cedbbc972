package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempo/internal/app"
	"github.com/felixgeelhaar/tempo/internal/shared/infrastructure/migrations"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd)
			ctx := cmd.Context()

			conn, err := app.OpenDatabase(ctx, rt.cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := migrations.Run(ctx, conn)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			rt.logger.InfoContext(ctx, "migrations complete", "driver", conn.Driver(), "applied", len(applied))

			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "database is up to date")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(out, "applied %s\n", name)
			}
			return nil
		},
	}
}
