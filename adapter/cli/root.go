// Package cli implements the tempo command line.
package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempo/pkg/config"
	"github.com/felixgeelhaar/tempo/pkg/observability"
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// runtime is what every subcommand needs once configuration is loaded.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
}

type runtimeKey struct{}

func runtimeFrom(cmd *cobra.Command) *runtime {
	rt, _ := cmd.Context().Value(runtimeKey{}).(*runtime)
	return rt
}

// NewRootCommand builds the tempo command tree. load supplies configuration
// and is called once per invocation.
func NewRootCommand(load func() (*config.Config, error)) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:   "tempo",
		Short: "Tempo - task planning with calendar scheduling",
		Long: `Tempo keeps a personal task list and books tasks into
Google Calendar, suggesting free slots for each task.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			logger := observability.NewLogger(observability.LogConfigFor(cfg.AppEnv, cfg.LogLevel, Version))

			info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
			ctx := context.WithValue(cmd.Context(), commandContextKey{}, info)
			ctx = context.WithValue(ctx, runtimeKey{}, &runtime{cfg: cfg, logger: logger})
			ctx = observability.WithRequestID(ctx, info.correlationID.String())
			cmd.SetContext(ctx)

			logger.DebugContext(ctx, "command start", "command", cmd.CommandPath())
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			rt := runtimeFrom(cmd)
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if rt == nil || !ok {
				return
			}
			rt.logger.DebugContext(cmd.Context(), "command end",
				"command", cmd.CommandPath(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(newServeCommand(), newMigrateCommand(), newVersionCommand())
	return root
}

// Execute runs the command tree with configuration from the environment.
func Execute(ctx context.Context) error {
	return NewRootCommand(config.Load).ExecuteContext(ctx)
}
