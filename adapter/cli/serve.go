package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/tempo/adapter/api"
	"github.com/felixgeelhaar/tempo/internal/app"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := runtimeFrom(cmd)
			ctx := cmd.Context()

			container, err := app.NewContainer(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer container.Close()

			serverCfg := api.DefaultServerConfig()
			serverCfg.Addr = rt.cfg.HTTPAddr
			if addr != "" {
				serverCfg.Addr = addr
			}
			if len(rt.cfg.CORSAllowedOrigins) > 0 {
				serverCfg.AllowedOrigins = rt.cfg.CORSAllowedOrigins
			}

			server := api.NewServer(serverCfg, api.Deps{
				Auth:           container.AuthService,
				OAuth:          container.OAuthManager,
				CreateTask:     container.CreateTaskHandler,
				UpdateTask:     container.UpdateTaskHandler,
				DeleteTask:     container.DeleteTaskHandler,
				ListTasks:      container.ListTasksHandler,
				GetTask:        container.GetTaskHandler,
				Orchestrator:   container.Orchestrator,
				Health:         container.Health,
				Metrics:        container.Metrics,
				MetricsHandler: container.Metrics.Handler(),
			}, rt.logger)

			errCh := make(chan error, 1)
			go func() { errCh <- server.Start() }()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}
