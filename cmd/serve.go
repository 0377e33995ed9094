package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/koscakluka/huddle-core/core/emergency"
	"github.com/koscakluka/huddle-core/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(load func() (*app, error)) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve consultations over HTTP, SSE and websockets",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := load()
			if err != nil {
				return err
			}
			app.installLogger(cmd.ErrOrStderr())

			orchestrator, err := app.orchestrator()
			if err != nil {
				return err
			}

			if addr == "" {
				addr = app.cfg.Server.Addr
			}

			srv := server.NewServer(orchestrator,
				server.WithStrictEvents(app.cfg.Server.StrictEvents),
				server.WithAllowedOrigins(app.cfg.Server.AllowedOrigins...),
				server.WithEmergencyMatcher(emergency.NewPatternClassifier()),
				server.WithSessionIdleTimeout(app.cfg.Server.SessionIdleTimeout, app.cfg.Server.PruneInterval),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			slog.Info("starting huddle server", "addr", addr, "provider", app.cfg.LLM.Provider)
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}
