package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/adapter/handler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local web console",
	Long: `Serve the web console on server.addr. The console shares the stored
session with the CLI and keeps it fresh while it runs.

Examples:
  collabctl serve
  collabctl serve --addr 127.0.0.1:9000`,
	Args: usageArgs(cobra.NoArgs),
	RunE: withApp(runServe),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string, a *app) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	console := handler.NewConsole(handler.ConsoleOptions{
		Session:   a.session,
		Resources: a.resources,
		Sanitizer: a.sanitize,
		Validator: a.validate,
		Logger:    logger,
	})
	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.Telemetry.ServiceName
	}
	e := handler.NewRouter(handler.RouterOptions{Console: console, Tracing: tracing, Logger: logger})

	a.printer.Info("Console on http://%s (Ctrl+C to stop)", addr)
	return handler.Serve(ctx, e, addr, a.session.Run, logger)
}
