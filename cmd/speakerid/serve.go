package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/attribution"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		f    enrollFlags
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the attribution HTTP API",
		Long: `Keeps the embedding model and the enrolled set loaded and serves
POST /api/v1/attributions, GET /api/v1/identities and
POST /api/v1/identities/reload alongside the health endpoints.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	f.bind(cmd.Flags())
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

func runServe(ctx context.Context, cfg *Config) error {
	app, err := newApplication(cfg)
	if err != nil {
		return err
	}

	srv := server.New(cfg.Server, app.Logger)
	srv.Use()
	srv.HealthRoutes(cfg.Name, app.Components.HealthAll)
	attribution.NewHandler(app.Service).Register(srv.Engine(), srv.Guard())

	if err := app.RegisterComponent(app.Service); err != nil {
		return err
	}
	if err := app.RegisterComponent(server.NewComponent(srv)); err != nil {
		return err
	}

	// Build the enrolled set up front so the first request does not pay
	// for it. A failure leaves the service degraded until a reload.
	app.OnReady(func(ctx context.Context) error {
		if _, _, err := app.Service.Enrollment(ctx); err != nil {
			app.Logger.Warn("enrollment not ready", logger.Fields(logger.FieldError, err.Error()))
		}
		return nil
	})
	return app.Run(ctx)
}
