package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpAdapter "github.com/aretw0/rekitter/pkg/adapters/http"
	"github.com/aretw0/rekitter/pkg/runner"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the debate over HTTP: a JSON API described by /openapi.yaml,
a Server-Sent Events stream on /events and Prometheus metrics on /metrics.
Debates started through the API are driven in the background.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, logger, err := buildApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close(context.WithoutCancel(ctx))

		addr := app.Config.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		handler, err := httpAdapter.NewHandler(app.Engine,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithStatic(app.Config.AvatarBase),
		)
		if err != nil {
			return err
		}

		autopilot := runner.NewRunner(runner.WithPacing(app.Config.Debate.Pacing), runner.WithLogger(logger))
		go func() {
			if err := autopilot.Autopilot(ctx, app.Engine); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Autopilot stopped", "err", err)
			}
		}()

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("Starting Rekitter server", "addr", addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return err
		case <-ctx.Done():
			logger.Info("Shutting down")
		}

		// Give outstanding requests a deadline for completion. SSE streams end with ctx.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = app.Engine.Stop(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "err", err)
			return srv.Close()
		}
		logger.Info("Rekitter server stopped gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", ":8080", "Address to listen on")
}
