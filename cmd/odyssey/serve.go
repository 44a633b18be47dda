package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/odyssey-backoffice/internal/app"
	"github.com/odyssey-erp/odyssey-backoffice/internal/billing"
	"github.com/odyssey-erp/odyssey-backoffice/jobs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := loadDeps(ctx)
	if err != nil {
		return err
	}
	defer d.Close()
	logger := d.logger

	if err := d.lookups.Listen(ctx); err != nil {
		logger.Warn("lookup invalidation listener", slog.Any("error", err))
	}

	var jobHandler *jobs.Handler
	if d.redis != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: d.cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		jobHandler = jobs.NewHandler(nil, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         d.cfg,
		BillingHandler: billing.NewHandler(logger, d.billing),
		JobHandler:     jobHandler,
		Metrics:        d.metrics,
	})

	server := &http.Server{
		Addr:         d.cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  d.cfg.AppReadTimeout,
		WriteTimeout: d.cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", d.cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
