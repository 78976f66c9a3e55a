package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/apiclient"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/dashboard"
	"fintrack/internal/finance"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/session"
	"fintrack/internal/storage"
)

func main() {
	cli.LoadEnvFile()

	// Bootstrap logger until the configured one is available
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(boot.Logger)

	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting fintrack", applog.FieldOperation, applog.OpStartup)

	ctx := context.Background()

	storeCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid token store configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.With(applog.FieldComponent, applog.ComponentStorage).Logger).CreateStore(ctx, storeCfg)
	if err != nil {
		logger.Error("Failed to open token store", "error", err, applog.FieldStore, storeCfg.Type)
		os.Exit(1)
	}

	api := apiclient.New(cfg.APIBaseURL, apiclient.NewDefaultHTTPClient(cfg.APITimeout), result.Store)
	fin := finance.New(api)
	logger.Info("Finance API configured", "base_url", api.BaseURL(), "timeout", cfg.APITimeout.String())

	sess, err := session.New(ctx, fin, result.Store)
	if err != nil {
		logger.Error("Failed to restore session", "error", err)
		os.Exit(1)
	}
	api.OnUnauthorized(sess.HandleUnauthorized)
	sess.Subscribe(func(tr session.Transition) {
		logger.Info("Session changed",
			applog.FieldSessionFrom, tr.From.String(),
			applog.FieldSessionTo, tr.To.String(),
			applog.FieldCause, string(tr.Cause))
	})

	dashOpts := []dashboard.Option{}
	serverOpts := []apphttp.Option{
		apphttp.WithLogger(logger),
		apphttp.WithLoginRateLimit(cfg.LoginRatePerMinute),
	}
	if p, ok := result.Store.(storage.Pinger); ok {
		serverOpts = append(serverOpts, apphttp.WithReadinessCheck("token_store", p.Ping))
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// Events are optional; the app works without them
			logger.Warn("AMQP unavailable, events disabled", "error", err)
		} else {
			events := services.NewEventService(amqpClient)
			sess.Subscribe(events.SessionChanged)
			dashOpts = append(dashOpts, dashboard.WithNotifier(events))
			serverOpts = append(serverOpts, apphttp.WithReadinessCheck("amqp", amqpClient.Ping))
			logger.Info("Publishing events", "exchange", cfg.AMQPExchange)
		}
	}

	dash := dashboard.New(fin, cfg.DashboardLimit, dashOpts...)
	srv := apphttp.NewServer(cfg.Address(), sess, dash, serverOpts...)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2*cfg.APITimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	shutdownCtx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Token store close error", "error", err)
			}
		}
	})

	logger.Info("Listening", "addr", cfg.Address(), applog.FieldStore, storeCfg.Type.String(),
		"authenticated", sess.Authenticated())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
