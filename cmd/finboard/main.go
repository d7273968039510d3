package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/cli"
	"finboard/internal/config"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).Validate)

	logger, closer := cli.SetupLogger(cfg, "finboard")
	defer closer.Close()

	sessions := cli.InitSessionStore(logger, cfg)
	defer sessions.Close()

	client := api.New(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(logger.WithComponent(applog.ComponentAPI)))

	// The mirror is optional; without a broker the dashboard still works.
	var publisher apphttp.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, transaction mirroring disabled",
				applog.FieldError, err.Error())
		} else {
			amqpClient.SetLogger(logger.WithComponent(applog.ComponentAMQP))
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		API:                client,
		Sessions:           sessions,
		Publisher:          publisher,
		Logger:             logger,
		SessionTTL:         cfg.SessionTTL,
		CookieSecure:       cfg.CookieSecure,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	if err != nil {
		logger.Error("Failed to build server", applog.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err.Error())
		}
	})

	logger.Info("Starting finboard",
		"port", cfg.Port,
		"api_url", cfg.APIURL,
		"session_backend", cfg.SessionBackend,
		"mirror", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
