// Command server is the entry point for the Scribe blog service.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scribe/internal/config"
	"scribe/internal/models"
	"scribe/internal/observability"
	"scribe/internal/server"
)

const shutdownTimeout = 10 * time.Second

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	os.Exit(run(quit))
}

// run boots the service and blocks until quit fires or the listener fails.
// It returns the process exit code.
func run(quit <-chan os.Signal) int {
	cfg, err := config.LoadConfig()
	if err != nil {
		err = models.NewConfigError(err)
		observability.Logger.Error("Failed to load configuration",
			slog.String("code", models.CodeOf(err)),
			slog.String("error", err.Error()),
		)
		return 1
	}

	logger := observability.InitLogger(cfg.Env, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    observability.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", slog.String("error", err.Error()))
		return 1
	}

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to create server",
			slog.String("code", models.CodeStore),
			slog.String("error", err.Error()),
		)
		flushTracing(logger, shutdownTracing)
		return 1
	}
	srv.NewApp()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	exitCode := 0
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server stopped", slog.String("error", err.Error()))
			exitCode = 1
		}
	case <-quit:
		logger.Info("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}
	flushTracing(logger, shutdownTracing)

	return exitCode
}

func flushTracing(logger *slog.Logger, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("Tracer shutdown error", slog.String("error", err.Error()))
	}
}
