package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hackerzhuli/editor-messaging-service/internal/config"
	"github.com/hackerzhuli/editor-messaging-service/internal/host"
	"github.com/hackerzhuli/editor-messaging-service/internal/messenger"
	"github.com/hackerzhuli/editor-messaging-service/internal/metrics"
	"github.com/hackerzhuli/editor-messaging-service/internal/protocol"
	"github.com/hackerzhuli/editor-messaging-service/internal/sched"
	"github.com/hackerzhuli/editor-messaging-service/internal/server"
	"github.com/hackerzhuli/editor-messaging-service/internal/store"
)

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	slog.SetDefault(logger)

	pid := os.Getpid()
	if cfg.Messaging.Port == 0 {
		cfg.Messaging.Port = protocol.MessagingPort(pid)
	}

	logger.Info("Starting messaging daemon",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.Int("pid", pid),
		slog.Int("messaging_port", cfg.Messaging.Port),
	)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	settings, err := store.Open(cfg.Storage.Path)
	if err != nil {
		// Persistence is optional; the session runs without it.
		logger.Warn("Settings store unavailable, persistence disabled",
			slog.String("path", cfg.Storage.Path),
			slog.String("error", err.Error()),
		)
		settings = nil
	}

	editorHost, err := host.NewLocal(cfg.Host, logger, serviceVersion)
	if err != nil {
		return fmt.Errorf("failed to create host: %w", err)
	}

	loop := sched.NewLoop(cfg.Messaging.GetTickInterval())
	session := messenger.NewSession(
		cfg.Messaging, logger, m, settings,
		editorHost, host.NewLogRunner(logger), loop,
	)

	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg, logger, m, session, registry)
		go func() {
			if err := httpServer.Start(); err != nil {
				logger.Error("HTTP server error", slog.String("error", err.Error()))
			}
		}()
	}

	session.Start()

	loopCtx, loopCancel := context.WithCancel(context.Background())
	defer loopCancel()
	go loop.Run(loopCtx)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signals {
		if sig == syscall.SIGHUP {
			logger.Info("Reload signal received")
			loop.NotifyReloadCompleted()
			continue
		}

		logger.Info("Shutdown signal received", slog.String("signal", sig.String()))
		break
	}

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := httpServer.Stop(ctx); err != nil {
			logger.Error("Failed to stop HTTP server", slog.String("error", err.Error()))
		}
		cancel()
	}

	session.Stop()
	loop.NotifyBeforeQuit()
	loopCancel()

	if settings != nil {
		if err := settings.Close(); err != nil {
			logger.Error("Failed to close settings store", slog.String("error", err.Error()))
		}
	}

	logger.Info("Messaging daemon stopped")
	return nil
}

// initLogger builds the slog logger from configuration.
func initLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	var output *os.File
	switch cfg.Output {
	case "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.Output, err)
		}
		output = file
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler), nil
}
