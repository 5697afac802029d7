// Package main is the entry point for the llmarena completion gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"llmarena/config"
	"llmarena/internal/app"
	"llmarena/internal/logging"
	"llmarena/internal/observability"
	"llmarena/internal/providers"
	"llmarena/internal/providers/anthropic"
	"llmarena/internal/providers/openai"
	"llmarena/internal/providers/simulated"
	"llmarena/internal/version"
)

func main() {
	versionFlag := flag.Bool("version", false, "Print version information")
	configPath := flag.String("config", "", "Path to a YAML config file (default: ./config.yaml if present)")
	flag.Parse()

	if *versionFlag {
		fmt.Println(version.Info())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if _, err := logging.Setup(os.Stderr, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	// Log the version immediately on startup
	slog.Info("starting llmarena",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	factory := providers.NewProviderFactory()
	factory.Add(simulated.Registration)
	factory.Add(openai.Registration)
	factory.Add(anthropic.Registration)

	var hooks observability.Hooks
	if cfg.Metrics.Enabled {
		hooks = observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
	}

	application, err := app.New(context.Background(), app.Config{
		AppConfig: cfg,
		Factory:   factory,
		Hooks:     hooks,
	})
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	if err := application.Start(addr); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
