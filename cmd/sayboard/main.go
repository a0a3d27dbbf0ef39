// Command sayboard listens to the microphone and plays mapped sounds when
// configured keywords are spoken.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sayboard/sayboard/internal/app"
	"github.com/sayboard/sayboard/internal/config"
	"github.com/sayboard/sayboard/internal/health"
	"github.com/sayboard/sayboard/internal/observe"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	httpAddr := flag.String("http", "", "address for the /metrics and health endpoints (empty disables)")
	watch := flag.Bool("watch", false, "reload mappings and log level when the config file changes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sayboard: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sayboard: %v\n", err)
		}
		return 1
	}

	level := &slog.LevelVar{}
	level.Set(cfg.SlogLevel())
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	slog.Info("sayboard starting",
		"version", version,
		"config", *configPath,
		"keywords", cfg.Keywords(),
		"model", cfg.Recognizer.ModelPath,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics provider. The Prometheus exporter feeds the /metrics endpoint
	// below; without -http it still collects for nothing, which is cheap.
	metricsShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsShutdown(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	opts := []app.Option{
		app.WithLogLevelVar(level),
	}
	if *watch {
		opts = append(opts, app.WithConfigWatch(*configPath))
	}

	application, err := app.New(ctx, cfg, opts...)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer application.Shutdown()

	if *httpAddr != "" {
		startDiagnostics(ctx, *httpAddr, cfg)
	}

	slog.Info("listening — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// startDiagnostics serves /metrics, /healthz, and /readyz on addr in a
// background goroutine, shutting the server down when ctx ends.
func startDiagnostics(ctx context.Context, addr string, cfg *config.Config) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(health.ModelDirCheck(cfg.Recognizer.ModelPath)).Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("diagnostics endpoint up", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("diagnostics server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
