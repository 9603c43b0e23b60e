package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/0xDTC/0xGodaddy/internal/config"
	"github.com/0xDTC/0xGodaddy/internal/fetch"
	"github.com/0xDTC/0xGodaddy/internal/inventory"
	"github.com/0xDTC/0xGodaddy/internal/logger"
	"github.com/0xDTC/0xGodaddy/internal/metrics"
	"github.com/0xDTC/0xGodaddy/internal/progress"
	"github.com/0xDTC/0xGodaddy/internal/provider"
	"github.com/0xDTC/0xGodaddy/internal/provider/cloudflare"
	"github.com/0xDTC/0xGodaddy/internal/provider/godaddy"
	"github.com/0xDTC/0xGodaddy/internal/reconcile"
	"github.com/0xDTC/0xGodaddy/internal/report"
	"github.com/0xDTC/0xGodaddy/internal/store"
)

// interruptExit follows the shell convention for SIGINT.
const interruptExit = 130

func main() {
	os.Exit(run())
}

func run() int {
	var (
		useGoDaddy    = pflag.BoolP("godaddy", "g", false, "inventory GoDaddy records")
		useCloudflare = pflag.BoolP("cloudflare", "c", false, "inventory Cloudflare records")
		configPath    = pflag.String("config", "config.yaml", "config file (yaml, toml, or json)")
		verbose       = pflag.Bool("log", false, "log per-domain fetch progress")
		debug         = pflag.Bool("debug", false, "debug logging")
		watch         = pflag.Bool("watch", false, "keep running, re-inventory on an interval")
		noSpinner     = pflag.Bool("no-spinner", false, "disable the terminal activity indicator")
		noReport      = pflag.Bool("no-report", false, "skip the HTML report")
	)
	pflag.Parse()

	// Neither provider flag selects everything configured.
	if !*useGoDaddy && !*useCloudflare {
		*useGoDaddy = true
		*useCloudflare = true
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}
	logger.Configure(cfg.Log, *debug)

	if err := cfg.Validate(*useGoDaddy, *useCloudflare); err != nil {
		slog.Error("Invalid configuration", "error", err)
		return 1
	}

	metrics := metrics.New(true)

	// The indicator shares stderr with the console handler; it stays off
	// when logs are machine-read.
	var spinner *progress.Spinner
	if !*noSpinner && !*watch && (cfg.Log.Env == "dev" || cfg.Log.Env == "development") {
		spinner = progress.New(os.Stderr)
	}

	opts := fetch.Options{
		Timeout:    cfg.HTTP.Timeout,
		MaxRetries: cfg.HTTP.MaxRetries,
		RetryBase:  cfg.HTTP.RetryBase,
		RatePause:  cfg.HTTP.RatePause,
		RateLimit:  cfg.HTTP.RateLimit,
		UserAgent:  cfg.HTTP.UserAgent,
	}

	var providers []provider.Provider
	if *useGoDaddy {
		gd, err := godaddy.New(cfg.GoDaddy, opts, metrics, spinner)
		if err != nil {
			slog.Error("Failed to initialize GoDaddy provider", "error", err)
			return 1
		}
		providers = append(providers, gd)
	}
	if *useCloudflare {
		cf, err := cloudflare.New(cfg.Cloudflare, opts, metrics, spinner)
		if err != nil {
			slog.Error("Failed to initialize Cloudflare provider", "error", err)
			return 1
		}
		providers = append(providers, cf)
	}

	snapshots, err := store.New(cfg.StoreBackend, cfg.SnapshotPath, metrics)
	if err != nil {
		slog.Error("Failed to initialize snapshot store", "error", err)
		return 1
	}
	defer snapshots.Close()

	engine := reconcile.NewEngine(snapshots, metrics)
	runner := inventory.New(providers, engine, metrics)
	runner.Verbose = *verbose

	var renderer *report.Renderer
	if !*noReport {
		renderer = report.New(cfg.ReportPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting dns-inventory", "providers", len(providers), "store", cfg.StoreBackend)

	if *watch {
		return runWatch(ctx, cfg, runner, renderer, metrics)
	}
	return runOnce(ctx, runner, renderer)
}

func runOnce(ctx context.Context, runner *inventory.Runner, renderer *report.Renderer) int {
	outcome, err := runner.Run(ctx)
	if err != nil {
		slog.Error("Inventory run failed", "error", err)
		return 1
	}
	render(renderer, outcome)
	if outcome.Interrupted {
		slog.Warn("Run interrupted, partial inventory persisted")
		return interruptExit
	}
	return 0
}

// runWatch re-inventories on a ticker until a shutdown signal arrives.
// The metrics endpoint only exists in this mode; a one-shot run has
// nobody to scrape it.
func runWatch(ctx context.Context, cfg *config.Config, runner *inventory.Runner, renderer *report.Renderer, metrics *metrics.Metrics) int {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: mux,
	}

	go func() {
		slog.Info("Starting metrics server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()

	slog.Info("Watching for record changes", "interval", cfg.WatchInterval)
	ticker := time.NewTicker(cfg.WatchInterval)
	defer ticker.Stop()

	interrupted := false
	for {
		outcome, err := runner.Run(ctx)
		if err != nil {
			slog.Error("Inventory run failed", "error", err)
		} else {
			render(renderer, outcome)
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			slog.Info("Shutdown signal received, stopping watch loop")
			interrupted = true
		}
		break
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Metrics server shutdown error", "error", err)
	}

	if interrupted {
		return interruptExit
	}
	return 0
}

func render(renderer *report.Renderer, outcome inventory.Outcome) {
	if renderer == nil {
		return
	}
	data := report.Data{
		GeneratedAt:  time.Now(),
		Records:      outcome.Results.Records,
		Availability: outcome.Availability,
	}
	if err := renderer.Render(data); err != nil {
		slog.Error("Failed to write HTML report", "error", err)
		return
	}
	slog.Info("Report written", "path", renderer.Path(), "records", len(outcome.Results.Records))
}
