package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lysyi3m/news-harvest/app/api"
	"github.com/lysyi3m/news-harvest/app/cfg"
	"github.com/lysyi3m/news-harvest/app/database"
	"github.com/lysyi3m/news-harvest/app/feed"
	"github.com/lysyi3m/news-harvest/app/metrics"
	"github.com/lysyi3m/news-harvest/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting News Harvest", "version", appCfg.Version, "command", appCfg.Command)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	if appCfg.Command == cfg.CommandMigrate {
		fmt.Printf("schema version %d (dirty: %t)\n", version, dirty)
		return
	}

	registry, err := feed.LoadRegistry(appCfg.FeedsFile)
	if err != nil {
		slog.Error("Failed to load feed registry", "path", appCfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed registry loaded", "path", appCfg.FeedsFile, "feeds", registry.Count())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	articleRepo := database.NewArticleStore(db)
	feedRepo := database.NewFeedStatusStore(db)
	fetcher := feed.NewFetcher(appCfg.UserAgent, appCfg.FetchRetries)
	runner := tasks.NewRunner(registry, articleRepo, feedRepo, fetcher, metrics.New(promRegistry),
		appCfg.WorkerCount, appCfg.GetFetchTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch appCfg.Command {
	case cfg.CommandIngest:
		runIngest(ctx, runner)
	case cfg.CommandServe:
		handler := api.NewHandler(registry, articleRepo, feedRepo, runner)
		if err := runServer(ctx, appCfg, handler, promRegistry); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// runIngest performs one ingestion run and prints the report as JSON.
// Per-feed failures are part of the report and do not change the exit code.
func runIngest(ctx context.Context, runner *tasks.Runner) {
	report := runner.IngestAll(ctx)

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(api.IngestResponse{Report: report, Totals: report.Totals()}); err != nil {
		slog.Error("Failed to write report", "error", err)
	}
}

func runServer(ctx context.Context, appCfg *cfg.Cfg, handler *api.Handler, gatherer prometheus.Gatherer) error {
	if appCfg.IngestOnStart {
		go func() {
			slog.Info("Running ingestion on start")
			if _, ran := handler.IngestAll(ctx); !ran {
				slog.Warn("Ingestion on start skipped, another run is in progress")
			}
		}()
	}

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey, gatherer),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // POST /api/ingest runs a full pass synchronously
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("News Harvest shutdown complete")
	return nil
}
