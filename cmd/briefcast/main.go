package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"briefcast/internal/app"
	"briefcast/internal/config"
)

var (
	configPath = flag.String("config", "config.toml", "Path to configuration file")
	hours      = flag.Int("hours", 0, "Lookback window in hours (overrides config)")
	duration   = flag.Int("duration", 0, "Target briefing duration in minutes (overrides config)")
	outputDir  = flag.String("output", "", "Output directory (overrides config)")
	filters    = flag.String("filters", "", "Comma-separated keyword filters")
	quick      = flag.Bool("quick", false, "Quick mode: shorter briefing, cache-preferential fetching")
	segmented  = flag.Bool("segmented", false, "Generate one segment per newsletter and concatenate")
	segMinutes = flag.Int("segment-duration", 0, "Per-segment duration in minutes (overrides config)")
	runOnce    = flag.Bool("once", false, "Run one pipeline pass and exit")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("Fatal error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	slog.Info("Loading configuration", "path", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a, err := app.New(cfg, overridesFromFlags())
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	if a.Feed != nil {
		if err := a.Feed.Start(ctx); err != nil {
			return fmt.Errorf("failed to start feed server: %w", err)
		}
	}

	if *runOnce || cfg.Generator.RunOnce {
		result := a.Run(ctx)
		saveResult(a.Pipeline.Options.OutputDir, result)
		if !result.Success {
			return fmt.Errorf("pipeline run failed: %s", strings.Join(result.Errors, "; "))
		}
		return nil
	}

	interval, _ := time.ParseDuration(cfg.Generator.Interval)
	slog.Info("Running on schedule", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		result := a.Run(ctx)
		saveResult(a.Pipeline.Options.OutputDir, result)

		select {
		case <-ctx.Done():
			slog.Info("Scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func overridesFromFlags() app.Overrides {
	var keywordFilters []string
	for _, kw := range strings.Split(*filters, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			keywordFilters = append(keywordFilters, kw)
		}
	}

	return app.Overrides{
		LookbackHours:   *hours,
		DurationMinutes: *duration,
		OutputDir:       *outputDir,
		Filters:         keywordFilters,
		Quick:           *quick,
		Segmented:       *segmented,
		SegmentMinutes:  *segMinutes,
	}
}

func saveResult(dir string, result any) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("Failed to create output directory", "error", err)
		return
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal run result", "error", err)
		return
	}

	path := filepath.Join(dir, fmt.Sprintf("results_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Warn("Failed to save run result", "path", path, "error", err)
		return
	}
	slog.Info("Saved run result", "path", path)
}
