// Package main runs the transform-to-windows pipeline for one run date:
// transform, weather imputation, merge, features, fills, extension,
// curated storage and windowing, followed by the run report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/bootstrap"
	"natgas-forecast/internal/config"
	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/logging"
	"natgas-forecast/internal/orchestrator"
	"natgas-forecast/internal/reporting"
	"natgas-forecast/internal/sequence"
)

// inputFlag collects repeated --input dataset=objectKey overrides.
type inputFlag map[string]string

func (f inputFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f inputFlag) Set(v string) error {
	key, object, ok := strings.Cut(v, "=")
	if !ok || key == "" || object == "" {
		return fmt.Errorf("expected dataset=objectKey, got %q", v)
	}
	if _, known := datasets.Lookup(key); !known {
		return fmt.Errorf("unknown dataset %q", key)
	}
	f[key] = object
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	runDate := flag.String("run-date", "", "Run date (YYYY-MM-DD); defaults to today UTC")
	previousRun := flag.String("previous-run", "", "Run date of the curated table to extend (YYYY-MM-DD); defaults to run date minus 7 days")
	outputDir := flag.String("output-dir", "", "Output directory for the run report (overrides pipeline.output_dir)")
	noExtend := flag.Bool("no-extend", false, "Do not extend the previous curated table")
	inputs := inputFlag{}
	flag.Var(inputs, "input", "Raw object override as dataset=objectKey (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	day, err := parseDate(*runDate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --run-date: %v\n", err)
		os.Exit(1)
	}
	previous, err := parseDate(*previousRun)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid --previous-run: %v\n", err)
		os.Exit(1)
	}
	dir := cfg.Pipeline.OutputDir
	if *outputDir != "" {
		dir = *outputDir
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, cancelling pipeline", zap.String("signal", sig.String()))
		cancel()
	}()

	stores, err := bootstrap.Open(ctx, cfg, true, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening backends: %v\n", err)
		os.Exit(1)
	}
	defer stores.Close()

	orch := orchestrator.New(orchestrator.Options{
		Objects:       stores.Objects,
		Curated:       stores.Curated,
		RunDate:       day,
		Inputs:        inputs,
		ExtendCurated: cfg.Pipeline.ExtendCurated && !*noExtend,
		PreviousRun:   previous,
		Sequence: sequence.Config{
			Holdout:      cfg.Pipeline.Holdout,
			WindowLength: cfg.Pipeline.WindowLength,
			BatchSize:    cfg.Pipeline.BatchSize,
		},
		Logger: logger,
	})

	result, err := orch.Run(ctx)
	if err != nil {
		logger.Error("pipeline failed", zap.Error(err))
		stores.Close()
		logger.Sync()
		os.Exit(1)
	}

	paths, err := reporting.WriteFiles(dir, result.Report)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing report: %v\n", err)
		stores.Close()
		os.Exit(1)
	}

	fmt.Println("=== Pipeline Run ===")
	fmt.Printf("  Run ID:       %s\n", result.RunID)
	fmt.Printf("  Run date:     %s\n", result.RunDate.Format(time.DateOnly))
	fmt.Printf("  Curated rows: %d\n", result.Curated.Len())
	fmt.Printf("  Extended:     %v\n", result.Extended)
	fmt.Printf("  Train/test:   %d/%d rows\n", result.Dataset.Train.Len(), result.Dataset.Test.Len())
	fmt.Printf("  Windows:      %d/%d\n", len(result.Dataset.TrainWindows), len(result.Dataset.TestWindows))
	fmt.Println("\nGenerated files:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
