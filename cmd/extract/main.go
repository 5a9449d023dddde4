// Package main runs the extraction stage: every configured dataset is
// pulled from its upstream API past its watermark and committed to the
// object store, either once or on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/bootstrap"
	"natgas-forecast/internal/config"
	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/logging"
	"natgas-forecast/internal/notify"
	"natgas-forecast/internal/scheduler"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	schedule := flag.Bool("schedule", false, "Keep running and extract every extraction.interval")
	timeout := flag.Duration("timeout", 0, "Timeout for one extraction run (0 = none)")
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, cfg, logger, *schedule, *timeout, sigCh, cancel); err != nil {
		logger.Error("extraction failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, schedule bool, timeout time.Duration, sigCh <-chan os.Signal, cancel context.CancelFunc) error {
	stores, err := bootstrap.Open(ctx, cfg, false, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	selected, err := datasets.Select(cfg.Extraction.Datasets...)
	if err != nil {
		return err
	}
	clients := bootstrap.Clients(cfg, logger)
	jobs := make([]extraction.Job, 0, len(selected))
	for _, d := range selected {
		job, err := d.Job(clients, cfg.Extraction.MaxPages)
		if err != nil {
			return fmt.Errorf("build job %s: %w", d.Key, err)
		}
		jobs = append(jobs, job)
	}

	var publisher notify.Publisher
	if cfg.Notify.AMQPURL != "" {
		p, err := notify.DialAMQP(ctx, cfg.Notify.AMQPURL, cfg.Notify.Queue, 5, logger)
		if err != nil {
			return fmt.Errorf("connect amqp: %w", err)
		}
		defer p.Close()
		publisher = p
	}

	sched := scheduler.New(scheduler.Options{
		Extractor: extraction.New(extraction.Options{
			Objects:    stores.Objects,
			Watermarks: stores.Watermarks,
			Logger:     logger,
		}),
		Jobs:       jobs,
		Publisher:  publisher,
		Interval:   cfg.Extraction.Interval,
		JobTimeout: timeout,
		Logger:     logger,
	})

	if !schedule {
		go func() {
			sig := <-sigCh
			logger.Info("received signal, cancelling extraction", zap.String("signal", sig.String()))
			cancel()
		}()

		runCtx := ctx
		if timeout > 0 {
			var stop context.CancelFunc
			runCtx, stop = context.WithTimeout(ctx, timeout)
			defer stop()
		}
		results, err := sched.RunOnce(runCtx)
		for _, r := range results {
			fmt.Printf("%-40s committed=%-5v records=%-6d key=%s\n", r.DatasetKey, r.Committed, r.Records, r.ObjectKey)
		}
		return err
	}

	if err := sched.Start(); err != nil {
		return err
	}
	sig := <-sigCh
	logger.Info("received signal, stopping scheduler", zap.String("signal", sig.String()))
	sched.Stop()
	return nil
}
