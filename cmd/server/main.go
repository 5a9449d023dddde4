// Package main serves the status API and, optionally, runs the extraction
// scheduler in the same process.
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

	"natgas-forecast/internal/api"
	"natgas-forecast/internal/bootstrap"
	"natgas-forecast/internal/config"
	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/logging"
	"natgas-forecast/internal/notify"
	"natgas-forecast/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	withScheduler := flag.Bool("with-scheduler", false, "Also run the extraction scheduler")
	accessLog := flag.Bool("access-log", false, "Log every HTTP request")
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

	stores, err := bootstrap.Open(ctx, cfg, true, logger)
	if err != nil {
		logger.Error("open backends", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	defer stores.Close()

	if *withScheduler {
		sched, closePublisher, err := newScheduler(ctx, cfg, stores, logger)
		if err != nil {
			logger.Error("create scheduler", zap.Error(err))
			stores.Close()
			logger.Sync()
			os.Exit(1)
		}
		defer closePublisher()
		if err := sched.Start(); err != nil {
			logger.Error("start scheduler", zap.Error(err))
			stores.Close()
			logger.Sync()
			os.Exit(1)
		}
		defer sched.Stop()
	}

	app := api.New(api.Options{
		Watermarks: stores.Watermarks,
		Curated:    stores.Curated,
		AccessLog:  *accessLog,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("starting server", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newScheduler(ctx context.Context, cfg *config.Config, stores *bootstrap.Stores, logger *zap.Logger) (*scheduler.Scheduler, func(), error) {
	selected, err := datasets.Select(cfg.Extraction.Datasets...)
	if err != nil {
		return nil, nil, err
	}
	clients := bootstrap.Clients(cfg, logger)
	jobs := make([]extraction.Job, 0, len(selected))
	for _, d := range selected {
		job, err := d.Job(clients, cfg.Extraction.MaxPages)
		if err != nil {
			return nil, nil, fmt.Errorf("build job %s: %w", d.Key, err)
		}
		jobs = append(jobs, job)
	}

	closePublisher := func() {}
	var publisher notify.Publisher
	if cfg.Notify.AMQPURL != "" {
		p, err := notify.DialAMQP(ctx, cfg.Notify.AMQPURL, cfg.Notify.Queue, 5, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect amqp: %w", err)
		}
		publisher = p
		closePublisher = func() { p.Close() }
	}

	return scheduler.New(scheduler.Options{
		Extractor: extraction.New(extraction.Options{
			Objects:    stores.Objects,
			Watermarks: stores.Watermarks,
			Logger:     logger,
		}),
		Jobs:      jobs,
		Publisher: publisher,
		Interval:  cfg.Extraction.Interval,
		Logger:    logger,
	}), closePublisher, nil
}
