// Package scheduler runs dataset extraction on a fixed interval and tells
// transform workers when new raw data has been committed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/notify"
)

// DefaultInterval matches the monthly cadence the datasets are published at.
const DefaultInterval = 30 * 24 * time.Hour

// Options configures a Scheduler.
type Options struct {
	Extractor  *extraction.Extractor
	Jobs       []extraction.Job
	Publisher  notify.Publisher // nil disables notifications
	Interval   time.Duration
	JobTimeout time.Duration // per run; 0 = no timeout
	Logger     *zap.Logger
	Now        func() time.Time
}

// Scheduler periodically extracts every configured dataset.
type Scheduler struct {
	scheduler  *gocron.Scheduler
	extractor  *extraction.Extractor
	jobs       []extraction.Job
	publisher  notify.Publisher
	interval   time.Duration
	jobTimeout time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a Scheduler. Nothing runs until Start or RunOnce.
func New(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler:  gocron.NewScheduler(time.UTC),
		extractor:  opts.Extractor,
		jobs:       opts.Jobs,
		publisher:  opts.Publisher,
		interval:   interval,
		jobTimeout: opts.JobTimeout,
		logger:     logger,
		now:        now,
	}
}

// RunOnce extracts every job in order. A failing dataset does not stop the
// others; all failures are joined into the returned error. When at least
// one dataset committed, a single transform job listing the commits is
// published.
func (s *Scheduler) RunOnce(ctx context.Context) ([]*extraction.Result, error) {
	var (
		results []*extraction.Result
		commits []notify.Commit
		errs    []error
	)
	for _, job := range s.jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := s.extractor.Extract(ctx, job)
		if err != nil {
			s.logger.Error("extraction failed", zap.String("dataset", job.DatasetKey), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
		if res.Committed {
			commits = append(commits, notify.Commit{
				Dataset:   res.DatasetKey,
				ObjectKey: res.ObjectKey,
				MaxDate:   res.MaxDate.Format(time.DateOnly),
				Records:   res.Records,
			})
		}
	}

	if len(commits) > 0 && s.publisher != nil {
		job := notify.NewTransformJob(commits, s.now())
		if err := s.publisher.Publish(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("publish transform job: %w", err))
		} else {
			s.logger.Info("transform job published",
				zap.String("corr_id", job.CorrID),
				zap.Int("commits", len(commits)))
		}
	}

	return results, errors.Join(errs...)
}

// Start schedules RunOnce every interval, starting immediately, and returns
// without blocking.
func (s *Scheduler) Start() error {
	if len(s.jobs) == 0 {
		s.logger.Warn("no datasets configured; nothing to schedule")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().SingletonMode().Do(func() {
		ctx := context.Background()
		if s.jobTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.jobTimeout)
			defer cancel()
		}

		s.logger.Info("running scheduled extraction", zap.Int("datasets", len(s.jobs)))
		results, err := s.RunOnce(ctx)
		if err != nil {
			s.logger.Error("scheduled extraction finished with errors", zap.Error(err))
		}
		s.logger.Info("scheduled extraction completed", zap.Int("succeeded", len(results)))
	})
	if err != nil {
		return fmt.Errorf("schedule extraction: %w", err)
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future runs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
