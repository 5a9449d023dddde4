// Package orchestrator provides the transform-to-windows pipeline run.
// It coordinates: transform -> weather -> monthly imputation -> merge ->
// features -> fill -> extend -> split/persist -> windows -> reporting
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/features"
	"natgas-forecast/internal/fill"
	"natgas-forecast/internal/frame"
	"natgas-forecast/internal/merge"
	"natgas-forecast/internal/observability"
	"natgas-forecast/internal/reporting"
	"natgas-forecast/internal/sequence"
	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/table"
	"natgas-forecast/internal/weather"
)

// Object key prefixes of the artefacts a run writes.
const (
	ImputationPrefix   = "imputation_base"
	CuratedTrainPrefix = "curated_training_data"
	CuratedTestPrefix  = "curated_test_data"
)

// DefaultPreviousRunGap is how far back the previous curated run is looked
// up when no explicit date is given.
const DefaultPreviousRunGap = 7 * 24 * time.Hour

// Orchestrator runs the pipeline over one set of extracted blobs.
type Orchestrator struct {
	// Stores
	objects storage.ObjectStore
	curated storage.CuratedStore

	// Inputs
	runDate     time.Time
	inputs      map[string]string
	previousRun time.Time
	extend      bool

	// Options
	sequence sequence.Config
	logger   *zap.Logger
	now      func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	Objects storage.ObjectStore
	Curated storage.CuratedStore // optional; nil skips persisting curated rows

	// RunDate names every artefact the run reads and writes. Defaults to
	// today (UTC).
	RunDate time.Time

	// Inputs maps a dataset key to the raw object key to read. Datasets
	// without an entry read <dataset>_<RunDate>.
	Inputs map[string]string

	// ExtendCurated merges the curated table of PreviousRun (RunDate minus
	// DefaultPreviousRunGap when zero) under this run's table. A missing
	// previous table is not an error.
	ExtendCurated bool
	PreviousRun   time.Time

	Sequence sequence.Config
	Logger   *zap.Logger
	Now      func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	runDate := opts.RunDate
	if runDate.IsZero() {
		runDate = now().UTC()
	}
	runDate = time.Date(runDate.Year(), runDate.Month(), runDate.Day(), 0, 0, 0, 0, time.UTC)
	previous := opts.PreviousRun
	if previous.IsZero() {
		previous = runDate.Add(-DefaultPreviousRunGap)
	}
	return &Orchestrator{
		objects:     opts.Objects,
		curated:     opts.Curated,
		runDate:     runDate,
		inputs:      opts.Inputs,
		previousRun: previous,
		extend:      opts.ExtendCurated,
		sequence:    opts.Sequence,
		logger:      logger,
		now:         now,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	RunID      string
	RunDate    time.Time
	Curated    *frame.Frame // filled, extended, not normalised
	Dataset    *sequence.Dataset
	Imputation *weather.ImputationTable
	Report     *reporting.Report
	Extended   bool // a previous curated table was merged in
}

// Run executes the full pipeline.
// Phases:
//  1. Transform each raw blob with its dataset recipe
//  2. Impute and aggregate weather
//  3. Impute isolated monthly nulls
//  4. Merge
//  5. Engineer price features
//  6. Fill leading and trailing nulls
//  7. Extend the previous curated table
//  8. Split and store the curated train and test tables
//  9. Persist curated rows
//  10. Normalise and window
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString(), RunDate: o.runDate}
	report := reporting.NewGenerator(result.RunID, o.runDate).WithClock(o.now)
	log := o.logger.With(zap.String("run_id", result.RunID), zap.String("run_date", o.runDate.Format(time.DateOnly)))
	log.Info("pipeline run started")

	var (
		tables  map[string]*table.Table
		daily   *frame.Frame
		frames  = map[string]*frame.Frame{}
		merged  *frame.Frame
		curated *frame.Frame
	)

	// Phase 1: Transformation
	err := o.phase(ctx, log, 1, "transform", func() error {
		var err error
		tables, err = o.transform(ctx, report)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Phase 2: Weather imputation and aggregation
	err = o.phase(ctx, log, 2, "weather", func() error {
		var err error
		daily, result.Imputation, err = o.aggregateWeather(ctx, tables[datasets.DailyWeather], report)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Phase 3: Monthly imputation
	err = o.phase(ctx, log, 3, "monthly imputation", func() error {
		for _, key := range []string{
			datasets.NaturalGasSpotPrices,
			datasets.HeatingOilSpotPrices,
			datasets.NaturalGasMonthlyVariables,
			datasets.NaturalGasRigsInOperation,
		} {
			f, err := frame.FromTable(tables[key], frame.DateColumn)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			frames[key] = f
		}
		filled := 0
		for _, key := range []string{datasets.NaturalGasMonthlyVariables, datasets.NaturalGasRigsInOperation} {
			n, err := features.ImputeMonthly(frames[key], frames[key].Columns()...)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			filled += n
		}
		report.AddFill("monthly window median", filled)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Phase 4: Merge
	err = o.phase(ctx, log, 4, "merge", func() error {
		var err error
		merged, err = merge.Merge(
			frames[datasets.NaturalGasSpotPrices],
			frames[datasets.HeatingOilSpotPrices],
			frames[datasets.NaturalGasMonthlyVariables],
			frames[datasets.NaturalGasRigsInOperation],
			daily,
		)
		if err != nil {
			return err
		}
		report.AddStage("merge", merged)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Phase 5: Feature engineering
	err = o.phase(ctx, log, 5, "features", func() error {
		if err := features.AddPriceFeatures(merged); err != nil {
			return err
		}
		report.AddStage("features", merged)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Phase 6: Edge fill
	err = o.phase(ctx, log, 6, "fill", func() error {
		n, err := fill.Leading(merged, warmupColumns()...)
		if err != nil {
			return err
		}
		report.AddFill("leading backfill", n)
		if n, err = fill.Trailing(merged, fill.TrailingColumns...); err != nil {
			return err
		}
		report.AddFill("trailing forward fill", n)
		report.AddStage("fill", merged)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Phase 7: Extend previous curated data
	curated = merged
	if o.extend {
		err = o.phase(ctx, log, 7, "extend", func() error {
			previous, err := o.loadCurated(ctx, o.previousRun)
			if errors.Is(err, storage.ErrNotFound) {
				log.Info("no previous curated data", zap.String("previous_run", o.previousRun.Format(time.DateOnly)))
				return nil
			}
			if err != nil {
				return err
			}
			if curated, err = merge.Extend(previous, merged); err != nil {
				return err
			}
			result.Extended = true
			report.AddStage("extend", curated)
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		log.Info("phase skipped", zap.Int("phase", 7), zap.String("name", "extend"))
	}
	result.Curated = curated

	// Phase 8: Split and store curated tables
	err = o.phase(ctx, log, 8, "store curated", func() error {
		return o.storeCurated(ctx, curated)
	})
	if err != nil {
		return nil, err
	}

	// Phase 9: Persist curated rows
	if o.curated != nil {
		err = o.phase(ctx, log, 9, "persist curated rows", func() error {
			return o.curated.InsertBulk(ctx, CuratedRows(result.RunID, curated))
		})
		if err != nil {
			return nil, err
		}
	}

	// Phase 10: Normalisation and windowing
	err = o.phase(ctx, log, 10, "sequence", func() error {
		var err error
		result.Dataset, err = sequence.Build(curated, o.sequence)
		return err
	})
	if err != nil {
		return nil, err
	}

	result.Report = report.Generate(curated, result.Dataset)
	observability.RecordPipelineOutput(curated.Len(), len(result.Dataset.TrainWindows), len(result.Dataset.TestWindows))

	log.Info("pipeline run completed",
		zap.Int("curated_rows", curated.Len()),
		zap.Int("train_windows", len(result.Dataset.TrainWindows)),
		zap.Int("test_windows", len(result.Dataset.TestWindows)))
	return result, nil
}

// phase runs fn as phase n, recording its duration and wrapping its error.
func (o *Orchestrator) phase(ctx context.Context, log *zap.Logger, n int, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("phase %d (%s) failed: %w", n, name, err)
	}
	log.Info("phase started", zap.Int("phase", n), zap.String("name", name))
	began := o.now()

	err := fn()

	elapsed := o.now().Sub(began)
	if err != nil {
		observability.RecordPipelineRun(name, "failure", elapsed.Seconds())
		return fmt.Errorf("phase %d (%s) failed: %w", n, name, err)
	}
	observability.RecordPipelineRun(name, "success", elapsed.Seconds())
	log.Info("phase completed", zap.Int("phase", n), zap.String("name", name), zap.Duration("elapsed", elapsed))
	return nil
}

// InputKey returns the raw object key read for dataset.
func (o *Orchestrator) InputKey(dataset string) string {
	if key, ok := o.inputs[dataset]; ok && key != "" {
		return key
	}
	return extraction.ObjectKey(dataset, o.runDate)
}

// transform reads every dataset's raw blob, applies its recipe and stores
// the result under the dataset's transformation folder with the same key.
func (o *Orchestrator) transform(ctx context.Context, report *reporting.Generator) (map[string]*table.Table, error) {
	out := make(map[string]*table.Table, len(datasets.All()))
	for _, d := range datasets.All() {
		key := o.InputKey(d.Key)
		raw, err := o.objects.Get(ctx, d.ExtractionFolder(), key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", storage.ObjectPath(d.ExtractionFolder(), key), err)
		}
		t, err := d.Transform(raw)
		if err != nil {
			return nil, fmt.Errorf("transform %s: %w", d.Key, err)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", d.Key, err)
		}
		if err := o.objects.Put(ctx, d.TransformationFolder(), key, data); err != nil {
			return nil, fmt.Errorf("store transformed %s: %w", d.Key, err)
		}
		report.AddInput(d.Key, key, t.Len())
		out[d.Key] = t
	}
	return out, nil
}

// aggregateWeather builds this run's imputation table from the observations, stores
// it, applies it and reduces the observations to one row per date.
func (o *Orchestrator) aggregateWeather(ctx context.Context, t *table.Table, report *reporting.Generator) (*frame.Frame, *weather.ImputationTable, error) {
	obs, err := weather.FromTable(t)
	if err != nil {
		return nil, nil, err
	}

	imputation := weather.BuildImputationTable(obs)
	data, err := json.Marshal(imputation.ToTable())
	if err != nil {
		return nil, nil, fmt.Errorf("encode imputation table: %w", err)
	}
	key := fmt.Sprintf("%s_%s", ImputationPrefix, o.runDate.Format("20060102"))
	if err := o.objects.Put(ctx, datasets.ImputationFolder, key, data); err != nil {
		return nil, nil, fmt.Errorf("store imputation table: %w", err)
	}

	report.AddFill("weather climatology", imputation.Apply(obs))
	report.AddFill("tavg midpoint", weather.FillMissingTAvg(obs))

	f, err := weather.Aggregate(obs)
	if err != nil {
		return nil, nil, err
	}
	report.AddStage("weather", f)
	return f, imputation, nil
}

// CuratedKey returns the object key of the curated table with prefix
// written on runDate.
func CuratedKey(prefix string, runDate time.Time) string {
	return fmt.Sprintf("%s_%s", prefix, runDate.Format("20060102"))
}

// storeCurated writes the train and test parts of curated.
func (o *Orchestrator) storeCurated(ctx context.Context, curated *frame.Frame) error {
	holdout := o.sequence.Holdout
	if holdout == 0 {
		holdout = sequence.DefaultHoldout
	}
	train, test, err := sequence.Split(curated, holdout)
	if err != nil {
		return err
	}
	for _, part := range []struct {
		folder, prefix string
		f              *frame.Frame
	}{
		{datasets.CuratedTrainFolder, CuratedTrainPrefix, train},
		{datasets.CuratedTestFolder, CuratedTestPrefix, test},
	} {
		data, err := json.Marshal(part.f)
		if err != nil {
			return fmt.Errorf("encode %s: %w", part.prefix, err)
		}
		if err := o.objects.Put(ctx, part.folder, CuratedKey(part.prefix, o.runDate), data); err != nil {
			return fmt.Errorf("store %s: %w", part.prefix, err)
		}
	}
	return nil
}

// loadCurated reads back the full curated table a run stored on runDate.
// Returns ErrNotFound when the run left no training table.
func (o *Orchestrator) loadCurated(ctx context.Context, runDate time.Time) (*frame.Frame, error) {
	data, err := o.objects.Get(ctx, datasets.CuratedTrainFolder, CuratedKey(CuratedTrainPrefix, runDate))
	if err != nil {
		return nil, err
	}
	train, err := frame.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode previous training data: %w", err)
	}

	data, err = o.objects.Get(ctx, datasets.CuratedTestFolder, CuratedKey(CuratedTestPrefix, runDate))
	if errors.Is(err, storage.ErrNotFound) {
		return train, nil
	}
	if err != nil {
		return nil, err
	}
	test, err := frame.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode previous test data: %w", err)
	}
	return merge.Extend(train, test)
}

// CuratedRows flattens f into long-format rows tagged with runID.
func CuratedRows(runID string, f *frame.Frame) []*storage.CuratedRow {
	cols := f.Columns()
	rows := make([]*storage.CuratedRow, 0, f.Len()*len(cols))
	for i, d := range f.Dates() {
		for _, c := range cols {
			r := &storage.CuratedRow{RunID: runID, Date: d, Column: c}
			if v := f.Col(c)[i]; !frame.IsNull(v) {
				r.Value = &v
			}
			rows = append(rows, r)
		}
	}
	return rows
}

// warmupColumns are back-filled at the head of the series: the price
// features and the day-over-day weather change, undefined on the first
// date. Monthly and raw weather columns keep their leading nulls.
func warmupColumns() []string {
	return append(features.WarmupColumns(), weather.ColMaxAbsTAvgDiff)
}
