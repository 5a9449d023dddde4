package sequence

import (
	"fmt"

	"natgas-forecast/internal/frame"
)

// Config controls Build. Zero values take the package defaults.
type Config struct {
	Holdout       float64
	WindowLength  int
	BatchSize     int
	Target        string
	RobustColumns []string
	LogColumns    []string
}

func (c Config) withDefaults() Config {
	if c.Holdout == 0 {
		c.Holdout = DefaultHoldout
	}
	if c.WindowLength == 0 {
		c.WindowLength = DefaultWindowLength
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Target == "" {
		c.Target = DefaultTarget
	}
	if c.RobustColumns == nil {
		c.RobustColumns = RobustColumns
	}
	if c.LogColumns == nil {
		c.LogColumns = LogColumns
	}
	return c
}

// Features returns the model input columns: robust then log columns.
func (c Config) Features() []string {
	c = c.withDefaults()
	return append(append([]string(nil), c.RobustColumns...), c.LogColumns...)
}

// Dataset is the trainer-facing output of Build.
type Dataset struct {
	Config       Config
	Train        *frame.Frame // normalised
	Test         *frame.Frame // normalised
	Params       []ScalerParam
	TrainWindows []Window
	TestWindows  []Window
	TrainBatches []Batch
	TestBatches  []Batch
}

// Build splits curated, fits the scaler on the training part only,
// transforms both parts and windows them.
func Build(curated *frame.Frame, cfg Config) (*Dataset, error) {
	cfg = cfg.withDefaults()

	trainRaw, testRaw, err := Split(curated, cfg.Holdout)
	if err != nil {
		return nil, err
	}
	scaler, err := FitRobust(trainRaw, cfg.RobustColumns)
	if err != nil {
		return nil, err
	}
	train, err := scaler.Transform(trainRaw)
	if err != nil {
		return nil, err
	}
	test, err := scaler.Transform(testRaw)
	if err != nil {
		return nil, err
	}
	if err := Log1p(train, cfg.LogColumns...); err != nil {
		return nil, err
	}
	if err := Log1p(test, cfg.LogColumns...); err != nil {
		return nil, err
	}

	features := cfg.Features()
	trainWindows, err := Windows(train, features, cfg.Target, cfg.WindowLength)
	if err != nil {
		return nil, fmt.Errorf("train windows: %w", err)
	}
	testWindows, err := Windows(test, features, cfg.Target, cfg.WindowLength)
	if err != nil {
		return nil, fmt.Errorf("test windows: %w", err)
	}
	// Both partitions must feed the model.
	if len(trainWindows) == 0 || len(testWindows) == 0 {
		return nil, fmt.Errorf("%d train and %d test rows for window length %d: %w",
			train.Len(), test.Len(), cfg.WindowLength, ErrTooFewRows)
	}

	return &Dataset{
		Config:       cfg,
		Train:        train,
		Test:         test,
		Params:       scaler.Params(),
		TrainWindows: trainWindows,
		TestWindows:  testWindows,
		TrainBatches: Batches(trainWindows, cfg.BatchSize),
		TestBatches:  Batches(testWindows, cfg.BatchSize),
	}, nil
}
