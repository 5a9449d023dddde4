package reporting

import "time"

// Report summarises one pipeline run.
type Report struct {
	// Metadata
	RunID       string
	RunDate     time.Time
	GeneratedAt time.Time

	// Raw inputs read in phase 1, in dataset order
	Inputs []InputRow

	// Frame shape after each phase, in run order
	Stages []StageRow

	// Cells filled by each imputation or fill step
	Fills []FillRow

	// Nulls left in the curated table, by column (only columns with nulls)
	RemainingNulls []NullRow

	// Train/test split and windowing
	Split SplitSummary

	// Fitted robust scaler, in feature order
	ScalerParams []ScalerRow
}

// InputRow describes one raw blob read by the run.
type InputRow struct {
	Dataset   string
	ObjectKey string
	Rows      int // rows after the dataset's transform recipe
}

// StageRow describes the frame produced by one phase.
type StageRow struct {
	Stage   string
	Rows    int
	Columns int
	Nulls   int
	First   string // YYYY-MM-DD, empty when Rows == 0
	Last    string
}

// FillRow counts the cells one step filled.
type FillRow struct {
	Step  string
	Cells int
}

// NullRow counts the nulls left in one column.
type NullRow struct {
	Column string
	Nulls  int
}

// SplitSummary describes the trainer-facing output.
type SplitSummary struct {
	Holdout      float64
	TrainRows    int
	TestRows     int
	TrainStart   string
	TrainEnd     string
	TestStart    string
	TestEnd      string
	WindowLength int
	BatchSize    int
	Features     int
	Target       string
	TrainWindows int
	TestWindows  int
	TrainBatches int
	TestBatches  int
}

// ScalerRow is one fitted scaler parameter pair.
type ScalerRow struct {
	Column string
	Center float64
	Scale  float64
}
