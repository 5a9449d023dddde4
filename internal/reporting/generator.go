// Package reporting summarises a pipeline run as Markdown and CSV.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"natgas-forecast/internal/fill"
	"natgas-forecast/internal/frame"
	"natgas-forecast/internal/sequence"
)

// Output file names written by WriteFiles.
const (
	ReportFile = "PIPELINE_REPORT.md"
	StagesFile = "pipeline_stages.csv"
	ScalerFile = "scaler_params.csv"
)

// Generator collects facts while a run progresses and produces the Report.
// It is not safe for concurrent use.
type Generator struct {
	runID   string
	runDate time.Time
	inputs  []InputRow
	stages  []StageRow
	fills   []FillRow
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a generator for one run.
func NewGenerator(runID string, runDate time.Time) *Generator {
	return &Generator{
		runID:   runID,
		runDate: runDate,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// AddInput records a raw blob read by the run.
func (g *Generator) AddInput(dataset, objectKey string, rows int) {
	g.inputs = append(g.inputs, InputRow{Dataset: dataset, ObjectKey: objectKey, Rows: rows})
}

// AddStage records the shape of f after stage.
func (g *Generator) AddStage(stage string, f *frame.Frame) {
	row := StageRow{Stage: stage, Rows: f.Len(), Columns: len(f.Columns())}
	for _, n := range fill.Nulls(f) {
		row.Nulls += n
	}
	if f.Len() > 0 {
		row.First = f.Date(0).Format(time.DateOnly)
		row.Last = f.Date(f.Len() - 1).Format(time.DateOnly)
	}
	g.stages = append(g.stages, row)
}

// AddFill records the number of cells a step filled.
func (g *Generator) AddFill(step string, cells int) {
	g.fills = append(g.fills, FillRow{Step: step, Cells: cells})
}

// Generate produces the report for the curated table and the dataset
// built from it. ds may be nil when the run stopped before windowing.
func (g *Generator) Generate(curated *frame.Frame, ds *sequence.Dataset) *Report {
	r := &Report{
		RunID:       g.runID,
		RunDate:     g.runDate,
		GeneratedAt: g.now(),
		Inputs:      append([]InputRow(nil), g.inputs...),
		Stages:      append([]StageRow(nil), g.stages...),
		Fills:       append([]FillRow(nil), g.fills...),
	}

	if curated != nil {
		for col, n := range fill.Nulls(curated) {
			r.RemainingNulls = append(r.RemainingNulls, NullRow{Column: col, Nulls: n})
		}
		sort.Slice(r.RemainingNulls, func(i, j int) bool {
			return r.RemainingNulls[i].Column < r.RemainingNulls[j].Column
		})
	}

	if ds == nil {
		return r
	}

	r.Split = SplitSummary{
		Holdout:      ds.Config.Holdout,
		TrainRows:    ds.Train.Len(),
		TestRows:     ds.Test.Len(),
		WindowLength: ds.Config.WindowLength,
		BatchSize:    ds.Config.BatchSize,
		Features:     len(ds.Config.Features()),
		Target:       ds.Config.Target,
		TrainWindows: len(ds.TrainWindows),
		TestWindows:  len(ds.TestWindows),
		TrainBatches: len(ds.TrainBatches),
		TestBatches:  len(ds.TestBatches),
	}
	r.Split.TrainStart, r.Split.TrainEnd = span(ds.Train)
	r.Split.TestStart, r.Split.TestEnd = span(ds.Test)

	for _, p := range ds.Params {
		r.ScalerParams = append(r.ScalerParams, ScalerRow{Column: p.Column, Center: p.Center, Scale: p.Scale})
	}
	return r
}

func span(f *frame.Frame) (first, last string) {
	if f == nil || f.Len() == 0 {
		return "", ""
	}
	return f.Date(0).Format(time.DateOnly), f.Date(f.Len() - 1).Format(time.DateOnly)
}

// WriteFiles renders r into dir and returns the paths written.
func WriteFiles(dir string, r *Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	files := []struct {
		name    string
		content string
	}{
		{ReportFile, RenderMarkdown(r)},
		{StagesFile, RenderStagesCSV(r.Stages)},
		{ScalerFile, RenderScalerCSV(r.ScalerParams)},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
