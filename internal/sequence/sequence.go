// Package sequence splits the curated table, normalises it without
// leaking test data into the fit, and cuts it into fixed-length windows
// for a sequence model.
package sequence

import (
	"errors"
	"fmt"
	"math"
	"time"

	"natgas-forecast/internal/frame"
)

// ErrTooFewRows is returned when a frame cannot produce a split or a
// single window.
var ErrTooFewRows = errors.New("too few rows")

// Defaults.
const (
	DefaultHoldout      = 0.2
	DefaultWindowLength = 30
	DefaultBatchSize    = 128
	DefaultTarget       = "price ($/MMBTU)"
)

// RobustColumns are scaled by RobustScaler.
var RobustColumns = []string{
	"imports",
	"lng_imports",
	"heating_oil_natural_gas_price_ratio",
	"7day_ew_volatility price ($/MMBTU)",
	"14day_ew_volatility price ($/MMBTU)",
	"30day_ew_volatility price ($/MMBTU)",
	"60day_ew_volatility price ($/MMBTU)",
	"price_1day_lag ($/MMBTU)",
	"price_2day_lag ($/MMBTU)",
	"price_3day_lag ($/MMBTU)",
	"7day_rolling_average price ($/MMBTU)",
	"14day_rolling_average price ($/MMBTU)",
	"30day_rolling_average price ($/MMBTU)",
	"7day_rolling_median price ($/MMBTU)",
	"14day_rolling_median price ($/MMBTU)",
	"30day_rolling_median price ($/MMBTU)",
	"total_consumption_total_underground_storage_ratio",
	"min_tavg",
	"max_tavg",
	"max_abs_tavg_diff",
	"max_abs_tavg_diff_relative_to_daily_median",
	"hdd_sum",
	"cdd_sum",
	"wci_sum",
}

// LogColumns are log1p-transformed.
var LogColumns = []string{"snow_sum"}

// Split returns the leading rows as train and the trailing
// ceil(holdout*T) rows as test. Both parts must be non-empty.
func Split(f *frame.Frame, holdout float64) (train, test *frame.Frame, err error) {
	if holdout <= 0 || holdout >= 1 {
		return nil, nil, fmt.Errorf("holdout %v outside (0, 1)", holdout)
	}
	n := f.Len()
	nTest := int(math.Ceil(holdout*float64(n) - 1e-9))
	if n < 2 || nTest >= n {
		return nil, nil, fmt.Errorf("split %d rows: %w", n, ErrTooFewRows)
	}
	cut := n - nTest
	return f.Rows(0, cut), f.Rows(cut, n), nil
}

// Window is L consecutive feature rows and the target of the row after.
type Window struct {
	Start      time.Time   `json:"start"`
	TargetDate time.Time   `json:"target_date"`
	Features   [][]float64 `json:"features"`
	Target     float64     `json:"target"`
}

// Windows cuts f into T-L windows with stride 1: window i holds rows
// [i, i+L) of the feature columns and the target of row i+L. A frame of
// at most L rows yields no windows.
func Windows(f *frame.Frame, features []string, target string, length int) ([]Window, error) {
	if length < 1 {
		return nil, fmt.Errorf("window length %d", length)
	}
	cols := make([][]float64, len(features))
	for j, c := range features {
		col, err := f.MustCol(c)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	y, err := f.MustCol(target)
	if err != nil {
		return nil, err
	}

	out := make([]Window, max(f.Len()-length, 0))
	for i := range out {
		m := make([][]float64, length)
		for r := range m {
			row := make([]float64, len(cols))
			for j, col := range cols {
				row[j] = col[i+r]
			}
			m[r] = row
		}
		out[i] = Window{
			Start:      f.Date(i),
			TargetDate: f.Date(i + length),
			Features:   m,
			Target:     y[i+length],
		}
	}
	return out, nil
}

// Batch is a group of windows in model input layout.
type Batch struct {
	X [][][]float64 `json:"x"`
	Y []float64     `json:"y"`
}

// Len returns the number of windows in the batch.
func (b Batch) Len() int { return len(b.Y) }

// Batches groups windows in order into batches of size; the last batch may
// be short.
func Batches(windows []Window, size int) []Batch {
	if size < 1 {
		size = DefaultBatchSize
	}
	var out []Batch
	for start := 0; start < len(windows); start += size {
		end := min(start+size, len(windows))
		b := Batch{
			X: make([][][]float64, 0, end-start),
			Y: make([]float64, 0, end-start),
		}
		for _, w := range windows[start:end] {
			b.X = append(b.X, w.Features)
			b.Y = append(b.Y, w.Target)
		}
		out = append(out, b)
	}
	return out
}
