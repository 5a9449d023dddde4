package sequence

import (
	"fmt"
	"math"
	"sort"

	"natgas-forecast/internal/frame"
)

// RobustScaler centres each column on its median and scales it by its
// interquartile range. Nulls are ignored when fitting and stay null.
type RobustScaler struct {
	columns []string
	center  map[string]float64
	scale   map[string]float64
}

// ScalerParam is the fitted centre and scale of one column.
type ScalerParam struct {
	Column string  `json:"column"`
	Center float64 `json:"center"`
	Scale  float64 `json:"scale"`
}

// FitRobust fits a scaler on the named columns of train. Quartiles are
// linearly interpolated; a zero or undefined IQR scales by 1.
func FitRobust(train *frame.Frame, columns []string) (*RobustScaler, error) {
	s := &RobustScaler{
		columns: append([]string(nil), columns...),
		center:  make(map[string]float64, len(columns)),
		scale:   make(map[string]float64, len(columns)),
	}
	for _, c := range columns {
		col, err := train.MustCol(c)
		if err != nil {
			return nil, fmt.Errorf("fit scaler: %w", err)
		}
		vals := frame.Valid(col)
		sort.Float64s(vals)

		center := frame.Median(vals)
		iqr := frame.Quantile(vals, 0.75) - frame.Quantile(vals, 0.25)
		if frame.IsNull(center) {
			center = 0
		}
		if iqr == 0 || frame.IsNull(iqr) {
			iqr = 1
		}
		s.center[c] = center
		s.scale[c] = iqr
	}
	return s, nil
}

// Transform returns a copy of f with the fitted columns scaled.
func (s *RobustScaler) Transform(f *frame.Frame) (*frame.Frame, error) {
	out := f.Copy()
	for _, c := range s.columns {
		col, err := out.MustCol(c)
		if err != nil {
			return nil, fmt.Errorf("scale: %w", err)
		}
		for i, v := range col {
			col[i] = (v - s.center[c]) / s.scale[c]
		}
	}
	return out, nil
}

// Params returns the fitted parameters in column order.
func (s *RobustScaler) Params() []ScalerParam {
	out := make([]ScalerParam, len(s.columns))
	for i, c := range s.columns {
		out[i] = ScalerParam{Column: c, Center: s.center[c], Scale: s.scale[c]}
	}
	return out
}

// Log1p replaces every value v of the named columns with ln(1+v), in place.
func Log1p(f *frame.Frame, columns ...string) error {
	for _, c := range columns {
		col, err := f.MustCol(c)
		if err != nil {
			return fmt.Errorf("log1p: %w", err)
		}
		for i, v := range col {
			col[i] = math.Log1p(v)
		}
	}
	return nil
}
