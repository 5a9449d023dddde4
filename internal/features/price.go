// Package features derives model inputs from the merged daily table.
package features

import (
	"fmt"
	"math"
	"time"

	"natgas-forecast/internal/frame"
)

// Input columns.
const (
	ColPrice                   = "price ($/MMBTU)"
	ColHeatingOilPrice         = "price_heating_oil ($/GAL)"
	ColResidentialConsumption  = "residential_consumption"
	ColCommercialConsumption   = "commercial_consumption"
	ColTotalUndergroundStorage = "total_underground_storage"
	ColImports                 = "imports"
	ColLNGImports              = "lng_imports"
	ColRigs                    = "natural_gas_rigs_in_operation"
)

// Derived columns.
const (
	ColPriceRatio   = "heating_oil_natural_gas_price_ratio"
	ColStorageRatio = "total_consumption_total_underground_storage_ratio"
	ColDecOrJan     = "is_dec_or_jan"
)

// Lags, EWM spans and rolling windows applied to the natural gas price.
var (
	Lags           = []int{1, 2, 3}
	EWMSpans       = []int{7, 14, 30, 60}
	RollingWindows = []int{7, 14, 30}
)

// LagColumn names the k-day price lag.
func LagColumn(k int) string { return fmt.Sprintf("price_%dday_lag ($/MMBTU)", k) }

// VolatilityColumn names the EWM volatility for span.
func VolatilityColumn(span int) string {
	return fmt.Sprintf("%dday_ew_volatility %s", span, ColPrice)
}

// RollingMeanColumn names the rolling mean for window.
func RollingMeanColumn(window int) string {
	return fmt.Sprintf("%dday_rolling_average %s", window, ColPrice)
}

// RollingMedianColumn names the rolling median for window.
func RollingMedianColumn(window int) string {
	return fmt.Sprintf("%dday_rolling_median %s", window, ColPrice)
}

// WarmupColumns lists the lag, volatility and rolling columns whose
// leading nulls come from their warm-up period.
func WarmupColumns() []string {
	var out []string
	for _, k := range Lags {
		out = append(out, LagColumn(k))
	}
	for _, s := range EWMSpans {
		out = append(out, VolatilityColumn(s))
	}
	for _, w := range RollingWindows {
		out = append(out, RollingMeanColumn(w), RollingMedianColumn(w))
	}
	return out
}

// AddPriceFeatures appends the price, ratio and calendar features to f in
// place. f must hold the price, heating oil and monthly consumption and
// storage columns.
func AddPriceFeatures(f *frame.Frame) error {
	price, err := f.MustCol(ColPrice)
	if err != nil {
		return err
	}
	oil, err := f.MustCol(ColHeatingOilPrice)
	if err != nil {
		return err
	}
	res, err := f.MustCol(ColResidentialConsumption)
	if err != nil {
		return err
	}
	com, err := f.MustCol(ColCommercialConsumption)
	if err != nil {
		return err
	}
	storage, err := f.MustCol(ColTotalUndergroundStorage)
	if err != nil {
		return err
	}

	set := func(name string, col []float64, round bool) {
		if round {
			for i, v := range col {
				col[i] = frame.Round2(v)
			}
		}
		_ = f.Set(name, col)
	}

	for _, k := range Lags {
		set(LagColumn(k), Shift(price, k), false)
	}
	set(ColPriceRatio, Ratio(oil, price), true)
	for _, s := range EWMSpans {
		set(VolatilityColumn(s), EWMStd(price, s, s), true)
	}
	for _, w := range RollingWindows {
		set(RollingMeanColumn(w), RollingMean(price, w), true)
	}
	for _, w := range RollingWindows {
		set(RollingMedianColumn(w), RollingMedian(price, w), true)
	}

	total := make([]float64, len(res))
	for i := range res {
		total[i] = res[i] + com[i]
	}
	set(ColStorageRatio, Ratio(total, storage), true)

	decJan := make([]float64, f.Len())
	for i, d := range f.Dates() {
		if d.Month() == time.December || d.Month() == time.January {
			decJan[i] = 1
		}
	}
	set(ColDecOrJan, decJan, false)
	return nil
}

// Shift returns xs delayed by k rows; the first k values are null.
func Shift(xs []float64, k int) []float64 {
	out := frame.NullColumn(len(xs))
	for i := k; i < len(xs); i++ {
		out[i] = xs[i-k]
	}
	return out
}

// Ratio returns a[i]/b[i]; a zero or null denominator yields null.
func Ratio(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		if b[i] == 0 || frame.IsNull(b[i]) || frame.IsNull(a[i]) {
			out[i] = frame.Null
			continue
		}
		out[i] = a[i] / b[i]
	}
	return out
}

// EWMStd returns the bias-corrected exponentially weighted standard
// deviation with alpha = 2/(span+1). Weights decay by position, so a null
// ages the history without contributing. Values with fewer than
// minPeriods observations are null.
func EWMStd(xs []float64, span, minPeriods int) []float64 {
	alpha := 2 / (float64(span) + 1)
	decay := 1 - alpha
	out := make([]float64, len(xs))

	var sw, sw2, swx, swx2 float64
	nobs := 0
	for i, x := range xs {
		sw *= decay
		sw2 *= decay * decay
		swx *= decay
		swx2 *= decay
		if !frame.IsNull(x) {
			sw++
			sw2++
			swx += x
			swx2 += x * x
			nobs++
		}

		out[i] = frame.Null
		if nobs < minPeriods || nobs < 2 {
			continue
		}
		mean := swx / sw
		biased := swx2/sw - mean*mean
		if biased < 0 {
			biased = 0
		}
		denom := sw*sw - sw2
		if denom <= 0 {
			continue
		}
		out[i] = math.Sqrt(biased * sw * sw / denom)
	}
	return out
}

// RollingMean returns the mean of each trailing window of size w. A window
// that is incomplete or holds a null yields null.
func RollingMean(xs []float64, w int) []float64 {
	return rolling(xs, w, frame.Mean)
}

// RollingMedian returns the median of each trailing window of size w,
// with the same null rules as RollingMean.
func RollingMedian(xs []float64, w int) []float64 {
	return rolling(xs, w, frame.Median)
}

func rolling(xs []float64, w int, agg func([]float64) float64) []float64 {
	out := frame.NullColumn(len(xs))
	nulls := 0
	for i, x := range xs {
		if frame.IsNull(x) {
			nulls++
		}
		if i >= w && frame.IsNull(xs[i-w]) {
			nulls--
		}
		if i >= w-1 && nulls == 0 {
			out[i] = agg(xs[i-w+1 : i+1])
		}
	}
	return out
}
