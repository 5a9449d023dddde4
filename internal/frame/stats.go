package frame

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Valid returns the non-null values of xs.
func Valid(xs []float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !IsNull(x) {
			out = append(out, x)
		}
	}
	return out
}

// Mean returns the mean of the non-null values of xs, or Null when there
// are none.
func Mean(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return Null
	}
	return stat.Mean(v, nil)
}

// Sum returns the sum of the non-null values of xs; 0 when there are none.
func Sum(xs []float64) float64 {
	return floats.Sum(Valid(xs))
}

// Min returns the smallest non-null value of xs, or Null.
func Min(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return Null
	}
	return floats.Min(v)
}

// Max returns the largest non-null value of xs, or Null.
func Max(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return Null
	}
	return floats.Max(v)
}

// Median returns the median of the non-null values of xs, averaging the two
// middle values of an even count. xs is not modified.
func Median(xs []float64) float64 {
	v := Valid(xs)
	if len(v) == 0 {
		return Null
	}
	sort.Float64s(v)
	// Empirical picks the lower middle value for an even count.
	lo := stat.Quantile(0.5, stat.Empirical, v, nil)
	if len(v)%2 == 1 {
		return lo
	}
	return (lo + v[len(v)/2]) / 2
}

// Quantile returns the p-quantile (0..1) of sorted, interpolating linearly
// between the values at ranks floor and ceil of p*(n-1). Empty input
// yields Null.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return Null
	}
	pos := p * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return sorted[n-1]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*(pos-float64(lo))
}
