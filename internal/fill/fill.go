// Package fill closes the null edges a merged, feature-engineered frame
// is left with. Interior gaps are never touched.
package fill

import (
	"natgas-forecast/internal/frame"
)

// TrailingColumns are forward-filled past their last valid value: monthly
// releases and weather readings that lag the price series.
var TrailingColumns = []string{
	"residential_consumption",
	"commercial_consumption",
	"total_underground_storage",
	"imports",
	"lng_imports",
	"natural_gas_rigs_in_operation",
	"awnd",
	"snow",
	"tavg",
}

// Leading replaces the nulls before each column's first valid value with
// that value. With no names every column is filled. A column with no
// valid value is left as is. It returns the number of cells filled.
func Leading(f *frame.Frame, columns ...string) (int, error) {
	if len(columns) == 0 {
		columns = f.Columns()
	}
	n := 0
	for _, name := range columns {
		col, err := f.MustCol(name)
		if err != nil {
			return n, err
		}
		first := FirstValid(col)
		if first < 0 {
			continue
		}
		for i := 0; i < first; i++ {
			col[i] = col[first]
			n++
		}
	}
	return n, nil
}

// Trailing replaces the nulls after each column's last valid value with
// that value. It returns the number of cells filled.
func Trailing(f *frame.Frame, columns ...string) (int, error) {
	n := 0
	for _, name := range columns {
		col, err := f.MustCol(name)
		if err != nil {
			return n, err
		}
		last := LastValid(col)
		if last < 0 {
			continue
		}
		for i := last + 1; i < len(col); i++ {
			col[i] = col[last]
			n++
		}
	}
	return n, nil
}

// FirstValid returns the index of the first non-null value, or -1.
func FirstValid(col []float64) int {
	for i, v := range col {
		if !frame.IsNull(v) {
			return i
		}
	}
	return -1
}

// LastValid returns the index of the last non-null value, or -1.
func LastValid(col []float64) int {
	for i := len(col) - 1; i >= 0; i-- {
		if !frame.IsNull(col[i]) {
			return i
		}
	}
	return -1
}

// Nulls counts the null cells per column, omitting columns with none.
func Nulls(f *frame.Frame) map[string]int {
	out := map[string]int{}
	for _, c := range f.Columns() {
		k := 0
		for _, v := range f.Col(c) {
			if frame.IsNull(v) {
				k++
			}
		}
		if k > 0 {
			out[c] = k
		}
	}
	return out
}
