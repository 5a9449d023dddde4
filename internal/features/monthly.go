package features

import (
	"natgas-forecast/internal/frame"
)

// ImputeWindowMonths is the half-width of the monthly imputation window.
const ImputeWindowMonths = 6

// ImputeMonthly fills null cells of the named columns of a monthly frame
// with the median of that column's non-null values dated within
// ImputeWindowMonths before or after the cell. Only rows present in the
// frame are considered; a month with no row is left for the merge to
// null out. It returns the number of cells filled.
func ImputeMonthly(f *frame.Frame, columns ...string) (int, error) {
	dates := f.Dates()
	filled := 0
	for _, name := range columns {
		col, err := f.MustCol(name)
		if err != nil {
			return filled, err
		}
		out := append([]float64(nil), col...)
		for i, v := range col {
			if !frame.IsNull(v) {
				continue
			}
			lo := dates[i].AddDate(0, -ImputeWindowMonths, 0)
			hi := dates[i].AddDate(0, ImputeWindowMonths, 0)
			var window []float64
			for j, w := range col {
				if frame.IsNull(w) || dates[j].Before(lo) || dates[j].After(hi) {
					continue
				}
				window = append(window, w)
			}
			if len(window) == 0 {
				continue
			}
			out[i] = frame.Median(window)
			filled++
		}
		_ = f.Set(name, out)
	}
	return filled, nil
}
