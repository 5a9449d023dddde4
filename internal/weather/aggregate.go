package weather

import (
	"math"
	"sort"
	"time"

	"natgas-forecast/internal/frame"
)

// Per-date feature columns produced by Aggregate.
const (
	ColHDDSum                 = "hdd_sum"
	ColCDDSum                 = "cdd_sum"
	ColWCISum                 = "wci_sum"
	ColSnowSum                = "snow_sum"
	ColMinTAvg                = "min_tavg"
	ColMaxTAvg                = "max_tavg"
	ColMaxAbsTAvgDiff         = "max_abs_tavg_diff"
	ColMaxAbsTAvgDiffRelative = "max_abs_tavg_diff_relative_to_daily_median"
)

// Columns lists every column of the aggregated frame in output order.
var Columns = []string{
	AWND, Snow, TAvg,
	ColHDDSum, ColCDDSum, ColWCISum, ColSnowSum,
	ColMinTAvg, ColMaxTAvg, ColMaxAbsTAvgDiff, ColMaxAbsTAvgDiffRelative,
}

// DegreeDayBase is the reference temperature (C) for heating and cooling
// degree days.
const DegreeDayBase = 18.33

// HDD returns the heating degree days for tavg; NaN stays NaN.
func HDD(tavg float64) float64 {
	if frame.IsNull(tavg) {
		return tavg
	}
	return math.Max(0, DegreeDayBase-tavg)
}

// CDD returns the cooling degree days for tavg; NaN stays NaN.
func CDD(tavg float64) float64 {
	if frame.IsNull(tavg) {
		return tavg
	}
	return math.Max(0, tavg-DegreeDayBase)
}

// WindChill returns the wind chill index for a temperature in C and a wind
// speed in m/s, rounded to 2dp.
func WindChill(tavg, awnd float64) float64 {
	if frame.IsNull(tavg) || frame.IsNull(awnd) {
		return frame.Null
	}
	f := 1.8*tavg + 32
	w := math.Pow(2.23694*awnd, 0.16)
	return frame.Round2(35.74 + 0.6215*f - 35.75*w + 0.4275*f*w)
}

// StateDay is the location-to-state aggregation for one date.
type StateDay struct {
	Date      time.Time
	State     string
	HDD       float64 // sum over locations
	CDD       float64 // sum over locations
	TAvg      float64 // mean over locations with a reading
	Locations int
}

// ByState groups observations per (date, state). Sums skip missing
// readings; TAvg is NaN when no location reported one. The result is
// ordered by date then state.
func ByState(obs []Observation) []StateDay {
	type key struct {
		date  time.Time
		state string
	}
	type acc struct {
		hdd, cdd, tavg []float64
		n              int
	}
	groups := map[key]*acc{}
	var keys []key
	for i := range obs {
		o := &obs[i]
		k := key{o.Date, o.State}
		a, ok := groups[k]
		if !ok {
			a = &acc{}
			groups[k] = a
			keys = append(keys, k)
		}
		a.n++
		if !frame.IsNull(o.TAvg) {
			a.hdd = append(a.hdd, HDD(o.TAvg))
			a.cdd = append(a.cdd, CDD(o.TAvg))
			a.tavg = append(a.tavg, o.TAvg)
		}
	}
	sort.Slice(keys, func(a, b int) bool {
		if !keys[a].date.Equal(keys[b].date) {
			return keys[a].date.Before(keys[b].date)
		}
		return keys[a].state < keys[b].state
	})

	out := make([]StateDay, len(keys))
	for i, k := range keys {
		a := groups[k]
		out[i] = StateDay{
			Date:      k.date,
			State:     k.state,
			HDD:       frame.Sum(a.hdd),
			CDD:       frame.Sum(a.cdd),
			TAvg:      frame.Mean(a.tavg),
			Locations: a.n,
		}
	}
	return out
}

// TAvgDiffs returns, aligned with days, the absolute change of each
// state's mean TAvg from that state's previous date. The first date of a
// state is NaN.
func TAvgDiffs(days []StateDay) []float64 {
	out := make([]float64, len(days))
	prev := map[string]float64{}
	for i, d := range days {
		p, seen := prev[d.State]
		if !seen {
			out[i] = frame.Null
		} else {
			out[i] = math.Abs(d.TAvg - p)
		}
		prev[d.State] = d.TAvg
	}
	return out
}

// TAvgDeviations returns, aligned with days, the absolute deviation (2dp)
// of each state's mean TAvg from the median of that state's means over
// every date sharing the same month, ISO week and day of month.
func TAvgDeviations(days []StateDay) []float64 {
	type key struct {
		state            string
		month, week, day int
	}
	keyOf := func(d StateDay) key {
		_, w := d.Date.ISOWeek()
		return key{d.State, int(d.Date.Month()), w, d.Date.Day()}
	}
	history := map[key][]float64{}
	for _, d := range days {
		if frame.IsNull(d.TAvg) {
			continue
		}
		k := keyOf(d)
		history[k] = append(history[k], d.TAvg)
	}
	benchmark := make(map[key]float64, len(history))
	for k, v := range history {
		benchmark[k] = frame.Median(v)
	}

	out := make([]float64, len(days))
	for i, d := range days {
		b, ok := benchmark[keyOf(d)]
		if !ok || frame.IsNull(d.TAvg) {
			out[i] = frame.Null
			continue
		}
		out[i] = frame.Round2(math.Abs(d.TAvg - b))
	}
	return out
}

// Aggregate reduces observations to one row per date with the columns in
// Columns. Observations should already be imputed.
func Aggregate(obs []Observation) (*frame.Frame, error) {
	var dates []time.Time
	row := map[time.Time]int{}
	sorted := append([]Observation(nil), obs...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Date.Before(sorted[b].Date) })
	for _, o := range sorted {
		if _, ok := row[o.Date]; !ok {
			row[o.Date] = len(dates)
			dates = append(dates, o.Date)
		}
	}
	f, err := frame.New(dates)
	if err != nil {
		return nil, err
	}
	n := len(dates)

	cols := make(map[string][]float64, len(Columns))
	for _, c := range Columns {
		cols[c] = make([]float64, n)
	}

	// location level
	awnd, snow, tavg, wci := buckets(n), buckets(n), buckets(n), buckets(n)
	for i := range sorted {
		o := &sorted[i]
		r := row[o.Date]
		awnd[r] = append(awnd[r], o.AWND)
		snow[r] = append(snow[r], o.Snow)
		tavg[r] = append(tavg[r], o.TAvg)
		wci[r] = append(wci[r], WindChill(o.TAvg, o.AWND))
	}

	// state level
	days := ByState(sorted)
	diffs := TAvgDiffs(days)
	devs := TAvgDeviations(days)
	hdd, cdd, stateTAvg, diff, dev := buckets(n), buckets(n), buckets(n), buckets(n), buckets(n)
	for i, d := range days {
		r := row[d.Date]
		hdd[r] = append(hdd[r], d.HDD)
		cdd[r] = append(cdd[r], d.CDD)
		stateTAvg[r] = append(stateTAvg[r], d.TAvg)
		diff[r] = append(diff[r], diffs[i])
		dev[r] = append(dev[r], devs[i])
	}

	for r := 0; r < n; r++ {
		cols[AWND][r] = frame.Mean(awnd[r])
		cols[Snow][r] = frame.Mean(snow[r])
		cols[TAvg][r] = frame.Mean(tavg[r])
		cols[ColWCISum][r] = frame.Sum(wci[r])
		cols[ColSnowSum][r] = frame.Sum(snow[r])
		cols[ColHDDSum][r] = frame.Max(hdd[r])
		cols[ColCDDSum][r] = frame.Max(cdd[r])
		cols[ColMinTAvg][r] = frame.Min(stateTAvg[r])
		cols[ColMaxTAvg][r] = frame.Max(stateTAvg[r])
		cols[ColMaxAbsTAvgDiff][r] = frame.Max(diff[r])
		cols[ColMaxAbsTAvgDiffRelative][r] = frame.Max(dev[r])
	}

	for _, c := range Columns {
		if err := f.Set(c, cols[c]); err != nil {
			return nil, err
		}
		f.RoundColumn(c)
	}
	return f, nil
}

// buckets returns n empty per-row value lists.
func buckets(n int) [][]float64 {
	return make([][]float64, n)
}
