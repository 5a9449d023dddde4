// Package weather turns per-station daily observations into per-date
// demand features: degree days, wind chill, snow and temperature spread.
package weather

import (
	"fmt"
	"sort"
	"time"

	"natgas-forecast/internal/frame"
	"natgas-forecast/internal/table"
)

// Variable names as they appear in the transformed weather table.
const (
	TMin = "tmin"
	TMax = "tmax"
	TAvg = "tavg"
	AWND = "awnd"
	Snow = "snow"
)

// Observation is one location's readings for one day. Missing readings
// are NaN.
type Observation struct {
	Date  time.Time
	City  string
	State string
	TMin  float64
	TMax  float64
	TAvg  float64
	AWND  float64
	Snow  float64
}

func (o *Observation) get(variable string) float64 {
	switch variable {
	case TMin:
		return o.TMin
	case TMax:
		return o.TMax
	case TAvg:
		return o.TAvg
	case AWND:
		return o.AWND
	case Snow:
		return o.Snow
	}
	return frame.Null
}

func (o *Observation) set(variable string, v float64) {
	switch variable {
	case TMin:
		o.TMin = v
	case TMax:
		o.TMax = v
	case TAvg:
		o.TAvg = v
	case AWND:
		o.AWND = v
	case Snow:
		o.Snow = v
	}
}

// FromTable reads observations from the pivoted weather table
// (date, city, state and one column per lowercase datatype). Absent
// datatype columns read as missing.
func FromTable(t *table.Table) ([]Observation, error) {
	for _, c := range []string{"date", "city", "state"} {
		if !t.Has(c) {
			return nil, fmt.Errorf("weather: %w: %q", table.ErrColumnNotFound, c)
		}
	}

	out := make([]Observation, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		ds, _ := row["date"].(string)
		if len(ds) < 10 {
			return nil, fmt.Errorf("weather: row %d: invalid date %v", i, row["date"])
		}
		d, err := time.Parse(time.DateOnly, ds[:10])
		if err != nil {
			return nil, fmt.Errorf("weather: row %d: %w", i, err)
		}
		o := Observation{
			Date:  d,
			City:  table.Format(row["city"]),
			State: table.Format(row["state"]),
		}
		for _, v := range []string{TMin, TMax, TAvg, AWND, Snow} {
			f, ok, err := table.AsFloat(row[v])
			if err != nil {
				return nil, fmt.Errorf("weather: row %d %s: %w", i, v, err)
			}
			if !ok {
				f = frame.Null
			}
			o.set(v, f)
		}
		out = append(out, o)
	}

	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].Date.Equal(out[b].Date) {
			return out[a].Date.Before(out[b].Date)
		}
		if out[a].State != out[b].State {
			return out[a].State < out[b].State
		}
		return out[a].City < out[b].City
	})
	return out, nil
}

// Quarter returns the calendar quarter (1-4) of d.
func Quarter(d time.Time) int {
	return (int(d.Month())-1)/3 + 1
}

// FillMissingTAvg sets TAvg to the rounded midpoint of TMin and TMax where
// TAvg is missing and both bounds are present. It returns the number of
// observations changed.
func FillMissingTAvg(obs []Observation) int {
	n := 0
	for i := range obs {
		o := &obs[i]
		if !frame.IsNull(o.TAvg) || frame.IsNull(o.TMin) || frame.IsNull(o.TMax) {
			continue
		}
		o.TAvg = frame.Round2((o.TMin + o.TMax) / 2)
		n++
	}
	return n
}
