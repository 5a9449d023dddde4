// Package frame holds date-indexed numeric tables. Each column is a
// []float64 aligned with the date index; NaN marks a null.
package frame

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"natgas-forecast/internal/table"
)

// DateColumn is the name the date index takes in tables and JSON.
const DateColumn = "date"

var (
	// ErrDuplicateDate is returned when a date appears twice in an index.
	ErrDuplicateDate = errors.New("duplicate date in index")

	// ErrUnknownColumn is returned when a frame lacks a requested column.
	ErrUnknownColumn = errors.New("unknown column")
)

// Null is the missing-value marker.
var Null = math.NaN()

// IsNull reports whether v is missing.
func IsNull(v float64) bool { return math.IsNaN(v) }

// Frame is a date-ascending table of float64 columns.
type Frame struct {
	dates   []time.Time
	columns []string
	data    map[string][]float64
}

// New creates a frame over dates, which must be strictly ascending.
func New(dates []time.Time) (*Frame, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			if dates[i].Equal(dates[i-1]) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateDate, dates[i].Format(time.DateOnly))
			}
			return nil, fmt.Errorf("dates not ascending at %s", dates[i].Format(time.DateOnly))
		}
	}
	return &Frame{
		dates: append([]time.Time(nil), dates...),
		data:  map[string][]float64{},
	}, nil
}

// Len returns the number of rows.
func (f *Frame) Len() int { return len(f.dates) }

// Dates returns a copy of the date index.
func (f *Frame) Dates() []time.Time { return append([]time.Time(nil), f.dates...) }

// Date returns the date of row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string { return append([]string(nil), f.columns...) }

// Has reports whether the frame has column name.
func (f *Frame) Has(name string) bool {
	_, ok := f.data[name]
	return ok
}

// Col returns column name. The slice is shared; use Set to replace it.
func (f *Frame) Col(name string) []float64 {
	return f.data[name]
}

// MustCol returns column name or an ErrUnknownColumn error.
func (f *Frame) MustCol(name string) ([]float64, error) {
	c, ok := f.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	return c, nil
}

// Set adds or replaces column name. values must match the index length.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != len(f.dates) {
		return fmt.Errorf("column %q has %d values, index has %d", name, len(values), len(f.dates))
	}
	if _, ok := f.data[name]; !ok {
		f.columns = append(f.columns, name)
	}
	f.data[name] = values
	return nil
}

// Drop removes the named columns if present.
func (f *Frame) Drop(names ...string) {
	for _, n := range names {
		if _, ok := f.data[n]; !ok {
			continue
		}
		delete(f.data, n)
		for i, c := range f.columns {
			if c == n {
				f.columns = append(f.columns[:i], f.columns[i+1:]...)
				break
			}
		}
	}
}

// Copy returns a deep copy.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		dates:   append([]time.Time(nil), f.dates...),
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]float64, len(f.data)),
	}
	for k, v := range f.data {
		out.data[k] = append([]float64(nil), v...)
	}
	return out
}

// Rows returns a frame holding rows [from, to).
func (f *Frame) Rows(from, to int) *Frame {
	out := &Frame{
		dates:   append([]time.Time(nil), f.dates[from:to]...),
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]float64, len(f.data)),
	}
	for k, v := range f.data {
		out.data[k] = append([]float64(nil), v[from:to]...)
	}
	return out
}

// Take returns a frame holding the rows at idx, which must be ascending.
func (f *Frame) Take(idx []int) *Frame {
	out := &Frame{
		dates:   make([]time.Time, len(idx)),
		columns: append([]string(nil), f.columns...),
		data:    make(map[string][]float64, len(f.data)),
	}
	for k, i := range idx {
		out.dates[k] = f.dates[i]
	}
	for name, v := range f.data {
		col := make([]float64, len(idx))
		for k, i := range idx {
			col[k] = v[i]
		}
		out.data[name] = col
	}
	return out
}

// IndexOf returns the row of date d, or -1.
func (f *Frame) IndexOf(d time.Time) int {
	i := sort.Search(len(f.dates), func(i int) bool { return !f.dates[i].Before(d) })
	if i < len(f.dates) && f.dates[i].Equal(d) {
		return i
	}
	return -1
}

// Round2 rounds v to two decimals, half to even. NaN stays NaN.
func Round2(v float64) float64 {
	return Round(v, 2)
}

// Round rounds v to places decimals the way numpy does: the binary product
// v*10^places is rounded half to even and scaled back. 0.125 rounds to
// 0.12 and 2.675, stored just below, to 2.67.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	scaled := v * math.Pow10(int(places))
	if math.IsInf(scaled, 0) {
		return v
	}
	r, _ := decimal.NewFromFloat(scaled).RoundBank(0).Shift(-places).Float64()
	return r
}

// RoundColumn rounds every value of column name to two decimals.
func (f *Frame) RoundColumn(name string) {
	for i, v := range f.data[name] {
		f.data[name][i] = Round2(v)
	}
}

// FromTable builds a frame from t, indexing on dateColumn (YYYY-MM-DD).
// Every other column must be numeric. Rows are sorted by date.
func FromTable(t *table.Table, dateColumn string) (*Frame, error) {
	rawDates, err := t.Column(dateColumn)
	if err != nil {
		return nil, err
	}

	type row struct {
		date time.Time
		src  int
	}
	rows := make([]row, len(rawDates))
	for i, v := range rawDates {
		s, ok := v.(string)
		if !ok || len(s) < 10 {
			return nil, fmt.Errorf("row %d: invalid date %v", i, v)
		}
		d, err := time.Parse(time.DateOnly, s[:10])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = row{date: d, src: i}
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].date.Before(rows[b].date) })

	dates := make([]time.Time, len(rows))
	for i, r := range rows {
		dates[i] = r.date
	}
	f, err := New(dates)
	if err != nil {
		return nil, err
	}

	for _, name := range t.Columns() {
		if name == dateColumn {
			continue
		}
		raw, _ := t.Column(name)
		col := make([]float64, len(rows))
		for i, r := range rows {
			v, ok, err := table.AsFloat(raw[r.src])
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			if !ok {
				v = Null
			}
			col[i] = v
		}
		if err := f.Set(name, col); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// ToTable converts the frame to a table with a leading date column
// (YYYY-MM-DD). Nulls become nil.
func (f *Frame) ToTable() *table.Table {
	t := table.New(append([]string{DateColumn}, f.columns...)...)
	for i, d := range f.dates {
		row := make([]any, 0, len(f.columns)+1)
		row = append(row, d.Format(time.DateOnly))
		for _, c := range f.columns {
			v := f.data[c][i]
			if IsNull(v) {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		}
		_ = t.Append(row...)
	}
	return t
}

// MarshalJSON encodes the frame as JSON records via ToTable.
func (f *Frame) MarshalJSON() ([]byte, error) {
	return f.ToTable().MarshalJSON()
}

// Decode parses JSON records with a date column into a frame.
func Decode(data []byte) (*Frame, error) {
	t, err := table.Decode(data)
	if err != nil {
		return nil, err
	}
	return FromTable(t, DateColumn)
}

// NullColumn returns a column of n nulls.
func NullColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = Null
	}
	return col
}
