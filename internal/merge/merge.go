// Package merge aligns the daily price series, the monthly supply and
// demand series and the per-date weather features into one table.
package merge

import (
	"errors"
	"fmt"
	"time"

	"natgas-forecast/internal/frame"
)

// ErrColumnClash is returned when two inputs carry the same column.
var ErrColumnClash = errors.New("column present in both inputs")

// Merge runs the full merge:
//  1. the daily price frames are restricted to their common dates,
//  2. and inner-joined on date;
//  3. monthly variables and rigs are outer-joined on their month date;
//  4. the monthly result is broadcast onto every day of its month
//     (a left join keyed by year-month);
//  5. the per-date weather frame is inner-joined on exact date.
//
// A month absent from a monthly input leaves that input's columns null on
// every day of the month.
func Merge(naturalGas, heatingOil, monthly, rigs, weather *frame.Frame) (*frame.Frame, error) {
	prices, err := InnerJoin(naturalGas, heatingOil)
	if err != nil {
		return nil, fmt.Errorf("join spot prices: %w", err)
	}
	months, err := OuterJoin(monthly, rigs)
	if err != nil {
		return nil, fmt.Errorf("join monthly variables: %w", err)
	}
	daily, err := Broadcast(prices, months)
	if err != nil {
		return nil, fmt.Errorf("broadcast monthly variables: %w", err)
	}
	out, err := InnerJoin(daily, weather)
	if err != nil {
		return nil, fmt.Errorf("join weather: %w", err)
	}
	return out, nil
}

// CommonDates returns the dates present in both a and b, ascending.
func CommonDates(a, b *frame.Frame) []time.Time {
	var out []time.Time
	ad, bd := a.Dates(), b.Dates()
	i, j := 0, 0
	for i < len(ad) && j < len(bd) {
		switch {
		case ad[i].Equal(bd[j]):
			out = append(out, ad[i])
			i++
			j++
		case ad[i].Before(bd[j]):
			i++
		default:
			j++
		}
	}
	return out
}

// InnerJoin keeps the dates present in both frames, with left's columns
// followed by right's.
func InnerJoin(left, right *frame.Frame) (*frame.Frame, error) {
	if err := checkClash(left, right); err != nil {
		return nil, err
	}
	dates := CommonDates(left, right)
	out, err := frame.New(dates)
	if err != nil {
		return nil, err
	}
	li, ri := positions(left, dates), positions(right, dates)
	copyColumns(out, left, li)
	copyColumns(out, right, ri)
	return out, nil
}

// OuterJoin keeps every date of either frame. Cells missing on one side
// are null.
func OuterJoin(left, right *frame.Frame) (*frame.Frame, error) {
	if err := checkClash(left, right); err != nil {
		return nil, err
	}
	dates := unionDates(left.Dates(), right.Dates())
	out, err := frame.New(dates)
	if err != nil {
		return nil, err
	}
	copyColumns(out, left, positions(left, dates))
	copyColumns(out, right, positions(right, dates))
	return out, nil
}

// Broadcast left-joins monthly onto daily by calendar month: every daily
// row takes the monthly row of its year-month, or nulls when the month is
// absent. monthly may hold at most one row per month.
func Broadcast(daily, monthly *frame.Frame) (*frame.Frame, error) {
	if err := checkClash(daily, monthly); err != nil {
		return nil, err
	}
	byMonth := make(map[string]int, monthly.Len())
	for i, d := range monthly.Dates() {
		k := YearMonth(d)
		if _, dup := byMonth[k]; dup {
			return nil, fmt.Errorf("%w: month %s", frame.ErrDuplicateDate, k)
		}
		byMonth[k] = i
	}

	out := daily.Copy()
	idx := make([]int, daily.Len())
	for i, d := range daily.Dates() {
		j, ok := byMonth[YearMonth(d)]
		if !ok {
			j = -1
		}
		idx[i] = j
	}
	copyColumns(out, monthly, idx)
	return out, nil
}

// YearMonth returns the "YYYY-MM" key of d.
func YearMonth(d time.Time) string {
	return d.Format("2006-01")
}

func checkClash(a, b *frame.Frame) error {
	for _, c := range b.Columns() {
		if a.Has(c) {
			return fmt.Errorf("%w: %q", ErrColumnClash, c)
		}
	}
	return nil
}

// positions maps each date to its row in f, or -1.
func positions(f *frame.Frame, dates []time.Time) []int {
	out := make([]int, len(dates))
	for i, d := range dates {
		out[i] = f.IndexOf(d)
	}
	return out
}

// copyColumns appends src's columns to dst, taking row idx[i] for dst row
// i; -1 yields null.
func copyColumns(dst, src *frame.Frame, idx []int) {
	for _, c := range src.Columns() {
		s := src.Col(c)
		col := make([]float64, len(idx))
		for i, j := range idx {
			if j < 0 {
				col[i] = frame.Null
			} else {
				col[i] = s[j]
			}
		}
		// lengths match by construction
		_ = dst.Set(c, col)
	}
}

func unionDates(a, b []time.Time) []time.Time {
	out := make([]time.Time, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].Before(b[j])):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j].Before(a[i]):
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Extend stacks previous under current and keeps one row per date, taking
// current's row wherever both frames hold the date. Columns are the union,
// previous's first; a column missing on the chosen side is null there.
func Extend(previous, current *frame.Frame) (*frame.Frame, error) {
	dates := unionDates(previous.Dates(), current.Dates())
	out, err := frame.New(dates)
	if err != nil {
		return nil, err
	}

	columns := previous.Columns()
	for _, c := range current.Columns() {
		if !previous.Has(c) {
			columns = append(columns, c)
		}
	}

	pi, ci := positions(previous, dates), positions(current, dates)
	for _, c := range columns {
		col := frame.NullColumn(len(dates))
		prev, cur := previous.Col(c), current.Col(c)
		for i := range dates {
			switch {
			case ci[i] >= 0:
				if cur != nil {
					col[i] = cur[ci[i]]
				}
			case pi[i] >= 0 && prev != nil:
				col[i] = prev[pi[i]]
			}
		}
		if err := out.Set(c, col); err != nil {
			return nil, err
		}
	}
	return out, nil
}
