// Package table is a small column-ordered record table used to reshape raw
// upstream records before they become numeric frames. Cells hold nil,
// float64, string or bool. Every operation returns a new table.
package table

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrColumnNotFound is returned when an operation names a missing column.
var ErrColumnNotFound = errors.New("column not found")

// Table is an ordered set of named columns over rows of cells.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// New creates an empty table with the given columns.
func New(columns ...string) *Table {
	t := &Table{columns: append([]string(nil), columns...)}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c] = i
	}
}

// Append adds a row. Missing trailing cells are nil; extra cells are an error.
func (t *Table) Append(cells ...any) error {
	if len(cells) > len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(cells), len(t.columns))
	}
	row := make([]any, len(t.columns))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return nil
}

// AppendRecord adds a row from a column->value map, adding unseen columns
// (nil in earlier rows) in sorted order.
func (t *Table) AppendRecord(rec map[string]any) {
	var added []string
	for k := range rec {
		if _, ok := t.index[k]; !ok {
			added = append(added, k)
		}
	}
	sort.Strings(added)
	for _, k := range added {
		t.addColumn(k)
	}
	row := make([]any, len(t.columns))
	for k, v := range rec {
		row[t.index[k]] = v
	}
	t.rows = append(t.rows, row)
}

func (t *Table) addColumn(name string) {
	t.columns = append(t.columns, name)
	t.index[name] = len(t.columns) - 1
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], nil)
	}
}

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Has reports whether the table has column name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Cell returns the value at row i of column name.
func (t *Table) Cell(i int, name string) (any, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return t.rows[i][j], nil
}

// Row returns a copy of row i as a column->value map.
func (t *Table) Row(i int) map[string]any {
	out := make(map[string]any, len(t.columns))
	for j, c := range t.columns {
		out[c] = t.rows[i][j]
	}
	return out
}

// Column returns a copy of column name.
func (t *Table) Column(name string) ([]any, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

func (t *Table) clone() *Table {
	c := New(t.columns...)
	c.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		c.rows[i] = append([]any(nil), r...)
	}
	return c
}

// Select returns a table with only the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		idx[k] = j
	}
	out := New(names...)
	out.rows = make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(idx))
		for k, j := range idx {
			row[k] = r[j]
		}
		out.rows[i] = row
	}
	return out, nil
}

// DropColumns removes the named columns. Names the table lacks are ignored
// because upstream payloads do not always carry every tag column.
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []string
	for _, c := range t.columns {
		if !drop[c] {
			keep = append(keep, c)
		}
	}
	out, _ := t.Select(keep...)
	return out
}

// Rename renames columns per mapping; unmapped columns keep their name.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	out := t.clone()
	seen := make(map[string]bool, len(out.columns))
	for i, c := range out.columns {
		if n, ok := mapping[c]; ok {
			out.columns[i] = n
		}
		if seen[out.columns[i]] {
			return nil, fmt.Errorf("rename produces duplicate column %q", out.columns[i])
		}
		seen[out.columns[i]] = true
	}
	out.reindex()
	return out, nil
}

// DropNulls removes every row holding a nil cell.
func (t *Table) DropNulls() *Table {
	out := New(t.columns...)
rows:
	for _, r := range t.rows {
		for _, v := range r {
			if v == nil {
				continue rows
			}
		}
		out.rows = append(out.rows, append([]any(nil), r...))
	}
	return out
}

// DropDuplicates removes rows identical to an earlier row.
func (t *Table) DropDuplicates() *Table {
	out := New(t.columns...)
	seen := make(map[string]bool, len(t.rows))
	for _, r := range t.rows {
		k := rowKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.rows = append(out.rows, append([]any(nil), r...))
	}
	return out
}

// Map returns a table where column name holds fn applied to each cell.
func (t *Table) Map(name string, fn func(any) (any, error)) (*Table, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	out := t.clone()
	for i, r := range out.rows {
		v, err := fn(r[j])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		r[j] = v
	}
	return out, nil
}

// ToFloat converts column name to float64. Numeric strings are parsed;
// nil stays nil.
func (t *Table) ToFloat(name string) (*Table, error) {
	return t.Map(name, func(v any) (any, error) {
		f, ok, err := AsFloat(v)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return f, nil
	})
}

// ConvertYearMonth rewrites YYYY-MM values as YYYY-MM-01.
func (t *Table) ConvertYearMonth(name string) (*Table, error) {
	return t.Map(name, func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return v, nil
		}
		if len(s) == 7 && s[4] == '-' {
			return s + "-01", nil
		}
		return s, nil
	})
}

// TruncateDate keeps the YYYY-MM-DD prefix of timestamp strings.
func (t *Table) TruncateDate(name string) (*Table, error) {
	return t.Map(name, func(v any) (any, error) {
		s, ok := v.(string)
		if !ok || len(s) <= 10 {
			return v, nil
		}
		return s[:10], nil
	})
}

// SortBy orders rows by the named columns, ascending. Strings compare
// lexically, numbers numerically, nil first.
func (t *Table) SortBy(names ...string) (*Table, error) {
	idx := make([]int, len(names))
	for k, n := range names {
		j, ok := t.index[n]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, n)
		}
		idx[k] = j
	}
	out := t.clone()
	sort.SliceStable(out.rows, func(a, b int) bool {
		for _, j := range idx {
			if c := compare(out.rows[a][j], out.rows[b][j]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return out, nil
}

// Concat appends other's rows. Columns missing from one side are nil.
func (t *Table) Concat(other *Table) *Table {
	out := t.clone()
	for _, c := range other.columns {
		if !out.Has(c) {
			out.addColumn(c)
		}
	}
	for i := range other.rows {
		row := make([]any, len(out.columns))
		for j, c := range other.columns {
			row[out.index[c]] = other.rows[i][j]
		}
		out.rows = append(out.rows, row)
	}
	return out
}

// Pivot reshapes long rows into wide ones: one output row per distinct
// index tuple, one output column per distinct value of column, filled from
// value. Rows are ordered by index tuple and new columns by name. A
// repeated (index, column) pair is an error.
func (t *Table) Pivot(index []string, column, value string) (*Table, error) {
	for _, n := range append(append([]string(nil), index...), column, value) {
		if !t.Has(n) {
			return nil, fmt.Errorf("pivot: %w: %q", ErrColumnNotFound, n)
		}
	}

	type group struct {
		keys  []any
		cells map[string]any
	}
	groups := map[string]*group{}
	var order []string
	names := map[string]bool{}

	colIdx, valIdx := t.index[column], t.index[value]
	for _, r := range t.rows {
		keys := make([]any, len(index))
		for k, n := range index {
			keys[k] = r[t.index[n]]
		}
		gk := rowKey(keys)
		g, ok := groups[gk]
		if !ok {
			g = &group{keys: keys, cells: map[string]any{}}
			groups[gk] = g
			order = append(order, gk)
		}
		name := Format(r[colIdx])
		if _, dup := g.cells[name]; dup {
			return nil, fmt.Errorf("pivot: duplicate entry for %v / %q", keys, name)
		}
		g.cells[name] = r[valIdx]
		names[name] = true
	}

	newCols := make([]string, 0, len(names))
	for n := range names {
		newCols = append(newCols, n)
	}
	sort.Strings(newCols)

	out := New(append(append([]string(nil), index...), newCols...)...)
	for _, gk := range order {
		g := groups[gk]
		row := make([]any, len(out.columns))
		copy(row, g.keys)
		for k, n := range newCols {
			row[len(index)+k] = g.cells[n]
		}
		out.rows = append(out.rows, row)
	}
	return out.SortBy(index...)
}

// AsFloat interprets v as a number. ok is false for nil.
func AsFloat(v any) (f float64, ok bool, err error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		return x, true, nil
	case int:
		return float64(x), true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", x)
		}
		return f, true, nil
	case bool:
		if x {
			return 1, true, nil
		}
		return 0, true, nil
	default:
		return 0, false, fmt.Errorf("not a number: %T", v)
	}
}

// Format renders a cell as a string.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func rowKey(cells []any) string {
	var b strings.Builder
	for _, v := range cells {
		fmt.Fprintf(&b, "%T:%v\x1f", v, v)
	}
	return b.String()
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	fa, aNum := a.(float64)
	fb, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(Format(a), Format(b))
}
