package weather

import (
	"fmt"
	"sort"

	"natgas-forecast/internal/frame"
	"natgas-forecast/internal/table"
)

// Method names how an imputation value was derived.
type Method string

const (
	MethodMean   Method = "Mean"
	MethodMedian Method = "Median"
)

// Imputation is one climatological fallback value.
type Imputation struct {
	City     string
	Quarter  int
	Variable string
	Method   Method
	Value    float64
}

type imputationKey struct {
	city     string
	quarter  int
	variable string
}

// ImputationTable maps (city, quarter, variable) to a fallback value. It is
// built once per run and read-only afterwards.
type ImputationTable struct {
	entries map[imputationKey]Imputation
}

var imputedVariables = []struct {
	name   string
	method Method
}{
	{TMin, MethodMean},
	{TMax, MethodMean},
	{AWND, MethodMean},
	{Snow, MethodMedian},
}

// BuildImputationTable computes, for every city and quarter, the mean of
// TMIN, TMAX and AWND and the median of SNOW, rounded to 2dp. A quarter
// with no snow readings gets 0.
func BuildImputationTable(obs []Observation) *ImputationTable {
	values := map[imputationKey][]float64{}
	cities := map[string]bool{}
	for i := range obs {
		o := &obs[i]
		cities[o.City] = true
		q := Quarter(o.Date)
		for _, v := range imputedVariables {
			x := o.get(v.name)
			if frame.IsNull(x) {
				continue
			}
			k := imputationKey{o.City, q, v.name}
			values[k] = append(values[k], x)
		}
	}

	t := &ImputationTable{entries: map[imputationKey]Imputation{}}
	for city := range cities {
		for q := 1; q <= 4; q++ {
			for _, v := range imputedVariables {
				k := imputationKey{city, q, v.name}
				var val float64
				switch v.method {
				case MethodMean:
					val = frame.Round2(frame.Mean(values[k]))
				case MethodMedian:
					val = frame.Median(values[k])
					if frame.IsNull(val) {
						val = 0
					}
					val = frame.Round2(val)
				}
				t.entries[k] = Imputation{City: city, Quarter: q, Variable: v.name, Method: v.method, Value: val}
			}
		}
	}
	return t
}

// Lookup returns the fallback for (city, quarter, variable).
func (t *ImputationTable) Lookup(city string, quarter int, variable string) (Imputation, bool) {
	e, ok := t.entries[imputationKey{city, quarter, variable}]
	return e, ok
}

// Len returns the number of entries.
func (t *ImputationTable) Len() int { return len(t.entries) }

// Entries returns all entries ordered by city, quarter and variable.
func (t *ImputationTable) Entries() []Imputation {
	out := make([]Imputation, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].City != out[b].City {
			return out[a].City < out[b].City
		}
		if out[a].Quarter != out[b].Quarter {
			return out[a].Quarter < out[b].Quarter
		}
		return out[a].Variable < out[b].Variable
	})
	return out
}

// Apply fills every missing TMIN, TMAX, AWND and SNOW reading from the
// table, keyed by the observation's quarter. Entries whose value is
// itself undefined are skipped. It returns the number of readings filled.
func (t *ImputationTable) Apply(obs []Observation) int {
	n := 0
	for i := range obs {
		o := &obs[i]
		q := Quarter(o.Date)
		for _, v := range imputedVariables {
			if !frame.IsNull(o.get(v.name)) {
				continue
			}
			e, ok := t.Lookup(o.City, q, v.name)
			if !ok || frame.IsNull(e.Value) {
				continue
			}
			o.set(v.name, e.Value)
			n++
		}
	}
	return n
}

// ToTable renders the table with columns city, quarter, datatype,
// impute method and impute value.
func (t *ImputationTable) ToTable() *table.Table {
	out := table.New("city", "quarter", "datatype", "impute method", "impute value")
	for _, e := range t.Entries() {
		var val any = e.Value
		if frame.IsNull(e.Value) {
			val = nil
		}
		_ = out.Append(e.City, e.Quarter, e.Variable, string(e.Method), val)
	}
	return out
}

// ImputationTableFromTable parses a table produced by ToTable.
func ImputationTableFromTable(src *table.Table) (*ImputationTable, error) {
	t := &ImputationTable{entries: map[imputationKey]Imputation{}}
	for i := 0; i < src.Len(); i++ {
		row := src.Row(i)
		q, ok, err := table.AsFloat(row["quarter"])
		if err != nil || !ok || q < 1 || q > 4 {
			return nil, fmt.Errorf("imputation row %d: invalid quarter %v", i, row["quarter"])
		}
		val, ok, err := table.AsFloat(row["impute value"])
		if err != nil {
			return nil, fmt.Errorf("imputation row %d: %w", i, err)
		}
		if !ok {
			val = frame.Null
		}
		e := Imputation{
			City:     table.Format(row["city"]),
			Quarter:  int(q),
			Variable: table.Format(row["datatype"]),
			Method:   Method(table.Format(row["impute method"])),
			Value:    val,
		}
		t.entries[imputationKey{e.City, e.Quarter, e.Variable}] = e
	}
	return t, nil
}
