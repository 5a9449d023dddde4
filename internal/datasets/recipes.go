package datasets

import (
	"fmt"
	"sort"
	"strings"

	"natgas-forecast/internal/table"
)

// TagColumns are the descriptive fields EIA attaches to every row.
var TagColumns = []string{
	"duoarea", "area-name", "product", "product-name", "process",
	"process-name", "series", "series-description", "units",
}

// spotPriceRecipe yields (date, priceColumn) rows.
func spotPriceRecipe(priceColumn string) Recipe {
	return func(raw *table.Table) (*table.Table, error) {
		t, err := raw.DropColumns(TagColumns...).Rename(map[string]string{"value": priceColumn, "period": "date"})
		if err != nil {
			return nil, err
		}
		if t, err = t.Select("date", priceColumn); err != nil {
			return nil, err
		}
		if t, err = t.DropNulls().ToFloat(priceColumn); err != nil {
			return nil, err
		}
		return t.DropDuplicates().SortBy("date")
	}
}

// monthlyRecipe pivots one column per process name and renames them.
func monthlyRecipe(rename map[string]string) Recipe {
	return func(raw *table.Table) (*table.Table, error) {
		t, err := raw.Select("period", "process-name", "value")
		if err != nil {
			return nil, err
		}
		t = t.DropNulls().DropDuplicates()
		if t, err = t.ToFloat("value"); err != nil {
			return nil, err
		}
		if t, err = t.ConvertYearMonth("period"); err != nil {
			return nil, err
		}
		if t, err = t.Pivot([]string{"period"}, "process-name", "value"); err != nil {
			return nil, err
		}
		mapping := map[string]string{"period": "date"}
		for from, to := range rename {
			mapping[from] = to
		}
		if t, err = t.Rename(mapping); err != nil {
			return nil, err
		}
		var cols []string
		for _, to := range rename {
			if t.Has(to) {
				cols = append(cols, to)
			}
		}
		sort.Strings(cols)
		return t.Select(append([]string{"date"}, cols...)...)
	}
}

// weatherRecipe pivots one column per lowercase datatype per (date, city,
// state).
func weatherRecipe(raw *table.Table) (*table.Table, error) {
	t, err := raw.Select("date", "datatype", "value", "city", "state")
	if err != nil {
		return nil, err
	}
	if t, err = t.TruncateDate("date"); err != nil {
		return nil, err
	}
	if t, err = t.ToFloat("value"); err != nil {
		return nil, err
	}
	t = t.DropDuplicates()
	t, err = t.Map("datatype", func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("datatype %v is not a string", v)
		}
		return strings.ToLower(s), nil
	})
	if err != nil {
		return nil, err
	}
	return t.Pivot([]string{"date", "city", "state"}, "datatype", "value")
}

// Transform applies d's recipe to raw record JSON.
func (d Dataset) Transform(data []byte) (*table.Table, error) {
	raw, err := table.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Key, err)
	}
	if raw.Len() == 0 {
		return raw, nil
	}
	t, err := d.Recipe(raw)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", d.Key, err)
	}
	return t, nil
}
