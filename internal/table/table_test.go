package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spotPrices(t *testing.T) *Table {
	t.Helper()
	tbl, err := Decode([]byte(`[
		{"period":"2024-01-03","duoarea":"RGC","series":"RNGWHHD","value":"2.61","units":"$/MMBTU"},
		{"period":"2024-01-02","duoarea":"RGC","series":"RNGWHHD","value":"2.58","units":"$/MMBTU"},
		{"period":"2024-01-04","duoarea":"RGC","series":"RNGWHHD","value":null,"units":"$/MMBTU"}
	]`))
	require.NoError(t, err)
	return tbl
}

func TestDecode_ColumnOrder(t *testing.T) {
	tbl := spotPrices(t)
	assert.Equal(t, []string{"period", "duoarea", "series", "value", "units"}, tbl.Columns())
	assert.Equal(t, 3, tbl.Len())
}

func TestJSON_RoundTripPreservesOrderAndValues(t *testing.T) {
	in := []byte(`[{"z":1.5,"a":"x","m":null},{"z":-2,"a":"y","m":true}]`)
	tbl, err := Decode(in)
	require.NoError(t, err)

	out, err := tbl.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"z":1.5,"a":"x","m":null},{"z":-2,"a":"y","m":true}]`, string(out))
}

func TestDecode_RaggedRecords(t *testing.T) {
	tbl, err := Decode([]byte(`[{"a":1},{"b":2},{"a":3,"b":4}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Columns())

	b, err := tbl.Column("b")
	require.NoError(t, err)
	assert.Equal(t, []any{nil, 2.0, 4.0}, b)
}

func TestDecode_NullAndInvalid(t *testing.T) {
	tbl, err := Decode([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	_, err = Decode([]byte(`{"a":1}`))
	assert.Error(t, err)
	_, err = Decode([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestSpotPriceRecipe(t *testing.T) {
	tbl := spotPrices(t).DropColumns("duoarea", "series", "units", "not-present").DropNulls()
	tbl, err := tbl.ToFloat("value")
	require.NoError(t, err)
	tbl, err = tbl.Rename(map[string]string{"value": "price ($/MMBTU)", "period": "date"})
	require.NoError(t, err)
	tbl, err = tbl.SortBy("date")
	require.NoError(t, err)

	assert.Equal(t, []string{"date", "price ($/MMBTU)"}, tbl.Columns())
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, map[string]any{"date": "2024-01-02", "price ($/MMBTU)": 2.58}, tbl.Row(0))
}

func TestToFloat_Invalid(t *testing.T) {
	tbl := New("value")
	require.NoError(t, tbl.Append("n/a"))
	_, err := tbl.ToFloat("value")
	assert.Error(t, err)

	_, err = tbl.ToFloat("missing")
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestPivot(t *testing.T) {
	tbl, err := Decode([]byte(`[
		{"period":"2024-02-01","process-name":"Imports","value":5.0},
		{"period":"2024-01-01","process-name":"Imports","value":4.0},
		{"period":"2024-01-01","process-name":"Residential Consumption","value":9.0}
	]`))
	require.NoError(t, err)

	p, err := tbl.Pivot([]string{"period"}, "process-name", "value")
	require.NoError(t, err)

	assert.Equal(t, []string{"period", "Imports", "Residential Consumption"}, p.Columns())
	require.Equal(t, 2, p.Len())
	assert.Equal(t, map[string]any{"period": "2024-01-01", "Imports": 4.0, "Residential Consumption": 9.0}, p.Row(0))
	assert.Equal(t, map[string]any{"period": "2024-02-01", "Imports": 5.0, "Residential Consumption": nil}, p.Row(1))
}

func TestPivot_MultiIndexAndDuplicate(t *testing.T) {
	tbl := New("date", "city", "datatype", "value")
	require.NoError(t, tbl.Append("2024-01-01", "Dallas", "TMAX", 10.0))
	require.NoError(t, tbl.Append("2024-01-01", "Austin", "TMAX", 12.0))
	require.NoError(t, tbl.Append("2024-01-01", "Austin", "TMIN", 2.0))

	p, err := tbl.Pivot([]string{"date", "city"}, "datatype", "value")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "Austin", p.Row(0)["city"])
	assert.Nil(t, p.Row(1)["TMIN"])

	require.NoError(t, tbl.Append("2024-01-01", "Austin", "TMIN", 3.0))
	_, err = tbl.Pivot([]string{"date", "city"}, "datatype", "value")
	assert.Error(t, err)
}

func TestConvertYearMonthAndTruncateDate(t *testing.T) {
	tbl := New("period")
	require.NoError(t, tbl.Append("2024-03"))
	require.NoError(t, tbl.Append("2024-03-15T00:00:00"))
	require.NoError(t, tbl.Append(nil))

	ym, err := tbl.ConvertYearMonth("period")
	require.NoError(t, err)
	col, _ := ym.Column("period")
	assert.Equal(t, []any{"2024-03-01", "2024-03-15T00:00:00", nil}, col)

	td, err := ym.TruncateDate("period")
	require.NoError(t, err)
	col, _ = td.Column("period")
	assert.Equal(t, []any{"2024-03-01", "2024-03-15", nil}, col)
}

func TestDropDuplicatesAndConcat(t *testing.T) {
	a := New("date", "x")
	require.NoError(t, a.Append("2024-01-01", 1.0))
	require.NoError(t, a.Append("2024-01-01", 1.0))
	require.NoError(t, a.Append("2024-01-02", 2.0))
	assert.Equal(t, 2, a.DropDuplicates().Len())

	b := New("date", "y")
	require.NoError(t, b.Append("2024-01-03", 3.0))

	c := a.Concat(b)
	assert.Equal(t, []string{"date", "x", "y"}, c.Columns())
	assert.Equal(t, 4, c.Len())
	assert.Equal(t, map[string]any{"date": "2024-01-03", "x": nil, "y": 3.0}, c.Row(3))
}

func TestRename_Collision(t *testing.T) {
	tbl := New("a", "b")
	_, err := tbl.Rename(map[string]string{"a": "b"})
	assert.Error(t, err)
}

func TestAppend_TooManyCells(t *testing.T) {
	assert.Error(t, New("a").Append(1.0, 2.0))
}

func TestAsFloat(t *testing.T) {
	f, ok, err := AsFloat(" 3.25 ")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3.25, f)

	_, ok, err = AsFloat("")
	require.NoError(t, err)
	assert.False(t, ok)
}
