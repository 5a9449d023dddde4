package fill

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/frame"
)

var nan = frame.Null

func newFrame(t *testing.T, cols map[string][]float64) *frame.Frame {
	t.Helper()
	var n int
	for _, c := range cols {
		n = len(c)
	}
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	f, err := frame.New(dates)
	require.NoError(t, err)
	for name, c := range cols {
		require.NoError(t, f.Set(name, append([]float64(nil), c...)))
	}
	return f
}

func assertCol(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if frame.IsNull(want[i]) {
			assert.True(t, frame.IsNull(got[i]), "index %d", i)
		} else {
			assert.Equal(t, want[i], got[i], "index %d", i)
		}
	}
}

func TestLeading(t *testing.T) {
	f := newFrame(t, map[string][]float64{
		"vol":   {nan, nan, 1, nan, 2},
		"empty": {nan, nan, nan, nan, nan},
	})
	n, err := Leading(f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertCol(t, []float64{1, 1, 1, nan, 2}, f.Col("vol"))
	assertCol(t, []float64{nan, nan, nan, nan, nan}, f.Col("empty"))
}

func TestTrailing_LeavesInteriorGap(t *testing.T) {
	f := newFrame(t, map[string][]float64{
		"imports": {1, 1, nan, nan, 4, nan, nan},
		"price":   {1, 2, 3, nan, 5, 6, nan},
	})
	n, err := Trailing(f, "imports")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assertCol(t, []float64{1, 1, nan, nan, 4, 4, 4}, f.Col("imports"))
	assertCol(t, []float64{1, 2, 3, nan, 5, 6, nan}, f.Col("price"))
}

func TestTrailing_UnknownColumn(t *testing.T) {
	f := newFrame(t, map[string][]float64{"a": {1}})
	_, err := Trailing(f, "b")
	assert.ErrorIs(t, err, frame.ErrUnknownColumn)
}

func TestNulls(t *testing.T) {
	f := newFrame(t, map[string][]float64{"a": {1, nan, nan}, "b": {1, 2, 3}})
	assert.Equal(t, map[string]int{"a": 2}, Nulls(f))
}
