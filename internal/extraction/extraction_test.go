package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natgas-forecast/internal/httpx"
	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/storage/memory"
	"natgas-forecast/internal/watermark"
)

// fakeSource serves fixed pages and records the start dates it was asked for.
type fakeSource struct {
	pages  [][]Record
	failAt int // page index that fails; -1 = never
	err    error
	starts []time.Time
	calls  int
}

func (f *fakeSource) Name() string      { return "fake" }
func (f *fakeSource) DateField() string { return "period" }

func (f *fakeSource) FetchPage(_ context.Context, start time.Time, page int) ([]Record, error) {
	f.calls++
	f.starts = append(f.starts, start)
	if page == f.failAt {
		return nil, f.err
	}
	if page >= len(f.pages) {
		return nil, nil
	}
	return f.pages[page], nil
}

func day(s string) time.Time {
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return d
}

func setup(t *testing.T) (*Extractor, *memory.ObjectStore, *watermark.Store) {
	t.Helper()
	objects := memory.NewObjectStore()
	wm := watermark.New(objects, watermark.Options{})
	ex := New(Options{
		Objects:    objects,
		Watermarks: wm,
		Now:        func() time.Time { return day("2024-06-01") },
	})
	return ex, objects, wm
}

func TestExtract_CommitsAndAdvancesWatermark(t *testing.T) {
	ex, objects, wm := setup(t)
	ctx := context.Background()
	require.NoError(t, wm.Update(ctx, "prices", day("2021-01-01")))

	src := &fakeSource{failAt: -1, pages: [][]Record{
		{{"period": "2021-01-04", "value": "2.5"}, {"period": "2021-01-05", "value": "2.6"}},
		{{"period": "2021-01-02", "value": "2.4"}},
	}}

	res, err := ex.Extract(ctx, Job{DatasetKey: "prices", Folder: "prices", Source: src})
	require.NoError(t, err)

	assert.True(t, res.Committed)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, day("2021-01-05"), res.MaxDate)
	assert.Equal(t, "prices_20240601", res.ObjectKey)

	// The watermark was the start for every page.
	for _, s := range src.starts {
		assert.Equal(t, day("2021-01-01"), s)
	}

	dates, err := wm.Dates(ctx, "prices")
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-01-01", "2021-01-05"}, dates)

	raw, err := objects.Get(ctx, "prices", "prices_20240601")
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Len(t, stored, 3)
}

func TestExtract_EmptyFirstPageIsNoop(t *testing.T) {
	ex, objects, wm := setup(t)
	ctx := context.Background()
	require.NoError(t, wm.Update(ctx, "prices", day("2021-01-01")))
	require.NoError(t, objects.Put(ctx, "prices", "prices_20240601", []byte(`["previous"]`)))
	before, _ := objects.Get(ctx, watermark.DefaultFolder, watermark.DefaultKey)

	res, err := ex.Extract(ctx, Job{DatasetKey: "prices", Folder: "prices", Source: &fakeSource{failAt: -1}})
	require.NoError(t, err)
	assert.False(t, res.Committed)
	assert.Equal(t, 0, res.Records)

	blob, _ := objects.Get(ctx, "prices", "prices_20240601")
	assert.Equal(t, `["previous"]`, string(blob))
	after, _ := objects.Get(ctx, watermark.DefaultFolder, watermark.DefaultKey)
	assert.Equal(t, before, after)
}

func TestExtract_DefaultStartWhenNeverExtracted(t *testing.T) {
	ex, _, _ := setup(t)
	src := &fakeSource{failAt: -1}

	res, err := ex.Extract(context.Background(), Job{
		DatasetKey:   "daily_weather",
		DefaultStart: day("1999-01-04"),
		Source:       src,
	})
	require.NoError(t, err)
	assert.Equal(t, day("1999-01-04"), res.Start)
	require.Len(t, src.starts, 1)
	assert.Equal(t, day("1999-01-04"), src.starts[0])
}

func TestExtract_FailureMidLoopWritesNothing(t *testing.T) {
	ex, objects, wm := setup(t)
	ctx := context.Background()

	src := &fakeSource{
		failAt: 1,
		err:    &httpx.TransientError{Source: "fake", Attempts: 4, Err: errors.New("timeout")},
		pages:  [][]Record{{{"period": "2021-01-04"}}, {{"period": "2021-01-05"}}},
	}

	_, err := ex.Extract(ctx, Job{DatasetKey: "prices", Folder: "prices", Source: src})
	require.Error(t, err)
	assert.True(t, httpx.IsTransient(err))

	assert.Equal(t, 0, objects.Len())
	_, err = wm.GetLatest(ctx, "prices")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestExtract_MaxPagesCapsLoop(t *testing.T) {
	ex, _, _ := setup(t)
	page := []Record{{"period": "2022-03-01"}}
	src := &fakeSource{failAt: -1, pages: [][]Record{page, page, page, page}}

	res, err := ex.Extract(context.Background(), Job{DatasetKey: "rigs", Source: src, MaxPages: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 2, res.Pages)
	assert.True(t, res.Committed)
}

func TestExtract_MissingDateFieldFails(t *testing.T) {
	ex, objects, _ := setup(t)
	src := &fakeSource{failAt: -1, pages: [][]Record{{{"value": "1"}}}}

	_, err := ex.Extract(context.Background(), Job{DatasetKey: "prices", Source: src})
	assert.Error(t, err)
	assert.Equal(t, 0, objects.Len())
}

func TestExtract_InvalidJob(t *testing.T) {
	ex, _, _ := setup(t)
	_, err := ex.Extract(context.Background(), Job{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"2024-01-02", "2024-01-02", true},
		{"2024-01", "2024-01-01", true},
		{"2024-01-02T00:00:00", "2024-01-02", true},
		{"01/02/2024", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.raw)
		if !tt.ok {
			assert.Error(t, err, tt.raw)
			continue
		}
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got.Format(time.DateOnly))
	}
}

func TestMaxDate_MixedFormats(t *testing.T) {
	got, err := MaxDate([]Record{
		{"date": "2023-12"},
		{"date": "2023-11-30T00:00:00"},
		{"date": "2023-12-01"},
	}, "date")
	require.NoError(t, err)
	assert.Equal(t, day("2023-12-01"), got)
}
