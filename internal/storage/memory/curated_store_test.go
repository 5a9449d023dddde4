package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"natgas-forecast/internal/storage"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(v float64) *float64 { return &v }

func TestCuratedStore_InsertAndGetByRun(t *testing.T) {
	store := NewCuratedStore()
	ctx := context.Background()

	rows := []*storage.CuratedRow{
		{RunID: "run-1", Date: day("2024-01-03"), Column: "price ($/MMBTU)", Value: ptr(2.5)},
		{RunID: "run-1", Date: day("2024-01-02"), Column: "tavg", Value: nil},
		{RunID: "run-1", Date: day("2024-01-02"), Column: "price ($/MMBTU)", Value: ptr(2.4)},
		{RunID: "run-2", Date: day("2024-01-02"), Column: "price ($/MMBTU)", Value: ptr(9)},
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRun failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	if !got[0].Date.Equal(day("2024-01-02")) || got[0].Column != "price ($/MMBTU)" {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].Column != "tavg" || got[1].Value != nil {
		t.Errorf("expected null tavg second, got %+v", got[1])
	}
	if *got[2].Value != 2.5 {
		t.Errorf("expected 2.5 last, got %v", *got[2].Value)
	}
}

func TestCuratedStore_DuplicateKey(t *testing.T) {
	store := NewCuratedStore()
	ctx := context.Background()

	row := &storage.CuratedRow{RunID: "run-1", Date: day("2024-01-02"), Column: "tavg", Value: ptr(1)}
	if err := store.InsertBulk(ctx, []*storage.CuratedRow{row}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	batch := []*storage.CuratedRow{
		{RunID: "run-1", Date: day("2024-01-03"), Column: "tavg", Value: ptr(2)},
		row,
	}
	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}

	// Batch is atomic: the non-duplicate row must not have been inserted.
	got, _ := store.GetByRun(ctx, "run-1")
	if len(got) != 1 {
		t.Errorf("expected 1 row after failed batch, got %d", len(got))
	}
}

func TestCuratedStore_DuplicateWithinBatch(t *testing.T) {
	store := NewCuratedStore()
	row := &storage.CuratedRow{RunID: "run-1", Date: day("2024-01-02"), Column: "tavg"}

	err := store.InsertBulk(context.Background(), []*storage.CuratedRow{row, row})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestCuratedStore_InvalidInput(t *testing.T) {
	store := NewCuratedStore()

	err := store.InsertBulk(context.Background(), []*storage.CuratedRow{{RunID: "", Column: "tavg"}})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestCuratedStore_GetByDateRange(t *testing.T) {
	store := NewCuratedStore()
	ctx := context.Background()

	var rows []*storage.CuratedRow
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		rows = append(rows, &storage.CuratedRow{RunID: "run-1", Date: day(d), Column: "tavg", Value: ptr(1)})
	}
	if err := store.InsertBulk(ctx, rows); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByDateRange(ctx, "run-1", day("2024-01-02"), day("2024-01-03"))
	if err != nil {
		t.Fatalf("GetByDateRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if !got[0].Date.Equal(day("2024-01-02")) || !got[1].Date.Equal(day("2024-01-03")) {
		t.Errorf("unexpected range: %v, %v", got[0].Date, got[1].Date)
	}
}
