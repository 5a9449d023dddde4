package api

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"natgas-forecast/internal/datasets"
	"natgas-forecast/internal/storage"
)

var validate = validator.New()

// WatermarkReader is the read side of a watermark store.
type WatermarkReader interface {
	Dates(ctx context.Context, datasetKey string) ([]string, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app. curated may be
// nil, in which case the curated endpoint answers 503.
func RegisterRoutes(app *fiber.App, watermarks WatermarkReader, curated storage.CuratedStore) {
	v1 := app.Group("/api/v1")

	v1.Get("/datasets", func(c *fiber.Ctx) error {
		out := make([]datasetStatus, 0, len(datasets.All()))
		for _, d := range datasets.All() {
			st := datasetStatus{
				Key:          d.Key,
				Source:       string(d.Source),
				Extraction:   d.ExtractionFolder(),
				Transform:    d.TransformationFolder(),
				DefaultStart: datasets.DefaultStart.Format(time.DateOnly),
			}
			dates, err := watermarks.Dates(c.UserContext(), d.Key)
			switch {
			case errors.Is(err, storage.ErrNotFound):
			case err != nil:
				return fiber.NewError(fiber.StatusInternalServerError, "failed to read watermarks")
			case len(dates) > 0:
				st.Latest = dates[len(dates)-1]
				st.Extractions = len(dates)
			}
			out = append(out, st)
		}
		return c.JSON(out)
	})

	v1.Get("/watermarks", func(c *fiber.Ctx) error {
		all := make(map[string][]string)
		for _, d := range datasets.All() {
			dates, err := watermarks.Dates(c.UserContext(), d.Key)
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to read watermarks")
			}
			all[d.Key] = dates
		}
		return c.JSON(all)
	})

	v1.Get("/watermarks/:dataset", func(c *fiber.Ctx) error {
		key := c.Params("dataset")
		if _, ok := datasets.Lookup(key); !ok {
			return fiber.NewError(fiber.StatusNotFound, "unknown dataset")
		}
		dates, err := watermarks.Dates(c.UserContext(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "dataset has never been extracted")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read watermarks")
		}
		return c.JSON(fiber.Map{
			"dataset": key,
			"latest":  dates[len(dates)-1],
			"dates":   dates,
		})
	})

	v1.Get("/runs/:run/curated", func(c *fiber.Ctx) error {
		if curated == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "curated store not configured")
		}
		var q curatedQuery
		if err := q.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			rows []*storage.CuratedRow
			err  error
		)
		if q.From.IsZero() {
			rows, err = curated.GetByRun(c.UserContext(), q.RunID)
		} else {
			rows, err = curated.GetByDateRange(c.UserContext(), q.RunID, q.From, q.To)
		}
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read curated rows")
		}
		if len(rows) == 0 {
			return fiber.NewError(fiber.StatusNotFound, "no curated rows for requested run")
		}
		return c.JSON(fiber.Map{
			"run_id": q.RunID,
			"rows":   pivot(rows),
		})
	})
}

type datasetStatus struct {
	Key          string `json:"key"`
	Source       string `json:"source"`
	Extraction   string `json:"extraction_folder"`
	Transform    string `json:"transformation_folder"`
	DefaultStart string `json:"default_start"`
	Latest       string `json:"latest,omitempty"`
	Extractions  int    `json:"extractions"`
}

// curatedQuery holds the parameters of the curated endpoint. From and To
// are optional but must be given together.
type curatedQuery struct {
	RunID string    `validate:"required,uuid"`
	From  time.Time `validate:"required_with=To"`
	To    time.Time `validate:"required_with=From,omitempty,gtefield=From"`
}

func (q *curatedQuery) bind(c *fiber.Ctx) error {
	q.RunID = c.Params("run")
	if s := c.Query("from"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return errors.New("invalid from; use YYYY-MM-DD")
		}
		q.From = d
	}
	if s := c.Query("to"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return errors.New("invalid to; use YYYY-MM-DD")
		}
		q.To = d
	}
	return nil
}

// pivot turns long-format rows, ordered by (date, column), back into one
// object per date. Null features are emitted as JSON null.
func pivot(rows []*storage.CuratedRow) []map[string]any {
	var out []map[string]any
	var current map[string]any
	var last time.Time
	for _, r := range rows {
		if current == nil || !r.Date.Equal(last) {
			current = map[string]any{"date": r.Date.Format(time.DateOnly)}
			out = append(out, current)
			last = r.Date
		}
		if r.Value == nil {
			current[r.Column] = nil
		} else {
			current[r.Column] = *r.Value
		}
	}
	return out
}
