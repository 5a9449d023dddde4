// Package datasets is the catalogue of upstream series the pipeline pulls:
// where each lives, how it is queried and how its raw records become a
// tidy table.
package datasets

import (
	"fmt"
	"strings"
	"time"

	"natgas-forecast/internal/eia"
	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/noaa"
	"natgas-forecast/internal/storage"
	"natgas-forecast/internal/table"
)

// Dataset keys. Each doubles as the watermark key and object key prefix.
const (
	NaturalGasSpotPrices       = "natural_gas_spot_prices"
	HeatingOilSpotPrices       = "heating_oil_spot_prices"
	NaturalGasMonthlyVariables = "natural_gas_monthly_variables"
	NaturalGasRigsInOperation  = "natural_gas_rigs_in_operation"
	DailyWeather               = "daily_weather"
)

// Object store folders.
const (
	ExtractionFolder     = "extraction"
	TransformationFolder = "transformation"
	ImputationFolder     = "extraction/imputation"
	CuratedTrainFolder   = "curated/training_data"
	CuratedTestFolder    = "curated/test_data"
)

// DefaultStart is the first date requested for a dataset never extracted.
var DefaultStart = time.Date(1999, 1, 4, 0, 0, 0, 0, time.UTC)

// Source identifies an upstream API.
type Source string

const (
	SourceEIA  Source = "eia"
	SourceNOAA Source = "noaa"
)

// Recipe turns a dataset's raw records into its transformed table.
type Recipe func(raw *table.Table) (*table.Table, error)

// Dataset describes one upstream series.
type Dataset struct {
	Key      string
	Source   Source
	Endpoint string    // EIA endpoint relative to the API base
	Query    eia.Query // EIA only
	Recipe   Recipe
}

// ExtractionFolder is where raw blobs of d are stored.
func (d Dataset) ExtractionFolder() string {
	return storage.ObjectPath(ExtractionFolder, d.Key)
}

// TransformationFolder is where transformed tables of d are stored.
func (d Dataset) TransformationFolder() string {
	return storage.ObjectPath(TransformationFolder, d.Key)
}

// Clients holds the upstream clients jobs are built from.
type Clients struct {
	EIA  *eia.Client
	NOAA *noaa.Client
}

// Job builds the extraction job for d.
func (d Dataset) Job(c Clients, maxPages int) (extraction.Job, error) {
	job := extraction.Job{
		DatasetKey:   d.Key,
		Folder:       d.ExtractionFolder(),
		DefaultStart: DefaultStart,
		MaxPages:     maxPages,
	}
	switch d.Source {
	case SourceEIA:
		if c.EIA == nil {
			return job, fmt.Errorf("%s: eia client not configured", d.Key)
		}
		job.Source = c.EIA.Dataset(d.Endpoint, d.Query)
	case SourceNOAA:
		if c.NOAA == nil {
			return job, fmt.Errorf("%s: noaa client not configured", d.Key)
		}
		job.Source = c.NOAA.Dataset(noaa.Query{})
	default:
		return job, fmt.Errorf("%s: unknown source %q", d.Key, d.Source)
	}
	return job, nil
}

var catalogue = []Dataset{
	{
		Key:      NaturalGasSpotPrices,
		Source:   SourceEIA,
		Endpoint: "natural-gas/pri/fut/data/",
		Query: eia.Query{
			Frequency: eia.Daily,
			Data:      []string{"value"},
			Facets:    map[string][]string{"series": {"RNGWHHD"}},
			Sort:      eia.AscendingByPeriod,
		},
		Recipe: spotPriceRecipe("price ($/MMBTU)"),
	},
	{
		Key:      HeatingOilSpotPrices,
		Source:   SourceEIA,
		Endpoint: "petroleum/pri/spt/data/",
		Query: eia.Query{
			Frequency: eia.Daily,
			Data:      []string{"value"},
			Facets:    map[string][]string{"series": {"EER_EPD2F_PF4_Y35NY_DPG"}},
			Sort:      eia.AscendingByPeriod,
		},
		Recipe: spotPriceRecipe("price_heating_oil ($/GAL)"),
	},
	{
		Key:      NaturalGasMonthlyVariables,
		Source:   SourceEIA,
		Endpoint: "natural-gas/sum/lsum/data/",
		Query: eia.Query{
			Frequency: eia.Monthly,
			Data:      []string{"value"},
			Facets: map[string][]string{
				"duoarea": {"NUS", "NUS-Z00"},
				"series":  {"N3010US2", "N3020US2", "N5030US2", "N9100US2", "N9103US2"},
			},
			Sort: eia.AscendingByPeriod,
		},
		Recipe: monthlyRecipe(map[string]string{
			"Commercial Consumption":        "commercial_consumption",
			"Imports":                       "imports",
			"Liquefied Natural Gas Imports": "lng_imports",
			"Residential Consumption":       "residential_consumption",
			"Total Underground Storage":     "total_underground_storage",
		}),
	},
	{
		Key:      NaturalGasRigsInOperation,
		Source:   SourceEIA,
		Endpoint: "natural-gas/enr/drill/data/",
		Query: eia.Query{
			Frequency: eia.Monthly,
			Data:      []string{"value"},
			Facets:    map[string][]string{"series": {"E_ERTRRG_XR0_NUS_C"}},
			Sort:      eia.AscendingByPeriod,
		},
		Recipe: monthlyRecipe(map[string]string{
			"Rotary Rigs in Operation": "natural_gas_rigs_in_operation",
		}),
	},
	{
		Key:    DailyWeather,
		Source: SourceNOAA,
		Recipe: weatherRecipe,
	},
}

// All returns every dataset in pipeline order.
func All() []Dataset {
	return append([]Dataset(nil), catalogue...)
}

// Lookup returns the dataset with key.
func Lookup(key string) (Dataset, bool) {
	for _, d := range catalogue {
		if d.Key == key {
			return d, true
		}
	}
	return Dataset{}, false
}

// Select returns the datasets named by keys, or all of them when keys is
// empty.
func Select(keys ...string) ([]Dataset, error) {
	if len(keys) == 0 {
		return All(), nil
	}
	out := make([]Dataset, 0, len(keys))
	for _, k := range keys {
		d, ok := Lookup(strings.TrimSpace(k))
		if !ok {
			return nil, fmt.Errorf("unknown dataset %q", k)
		}
		out = append(out, d)
	}
	return out, nil
}
