// Package noaa pages through the NOAA Climate Data Online v2 data endpoint
// with a sliding date window.
package noaa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/httpx"
)

// Default configuration values.
const (
	DefaultURL        = "https://www.ncei.noaa.gov/cdo-web/api/v2/data"
	DefaultTimeout    = 7 * time.Second
	DefaultMaxRetries = 3
	DefaultLimit      = 1000

	// WindowStep is how far the startdate/enddate window advances per page.
	WindowStep = 6
	// windowSpan is enddate - startdate of every window, in days.
	windowSpan = 5
)

// DefaultDataTypes are the GHCND variables the pipeline consumes.
var DefaultDataTypes = []string{"TMIN", "TMAX", "TAVG", "SNOW", "AWND"}

// Config holds the client's connection settings.
type Config struct {
	Token      string
	URL        string
	Timeout    time.Duration
	MaxRetries int // -1 disables retries
	Logger     *zap.Logger
}

// Query selects the observations to pull.
type Query struct {
	DatasetID string   // default GHCND
	DataTypes []string // default DefaultDataTypes
	Stations  []string // default every id in Stations
	Units     string   // default metric
	Limit     int      // default 1000
}

type response struct {
	Results []extraction.Record `json:"results"`
}

// Client talks to the NOAA CDO API.
type Client struct {
	token  string
	url    string
	http   *httpx.Client
	logger *zap.Logger
}

// NewClient creates a NOAA client. Timed-out requests are retried up to
// cfg.MaxRetries times (default 3); exhausting them fails the page.
func NewClient(cfg Config, opts ...httpx.ClientOption) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	switch {
	case cfg.MaxRetries == 0:
		cfg.MaxRetries = DefaultMaxRetries
	case cfg.MaxRetries < 0:
		cfg.MaxRetries = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	base := []httpx.ClientOption{
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithMaxRetries(cfg.MaxRetries),
		httpx.WithLogger(cfg.Logger),
	}
	return &Client{
		token:  cfg.Token,
		url:    cfg.URL,
		http:   httpx.NewClient("noaa", append(base, opts...)...),
		logger: cfg.Logger,
	}
}

// Dataset returns an extraction.Source for q.
func (c *Client) Dataset(q Query) *Source {
	if q.DatasetID == "" {
		q.DatasetID = "GHCND"
	}
	if len(q.DataTypes) == 0 {
		q.DataTypes = DefaultDataTypes
	}
	if len(q.Stations) == 0 {
		q.Stations = StationIDs()
	}
	if q.Units == "" {
		q.Units = "metric"
	}
	if q.Limit == 0 {
		q.Limit = DefaultLimit
	}
	return &Source{client: c, query: q}
}

// Source pages by sliding a date window forward from the start date.
type Source struct {
	client *Client
	query  Query
}

var _ extraction.Source = (*Source)(nil)

// Name implements extraction.Source.
func (s *Source) Name() string { return "noaa" }

// DateField implements extraction.Source.
func (s *Source) DateField() string { return "date" }

// Window returns the [startdate, enddate] window of page.
func Window(start time.Time, page int) (time.Time, time.Time) {
	from := start.AddDate(0, 0, page*WindowStep)
	return from, from.AddDate(0, 0, windowSpan)
}

// FetchPage requests one window. A null or empty results array ends the
// pull. Each record gains city and state fields from Stations; records
// from stations outside the map are dropped.
func (s *Source) FetchPage(ctx context.Context, start time.Time, page int) ([]extraction.Record, error) {
	from, to := Window(start, page)

	params := url.Values{}
	params.Set("datasetid", s.query.DatasetID)
	for _, dt := range s.query.DataTypes {
		params.Add("datatypeid", dt)
	}
	for _, st := range s.query.Stations {
		params.Add("stationid", st)
	}
	params.Set("startdate", from.Format(time.DateOnly))
	params.Set("enddate", to.Format(time.DateOnly))
	params.Set("units", s.query.Units)
	params.Set("limit", strconv.Itoa(s.query.Limit))

	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.client.url, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = params.Encode()
		req.Header.Set("token", s.client.token)
		return req, nil
	}

	var resp response
	if err := s.client.http.GetJSON(ctx, build, &resp); err != nil {
		return nil, err
	}

	out := resp.Results[:0]
	for _, r := range resp.Results {
		station, _ := r["station"].(string)
		loc, ok := Stations[station]
		if !ok {
			s.client.logger.Warn("dropping record from unknown station", zap.String("station", station))
			continue
		}
		r["city"] = loc.City
		r["state"] = loc.State
		out = append(out, r)
	}

	s.client.logger.Debug("noaa page",
		zap.String("startdate", from.Format(time.DateOnly)),
		zap.String("enddate", to.Format(time.DateOnly)),
		zap.Int("records", len(out)))

	if len(resp.Results) > 0 && len(out) == 0 {
		return nil, fmt.Errorf("noaa window %s: every record came from an unknown station", from.Format(time.DateOnly))
	}
	return out, nil
}
