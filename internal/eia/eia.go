// Package eia pages through EIA API v2 data endpoints.
package eia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"natgas-forecast/internal/extraction"
	"natgas-forecast/internal/httpx"
)

// Default configuration values.
const (
	DefaultBaseURL = "https://api.eia.gov/v2/"
	DefaultTimeout = 30 * time.Second
	PageLength     = 5000
)

// Frequencies accepted by the API.
const (
	Daily   = "daily"
	Monthly = "monthly"
)

// Sort is one sort clause of a query.
type Sort struct {
	Column    string `json:"column"`
	Direction string `json:"direction"`
}

// Query selects the rows of one endpoint.
type Query struct {
	Frequency string              `json:"frequency"`
	Data      []string            `json:"data"`
	Facets    map[string][]string `json:"facets,omitempty"`
	Sort      []Sort              `json:"sort,omitempty"`
}

// params is the X-Params header body.
type params struct {
	Query
	Start  string `json:"start"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

type response struct {
	Response struct {
		Total json.RawMessage      `json:"total"`
		Data  []extraction.Record `json:"data"`
	} `json:"response"`
}

// Config holds the client's connection settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Client talks to the EIA API. It never retries a timeout.
type Client struct {
	apiKey  string
	baseURL string
	http    *httpx.Client
	logger  *zap.Logger
}

// NewClient creates an EIA client.
func NewClient(cfg Config, opts ...httpx.ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	base := []httpx.ClientOption{
		httpx.WithTimeout(cfg.Timeout),
		httpx.WithMaxRetries(0),
		httpx.WithLogger(cfg.Logger),
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    httpx.NewClient("eia", append(base, opts...)...),
		logger:  cfg.Logger,
	}
}

// Dataset returns an extraction.Source for endpoint (relative to the base
// URL, e.g. "natural-gas/pri/fut/data/").
func (c *Client) Dataset(endpoint string, q Query) *Source {
	return &Source{client: c, endpoint: endpoint, query: q}
}

// Source pages one endpoint with an offset cursor.
type Source struct {
	client   *Client
	endpoint string
	query    Query
}

var _ extraction.Source = (*Source)(nil)

// Name implements extraction.Source.
func (s *Source) Name() string { return "eia" }

// DateField implements extraction.Source.
func (s *Source) DateField() string { return "period" }

// FetchPage requests rows [page*5000, page*5000+5000) at or after start.
func (s *Source) FetchPage(ctx context.Context, start time.Time, page int) ([]extraction.Record, error) {
	p := params{
		Query:  s.query,
		Start:  FormatStart(s.query.Frequency, start),
		Offset: page * PageLength,
		Length: PageLength,
	}
	header, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode eia params: %w", err)
	}

	target := s.client.baseURL + strings.TrimPrefix(s.endpoint, "/")
	build := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		q := url.Values{}
		q.Set("api_key", s.client.apiKey)
		req.URL.RawQuery = q.Encode()
		req.Header.Set("X-Params", string(header))
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}

	var resp response
	if err := s.client.http.GetJSON(ctx, build, &resp); err != nil {
		return nil, err
	}

	s.client.logger.Debug("eia page",
		zap.String("endpoint", s.endpoint),
		zap.Int("offset", p.Offset),
		zap.Int("records", len(resp.Response.Data)))
	return resp.Response.Data, nil
}

// FormatStart renders start the way the API filters each frequency.
func FormatStart(frequency string, start time.Time) string {
	if frequency == Monthly {
		return start.Format("2006-01")
	}
	return start.Format(time.DateOnly)
}

// AscendingByPeriod is the sort every dataset query uses.
var AscendingByPeriod = []Sort{{Column: "period", Direction: "asc"}}
