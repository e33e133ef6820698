// Package hindcast implements the client for the remote hindcast data
// service, with a local response cache. The service exposes one parameter
// per request; this client assembles multi-parameter tables and derives the
// peak period tp from the peak frequency fp.
package hindcast

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/metoceanlab/metocean/internal/log"
	"github.com/metoceanlab/metocean/internal/series"
)

// Client queries the hindcast time-series API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   *Cache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithCache attaches a local response cache.
func WithCache(cache *Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// apiResponse mirrors the service's JSON payload: data rows are
// [millisecond timestamp, value] pairs.
type apiResponse struct {
	Result struct {
		Data [][]float64 `json:"data"`
	} `json:"result"`
	Query struct {
		DataSetSize int `json:"dataSetSize"`
	} `json:"query"`
}

// FetchSeries retrieves one parameter for one grid node over [start, end].
// The public node ids start at 1; the service indexes from 0, so the id is
// decremented on the wire. Requesting "tp" fetches "fp" and inverts it.
func (c *Client) FetchSeries(ctx context.Context, node int, parameter string, start, end time.Time) (*series.Series, error) {
	if node < 1 {
		return nil, fmt.Errorf("hindcast: node id must be >= 1, got %d", node)
	}
	if parameter == "" {
		return nil, fmt.Errorf("hindcast: parameter must not be empty")
	}
	if end.Before(start) {
		return nil, fmt.Errorf("hindcast: end %s is before start %s", end, start)
	}

	wire := parameter
	if parameter == "tp" {
		// tp is not a stored parameter, it is 1/fp.
		wire = "fp"
	}

	key := cacheKey(node, wire, start, end)
	if c.cache != nil {
		if s, ok := c.cache.Get(key); ok {
			log.Debugw("hindcast cache hit", "key", key)
			return derive(parameter, s), nil
		}
	}

	q := url.Values{}
	q.Set("parameter", wire)
	q.Set("node", strconv.Itoa(node-1))
	q.Set("start", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("end", strconv.FormatInt(end.UnixMilli(), 10))

	reqURL := fmt.Sprintf("%s/api/timeseries?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hindcast: querying %s: %w", reqURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hindcast: unexpected status %d from data service", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("hindcast: decoding response: %v", err)
	}
	if len(payload.Result.Data) == 0 && payload.Query.DataSetSize == 0 {
		return nil, fmt.Errorf("hindcast: the data service returned an empty result, retry later")
	}

	s := &series.Series{
		Times:  make([]time.Time, 0, len(payload.Result.Data)),
		Values: make([]float64, 0, len(payload.Result.Data)),
	}
	for _, row := range payload.Result.Data {
		if len(row) != 2 {
			return nil, fmt.Errorf("hindcast: malformed data row with %d fields", len(row))
		}
		s.Times = append(s.Times, time.UnixMilli(int64(row[0])).UTC())
		s.Values = append(s.Values, row[1])
	}

	if c.cache != nil {
		if err := c.cache.Put(key, s); err != nil {
			log.Warnw("hindcast cache write failed", "key", key, "error", err)
		}
	}
	return derive(parameter, s), nil
}

// derive maps the wire series to the requested parameter.
func derive(parameter string, s *series.Series) *series.Series {
	if parameter != "tp" {
		return s
	}
	out := &series.Series{
		Times:  append([]time.Time(nil), s.Times...),
		Values: make([]float64, len(s.Values)),
	}
	for i, v := range s.Values {
		if v == 0 || math.IsNaN(v) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = 1 / v
	}
	return out
}

// FetchTable retrieves several parameters for one node and assembles them
// into a table on the shared time index.
func (c *Client) FetchTable(ctx context.Context, node int, parameters []string, start, end time.Time) (*series.Table, error) {
	if len(parameters) == 0 {
		return nil, fmt.Errorf("hindcast: at least one parameter is required")
	}

	t := &series.Table{Columns: append([]string(nil), parameters...)}
	for j, p := range parameters {
		s, err := c.FetchSeries(ctx, node, p, start, end)
		if err != nil {
			return nil, fmt.Errorf("hindcast: parameter %q: %w", p, err)
		}
		if j == 0 {
			t.Times = s.Times
			t.Data = make([][]float64, len(s.Times))
			for i := range t.Data {
				t.Data[i] = make([]float64, len(parameters))
			}
		} else if len(s.Times) != len(t.Times) {
			return nil, fmt.Errorf("hindcast: parameter %q returned %d records, expected %d", p, len(s.Times), len(t.Times))
		}
		for i, v := range s.Values {
			t.Data[i][j] = v
		}
	}
	return t, nil
}

func cacheKey(node int, parameter string, start, end time.Time) string {
	return fmt.Sprintf("%d:%s:%d:%d", node, parameter, start.UnixMilli(), end.UnixMilli())
}
