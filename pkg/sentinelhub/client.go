// Package sentinelhub is a client for the Sentinel Hub Statistical API on
// the Copernicus Data Space, returning per-area NDVI sample distributions
// from Sentinel-2 L2A composites.
package sentinelhub

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/verdant/internal/resilience"
)

// DefaultBaseURL is the Copernicus Data Space Sentinel Hub endpoint.
const DefaultBaseURL = "https://sh.dataspace.copernicus.eu"

const statisticsPath = "/api/v1/statistics"

// ErrAuth is returned when credentials are missing or rejected.
var ErrAuth = eris.New("sentinelhub: authentication failed")

// ErrNoData is returned when a window has no cloud-free pixels.
var ErrNoData = eris.New("sentinelhub: no valid pixels in window")

// Client fetches area statistics.
type Client interface {
	// Statistics posts a raw Statistical API request.
	Statistics(ctx context.Context, req *StatsRequest) (*StatsResponse, error)

	// AreaSamples returns the NDVI sample distribution and mean reflectance
	// of a bounding box over a time window.
	AreaSamples(ctx context.Context, q AreaQuery) (*AreaResult, error)
}

// AreaQuery describes one area/window request.
type AreaQuery struct {
	BBox BBox
	From time.Time
	To   time.Time
	// Resolution is the width and height in pixels of the sampled raster.
	Resolution int
}

// AreaResult is the decoded statistics for an AreaQuery.
type AreaResult struct {
	// Samples are NDVI percentile values from every interval that had
	// valid pixels.
	Samples     []float64
	Reflectance Reflectance
	ValidPixels int
	Intervals   int
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *client) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxCloudCoverage sets the scene cloud cover filter in percent.
func WithMaxCloudCoverage(pct int) Option {
	return func(c *client) {
		c.maxCloud = pct
	}
}

// WithRetry sets the retry policy for statistics calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

// WithCircuitBreaker guards statistics calls with a breaker.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *client) {
		c.breaker = cb
	}
}

type client struct {
	tokens     *TokenSource
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxCloud   int
	retry      resilience.RetryConfig
	breaker    *resilience.CircuitBreaker
}

// NewClient creates a Statistical API client authenticated by ts.
func NewClient(ts *TokenSource, opts ...Option) Client {
	c := &client{
		tokens:     ts,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		maxCloud:   30,
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.retry.OnRetry == nil {
		c.retry.OnRetry = resilience.RetryLogger("sentinelhub", "statistics")
	}
	return c
}

func (c *client) Statistics(ctx context.Context, sr *StatsRequest) (*StatsResponse, error) {
	body, err := json.Marshal(sr)
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: marshal request")
	}

	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*StatsResponse, error) {
		return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*StatsResponse, error) {
			return c.post(ctx, body)
		})
	})
}

func (c *client) post(ctx context.Context, body []byte) (*StatsResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "sentinelhub: rate limit")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statisticsPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: statistics request")
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: read body")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// The cached token may have been revoked early; the next call
		// fetches a fresh one.
		c.tokens.Invalidate()
		return nil, eris.Wrap(ErrAuth, "sentinelhub: statistics unauthorized")
	case resp.StatusCode == http.StatusForbidden:
		return nil, eris.Wrap(ErrAuth, "sentinelhub: statistics forbidden")
	case resp.StatusCode != http.StatusOK:
		return nil, resilience.StatusError("sentinelhub: statistics", resp.StatusCode, string(raw))
	}

	var out StatsResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, eris.Wrap(err, "sentinelhub: parse response")
	}
	return &out, nil
}

func (c *client) AreaSamples(ctx context.Context, q AreaQuery) (*AreaResult, error) {
	if q.Resolution <= 0 {
		q.Resolution = 15
	}
	resp, err := c.Statistics(ctx, c.buildRequest(q))
	if err != nil {
		return nil, err
	}

	res := decodeArea(resp)
	zap.L().Debug("sentinelhub: area statistics",
		zap.Float64s("bbox", q.BBox[:]),
		zap.Int("intervals", res.Intervals),
		zap.Int("valid_pixels", res.ValidPixels),
		zap.Int("samples", len(res.Samples)),
	)
	if len(res.Samples) == 0 {
		return res, ErrNoData
	}
	return res, nil
}

func (c *client) buildRequest(q AreaQuery) *StatsRequest {
	return &StatsRequest{
		Input: StatsInput{
			Bounds: StatsBounds{
				BBox:       q.BBox,
				Properties: BoundsProperties{CRS: "http://www.opengis.net/def/crs/EPSG/0/4326"},
			},
			Data: []DataInput{{
				Type: "sentinel-2-l2a",
				DataFilter: DataFilter{
					MaxCloudCoverage: c.maxCloud,
					MosaickingOrder:  "leastCC",
				},
			}},
		},
		Aggregation: StatsAggregation{
			TimeRange:           TimeRange{From: q.From.UTC(), To: q.To.UTC()},
			AggregationInterval: Interval{Of: "P30D"},
			Width:               q.Resolution,
			Height:              q.Resolution,
			Evalscript:          statsEvalscript,
		},
		Calculations: map[string]StatsCalculation{
			OutputIndices: {Statistics: map[string]StatisticsSpec{
				"default": {Percentiles: &PercentileSpec{K: samplePercentiles()}},
			}},
		},
	}
}

// decodeArea flattens interval statistics into samples and a pixel-weighted
// mean reflectance.
func decodeArea(resp *StatsResponse) *AreaResult {
	res := &AreaResult{}
	var sums [5]float64
	var weight float64

	for _, iv := range resp.Data {
		if iv.Error != nil {
			continue
		}
		ind, ok := iv.Outputs[OutputIndices].Bands["B0"]
		if !ok || ind.Stats.Valid() <= 0 {
			continue
		}
		res.Intervals++
		res.ValidPixels += ind.Stats.Valid()
		res.Samples = append(res.Samples, percentileValues(ind.Stats)...)

		refl, ok := iv.Outputs[OutputReflectance]
		if !ok {
			continue
		}
		w := float64(ind.Stats.Valid())
		complete := true
		var vals [5]float64
		for i, b := range reflectanceOrder {
			v := float64(refl.Bands[b].Stats.Mean)
			if math.IsNaN(v) {
				complete = false
				break
			}
			vals[i] = v
		}
		if !complete {
			continue
		}
		for i := range vals {
			sums[i] += vals[i] * w
		}
		weight += w
	}

	if weight > 0 {
		res.Reflectance = Reflectance{
			Blue:  sums[0] / weight,
			Green: sums[1] / weight,
			Red:   sums[2] / weight,
			NIR:   sums[3] / weight,
			SWIR:  sums[4] / weight,
		}
	}
	return res
}

// percentileValues returns the finite percentile values ordered by
// percentile, falling back to the mean when none were returned.
func percentileValues(s Stats) []float64 {
	keys := make([]float64, 0, len(s.Percentiles))
	byKey := make(map[float64]float64, len(s.Percentiles))
	for k, v := range s.Percentiles {
		p, err := strconv.ParseFloat(k, 64)
		if err != nil || math.IsNaN(float64(v)) {
			continue
		}
		keys = append(keys, p)
		byKey[p] = float64(v)
	}
	sort.Float64s(keys)

	out := make([]float64, 0, len(keys))
	for _, k := range keys {
		out = append(out, byKey[k])
	}
	if len(out) == 0 && !math.IsNaN(float64(s.Mean)) {
		out = append(out, float64(s.Mean))
	}
	return out
}
