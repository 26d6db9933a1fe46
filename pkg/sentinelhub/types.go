package sentinelhub

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// BBox is [west, south, east, north] in EPSG:4326.
type BBox [4]float64

// StatsRequest is the body of a Statistical API call.
type StatsRequest struct {
	Input        StatsInput                  `json:"input"`
	Aggregation  StatsAggregation            `json:"aggregation"`
	Calculations map[string]StatsCalculation `json:"calculations,omitempty"`
}

// StatsInput selects the area and collection.
type StatsInput struct {
	Bounds StatsBounds `json:"bounds"`
	Data   []DataInput `json:"data"`
}

// StatsBounds is the request area.
type StatsBounds struct {
	BBox       BBox             `json:"bbox"`
	Properties BoundsProperties `json:"properties"`
}

// BoundsProperties carries the CRS of the bounds.
type BoundsProperties struct {
	CRS string `json:"crs"`
}

// DataInput names the collection and filters it.
type DataInput struct {
	Type       string     `json:"type"`
	DataFilter DataFilter `json:"dataFilter"`
}

// DataFilter limits acquisitions by cloud cover.
type DataFilter struct {
	MaxCloudCoverage int    `json:"maxCloudCoverage"`
	MosaickingOrder  string `json:"mosaickingOrder,omitempty"`
}

// StatsAggregation sets the time window and evalscript.
type StatsAggregation struct {
	TimeRange           TimeRange `json:"timeRange"`
	AggregationInterval Interval  `json:"aggregationInterval"`
	Width               int       `json:"width"`
	Height              int       `json:"height"`
	Evalscript          string    `json:"evalscript"`
}

// TimeRange is an RFC 3339 interval.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Interval is an ISO 8601 duration such as P30D.
type Interval struct {
	Of string `json:"of"`
}

// StatsCalculation requests extra statistics per output.
type StatsCalculation struct {
	Statistics map[string]StatisticsSpec `json:"statistics"`
}

// StatisticsSpec requests percentiles for a band selector.
type StatisticsSpec struct {
	Percentiles *PercentileSpec `json:"percentiles,omitempty"`
}

// PercentileSpec lists the percentiles to compute.
type PercentileSpec struct {
	K []float64 `json:"k"`
}

// StatsResponse is the Statistical API reply.
type StatsResponse struct {
	Data   []IntervalStats `json:"data"`
	Status string          `json:"status"`
}

// IntervalStats holds outputs for one aggregation interval.
type IntervalStats struct {
	Interval TimeRange         `json:"interval"`
	Outputs  map[string]Output `json:"outputs"`
	Error    *IntervalError    `json:"error,omitempty"`
}

// IntervalError reports an interval the service could not compute.
type IntervalError struct {
	Type string `json:"type"`
}

// Output holds per-band statistics for one evalscript output.
type Output struct {
	Bands map[string]BandStats `json:"bands"`
}

// BandStats wraps the statistics of one band.
type BandStats struct {
	Stats Stats `json:"stats"`
}

// Stats are the per-band statistics. The service encodes missing values
// as the string "NaN".
type Stats struct {
	Min         Float            `json:"min"`
	Max         Float            `json:"max"`
	Mean        Float            `json:"mean"`
	StDev       Float            `json:"stDev"`
	SampleCount int              `json:"sampleCount"`
	NoDataCount int              `json:"noDataCount"`
	Percentiles map[string]Float `json:"percentiles,omitempty"`
}

// Valid is the number of pixels that carried data.
func (s Stats) Valid() int {
	return s.SampleCount - s.NoDataCount
}

// Float accepts JSON numbers and quoted numbers, including "NaN".
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" {
		*f = Float(math.NaN())
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(v)
}

// tokenResponse is the OAuth2 client-credentials reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}
