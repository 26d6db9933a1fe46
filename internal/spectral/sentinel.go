package spectral

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/pkg/sentinelhub"
)

// DefaultFirstYear is the first year with full Sentinel-2 L2A coverage.
const DefaultFirstYear = 2017

// Sentinel fetches samples from the Sentinel Hub Statistical API.
type Sentinel struct {
	client     sentinelhub.Client
	sampleSize int
	firstYear  int
	nowFunc    func() time.Time
}

// NewSentinel wraps a Statistical API client.
func NewSentinel(client sentinelhub.Client, sampleSize, firstYear int) *Sentinel {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if firstYear <= 0 {
		firstYear = DefaultFirstYear
	}
	return &Sentinel{client: client, sampleSize: sampleSize, firstYear: firstYear, nowFunc: time.Now}
}

// Name implements Provider.
func (s *Sentinel) Name() string { return string(StrategySentinel) }

// Samples implements Provider.
func (s *Sentinel) Samples(ctx context.Context, cell model.Cell, year int) (*model.SampleSet, error) {
	lat, _ := cell.Centroid()
	y := ClampYear(lat, year, s.firstYear, s.nowFunc())
	from, to := SeasonWindow(lat, y)

	res, err := s.client.AreaSamples(ctx, sentinelhub.AreaQuery{
		BBox:       sentinelhub.BBox(cell.Bounds.Array()),
		From:       from,
		To:         to,
		Resolution: s.sampleSize,
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, sentinelhub.ErrAuth):
		return nil, eris.Wrapf(model.ErrAuthentication, "spectral: sentinel cell %d: %v", cell.Index, err)
	default:
		return nil, eris.Wrapf(model.ErrDataUnavailable, "spectral: sentinel cell %d year %d: %v", cell.Index, y, err)
	}

	indices := res.Reflectance.Indices()
	if len(indices) == 0 {
		indices = map[string]float64{"ndvi": meanOf(res.Samples)}
	}
	return &model.SampleSet{
		Values:   res.Samples,
		Indices:  indices,
		Source:   s.Name(),
		DataYear: y,
	}, nil
}

var _ Provider = (*Sentinel)(nil)
