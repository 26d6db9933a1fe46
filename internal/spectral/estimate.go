package spectral

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strconv"

	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/region"
)

// Estimation defaults.
const (
	DefaultSampleSize     = 15
	DefaultUrbanReduction = 0.3
	noiseSigma            = 0.12
)

// Estimator derives a plausible index distribution from the cell centroid:
// a climate baseline scaled by season, Gaussian noise, and random
// impervious-surface samples.
type Estimator struct {
	tables         *region.Tables
	seed           uint64
	sampleSize     int
	urbanReduction float64
}

// NewEstimator creates an estimator. A zero seed draws a random seed per
// call; any other seed makes output a pure function of seed, centroid and
// year.
func NewEstimator(tables *region.Tables, seed uint64, sampleSize int, urbanReduction float64) *Estimator {
	if tables == nil {
		tables = region.Default()
	}
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	if urbanReduction <= 0 || urbanReduction > 1 {
		urbanReduction = DefaultUrbanReduction
	}
	return &Estimator{tables: tables, seed: seed, sampleSize: sampleSize, urbanReduction: urbanReduction}
}

// Name implements Provider.
func (e *Estimator) Name() string { return string(StrategyEstimate) }

// Samples implements Provider.
func (e *Estimator) Samples(ctx context.Context, cell model.Cell, year int) (*model.SampleSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lat, lon := cell.Centroid()
	baseline, _ := e.tables.Baseline(lat, lon)
	mean := baseline * e.tables.SeasonalFactor(lat, lon)
	impervious := e.tables.ImperviousProbability(lat, lon)

	rng := e.rng(lat, lon, year)
	n := e.sampleSize * e.sampleSize
	values := make([]float64, n)
	var sum float64
	for i := range values {
		v := mean + rng.NormFloat64()*noiseSigma
		if rng.Float64() < impervious {
			v *= e.urbanReduction
		}
		values[i] = clamp(v)
		sum += values[i]
	}

	return &model.SampleSet{
		Values:   values,
		Indices:  map[string]float64{"ndvi": sum / float64(n)},
		Source:   e.Name(),
		DataYear: year,
	}, nil
}

func (e *Estimator) rng(lat, lon float64, year int) *rand.Rand {
	if e.seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strconv.FormatFloat(lat, 'f', 6, 64)))
	_, _ = h.Write([]byte(strconv.FormatFloat(lon, 'f', 6, 64)))
	_, _ = h.Write([]byte(strconv.Itoa(year)))
	return rand.New(rand.NewPCG(e.seed, h.Sum64()))
}

var _ Provider = (*Estimator)(nil)

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var s float64
	for _, v := range values {
		s += v
	}
	return s / float64(len(values))
}
