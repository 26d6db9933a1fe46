package spectral

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/region"
)

func cellAt(lat, lon float64) model.Cell {
	return model.Cell{Bounds: model.BoundingBox{West: lon - 0.002, South: lat - 0.002, East: lon + 0.002, North: lat + 0.002}}
}

func TestEstimator_Deterministic(t *testing.T) {
	e := NewEstimator(nil, 42, 0, 0)
	cell := cellAt(0.01, 0.01)

	a, err := e.Samples(context.Background(), cell, 2023)
	require.NoError(t, err)
	b, err := e.Samples(context.Background(), cell, 2023)
	require.NoError(t, err)
	assert.Equal(t, a.Values, b.Values)
	assert.Len(t, a.Values, DefaultSampleSize*DefaultSampleSize)
	assert.Equal(t, "estimate", a.Source)
	assert.False(t, a.Estimated)

	c, err := e.Samples(context.Background(), cell, 2021)
	require.NoError(t, err)
	assert.NotEqual(t, a.Values, c.Values, "years draw different noise")
}

func TestEstimator_ValuesInRange(t *testing.T) {
	e := NewEstimator(region.Default(), 7, 20, 0)
	for _, cell := range []model.Cell{cellAt(0, 0), cellAt(23, 10), cellAt(-3, -60), cellAt(80, 0)} {
		set, err := e.Samples(context.Background(), cell, 2024)
		require.NoError(t, err)
		assert.Len(t, set.Values, 400)
		for _, v := range set.Values {
			assert.GreaterOrEqual(t, v, -1.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestEstimator_RegionsOrderBaseline(t *testing.T) {
	e := NewEstimator(nil, 1, 0, 0)

	mean := func(lat, lon float64) float64 {
		set, err := e.Samples(context.Background(), cellAt(lat, lon), 2024)
		require.NoError(t, err)
		return set.Indices["ndvi"]
	}

	amazon := mean(-3.1, -60)
	berlin := mean(52.5, 13.4)
	sahara := mean(23, 10)
	assert.Greater(t, amazon, berlin)
	assert.Greater(t, berlin, sahara)
	assert.Less(t, sahara, 0.15)
}

func TestEstimator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEstimator(nil, 1, 0, 0).Samples(ctx, cellAt(0, 0), 2024)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimator_ZeroSeedVaries(t *testing.T) {
	e := NewEstimator(nil, 0, 0, 0)
	a, err := e.Samples(context.Background(), cellAt(0, 0), 2024)
	require.NoError(t, err)
	b, err := e.Samples(context.Background(), cellAt(0, 0), 2024)
	require.NoError(t, err)
	assert.NotEqual(t, a.Values, b.Values)
}
