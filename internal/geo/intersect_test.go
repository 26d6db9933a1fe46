package geo

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/verdant/internal/model"
)

// lShape is a concave polygon missing its north-east quadrant.
func lShape(t *testing.T) *Boundary {
	t.Helper()
	b, err := FromRing([][2]float64{{0, 0}, {2, 0}, {2, 1}, {1, 1}, {1, 2}, {0, 2}})
	require.NoError(t, err)
	return b
}

func TestIntersectsBox(t *testing.T) {
	b := lShape(t)

	tests := []struct {
		name string
		box  model.BoundingBox
		want bool
	}{
		{"inside", model.BoundingBox{West: 0.2, South: 0.2, East: 0.4, North: 0.4}, true},
		{"contains polygon", model.BoundingBox{West: -1, South: -1, East: 3, North: 3}, true},
		{"crosses edge", model.BoundingBox{West: 1.8, South: 0.5, East: 2.5, North: 0.7}, true},
		{"notch", model.BoundingBox{West: 1.2, South: 1.2, East: 1.8, North: 1.8}, false},
		{"outside bounds", model.BoundingBox{West: 3, South: 3, East: 4, North: 4}, false},
		{"touches vertex", model.BoundingBox{West: 2, South: 1, East: 2.5, North: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.IntersectsBox(tt.box)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIntersectsBox_Hole(t *testing.T) {
	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{3, 3}, {7, 3}, {7, 7}, {3, 7}, {3, 3}},
	})
	require.NoError(t, err)
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(poly))
	b, err := NewBoundary(mp)
	require.NoError(t, err)

	inHole, err := b.IntersectsBox(model.BoundingBox{West: 4, South: 4, East: 6, North: 6})
	require.NoError(t, err)
	assert.False(t, inHole)

	overlapsHoleEdge, err := b.IntersectsBox(model.BoundingBox{West: 2, South: 4, East: 4, North: 6})
	require.NoError(t, err)
	assert.True(t, overlapsHoleEdge)

	assert.InDelta(t, 84*kmPerDegLat*kmPerDegLon*math.Cos(5*math.Pi/180), b.AreaKM2(), 1)
}

func TestIntersectsBox_BadBounds(t *testing.T) {
	b := lShape(t)

	_, err := b.IntersectsBox(model.BoundingBox{West: math.NaN(), South: 0, East: 1, North: 1})
	assert.True(t, errors.Is(err, model.ErrIntersectionCheck))

	_, err = b.IntersectsBox(model.BoundingBox{West: 1, South: 0, East: 0, North: 1})
	assert.True(t, errors.Is(err, model.ErrIntersectionCheck))
}

func TestSegmentsIntersect(t *testing.T) {
	assert.True(t, segmentsIntersect(0, 0, 2, 2, 0, 2, 2, 0))
	assert.False(t, segmentsIntersect(0, 0, 1, 1, 2, 2, 3, 0))
	assert.True(t, segmentsIntersect(0, 0, 2, 0, 1, 0, 3, 0), "collinear overlap")
	assert.False(t, segmentsIntersect(0, 0, 1, 0, 2, 0, 3, 0), "collinear disjoint")
}
