package geo

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/model"
)

// clockwise shell, as shapefiles store outer rings.
var shellPoints = []shp.Point{
	{X: -80.0, Y: 25.0},
	{X: -80.0, Y: 25.1},
	{X: -79.9, Y: 25.1},
	{X: -79.9, Y: 25.0},
	{X: -80.0, Y: 25.0},
}

func TestShapePolygons_DropsCounterClockwiseParts(t *testing.T) {
	hole := []shp.Point{
		{X: -79.98, Y: 25.02},
		{X: -79.92, Y: 25.02},
		{X: -79.92, Y: 25.08},
		{X: -79.98, Y: 25.08},
		{X: -79.98, Y: 25.02},
	}
	poly := &shp.Polygon{
		NumParts: 2,
		Parts:    []int32{0, int32(len(shellPoints))},
		Points:   append(append([]shp.Point{}, shellPoints...), hole...),
	}

	out := shapePolygons(poly)
	assert.Len(t, out, 1)
	assert.Empty(t, shapePolygons(&shp.Polygon{}))
}

func TestLoadShapefile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)
	w.Write(&shp.Polygon{
		Box:       shp.Box{MinX: -80.0, MinY: 25.0, MaxX: -79.9, MaxY: 25.1},
		NumParts:  1,
		NumPoints: int32(len(shellPoints)),
		Parts:     []int32{0},
		Points:    shellPoints,
	})
	w.Close()

	b, err := LoadShapefile(path)
	require.NoError(t, err)
	ext := b.BBox()
	assert.InDelta(t, -80.0, ext.West, 1e-9)
	assert.InDelta(t, 25.1, ext.North, 1e-9)
	assert.Greater(t, b.AreaKM2(), 100.0)
}

func TestLoadShapefile_Missing(t *testing.T) {
	_, err := LoadShapefile(filepath.Join(t.TempDir(), "missing.shp"))
	assert.Error(t, err)
}

func TestLoadShapefile_NoPolygons(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)
	w.Write(&shp.Point{X: 1, Y: 1})
	w.Close()

	_, err = LoadShapefile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidBoundary)
}
