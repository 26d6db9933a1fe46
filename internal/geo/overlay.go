package geo

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/verdant/internal/model"
)

// OverlayFeatureCollection renders classified cells as GeoJSON polygons for
// map overlays.
func OverlayFeatureCollection(results []model.CellResult) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(results))}
	for _, r := range results {
		b := r.Cell.Bounds
		poly := geom.NewPolygonFlat(geom.XY, []float64{
			b.West, b.South,
			b.East, b.South,
			b.East, b.North,
			b.West, b.North,
			b.West, b.South,
		}, []int{10})

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       fmt.Sprintf("cell-%d", r.Cell.Index),
			Geometry: poly,
			Properties: map[string]interface{}{
				"index":              r.Cell.Index,
				"vegetationFraction": r.VegetationFraction,
				"meanIndex":          r.MeanIndex,
				"threshold":          r.Threshold,
				"estimated":          r.Estimated,
			},
		})
	}
	return fc
}
