package geo

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/model"
)

// LoadShapefile reads every polygon record of an ESRI shapefile into one
// boundary. Non-polygon records are skipped.
func LoadShapefile(path string) (*Boundary, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	var polys []geom.T
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		p, ok := shape.(*shp.Polygon)
		if !ok || p == nil {
			skipped++
			continue
		}
		polys = append(polys, shapePolygons(p)...)
	}

	if skipped > 0 {
		zap.L().Debug("geo: skipped non-polygon shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(polys) == 0 {
		return nil, eris.Wrapf(model.ErrInvalidBoundary, "geo: shapefile %s has no polygons", path)
	}

	mp, err := mergePolygons(polys)
	if err != nil {
		return nil, err
	}
	return NewBoundary(mp)
}

// shapePolygons converts each part of a shapefile polygon to its own
// polygon. Shapefile rings are clockwise for shells; hole assignment is not
// attempted, so counter-clockwise parts are dropped.
func shapePolygons(p *shp.Polygon) []geom.T {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var out []geom.T
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}

		ring := geom.NewLinearRingFlat(geom.XY, flat)
		if ring.NumCoords() < 4 || ringArea(ring) > 0 {
			continue
		}
		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon ring", zap.Int32("part", i), zap.Error(err))
			continue
		}
		out = append(out, poly)
	}
	return out
}
