package geo

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/verdant/internal/model"
)

// ParseGeoJSON reads a Polygon or MultiPolygon from a GeoJSON geometry,
// Feature or FeatureCollection. Polygonal features of a collection are
// merged into one boundary.
func ParseGeoJSON(data []byte) (*Boundary, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: parse geojson: "+err.Error())
	}

	var geoms []geom.T
	switch head.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: parse feature collection: "+err.Error())
		}
		for _, f := range fc.Features {
			if f != nil && f.Geometry != nil {
				geoms = append(geoms, f.Geometry)
			}
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: parse feature: "+err.Error())
		}
		if f.Geometry != nil {
			geoms = append(geoms, f.Geometry)
		}
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: parse geometry: "+err.Error())
		}
		geoms = append(geoms, g)
	}

	mp, err := mergePolygons(geoms)
	if err != nil {
		return nil, err
	}
	return NewBoundary(mp)
}

// mergePolygons flattens polygonal geometries into one XY multipolygon.
func mergePolygons(geoms []geom.T) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for _, g := range geoms {
		switch t := g.(type) {
		case *geom.Polygon:
			if err := pushPolygon(mp, t); err != nil {
				return nil, err
			}
		case *geom.MultiPolygon:
			for i := 0; i < t.NumPolygons(); i++ {
				if err := pushPolygon(mp, t.Polygon(i)); err != nil {
					return nil, err
				}
			}
		}
	}
	if mp.NumPolygons() == 0 {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: no polygon geometry found")
	}
	return mp, nil
}

// pushPolygon copies poly into mp, dropping any Z/M ordinates.
func pushPolygon(mp *geom.MultiPolygon, poly *geom.Polygon) error {
	rings := make([][]geom.Coord, 0, poly.NumLinearRings())
	for r := 0; r < poly.NumLinearRings(); r++ {
		ring := poly.LinearRing(r)
		coords := make([]geom.Coord, 0, ring.NumCoords())
		for i := 0; i < ring.NumCoords(); i++ {
			c := ring.Coord(i)
			coords = append(coords, geom.Coord{c.X(), c.Y()})
		}
		rings = append(rings, coords)
	}
	xy, err := geom.NewPolygon(geom.XY).SetCoords(rings)
	if err != nil {
		return eris.Wrap(model.ErrInvalidBoundary, "geo: copy polygon: "+err.Error())
	}
	if err := mp.Push(xy); err != nil {
		return eris.Wrap(model.ErrInvalidBoundary, "geo: push polygon: "+err.Error())
	}
	return nil
}
