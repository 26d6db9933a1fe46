// Package geo holds the boundary geometry used by an analysis: polygon
// validation, area, rectangle intersection and grid construction.
package geo

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/verdant/internal/model"
)

// Approximate kilometers per degree, used for small-area projections.
const (
	kmPerDegLat = 110.574
	kmPerDegLon = 111.320
)

// Boundary is an immutable lon/lat polygon (or set of polygons) supplied
// for one analysis.
type Boundary struct {
	mp   *geom.MultiPolygon
	bbox model.BoundingBox
}

// NewBoundary validates mp and returns a Boundary. Any degenerate geometry
// is reported as model.ErrInvalidBoundary.
func NewBoundary(mp *geom.MultiPolygon) (*Boundary, error) {
	if mp == nil || mp.NumPolygons() == 0 {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: boundary has no polygons")
	}

	bbox := model.BoundingBox{
		West:  math.Inf(1),
		South: math.Inf(1),
		East:  math.Inf(-1),
		North: math.Inf(-1),
	}

	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		if poly.NumLinearRings() == 0 {
			return nil, eris.Wrapf(model.ErrInvalidBoundary, "geo: polygon %d has no rings", i)
		}
		for r := 0; r < poly.NumLinearRings(); r++ {
			ring := poly.LinearRing(r)
			if distinctCoords(ring) < 3 {
				return nil, eris.Wrapf(model.ErrInvalidBoundary, "geo: polygon %d ring %d has fewer than 3 distinct vertices", i, r)
			}
			for c := 0; c < ring.NumCoords(); c++ {
				coord := ring.Coord(c)
				lon, lat := coord.X(), coord.Y()
				if !finite(lon) || !finite(lat) {
					return nil, eris.Wrapf(model.ErrInvalidBoundary, "geo: polygon %d has a non-finite vertex", i)
				}
				if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
					return nil, eris.Wrapf(model.ErrInvalidBoundary, "geo: vertex (%f, %f) out of range", lon, lat)
				}
				if r == 0 {
					bbox.West = math.Min(bbox.West, lon)
					bbox.East = math.Max(bbox.East, lon)
					bbox.South = math.Min(bbox.South, lat)
					bbox.North = math.Max(bbox.North, lat)
				}
			}
		}
	}

	if bbox.Width() <= 0 || bbox.Height() <= 0 {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: boundary has zero extent")
	}

	b := &Boundary{mp: mp, bbox: bbox}
	if b.AreaKM2() <= 0 {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: boundary has zero area")
	}
	return b, nil
}

// FromRing builds a single-polygon Boundary from [lon, lat] pairs. The ring
// is closed automatically.
func FromRing(ring [][2]float64) (*Boundary, error) {
	if len(ring) < 3 {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: ring needs at least 3 vertices")
	}
	coords := make([]geom.Coord, 0, len(ring)+1)
	for _, p := range ring {
		coords = append(coords, geom.Coord{p[0], p[1]})
	}
	first, last := ring[0], ring[len(ring)-1]
	if first != last {
		coords = append(coords, geom.Coord{first[0], first[1]})
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
	if err != nil {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: build polygon: "+err.Error())
	}
	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	if err := mp.Push(poly); err != nil {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "geo: push polygon: "+err.Error())
	}
	return NewBoundary(mp)
}

// FromBox builds a rectangular Boundary.
func FromBox(b model.BoundingBox) (*Boundary, error) {
	return FromRing([][2]float64{
		{b.West, b.South},
		{b.East, b.South},
		{b.East, b.North},
		{b.West, b.North},
	})
}

// BBox returns the boundary's bounding box, derived once at construction.
func (b *Boundary) BBox() model.BoundingBox { return b.bbox }

// Centroid returns the bounding-box center as (lat, lon).
func (b *Boundary) Centroid() (lat, lon float64) { return b.bbox.Center() }

// Geometry returns the underlying multipolygon.
func (b *Boundary) Geometry() *geom.MultiPolygon { return b.mp }

// AreaKM2 returns the polygon area in square kilometers using an
// equirectangular projection about the boundary's center latitude.
func (b *Boundary) AreaKM2() float64 {
	lat0, _ := b.bbox.Center()
	kx := kmPerDegLon * math.Cos(lat0*math.Pi/180)
	ky := kmPerDegLat

	var total float64
	for i := 0; i < b.mp.NumPolygons(); i++ {
		poly := b.mp.Polygon(i)
		for r := 0; r < poly.NumLinearRings(); r++ {
			a := math.Abs(ringArea(poly.LinearRing(r))) * kx * ky
			if r == 0 {
				total += a
			} else {
				total -= a
			}
		}
	}
	return math.Max(total, 0)
}

// Contains reports whether the point lies inside the boundary (inside an
// outer ring and outside that polygon's holes).
func (b *Boundary) Contains(lon, lat float64) bool {
	for i := 0; i < b.mp.NumPolygons(); i++ {
		if polygonContains(b.mp.Polygon(i), lon, lat) {
			return true
		}
	}
	return false
}

// ringArea returns the signed shoelace area in square degrees.
func ringArea(ring *geom.LinearRing) float64 {
	n := ring.NumCoords()
	var sum float64
	for i := 0; i < n; i++ {
		a := ring.Coord(i)
		c := ring.Coord((i + 1) % n)
		sum += a.X()*c.Y() - c.X()*a.Y()
	}
	return sum / 2
}

func distinctCoords(ring *geom.LinearRing) int {
	seen := make(map[[2]float64]struct{}, ring.NumCoords())
	for i := 0; i < ring.NumCoords(); i++ {
		c := ring.Coord(i)
		seen[[2]float64{c.X(), c.Y()}] = struct{}{}
	}
	return len(seen)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
