package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/verdant/internal/model"
)

// IntersectsBox reports whether the rectangle shares any point with the
// boundary. An error wrapping model.ErrIntersectionCheck is returned when the
// geometry cannot be evaluated.
func (b *Boundary) IntersectsBox(box model.BoundingBox) (bool, error) {
	if !finite(box.West) || !finite(box.South) || !finite(box.East) || !finite(box.North) {
		return false, eris.Wrap(model.ErrIntersectionCheck, "geo: non-finite cell bounds")
	}
	if box.West > box.East || box.South > box.North {
		return false, eris.Wrapf(model.ErrIntersectionCheck, "geo: inverted cell bounds %v", box.Array())
	}

	for i := 0; i < b.mp.NumPolygons(); i++ {
		hit, err := polygonIntersectsBox(b.mp.Polygon(i), box)
		if err != nil {
			return false, err
		}
		if hit {
			return true, nil
		}
	}
	return false, nil
}

func polygonIntersectsBox(poly *geom.Polygon, box model.BoundingBox) (bool, error) {
	if poly.NumLinearRings() == 0 {
		return false, eris.Wrap(model.ErrIntersectionCheck, "geo: polygon has no rings")
	}

	pb := poly.Bounds()
	if pb.Max(0) < box.West || pb.Min(0) > box.East || pb.Max(1) < box.South || pb.Min(1) > box.North {
		return false, nil
	}

	outer := poly.LinearRing(0)
	if outer.NumCoords() < 3 {
		return false, eris.Wrap(model.ErrIntersectionCheck, "geo: outer ring has fewer than 3 coordinates")
	}

	// A boundary vertex inside the box.
	for i := 0; i < outer.NumCoords(); i++ {
		c := outer.Coord(i)
		if !finite(c.X()) || !finite(c.Y()) {
			return false, eris.Wrap(model.ErrIntersectionCheck, "geo: non-finite vertex")
		}
		if c.X() >= box.West && c.X() <= box.East && c.Y() >= box.South && c.Y() <= box.North {
			return true, nil
		}
	}

	// A box corner inside the polygon.
	corners := boxCorners(box)
	for _, p := range corners {
		if polygonContains(poly, p[0], p[1]) {
			return true, nil
		}
	}

	// Any ring edge crossing a box edge.
	for r := 0; r < poly.NumLinearRings(); r++ {
		ring := poly.LinearRing(r)
		n := ring.NumCoords()
		for i := 0; i+1 < n; i++ {
			a, c := ring.Coord(i), ring.Coord(i+1)
			for k := 0; k < 4; k++ {
				p, q := corners[k], corners[(k+1)%4]
				if segmentsIntersect(a.X(), a.Y(), c.X(), c.Y(), p[0], p[1], q[0], q[1]) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func boxCorners(box model.BoundingBox) [4][2]float64 {
	return [4][2]float64{
		{box.West, box.South},
		{box.East, box.South},
		{box.East, box.North},
		{box.West, box.North},
	}
}

// polygonContains tests the outer ring and excludes holes.
func polygonContains(poly *geom.Polygon, lon, lat float64) bool {
	if poly.NumLinearRings() == 0 || !ringContains(poly.LinearRing(0), lon, lat) {
		return false
	}
	for r := 1; r < poly.NumLinearRings(); r++ {
		if ringContains(poly.LinearRing(r), lon, lat) {
			return false
		}
	}
	return true
}

// ringContains is an even-odd ray cast.
func ringContains(ring *geom.LinearRing, lon, lat float64) bool {
	n := ring.NumCoords()
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, c := ring.Coord(i), ring.Coord(j)
		if (a.Y() > lat) != (c.Y() > lat) {
			x := (c.X()-a.X())*(lat-a.Y())/(c.Y()-a.Y()) + a.X()
			if lon < x {
				inside = !inside
			}
		}
	}
	return inside
}

func segmentsIntersect(ax, ay, bx, by, cx, cy, dx, dy float64) bool {
	d1 := orient(cx, cy, dx, dy, ax, ay)
	d2 := orient(cx, cy, dx, dy, bx, by)
	d3 := orient(ax, ay, bx, by, cx, cy)
	d4 := orient(ax, ay, bx, by, dx, dy)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(cx, cy, dx, dy, ax, ay)) ||
		(d2 == 0 && onSegment(cx, cy, dx, dy, bx, by)) ||
		(d3 == 0 && onSegment(ax, ay, bx, by, cx, cy)) ||
		(d4 == 0 && onSegment(ax, ay, bx, by, dx, dy))
}

func orient(ax, ay, bx, by, cx, cy float64) float64 {
	return (bx-ax)*(cy-ay) - (by-ay)*(cx-ax)
}

// onSegment assumes p is collinear with a-b.
func onSegment(ax, ay, bx, by, px, py float64) bool {
	return px >= min(ax, bx) && px <= max(ax, bx) && py >= min(ay, by) && py <= max(ay, by)
}
