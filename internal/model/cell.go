package model

// BoundingBox is a [west, south, east, north] extent in degrees.
type BoundingBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Width returns the east-west extent in degrees.
func (b BoundingBox) Width() float64 { return b.East - b.West }

// Height returns the north-south extent in degrees.
func (b BoundingBox) Height() float64 { return b.North - b.South }

// Center returns the midpoint as (lat, lon).
func (b BoundingBox) Center() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// Array returns the box in [west, south, east, north] order.
func (b BoundingBox) Array() [4]float64 {
	return [4]float64{b.West, b.South, b.East, b.North}
}

// Cell is one rectangular tile of an analysis grid. Cells are never mutated
// after the grid is built.
type Cell struct {
	Index  int         `json:"index"`
	Row    int         `json:"row"`
	Col    int         `json:"col"`
	Bounds BoundingBox `json:"bounds"`
}

// Centroid returns the cell midpoint as (lat, lon).
func (c Cell) Centroid() (lat, lon float64) {
	return c.Bounds.Center()
}

// Grid is the ordered set of cells analysed for one boundary.
type Grid struct {
	Cells    []Cell      `json:"cells"`
	Extent   BoundingBox `json:"extent"`
	CellDeg  float64     `json:"cellDeg"`
	Budget   int         `json:"budget"`
	Tiled    int         `json:"tiled"`    // cells produced by tiling the extent
	Retained int         `json:"retained"` // cells kept by the intersection filter
}

// Len returns the number of cells in the grid.
func (g *Grid) Len() int {
	if g == nil {
		return 0
	}
	return len(g.Cells)
}
