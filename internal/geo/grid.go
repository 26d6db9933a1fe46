package geo

import (
	"math"

	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/model"
)

// Grid sizing defaults, in degrees.
const (
	DefaultMinCellDeg   = 0.0045 // ~500 m
	DefaultMaxCellDeg   = 0.1
	DefaultGrowthFactor = 1.5
	DefaultCellBudget   = 100
)

// GridBuilder partitions a boundary's bounding box into cells at the
// smallest edge length that fits the cell budget.
type GridBuilder struct {
	MinCellDeg   float64
	MaxCellDeg   float64
	GrowthFactor float64

	// Intersects reports whether a candidate cell touches the boundary. A
	// failed check keeps the cell. Nil uses (*Boundary).IntersectsBox.
	Intersects func(*Boundary, model.BoundingBox) (bool, error)
}

// NewGridBuilder returns a builder, substituting defaults for non-positive
// values.
func NewGridBuilder(minDeg, maxDeg, growth float64) *GridBuilder {
	if minDeg <= 0 {
		minDeg = DefaultMinCellDeg
	}
	if maxDeg < minDeg {
		maxDeg = math.Max(DefaultMaxCellDeg, minDeg)
	}
	if growth <= 1 {
		growth = DefaultGrowthFactor
	}
	return &GridBuilder{
		MinCellDeg:   minDeg,
		MaxCellDeg:   maxDeg,
		GrowthFactor: growth,
		Intersects:   (*Boundary).IntersectsBox,
	}
}

// BuildGrid builds a grid with the default sizing.
func BuildGrid(b *Boundary, budget int) *model.Grid {
	return NewGridBuilder(0, 0, 0).Build(b, budget)
}

// Build returns the ordered cells (south to north, west to east) that
// intersect b. The result never exceeds budget and is deterministic for
// identical inputs.
func (g *GridBuilder) Build(b *Boundary, budget int) *model.Grid {
	if budget <= 0 {
		budget = DefaultCellBudget
	}
	log := zap.L().With(zap.String("component", "geo.grid"))

	extent := b.BBox()
	edge := g.CellEdge(extent, budget)
	cols := tileCount(extent.Width(), edge)
	rows := tileCount(extent.Height(), edge)

	intersects := g.Intersects
	if intersects == nil {
		intersects = (*Boundary).IntersectsBox
	}

	// Subsampling keeps at most budget cells, so a large tiling needs no
	// more than a few budgets of headroom up front.
	cells := make([]model.Cell, 0, min(rows*cols, budget*4))
	var failOpen int
	for r := 0; r < rows; r++ {
		south := extent.South + float64(r)*edge
		north := math.Min(south+edge, extent.North)
		for c := 0; c < cols; c++ {
			west := extent.West + float64(c)*edge
			east := math.Min(west+edge, extent.East)
			box := model.BoundingBox{West: west, South: south, East: east, North: north}

			hit, err := intersects(b, box)
			if err != nil {
				failOpen++
				log.Warn("intersection check failed, keeping cell",
					zap.Int("row", r), zap.Int("col", c), zap.Error(err))
				hit = true
			}
			if !hit {
				continue
			}
			cells = append(cells, model.Cell{Row: r, Col: c, Bounds: box})
		}
	}

	retained := len(cells)
	if len(cells) > budget {
		cells = subsample(cells, budget)
		log.Debug("grid subsampled to budget",
			zap.Int("retained", retained), zap.Int("budget", budget))
	}
	for i := range cells {
		cells[i].Index = i
	}

	log.Debug("grid built",
		zap.Float64("cell_deg", edge),
		zap.Int("tiled", rows*cols),
		zap.Int("cells", len(cells)),
		zap.Int("fail_open", failOpen),
	)

	return &model.Grid{
		Cells:    cells,
		Extent:   extent,
		CellDeg:  edge,
		Budget:   budget,
		Tiled:    rows * cols,
		Retained: retained,
	}
}

// CellEdge grows the edge from MinCellDeg by GrowthFactor until the tiled
// extent fits the budget or MaxCellDeg is reached.
func (g *GridBuilder) CellEdge(extent model.BoundingBox, budget int) float64 {
	edge := g.MinCellDeg
	for tileCount(extent.Width(), edge)*tileCount(extent.Height(), edge) > budget && edge < g.MaxCellDeg {
		edge = math.Min(edge*g.GrowthFactor, g.MaxCellDeg)
	}
	return edge
}

// tileCount is ceil(extent/edge) with a small tolerance so exact multiples do
// not produce a sliver tile.
func tileCount(extent, edge float64) int {
	n := int(math.Ceil(extent/edge - 1e-9))
	if n < 1 {
		return 1
	}
	return n
}

// subsample picks budget cells at a uniform stride of len(cells)/budget.
func subsample(cells []model.Cell, budget int) []model.Cell {
	out := make([]model.Cell, 0, budget)
	n := len(cells)
	for i := 0; i < budget; i++ {
		out = append(out, cells[i*n/budget])
	}
	return out
}
