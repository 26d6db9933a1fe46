// Package classify turns a cell's spectral samples into a vegetated
// fraction using a location-resolved threshold.
package classify

import (
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/region"
)

// Classifier labels samples above the local threshold as vegetated.
type Classifier struct {
	tables *region.Tables
}

// New returns a classifier over the given rule tables, or the built-in
// tables when nil.
func New(tables *region.Tables) *Classifier {
	if tables == nil {
		tables = region.Default()
	}
	return &Classifier{tables: tables}
}

// Threshold returns the effective threshold at a cell's centroid and the
// rule that produced it.
func (c *Classifier) Threshold(cell model.Cell) (float64, string) {
	return c.tables.Threshold(cell.Centroid())
}

// Classify computes the vegetated fraction and mean index of one cell.
// A sample is vegetated when strictly greater than the threshold. Empty
// sample sets yield a zero fraction and zero SampleCount.
func (c *Classifier) Classify(set *model.SampleSet, cell model.Cell) model.CellResult {
	threshold, _ := c.Threshold(cell)
	res := model.CellResult{Cell: cell, Threshold: threshold}
	if set == nil {
		return res
	}
	res.Indices = set.Indices
	res.Estimated = set.Estimated
	res.DataYear = set.DataYear
	if len(set.Values) == 0 {
		return res
	}

	var sum float64
	for _, v := range set.Values {
		sum += v
		if v > threshold {
			res.VegetatedCount++
		}
	}
	res.SampleCount = len(set.Values)
	res.MeanIndex = sum / float64(res.SampleCount)
	res.VegetationFraction = float64(res.VegetatedCount) / float64(res.SampleCount)
	return res
}
