package analysis

import (
	"context"
	"errors"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/classify"
	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/internal/spectral"
)

// DefaultYieldEvery is how many cells are processed between scheduler yields.
const DefaultYieldEvery = 10

// YearAnalyzer computes one year's coverage for a boundary. Cells are
// processed sequentially in grid order.
type YearAnalyzer struct {
	Grid       *geo.GridBuilder
	Provider   spectral.Provider
	Classifier *classify.Classifier
	Strictness spectral.Strictness
	Budget     int
	YieldEvery int
}

// Analyze builds the grid, samples and classifies every cell, and
// aggregates the year. Under FailClosed the first cell failure aborts the
// year; under FailOpen failed cells are skipped and lower the confidence.
// Authentication failures and cancellation always abort.
func (a *YearAnalyzer) Analyze(ctx context.Context, b *geo.Boundary, year int, rep Reporter) (*model.YearResult, error) {
	if b == nil {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "analysis: nil boundary")
	}
	log := zap.L().With(zap.String("component", "analysis.year"), zap.Int("year", year))

	grid := a.Grid.Build(b, a.Budget)
	total := grid.Len()
	rep.emit(progress.EventGridStarted, map[string]any{
		"year":     year,
		"gridSize": total,
		"cellDeg":  grid.CellDeg,
		"provider": a.Provider.Name(),
	})

	yieldEvery := a.YieldEvery
	if yieldEvery <= 0 {
		yieldEvery = DefaultYieldEvery
	}
	cadence := max(5, total/50)

	res := &model.YearResult{Year: year, GridSize: total}
	states := make([]model.CellState, total)
	var sumIndex float64

	for i, cell := range grid.Cells {
		states[i] = model.CellPending
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cr, err := a.analyzeCell(ctx, cell, year, states)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if a.Strictness != spectral.FailOpen || errors.Is(err, model.ErrAuthentication) {
				return nil, eris.Wrapf(err, "analysis: year %d cell %d", year, cell.Index)
			}
			res.FailedCells++
			log.Debug("cell skipped", zap.Int("cell", cell.Index), zap.Error(err))
		} else {
			res.AnalyzedCells++
			res.TotalSamples += cr.SampleCount
			res.VegetatedSamples += cr.VegetatedCount
			sumIndex += cr.MeanIndex * float64(cr.SampleCount)
			if cr.Estimated {
				res.EstimatedCells++
			}
			res.DataYear = max(res.DataYear, cr.DataYear)
			res.CellResults = append(res.CellResults, *cr)
			states[i] = model.CellAggregated
		}

		processed := i + 1
		if processed%cadence == 0 || processed == total {
			rep.emit(progress.EventGridProgress, map[string]any{
				"year":      year,
				"processed": processed,
				"total":     total,
				"analyzed":  res.AnalyzedCells,
				"failed":    res.FailedCells,
				"percent":   float64(processed) / float64(total) * 100,
			})
		}
		if processed%yieldEvery == 0 {
			runtime.Gosched()
		}
	}

	if res.TotalSamples > 0 {
		res.CoveragePercentage = float64(res.VegetatedSamples) / float64(res.TotalSamples) * 100
		res.MeanIndex = sumIndex / float64(res.TotalSamples)
	}
	if res.DataYear == 0 {
		res.DataYear = year
	}
	if total > 0 {
		res.Confidence = float64(res.AnalyzedCells) / float64(total)
	}
	res.VegetatedArea = b.AreaKM2() * res.CoveragePercentage / 100

	log.Info("year analyzed",
		zap.Int("cells", total),
		zap.Int("failed", res.FailedCells),
		zap.Int("estimated", res.EstimatedCells),
		zap.Float64("coverage", res.CoveragePercentage),
		zap.Float64("confidence", res.Confidence),
		zap.Any("states", countStates(states)),
	)
	rep.emit(progress.EventYearCompleted, yearSummary(res))
	return res, nil
}

// analyzeCell runs one cell through sampling and classification, recording
// its state as it advances.
func (a *YearAnalyzer) analyzeCell(ctx context.Context, cell model.Cell, year int, states []model.CellState) (*model.CellResult, error) {
	set, err := a.Provider.Samples(ctx, cell, year)
	if err == nil {
		set, err = a.Strictness.Sanitize(set)
	}
	if err != nil {
		states[cell.Index] = model.CellFailed
		return nil, err
	}
	states[cell.Index] = model.CellSampled

	cr := a.Classifier.Classify(set, cell)
	if cr.SampleCount == 0 {
		states[cell.Index] = model.CellFailed
		return nil, eris.Wrap(model.ErrDataUnavailable, "analysis: no samples")
	}
	states[cell.Index] = model.CellClassified
	return &cr, nil
}

func countStates(states []model.CellState) map[model.CellState]int {
	counts := make(map[model.CellState]int, 2)
	for _, s := range states {
		counts[s]++
	}
	return counts
}

func yearSummary(r *model.YearResult) map[string]any {
	return map[string]any{
		"year":               r.Year,
		"dataYear":           r.DataYear,
		"coveragePercentage": r.CoveragePercentage,
		"vegetatedArea":      r.VegetatedArea,
		"confidence":         r.Confidence,
		"gridSize":           r.GridSize,
		"analyzedCells":      r.AnalyzedCells,
		"failedCells":        r.FailedCells,
		"estimatedCells":     r.EstimatedCells,
		"meanIndex":          r.MeanIndex,
	}
}
