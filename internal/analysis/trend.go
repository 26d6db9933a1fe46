package analysis

import (
	"context"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
)

// Historical year defaults, relative to the current year.
const (
	DefaultHistoricalStride      = 2
	DefaultHistoricalStartOffset = 6
	DefaultHistoricalEndOffset   = 1
)

// YearRunner analyzes a single year.
type YearRunner interface {
	Analyze(ctx context.Context, b *geo.Boundary, year int, rep Reporter) (*model.YearResult, error)
}

// Request is one analysis invocation.
type Request struct {
	Boundary  *geo.Boundary
	City      *model.City
	YearRange *model.YearRange
}

// TrendOrchestrator runs the current year and a strided set of historical
// years and assembles the trend.
type TrendOrchestrator struct {
	years       YearRunner
	stride      int
	startOffset int
	endOffset   int
	nowFunc     func() time.Time
}

// NewTrendOrchestrator creates an orchestrator. Non-positive stride and
// offsets fall back to the defaults.
func NewTrendOrchestrator(years YearRunner, stride, startOffset, endOffset int) *TrendOrchestrator {
	if stride <= 0 {
		stride = DefaultHistoricalStride
	}
	if startOffset <= 0 {
		startOffset = DefaultHistoricalStartOffset
	}
	if endOffset <= 0 {
		endOffset = DefaultHistoricalEndOffset
	}
	return &TrendOrchestrator{
		years:       years,
		stride:      stride,
		startOffset: startOffset,
		endOffset:   endOffset,
		nowFunc:     time.Now,
	}
}

// HistoricalYears returns the strided historical years for a request,
// ascending, excluding the current year and anything after it.
func (o *TrendOrchestrator) HistoricalYears(current int, yr *model.YearRange) []int {
	start, end := current-o.startOffset, current-o.endOffset
	if yr != nil {
		if yr.StartYear > 0 {
			start = yr.StartYear
		}
		if yr.EndYear > 0 {
			end = yr.EndYear
		}
	}
	if start > end {
		start, end = end, start
	}

	var years []int
	for y := start; y <= end; y += o.stride {
		if y < current {
			years = append(years, y)
		}
	}
	return years
}

// Analyze runs the current year first, then the historical years. A
// current-year failure fails the analysis; a failed historical year is
// logged and left out of the series.
func (o *TrendOrchestrator) Analyze(ctx context.Context, req Request, rep Reporter) (*model.TrendResult, error) {
	if req.Boundary == nil {
		return nil, eris.Wrap(model.ErrInvalidBoundary, "analysis: boundary required")
	}
	current := o.nowFunc().Year()
	historical := o.HistoricalYears(current, req.YearRange)
	log := zap.L().With(zap.String("component", "analysis.trend"))

	startPayload := map[string]any{
		"currentYear":     current,
		"historicalYears": historical,
		"area":            req.Boundary.AreaKM2(),
	}
	if req.City != nil {
		startPayload["city"] = req.City.Name
	}
	rep.emit(progress.EventAnalysisStarted, startPayload)

	cur, err := o.years.Analyze(ctx, req.Boundary, current, rep)
	if err != nil {
		return nil, eris.Wrapf(err, "analysis: current year %d", current)
	}

	series := []model.YearResult{withoutCells(*cur)}
	if len(historical) > 0 {
		rep.emit(progress.EventHistoricalStarted, map[string]any{"years": historical})
		for i, year := range historical {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rep.emit(progress.EventHistoricalYearStarted, map[string]any{
				"year":  year,
				"index": i + 1,
				"total": len(historical),
			})
			yr, err := o.years.Analyze(ctx, req.Boundary, year, rep)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				log.Warn("historical year dropped", zap.Int("year", year), zap.Error(err))
				rep.emit(progress.EventLog, map[string]any{
					"level":   "warn",
					"message": "historical year unavailable",
					"year":    year,
					"code":    model.ErrorCode(err),
				})
				continue
			}
			series = append(series, withoutCells(*yr))
		}
	}

	series = sortedUnique(series)
	slope := Slope(series)
	rep.emit(progress.EventHistoricalCompleted, map[string]any{
		"years":         seriesYears(series),
		"changePerYear": slope,
	})

	return &model.TrendResult{
		Score:             Score(cur.CoveragePercentage),
		CurrentYearResult: cur,
		HistoricalSeries:  series,
		ChangePerYear:     slope,
		Direction:         Direction(slope),
		Area:              req.Boundary.AreaKM2(),
		City:              req.City,
	}, nil
}

func withoutCells(r model.YearResult) model.YearResult {
	r.CellResults = nil
	return r
}

// sortedUnique keeps the first result per imagery year, so a year answered
// from an earlier season does not repeat that season, then orders by year.
func sortedUnique(series []model.YearResult) []model.YearResult {
	seen := make(map[int]bool, len(series))
	out := series[:0]
	for _, r := range series {
		key := r.DataYear
		if key == 0 {
			key = r.Year
		}
		if seen[key] {
			zap.L().Debug("analysis: duplicate imagery year dropped",
				zap.Int("year", r.Year), zap.Int("data_year", key))
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b model.YearResult) int { return a.Year - b.Year })
	return out
}

func seriesYears(series []model.YearResult) []int {
	years := make([]int, len(series))
	for i, r := range series {
		years[i] = r.Year
	}
	return years
}
