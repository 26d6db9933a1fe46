package analysis

import (
	"math"

	"github.com/sells-group/verdant/internal/model"
)

// StableSlope is the largest coverage change per year, in percentage
// points, still reported as stable.
const StableSlope = 0.5

// Score maps current coverage percentage p to a 0-100 score. The function
// is piecewise linear, non-decreasing and continuous at every breakpoint.
func Score(p float64) float64 {
	if math.IsNaN(p) || p <= 0 {
		return 0
	}
	var s float64
	switch {
	case p >= 50:
		s = 80 + (p-50)*0.8
	case p >= 30:
		s = 60 + (p - 30)
	case p >= 15:
		s = 40 + (p-15)*4.0/3.0
	case p >= 5:
		s = 20 + (p-5)*2
	default:
		s = p * 4
	}
	return math.Min(100, s)
}

// Slope is the least-squares coverage change per year over a series.
// Fewer than two distinct years yield zero.
func Slope(series []model.YearResult) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}
	var sx, sy float64
	for _, r := range series {
		sx += float64(r.Year)
		sy += r.CoveragePercentage
	}
	mx, my := sx/n, sy/n
	var num, den float64
	for _, r := range series {
		dx := float64(r.Year) - mx
		num += dx * (r.CoveragePercentage - my)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Direction classifies a slope.
func Direction(slope float64) string {
	switch {
	case slope >= StableSlope:
		return model.TrendImproving
	case slope <= -StableSlope:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}
