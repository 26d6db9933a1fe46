// Package spectral supplies per-cell spectral index samples, either from
// Sentinel-2 statistics or from a deterministic climate-based estimate.
package spectral

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/verdant/internal/model"
)

// Provider returns index samples for one cell and year.
type Provider interface {
	// Samples fails with model.ErrDataUnavailable when no usable samples
	// exist for the cell.
	Samples(ctx context.Context, cell model.Cell, year int) (*model.SampleSet, error)

	// Name identifies the strategy in logs and results.
	Name() string
}

// Strategy selects the sample source.
type Strategy string

// Strategies.
const (
	StrategyEstimate Strategy = "estimate"
	StrategySentinel Strategy = "sentinel"
)

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyEstimate, StrategySentinel:
		return Strategy(s), nil
	case "":
		return StrategyEstimate, nil
	}
	return "", eris.Errorf("spectral: unknown strategy %q", s)
}

// Strictness decides how failed or invalid samples are handled.
type Strictness string

const (
	// FailClosed rejects invalid samples and aborts the year on any
	// provider failure.
	FailClosed Strictness = "fail-closed"
	// FailOpen clamps invalid samples and skips cells that fail.
	FailOpen Strictness = "fail-open"
)

// ParseStrictness validates a configured strictness name. Empty means
// FailClosed.
func ParseStrictness(s string) (Strictness, error) {
	switch Strictness(s) {
	case FailClosed, FailOpen:
		return Strictness(s), nil
	case "":
		return FailClosed, nil
	}
	return "", eris.Errorf("spectral: unknown strictness %q", s)
}

// Sanitize enforces the valid index range [-1, 1] on a sample set.
// FailClosed rejects any non-finite or out-of-range value; FailOpen drops
// non-finite values and clamps the rest. An empty result is always
// ErrDataUnavailable.
func (s Strictness) Sanitize(set *model.SampleSet) (*model.SampleSet, error) {
	if set == nil || len(set.Values) == 0 {
		return nil, eris.Wrap(model.ErrDataUnavailable, "spectral: empty sample set")
	}

	out := make([]float64, 0, len(set.Values))
	for _, v := range set.Values {
		valid := !math.IsNaN(v) && !math.IsInf(v, 0)
		if s == FailClosed {
			if !valid || v < -1 || v > 1 {
				return nil, eris.Wrapf(model.ErrDataUnavailable, "spectral: sample %v out of range", v)
			}
			out = append(out, v)
			continue
		}
		if !valid {
			continue
		}
		out = append(out, clamp(v))
	}
	if len(out) == 0 {
		return nil, eris.Wrap(model.ErrDataUnavailable, "spectral: no finite samples")
	}

	clean := *set
	clean.Values = out
	return &clean, nil
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
