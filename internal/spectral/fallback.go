package spectral

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/model"
)

// Fallback substitutes an estimate when the primary provider has no data.
// Authentication failures and cancellation are passed through unchanged.
type Fallback struct {
	Primary  Provider
	Estimate Provider
}

// Name implements Provider.
func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Estimate.Name()
}

// Samples implements Provider.
func (f *Fallback) Samples(ctx context.Context, cell model.Cell, year int) (*model.SampleSet, error) {
	set, err := f.Primary.Samples(ctx, cell, year)
	if err == nil || ctx.Err() != nil || errors.Is(err, model.ErrAuthentication) {
		return set, err
	}

	est, estErr := f.Estimate.Samples(ctx, cell, year)
	if estErr != nil {
		return nil, estErr
	}
	est.Estimated = true
	zap.L().Warn("spectral: using estimate for cell",
		zap.Int("cell", cell.Index),
		zap.Int("year", year),
		zap.String("primary", f.Primary.Name()),
		zap.Error(err),
	)
	return est, nil
}

var _ Provider = (*Fallback)(nil)
