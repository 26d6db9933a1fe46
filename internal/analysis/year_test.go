package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/internal/spectral"
	"github.com/sells-group/verdant/internal/spectral/mocks"
)

func TestYearAnalyzer_EquatorEstimate(t *testing.T) {
	b := equatorBoundary(t)
	a := newYearAnalyzer(spectral.NewEstimator(nil, 42, 0, 0), spectral.FailClosed)
	rec := &recorder{}

	res, err := a.Analyze(context.Background(), b, 2024, rec.reporter())
	require.NoError(t, err)

	assert.Equal(t, 25, res.GridSize)
	assert.Equal(t, 2024, res.DataYear)
	assert.Equal(t, 25, res.AnalyzedCells)
	assert.Zero(t, res.FailedCells)
	assert.InDelta(t, 1.0, res.Confidence, 1e-12)
	assert.Equal(t, 25*225, res.TotalSamples)
	assert.GreaterOrEqual(t, res.CoveragePercentage, 60.0)
	assert.LessOrEqual(t, res.CoveragePercentage, 95.0)
	assert.InDelta(t, b.AreaKM2()*res.CoveragePercentage/100, res.VegetatedArea, 1e-9)
	assert.Greater(t, res.MeanIndex, 0.4)

	require.Len(t, res.CellResults, 25)
	for i, cr := range res.CellResults {
		assert.Equal(t, i, cr.Cell.Index, "grid order")
	}

	assert.Equal(t, 1, rec.count(progress.EventGridStarted))
	assert.Equal(t, 5, rec.count(progress.EventGridProgress))
	assert.Equal(t, 1, rec.count(progress.EventYearCompleted))
	types := rec.types()
	assert.Equal(t, progress.EventGridStarted, types[0])
	assert.Equal(t, progress.EventYearCompleted, types[len(types)-1])
}

func TestYearAnalyzer_Deterministic(t *testing.T) {
	b := equatorBoundary(t)
	a := newYearAnalyzer(spectral.NewEstimator(nil, 9, 0, 0), spectral.FailClosed)

	first, err := a.Analyze(context.Background(), b, 2022, nil)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), b, 2022, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestYearAnalyzer_ProviderAlwaysFails(t *testing.T) {
	b := equatorBoundary(t)
	unavailable := eris.Wrap(model.ErrDataUnavailable, "no scenes")

	t.Run("fail-closed aborts", func(t *testing.T) {
		p := mocks.NewMockProvider(t)
		p.On("Name").Return("sentinel")
		p.On("Samples", mock.Anything, mock.Anything, 2024).Return(nil, unavailable).Once()

		_, err := newYearAnalyzer(p, spectral.FailClosed).Analyze(context.Background(), b, 2024, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrDataUnavailable))
		assert.Equal(t, model.CodeDataUnavailable, model.ErrorCode(err))
	})

	t.Run("fail-open yields zero confidence", func(t *testing.T) {
		p := mocks.NewMockProvider(t)
		p.On("Name").Return("sentinel")
		p.On("Samples", mock.Anything, mock.Anything, 2024).Return(nil, unavailable).Times(25)

		res, err := newYearAnalyzer(p, spectral.FailOpen).Analyze(context.Background(), b, 2024, nil)
		require.NoError(t, err)
		assert.Zero(t, res.Confidence)
		assert.Zero(t, res.CoveragePercentage)
		assert.Zero(t, res.VegetatedArea)
		assert.Equal(t, 25, res.FailedCells)
		assert.Empty(t, res.CellResults)
	})
}

func TestYearAnalyzer_FailOpenPartial(t *testing.T) {
	b := equatorBoundary(t)
	p := mocks.NewMockProvider(t)
	p.On("Name").Return("sentinel")
	p.On("Samples", mock.Anything, mock.Anything, 2024).Return(
		func(_ context.Context, cell model.Cell, _ int) (*model.SampleSet, error) {
			if cell.Index%5 == 0 {
				return nil, eris.Wrap(model.ErrDataUnavailable, "cloudy")
			}
			return &model.SampleSet{Values: []float64{0.9, 0.1, 1.7}}, nil
		}, nil)

	res, err := newYearAnalyzer(p, spectral.FailOpen).Analyze(context.Background(), b, 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.FailedCells)
	assert.Equal(t, 20, res.AnalyzedCells)
	assert.InDelta(t, 0.8, res.Confidence, 1e-12)
	assert.Equal(t, 60, res.TotalSamples)
	assert.InDelta(t, 200.0/3.0, res.CoveragePercentage, 1e-9, "1.7 clamped to 1")
}

func TestYearAnalyzer_FailClosedRejectsOutOfRange(t *testing.T) {
	p := mocks.NewMockProvider(t)
	p.On("Name").Return("sentinel")
	p.On("Samples", mock.Anything, mock.Anything, mock.Anything).
		Return(&model.SampleSet{Values: []float64{0.5, 1.2}}, nil).Once()

	_, err := newYearAnalyzer(p, spectral.FailClosed).Analyze(context.Background(), equatorBoundary(t), 2024, nil)
	assert.True(t, errors.Is(err, model.ErrDataUnavailable))
}

func TestYearAnalyzer_AuthFailureAlwaysAborts(t *testing.T) {
	p := mocks.NewMockProvider(t)
	p.On("Name").Return("sentinel")
	p.On("Samples", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.Wrap(model.ErrAuthentication, "token rejected")).Once()

	_, err := newYearAnalyzer(p, spectral.FailOpen).Analyze(context.Background(), equatorBoundary(t), 2024, nil)
	assert.Equal(t, model.CodeAuthentication, model.ErrorCode(err))
}

func TestYearAnalyzer_FallbackCountsEstimates(t *testing.T) {
	primary := mocks.NewMockProvider(t)
	primary.On("Name").Return("sentinel")
	primary.On("Samples", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, eris.Wrap(model.ErrDataUnavailable, "no scenes"))

	f := &spectral.Fallback{Primary: primary, Estimate: spectral.NewEstimator(nil, 3, 0, 0)}
	res, err := newYearAnalyzer(f, spectral.FailClosed).Analyze(context.Background(), equatorBoundary(t), 2024, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, res.EstimatedCells)
	assert.InDelta(t, 1.0, res.Confidence, 1e-12)
	assert.True(t, res.CellResults[0].Estimated)
}

func TestYearAnalyzer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := mocks.NewMockProvider(t)
	p.On("Name").Return("sentinel")
	calls := 0
	p.On("Samples", mock.Anything, mock.Anything, mock.Anything).Return(
		func(context.Context, model.Cell, int) (*model.SampleSet, error) {
			calls++
			if calls == 3 {
				cancel()
			}
			return &model.SampleSet{Values: []float64{0.5}}, nil
		}, nil)

	_, err := newYearAnalyzer(p, spectral.FailOpen).Analyze(ctx, equatorBoundary(t), 2024, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, calls, "stops before the next cell")
}

func TestYearAnalyzer_ProgressCadenceSublinear(t *testing.T) {
	b, err := geo.FromBox(model.BoundingBox{West: 10, South: 45, East: 15, North: 50})
	require.NoError(t, err)

	a := newYearAnalyzer(spectral.NewEstimator(nil, 5, 2, 0), spectral.FailClosed)
	a.Budget = 1000
	rec := &recorder{}

	res, err := a.Analyze(context.Background(), b, 2024, rec.reporter())
	require.NoError(t, err)
	// 2500 tiles at the maximum edge, subsampled to the budget.
	require.Equal(t, 1000, res.GridSize)
	// Every 20 cells for a 1000-cell grid.
	assert.Equal(t, 50, rec.count(progress.EventGridProgress))
}

func TestYearAnalyzer_NilBoundary(t *testing.T) {
	a := newYearAnalyzer(spectral.NewEstimator(nil, 1, 0, 0), spectral.FailClosed)
	_, err := a.Analyze(context.Background(), nil, 2024, nil)
	assert.Equal(t, model.CodeInvalidBoundary, model.ErrorCode(err))
}
