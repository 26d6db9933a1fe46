package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/verdant/internal/analysis"
	"github.com/sells-group/verdant/internal/classify"
	"github.com/sells-group/verdant/internal/config"
	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/internal/region"
	"github.com/sells-group/verdant/internal/resilience"
	"github.com/sells-group/verdant/internal/spectral"
	"github.com/sells-group/verdant/pkg/geocode"
	"github.com/sells-group/verdant/pkg/sentinelhub"
)

// analysisEnv holds everything the analyze/serve/grid commands need.
type analysisEnv struct {
	Tables   *region.Tables
	Grid     *geo.GridBuilder
	Provider spectral.Provider
	Years    *analysis.YearAnalyzer
	Trend    *analysis.TrendOrchestrator
	Channel  *progress.Channel
	Geocoder geocode.Client
}

// Service starts an asynchronous session service over the environment.
// Callers should Shutdown the returned service.
func (e *analysisEnv) Service(c *config.Config) *analysis.Service {
	return analysis.NewService(e.Trend, e.Channel, c.Analysis.MaxConcurrent,
		time.Duration(c.Progress.TerminalRetentionSecs)*time.Second)
}

// initAnalysis validates the config and wires region tables, the spectral
// provider, the year analyzer and the trend orchestrator.
func initAnalysis(c *config.Config, mode string) (*analysisEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	tables := region.Default()
	if c.Regions.RulesFile != "" {
		t, err := region.LoadFile(c.Regions.RulesFile)
		if err != nil {
			return nil, err
		}
		tables = t
	}

	provider, err := initProvider(c, tables)
	if err != nil {
		return nil, err
	}

	strictness, err := spectral.ParseStrictness(c.Spectral.Strictness)
	if err != nil {
		return nil, err
	}

	grid := geo.NewGridBuilder(c.Analysis.MinCellDeg, c.Analysis.MaxCellDeg, c.Analysis.GrowthFactor)
	years := &analysis.YearAnalyzer{
		Grid:       grid,
		Provider:   provider,
		Classifier: classify.New(tables),
		Strictness: strictness,
		Budget:     c.Analysis.CellBudget,
		YieldEvery: c.Analysis.YieldEvery,
	}

	trend := analysis.NewTrendOrchestrator(years,
		c.Analysis.HistoricalStride,
		c.Analysis.HistoricalStartOffset,
		c.Analysis.HistoricalEndOffset,
	)

	geocoder := geocode.NewClient(
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithUserAgent(c.Geocode.UserAgent),
		geocode.WithRateLimit(c.Geocode.RequestsPerSecond),
	)

	zap.L().Info("analysis initialized",
		zap.String("provider", provider.Name()),
		zap.String("strictness", string(strictness)),
		zap.Int("cell_budget", c.Analysis.CellBudget),
	)

	return &analysisEnv{
		Tables:   tables,
		Grid:     grid,
		Provider: provider,
		Years:    years,
		Trend:    trend,
		Channel:  progress.New(c.Progress.BufferSize, time.Duration(c.Progress.TerminalRetentionSecs)*time.Second),
		Geocoder: geocoder,
	}, nil
}

// initProvider builds the configured spectral provider, wrapping the
// sentinel source with estimation when estimate_fallback is set.
func initProvider(c *config.Config, tables *region.Tables) (spectral.Provider, error) {
	strategy, err := spectral.ParseStrategy(c.Spectral.Strategy)
	if err != nil {
		return nil, err
	}

	estimator := spectral.NewEstimator(tables, c.Spectral.Seed, c.Spectral.SampleSize, c.Spectral.UrbanReduction)
	if strategy == spectral.StrategyEstimate {
		return estimator, nil
	}

	settings := resilience.Settings(c.Resilience)
	hc := &http.Client{Timeout: 60 * time.Second}
	tokens := sentinelhub.NewTokenSource(c.Sentinel.ClientID, c.Sentinel.ClientSecret,
		c.Sentinel.TokenURL, hc, c.Sentinel.RefreshFraction)

	breakerCfg := resilience.BreakerFromSettings(settings)
	breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("sentinelhub: circuit breaker state change",
			zap.String("from", from.String()), zap.String("to", to.String()))
	}
	retry := resilience.RetryFromSettings(settings)
	retry.OnRetry = resilience.RetryLogger("sentinelhub", "statistics")

	client := sentinelhub.NewClient(tokens,
		sentinelhub.WithBaseURL(c.Sentinel.BaseURL),
		sentinelhub.WithHTTPClient(hc),
		sentinelhub.WithRateLimit(c.Sentinel.RequestsPerSecond),
		sentinelhub.WithMaxCloudCoverage(c.Sentinel.MaxCloudCoverage),
		sentinelhub.WithRetry(retry),
		sentinelhub.WithCircuitBreaker(resilience.NewCircuitBreaker(breakerCfg)),
	)

	var provider spectral.Provider = spectral.NewSentinel(client, c.Spectral.SampleSize, c.Sentinel.FirstYear)
	if c.Spectral.EstimateFallback {
		provider = &spectral.Fallback{Primary: provider, Estimate: estimator}
	}
	return provider, nil
}

// resolveCity turns a place query into a boundary. Places without a polygon
// are analysed over their bounding box.
func resolveCity(ctx context.Context, gc geocode.Client, query string) (*geo.Boundary, *model.City, error) {
	place, err := gc.Resolve(ctx, query)
	if err != nil {
		if eris.Is(err, geocode.ErrNotFound) {
			return nil, nil, eris.Wrap(model.ErrInvalidBoundary, err.Error())
		}
		return nil, nil, err
	}

	var b *geo.Boundary
	if place.HasPolygon() {
		b, err = geo.ParseGeoJSON(place.Boundary)
	} else {
		b, err = geo.FromBox(model.BoundingBox{
			West: place.BBox[0], South: place.BBox[1], East: place.BBox[2], North: place.BBox[3],
		})
	}
	if err != nil {
		return nil, nil, err
	}

	city := &model.City{
		Name:      place.Name,
		Query:     query,
		Latitude:  place.Latitude,
		Longitude: place.Longitude,
	}
	return b, city, nil
}
