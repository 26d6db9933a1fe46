package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/config"
	"github.com/sells-group/verdant/pkg/geocode"
)

// squareGeoJSON is a ~2 km square near the equator.
const squareGeoJSON = `{"type":"Polygon","coordinates":[[[0,0],[0.02,0],[0.02,0.02],[0,0.02],[0,0]]]}`

// testConfig mirrors config defaults with a small, seeded analysis.
func testConfig() *config.Config {
	c := &config.Config{}
	c.Log.Level = "info"
	c.Server.Port = 8080
	c.Server.AllowedOrigins = []string{"*"}
	c.Server.ShutdownTimeoutS = 5
	c.Analysis.CellBudget = 16
	c.Analysis.MinCellDeg = 0.0045
	c.Analysis.MaxCellDeg = 0.1
	c.Analysis.GrowthFactor = 1.5
	c.Analysis.HistoricalStride = 2
	c.Analysis.HistoricalStartOffset = 6
	c.Analysis.HistoricalEndOffset = 1
	c.Analysis.YieldEvery = 10
	c.Analysis.MaxConcurrent = 2
	c.Spectral.Strategy = "estimate"
	c.Spectral.Strictness = "fail-closed"
	c.Spectral.Seed = 7
	c.Spectral.SampleSize = 5
	c.Spectral.UrbanReduction = 0.3
	c.Sentinel.BaseURL = "http://127.0.0.1:1"
	c.Sentinel.TokenURL = "http://127.0.0.1:1/token"
	c.Sentinel.RefreshFraction = 0.9
	c.Sentinel.RequestsPerSecond = 5
	c.Sentinel.MaxCloudCoverage = 30
	c.Sentinel.FirstYear = 2017
	c.Progress.BufferSize = 64
	c.Progress.TerminalRetentionSecs = 60
	c.Geocode.BaseURL = "http://127.0.0.1:1"
	c.Geocode.UserAgent = "verdant-test"
	c.Geocode.RequestsPerSecond = 100
	return c
}

func newTestEnv(t *testing.T) *analysisEnv {
	t.Helper()
	env, err := initAnalysis(testConfig(), "serve")
	require.NoError(t, err)
	return env
}

// stubGeocoder returns a fixed place or error.
type stubGeocoder struct {
	place *geocode.Place
	err   error
	calls int
}

func (s *stubGeocoder) Resolve(_ context.Context, query string) (*geocode.Place, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	p := *s.place
	p.Query = query
	return &p, nil
}
