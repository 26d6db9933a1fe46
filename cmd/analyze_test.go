package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/verdant/internal/analysis"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/pkg/geocode"
)

func TestLoadBoundary_RequiresExactlyOne(t *testing.T) {
	_, _, err := loadBoundary(context.Background(), nil, "", "", "")
	assert.Error(t, err)

	_, _, err = loadBoundary(context.Background(), nil, "a.geojson", "", "Paris")
	assert.Error(t, err)
}

func TestLoadBoundary_GeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "city.geojson")
	require.NoError(t, os.WriteFile(path, []byte(squareGeoJSON), 0o644))

	b, city, err := loadBoundary(context.Background(), nil, path, "", "")
	require.NoError(t, err)
	assert.Nil(t, city)
	assert.Greater(t, b.AreaKM2(), 0.0)

	_, _, err = loadBoundary(context.Background(), nil, filepath.Join(t.TempDir(), "missing.geojson"), "", "")
	assert.Error(t, err)
}

func TestLoadBoundary_City(t *testing.T) {
	gc := &stubGeocoder{place: &geocode.Place{Name: "Box City", BBox: [4]float64{0, 0, 0.01, 0.01}}}

	_, city, err := loadBoundary(context.Background(), gc, "", "", "box city")
	require.NoError(t, err)
	assert.Equal(t, "Box City", city.Name)
	assert.Equal(t, 1, gc.calls)
}

func TestPrintProgress(t *testing.T) {
	var buf bytes.Buffer
	emit := printProgress(&buf)

	require.NoError(t, emit(progress.Event{Type: progress.EventConnected}))
	require.NoError(t, emit(progress.Event{Type: progress.EventGridProgress,
		Data: map[string]any{"year": 2024, "processed": 5, "total": 25}}))
	require.NoError(t, emit(progress.Event{Type: progress.EventYearCompleted,
		Data: map[string]any{"year": 2024, "coveragePercentage": 61.3, "confidence": 1.0}}))
	require.NoError(t, emit(progress.Event{Type: progress.EventHistoricalStarted}))
	require.NoError(t, emit(progress.Event{Type: progress.EventAnalysisCompleted,
		Data: map[string]any{"score": 87.3, "direction": "stable"}}))

	out := buf.String()
	assert.NotContains(t, out, "connected")
	assert.Contains(t, out, "year 2024: 5/25 cells")
	assert.Contains(t, out, "year 2024: 61.3% coverage (confidence 1.00)")
	assert.Contains(t, out, "historical-started")
	assert.Contains(t, out, "analysis-completed: score 87.3")
}

func TestWriteOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.geojson")
	cells := []model.CellResult{{
		Cell:               model.Cell{Index: 3, Bounds: model.BoundingBox{West: 0, South: 0, East: 1, North: 1}},
		VegetationFraction: 0.5,
	}}
	require.NoError(t, writeOverlay(path, cells))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var fc map[string]any
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Equal(t, "FeatureCollection", fc["type"])
	assert.Len(t, fc["features"], 1)
}

func TestTrendOverChannel(t *testing.T) {
	env := newTestEnv(t)

	var buf bytes.Buffer
	unsubscribe := env.Channel.SubscribeFunc("cli", printProgress(&buf))
	defer unsubscribe()

	b, _, err := loadBoundary(context.Background(), nil, writeTemp(t, squareGeoJSON), "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := env.Trend.Analyze(ctx, analysis.Request{Boundary: b}, analysis.SessionReporter(env.Channel, "cli"))
	require.NoError(t, err)

	require.NotNil(t, res.CurrentYearResult)
	assert.NotEmpty(t, res.CurrentYearResult.CellResults)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 100.0)
	assert.Contains(t, buf.String(), "coverage")
}

func TestRunTrend_CompletedCarriesFullResult(t *testing.T) {
	env := newTestEnv(t)
	b, _, err := loadBoundary(context.Background(), nil, writeTemp(t, squareGeoJSON), "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := runTrend(ctx, env, "full", analysis.Request{Boundary: b, City: &model.City{Name: "Square"}})
	require.NoError(t, err)

	// A late subscriber receives the retained terminal event.
	var terminal progress.Event
	unsubscribe := env.Channel.SubscribeFunc("full", func(ev progress.Event) error {
		if ev.Type.Terminal() {
			terminal = ev
		}
		return nil
	})
	defer unsubscribe()

	require.Equal(t, progress.EventAnalysisCompleted, terminal.Type)
	assert.InDelta(t, res.Score, toFloat(terminal.Data["score"]), 1e-9)
	assert.Equal(t, res.Direction, terminal.Data["direction"])
	assert.Contains(t, terminal.Data, "changePerYear")
	assert.Contains(t, terminal.Data, "area")
	current, ok := terminal.Data["currentYearResult"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, current["cellResults"])
	series, ok := terminal.Data["historicalSeries"].([]any)
	require.True(t, ok)
	assert.Len(t, series, len(res.HistoricalSeries))
	assert.Equal(t, map[string]any{"name": "Square", "latitude": 0.0, "longitude": 0.0}, terminal.Data["city"])
}

func TestRunTrend_ErrorPublishesCode(t *testing.T) {
	env := newTestEnv(t)
	_, err := runTrend(context.Background(), env, "bad", analysis.Request{})
	require.Error(t, err)

	var terminal progress.Event
	unsubscribe := env.Channel.SubscribeFunc("bad", func(ev progress.Event) error {
		if ev.Type.Terminal() {
			terminal = ev
		}
		return nil
	})
	defer unsubscribe()
	assert.Equal(t, progress.EventAnalysisError, terminal.Type)
	assert.Equal(t, model.ErrorCode(err), terminal.Data["code"])
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "boundary.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
