package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/verdant/internal/analysis"
	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
	"github.com/sells-group/verdant/internal/progress"
	"github.com/sells-group/verdant/pkg/geocode"
)

var (
	analyzeGeoJSON   string
	analyzeShapefile string
	analyzeCity      string
	analyzeOverlay   string
	analyzeStart     int
	analyzeEnd       int
	analyzeQuiet     bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a vegetation trend analysis and print the result as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalysis(cfg, "analyze")
		if err != nil {
			return err
		}

		b, city, err := loadBoundary(ctx, env.Geocoder, analyzeGeoJSON, analyzeShapefile, analyzeCity)
		if err != nil {
			return err
		}

		req := analysis.Request{Boundary: b, City: city}
		if analyzeStart > 0 || analyzeEnd > 0 {
			req.YearRange = &model.YearRange{StartYear: analyzeStart, EndYear: analyzeEnd}
		}

		session := uuid.NewString()
		if !analyzeQuiet {
			unsubscribe := env.Channel.SubscribeFunc(session, printProgress(cmd.ErrOrStderr()))
			defer unsubscribe()
		}

		result, err := runTrend(ctx, env, session, req)
		if err != nil {
			return err
		}

		if analyzeOverlay != "" && result.CurrentYearResult != nil {
			if err := writeOverlay(analyzeOverlay, result.CurrentYearResult.CellResults); err != nil {
				return err
			}
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeGeoJSON, "geojson", "", "boundary GeoJSON file")
	analyzeCmd.Flags().StringVar(&analyzeShapefile, "shapefile", "", "boundary ESRI shapefile (.shp)")
	analyzeCmd.Flags().StringVar(&analyzeCity, "city", "", "city name to resolve to a boundary")
	analyzeCmd.Flags().StringVar(&analyzeOverlay, "overlay", "", "write current-year cells as a GeoJSON FeatureCollection to this file")
	analyzeCmd.Flags().IntVar(&analyzeStart, "start-year", 0, "first historical year")
	analyzeCmd.Flags().IntVar(&analyzeEnd, "end-year", 0, "last historical year")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "suppress progress output")
	rootCmd.AddCommand(analyzeCmd)
}

// runTrend analyzes req and publishes the terminal event for session: the
// full trend result on success, the error code otherwise.
func runTrend(ctx context.Context, env *analysisEnv, session string, req analysis.Request) (*model.TrendResult, error) {
	result, err := env.Trend.Analyze(ctx, req, analysis.SessionReporter(env.Channel, session))
	if err != nil {
		env.Channel.Publish(session, progress.EventAnalysisError, map[string]any{
			"code": model.ErrorCode(err), "message": err.Error(),
		})
		return nil, eris.Wrap(err, "analyze")
	}
	env.Channel.Publish(session, progress.EventAnalysisCompleted, result)
	return result, nil
}

// loadBoundary reads exactly one of the boundary sources.
func loadBoundary(ctx context.Context, gc geocode.Client, geojsonPath, shpPath, city string) (*geo.Boundary, *model.City, error) {
	set := 0
	for _, s := range []string{geojsonPath, shpPath, city} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, nil, eris.New("exactly one of --geojson, --shapefile or --city is required")
	}

	switch {
	case geojsonPath != "":
		data, err := os.ReadFile(geojsonPath)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "read %s", geojsonPath)
		}
		b, err := geo.ParseGeoJSON(data)
		return b, nil, err
	case shpPath != "":
		b, err := geo.LoadShapefile(shpPath)
		return b, nil, err
	default:
		return resolveCity(ctx, gc, city)
	}
}

// printProgress renders events as one line each.
func printProgress(w io.Writer) func(progress.Event) error {
	return func(ev progress.Event) error {
		switch ev.Type {
		case progress.EventGridProgress:
			_, err := fmt.Fprintf(w, "  year %v: %v/%v cells\n", ev.Data["year"], ev.Data["processed"], ev.Data["total"])
			return err
		case progress.EventYearCompleted:
			_, err := fmt.Fprintf(w, "year %v: %.1f%% coverage (confidence %.2f)\n",
				ev.Data["year"], toFloat(ev.Data["coveragePercentage"]), toFloat(ev.Data["confidence"]))
			return err
		case progress.EventAnalysisCompleted:
			_, err := fmt.Fprintf(w, "%s: score %.1f\n", ev.Type, toFloat(ev.Data["score"]))
			return err
		case progress.EventConnected:
			return nil
		default:
			_, err := fmt.Fprintf(w, "%s\n", ev.Type)
			return err
		}
	}
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func writeOverlay(path string, cells []model.CellResult) error {
	data, err := json.Marshal(geo.OverlayFeatureCollection(cells))
	if err != nil {
		return eris.Wrap(err, "marshal overlay")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "write overlay %s", path)
	}
	return nil
}
