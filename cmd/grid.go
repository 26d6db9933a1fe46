package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/verdant/internal/geo"
	"github.com/sells-group/verdant/internal/model"
)

var (
	gridGeoJSON   string
	gridShapefile string
	gridCity      string
	gridBudget    int
	gridFormat    string
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Print the cell grid an analysis would use for a boundary",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initAnalysis(cfg, "grid")
		if err != nil {
			return err
		}

		b, _, err := loadBoundary(cmd.Context(), env.Geocoder, gridGeoJSON, gridShapefile, gridCity)
		if err != nil {
			return err
		}

		budget := gridBudget
		if budget <= 0 {
			budget = cfg.Analysis.CellBudget
		}
		grid := env.Grid.Build(b, budget)

		out := cmd.OutOrStdout()
		switch gridFormat {
		case "geojson":
			cells := make([]model.CellResult, len(grid.Cells))
			for i, c := range grid.Cells {
				cells[i] = model.CellResult{Cell: c}
			}
			return json.NewEncoder(out).Encode(geo.OverlayFeatureCollection(cells))
		default:
			fmt.Fprintf(out, "area:      %.3f km²\n", b.AreaKM2())
			fmt.Fprintf(out, "extent:    %v\n", grid.Extent.Array())
			fmt.Fprintf(out, "cell edge: %.5f°\n", grid.CellDeg)
			fmt.Fprintf(out, "tiled:     %d\n", grid.Tiled)
			fmt.Fprintf(out, "retained:  %d\n", grid.Retained)
			fmt.Fprintf(out, "cells:     %d (budget %d)\n", grid.Len(), grid.Budget)
			return nil
		}
	},
}

func init() {
	gridCmd.Flags().StringVar(&gridGeoJSON, "geojson", "", "boundary GeoJSON file")
	gridCmd.Flags().StringVar(&gridShapefile, "shapefile", "", "boundary ESRI shapefile (.shp)")
	gridCmd.Flags().StringVar(&gridCity, "city", "", "city name to resolve to a boundary")
	gridCmd.Flags().IntVar(&gridBudget, "budget", 0, "cell budget (default from config)")
	gridCmd.Flags().StringVar(&gridFormat, "format", "text", "output format: text or geojson")
	rootCmd.AddCommand(gridCmd)
}
