package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// nominatimResult is one entry of a /search response in jsonv2 format.
type nominatimResult struct {
	DisplayName string          `json:"display_name"`
	Lat         string          `json:"lat"`
	Lon         string          `json:"lon"`
	BoundingBox []string        `json:"boundingbox"` // south, north, west, east
	GeoJSON     json.RawMessage `json:"geojson"`
}

// search queries /search for the single best match with its polygon.
func (g *geocoder) search(ctx context.Context, query string) (*Place, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"q":               {query},
		"format":          {"jsonv2"},
		"polygon_geojson": {"1"},
		"limit":           {"1"},
	}
	reqURL := strings.TrimRight(g.baseURL, "/") + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(results) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "query %q", query)
	}
	return toPlace(query, results[0])
}

func toPlace(query string, r nominatimResult) (*Place, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lat")
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lon")
	}

	p := &Place{
		Name:      r.DisplayName,
		Query:     query,
		Latitude:  lat,
		Longitude: lon,
		Boundary:  r.GeoJSON,
	}
	if len(r.BoundingBox) == 4 {
		var v [4]float64
		for i, s := range r.BoundingBox {
			if v[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, eris.Wrap(err, "geocode: parse bounding box")
			}
		}
		p.BBox = [4]float64{v[2], v[0], v[3], v[1]}
	}
	return p, nil
}
