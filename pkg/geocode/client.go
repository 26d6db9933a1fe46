// Package geocode resolves place names to administrative boundaries via a
// Nominatim-compatible search API.
package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// ErrNotFound is returned when a query matches no place.
var ErrNotFound = eris.New("geocode: place not found")

// Client resolves city queries.
type Client interface {
	// Resolve returns the best match for a free-form place query.
	Resolve(ctx context.Context, query string) (*Place, error)
}

// Place is a resolved place. Boundary holds the raw GeoJSON geometry when the
// service returned a polygon; otherwise it is nil and BBox is the only extent.
type Place struct {
	Name      string
	Query     string
	Latitude  float64
	Longitude float64
	// BBox is [west, south, east, north].
	BBox     [4]float64
	Boundary json.RawMessage
}

// HasPolygon reports whether the place carries a polygonal boundary.
func (p *Place) HasPolygon() bool {
	if len(p.Boundary) == 0 {
		return false
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(p.Boundary, &head); err != nil {
		return false
	}
	return head.Type == "Polygon" || head.Type == "MultiPolygon"
}

// Option configures the resolver.
type Option func(*geocoder)

// WithBaseURL points the resolver at another Nominatim instance.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit. Public Nominatim
// allows one request per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUserAgent sets the User-Agent header Nominatim requires.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithCacheTTL keeps resolved places in memory for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(g *geocoder) {
		g.cache = newCache(ttl)
	}
}

type geocoder struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	cache      *cache
}

// NewClient creates a new resolver with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(1, 1),
		userAgent:  "verdant/1.0",
		cache:      newCache(time.Hour),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Resolve checks the cache and falls through to a search.
func (g *geocoder) Resolve(ctx context.Context, query string) (*Place, error) {
	key := cacheKey(query)
	if key == "" {
		return nil, eris.New("geocode: empty query")
	}
	if p, ok := g.cache.get(key); ok {
		return p, nil
	}

	p, err := g.search(ctx, query)
	if err != nil {
		return nil, err
	}
	g.cache.put(key, p)
	return p, nil
}
