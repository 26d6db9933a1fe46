package sentinelhub

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/verdant/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

// tokenServer issues sequential tokens and counts requests.
func tokenServer(t *testing.T, expiresIn int, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.PostForm.Get("client_secret") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"tok-%d","token_type":"Bearer","expires_in":%d}`, n, expiresIn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestTokenSource(url string) *TokenSource {
	ts := NewTokenSource("id", "secret", url, nil, 0.9)
	ts.retry = fastRetry()
	return ts
}

func newTestClient(ts *TokenSource, baseURL string) *client {
	return &client{
		tokens:     ts,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		maxCloud:   30,
		retry:      fastRetry(),
	}
}

const sampleStatsResponse = `{
  "status": "OK",
  "data": [
    {
      "interval": {"from": "2023-05-01T00:00:00Z", "to": "2023-05-31T00:00:00Z"},
      "outputs": {
        "indices": {"bands": {"B0": {"stats": {
          "min": 0.1, "max": 0.9, "mean": 0.6, "stDev": 0.1,
          "sampleCount": 225, "noDataCount": 25,
          "percentiles": {"50.0": 0.6, "10.0": 0.3, "90.0": 0.8}
        }}}},
        "reflectance": {"bands": {
          "B0": {"stats": {"mean": 0.04, "sampleCount": 225, "noDataCount": 25}},
          "B1": {"stats": {"mean": 0.07, "sampleCount": 225, "noDataCount": 25}},
          "B2": {"stats": {"mean": 0.05, "sampleCount": 225, "noDataCount": 25}},
          "B3": {"stats": {"mean": 0.35, "sampleCount": 225, "noDataCount": 25}},
          "B4": {"stats": {"mean": 0.18, "sampleCount": 225, "noDataCount": 25}}
        }}
      }
    },
    {
      "interval": {"from": "2023-05-31T00:00:00Z", "to": "2023-06-30T00:00:00Z"},
      "outputs": {
        "indices": {"bands": {"B0": {"stats": {
          "min": "NaN", "max": "NaN", "mean": "NaN", "stDev": "NaN",
          "sampleCount": 225, "noDataCount": 225
        }}}}
      }
    },
    {
      "interval": {"from": "2023-06-30T00:00:00Z", "to": "2023-07-30T00:00:00Z"},
      "error": {"type": "EXECUTION_ERROR"}
    }
  ]
}`
