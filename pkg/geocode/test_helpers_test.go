package geocode

import (
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

// newTestLimiter never blocks.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newRewriteClient sends requests for targetPrefix to the test server
// instead, keeping path and query.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{Transport: &rewriteTransport{
		base:   http.DefaultTransport,
		target: targetPrefix,
		dest:   testServerURL,
	}}
}

type rewriteTransport struct {
	base   http.RoundTripper
	target string
	dest   string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rest, ok := strings.CutPrefix(req.URL.String(), t.target)
	if !ok {
		return t.base.RoundTrip(req)
	}
	u, err := url.Parse(t.dest + rest)
	if err != nil {
		return nil, err
	}
	out := req.Clone(req.Context())
	out.URL = u
	out.Host = u.Host
	return t.base.RoundTrip(out)
}
