package sentinelhub

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/verdant/internal/resilience"
)

// DefaultTokenURL is the Copernicus Data Space identity endpoint.
const DefaultTokenURL = "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token"

// DefaultRefreshFraction is the share of a token's lifetime after which it
// is proactively refreshed.
const DefaultRefreshFraction = 0.9

// TokenSource caches an OAuth2 client-credentials token. Concurrent callers
// share one in-flight refresh.
type TokenSource struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	fraction     float64
	retry        resilience.RetryConfig

	mu        sync.RWMutex
	token     string
	refreshAt time.Time
	expiresAt time.Time

	group   singleflight.Group
	nowFunc func() time.Time
}

// NewTokenSource creates a token cache. A refresh fraction outside (0, 1]
// falls back to DefaultRefreshFraction.
func NewTokenSource(clientID, clientSecret, tokenURL string, hc *http.Client, fraction float64) *TokenSource {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultRefreshFraction
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("sentinelhub", "token")
	return &TokenSource{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     tokenURL,
		httpClient:   hc,
		fraction:     fraction,
		retry:        retry,
		nowFunc:      time.Now,
	}
}

// Token returns a valid access token, refreshing it once the refresh point
// has passed. If a refresh fails while the cached token is still unexpired,
// the cached token is returned.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	now := ts.nowFunc()
	ts.mu.RLock()
	tok, refreshAt, expiresAt := ts.token, ts.refreshAt, ts.expiresAt
	ts.mu.RUnlock()

	if tok != "" && now.Before(refreshAt) {
		return tok, nil
	}

	ch := ts.group.DoChan("token", func() (any, error) {
		return ts.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "sentinelhub: wait for token")
	case res := <-ch:
		if res.Err == nil {
			return res.Val.(string), nil
		}
		if tok != "" && now.Before(expiresAt) {
			zap.L().Warn("sentinelhub: token refresh failed, using cached token",
				zap.Time("expires_at", expiresAt), zap.Error(res.Err))
			return tok, nil
		}
		return "", res.Err
	}
}

// Invalidate drops the cached token so the next call refreshes.
func (ts *TokenSource) Invalidate() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.token = ""
	ts.refreshAt = time.Time{}
	ts.expiresAt = time.Time{}
}

func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	if ts.clientID == "" || ts.clientSecret == "" {
		return "", eris.Wrap(ErrAuth, "sentinelhub: client credentials not configured")
	}

	tr, err := resilience.DoVal(ctx, ts.retry, func(ctx context.Context) (*tokenResponse, error) {
		return ts.fetch(ctx)
	})
	if err != nil {
		return "", err
	}

	issued := ts.nowFunc()
	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	ts.mu.Lock()
	ts.token = tr.AccessToken
	ts.refreshAt = issued.Add(time.Duration(float64(lifetime) * ts.fraction))
	ts.expiresAt = issued.Add(lifetime)
	ts.mu.Unlock()

	zap.L().Debug("sentinelhub: token refreshed", zap.Duration("lifetime", lifetime))
	return tr.AccessToken, nil
}

func (ts *TokenSource) fetch(ctx context.Context) (*tokenResponse, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {ts.clientID},
		"client_secret": {ts.clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: build token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: token request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sentinelhub: read token body")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusBadRequest:
		return nil, eris.Wrapf(ErrAuth, "sentinelhub: token rejected with status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, resilience.StatusError("sentinelhub: token", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, eris.Wrap(err, "sentinelhub: parse token response")
	}
	if tr.AccessToken == "" {
		return nil, eris.Wrap(ErrAuth, "sentinelhub: empty access token")
	}
	if tr.ExpiresIn <= 0 {
		tr.ExpiresIn = 300
	}
	return &tr, nil
}
