package sentinelhub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSource_CachesUntilRefreshPoint(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 100, &calls)
	ts := newTestTokenSource(srv.URL)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	ts.nowFunc = func() time.Time { return now }

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	now = now.Add(89 * time.Second)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), calls.Load())

	// Past 90% of the lifetime the token is refreshed even though it is
	// still valid.
	now = now.Add(2 * time.Second)
	tok, err = ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenSource_ConcurrentCallersShareRefresh(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write([]byte(`{"access_token":"shared","expires_in":3600}`))
	}))
	defer srv.Close()

	ts := newTestTokenSource(srv.URL)

	var wg sync.WaitGroup
	tokens := make([]string, 20)
	for i := range tokens {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := ts.Token(context.Background())
			assert.NoError(t, err)
			tokens[i] = tok
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, tok := range tokens {
		assert.Equal(t, "shared", tok)
	}
}

func TestTokenSource_FailedRefreshKeepsValidToken(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"first","expires_in":100}`))
	}))
	defer srv.Close()

	ts := newTestTokenSource(srv.URL)
	now := time.Now()
	ts.nowFunc = func() time.Time { return now }

	_, err := ts.Token(context.Background())
	require.NoError(t, err)

	fail.Store(true)
	now = now.Add(95 * time.Second)
	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", tok)

	now = now.Add(10 * time.Second)
	_, err = ts.Token(context.Background())
	assert.Error(t, err)
}

func TestTokenSource_RejectedCredentials(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 100, &calls)

	ts := NewTokenSource("id", "wrong", srv.URL, nil, 0)
	ts.retry = fastRetry()

	_, err := ts.Token(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuth))
	assert.Equal(t, int32(1), calls.Load(), "auth failures are not retried")
}

func TestTokenSource_MissingCredentials(t *testing.T) {
	ts := NewTokenSource("", "", "http://127.0.0.1:0", nil, 0)
	_, err := ts.Token(context.Background())
	assert.True(t, errors.Is(err, ErrAuth))
}

func TestTokenSource_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"access_token":"slow","expires_in":100}`))
	}))
	defer srv.Close()

	ts := newTestTokenSource(srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := ts.Token(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestTokenSource_Invalidate(t *testing.T) {
	var calls atomic.Int32
	srv := tokenServer(t, 3600, &calls)
	ts := newTestTokenSource(srv.URL)

	_, err := ts.Token(context.Background())
	require.NoError(t, err)
	ts.Invalidate()

	tok, err := ts.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}
