package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedRequest struct {
	method string
	host   string
	path   string
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	g.requests = append(g.requests, recordedRequest{method: r.Method, host: r.Host, path: r.URL.Path})
	g.mu.Unlock()
	g.handler(w, r)
}

func (g *fakeGateway) methods() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.requests))
	for _, r := range g.requests {
		out = append(out, r.method)
	}
	return out
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request), breaker BreakerConfig) (*Client, *fakeGateway) {
	t.Helper()
	gw := &fakeGateway{handler: handler}
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	c := New(Config{
		BaseURL:     srv.URL,
		CanisterID:  "test-canister",
		PostTimeout: time.Second,
		GetTimeout:  time.Second,
		Breaker:     breaker,
	}, zap.NewNop(), nil)

	return c, gw
}

func TestFetchPostSuccess(t *testing.T) {
	c, gw := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"1","jobName":"API"}]`))
	}, BreakerConfig{})

	records, err := c.Fetch(context.Background(), ResourceJobs)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "API", records[0].JobName())

	require.Len(t, gw.requests, 1)
	assert.Equal(t, http.MethodPost, gw.requests[0].method)
	assert.Equal(t, "test-canister.localhost", gw.requests[0].host)
	assert.Equal(t, "/getAllJobs", gw.requests[0].path)
}

func TestFetchFallsBackToGet(t *testing.T) {
	c, gw := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"u1"},]`))
	}, BreakerConfig{})

	records, err := c.Fetch(context.Background(), ResourceUsers)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []string{http.MethodPost, http.MethodGet}, gw.methods())
}

func TestFetchHTMLErrorPage(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Response verification failed</title></head><body>oops</body></html>`))
	}, BreakerConfig{})

	_, err := c.Fetch(context.Background(), ResourceJobs)
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonHTML, fetchErr.Reason)
	assert.Len(t, fetchErr.Attempts, 2)
	assert.Contains(t, err.Error(), "HTML")
	assert.Contains(t, err.Error(), "Response verification failed")
}

func TestFetchSniffsHTMLWithoutContentType(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<!DOCTYPE html>\n<html><body>gateway</body></html>"))
	}, BreakerConfig{})

	_, err := c.Fetch(context.Background(), ResourceJobs)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonHTML, fetchErr.Reason)
}

func TestFetchServiceUnavailable(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, BreakerConfig{})

	_, err := c.Fetch(context.Background(), ResourceRatings)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonUnavailable, fetchErr.Reason)
	assert.Contains(t, err.Error(), "503")
}

func TestFetchUndecodableBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}, BreakerConfig{})

	_, err := c.Fetch(context.Background(), ResourceJobs)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonGeneric, fetchErr.Reason)
	assert.Contains(t, err.Error(), "not a JSON array")
}

func TestFetchUnknownResource(t *testing.T) {
	c, gw := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {}, BreakerConfig{})

	_, err := c.Fetch(context.Background(), "wallets")

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Empty(t, gw.methods())
}

func TestFetchOpensCircuit(t *testing.T) {
	c, gw := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, BreakerConfig{MaxFailures: 1, OpenTimeout: time.Minute})

	_, err := c.Fetch(context.Background(), ResourceJobs)
	require.Error(t, err)
	require.Len(t, gw.methods(), 2)

	_, err = c.Fetch(context.Background(), ResourceJobs)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonCircuitOpen, fetchErr.Reason)
	assert.Len(t, gw.methods(), 2)

	// other resources have their own breaker
	_, err = c.Fetch(context.Background(), ResourceUsers)
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, ReasonUnavailable, fetchErr.Reason)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("text/html", []byte("whatever")))
	assert.True(t, isHTML("", []byte("  <html><body/></html>")))
	assert.False(t, isHTML("application/json", []byte(`[{"html":"<b>"}]`)))
}
