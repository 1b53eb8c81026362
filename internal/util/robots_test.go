package util

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const robotsBody = `User-agent: *
Disallow: /cgi-bin/

User-agent: edgarseg
Disallow: /private/
Crawl-delay: 2
`

func newRobotsServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		hits.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestRobotsChecker_CanFetch(t *testing.T) {
	server, hits := newRobotsServer(t, http.StatusOK, robotsBody)
	checker := NewRobotsChecker(server.Client(), "edgarseg/0.1 (ops@example.com)")

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/Archives/edgar/data/1/index.html")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 2*time.Second, delay)

	allowed, _, err = checker.CanFetch(context.Background(), server.URL+"/private/doc.htm")
	require.NoError(t, err)
	assert.False(t, allowed)

	assert.Equal(t, int32(1), hits.Load(), "robots.txt should be fetched once per host")

	checker.Clear()
	_, _, err = checker.CanFetch(context.Background(), server.URL+"/Archives/")
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestRobotsChecker_Check(t *testing.T) {
	server, _ := newRobotsServer(t, http.StatusOK, robotsBody)
	checker := NewRobotsChecker(server.Client(), "edgarseg/0.1")

	_, err := checker.Check(context.Background(), server.URL+"/private/doc.htm")
	assert.ErrorIs(t, err, ErrRobotsDisallowed)

	delay, err := checker.Check(context.Background(), server.URL+"/Archives/doc.htm")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, delay)
}

func TestRobotsChecker_MissingRobotsAllowsAll(t *testing.T) {
	server, _ := newRobotsServer(t, http.StatusNotFound, "")
	checker := NewRobotsChecker(server.Client(), "edgarseg/0.1")

	allowed, delay, err := checker.CanFetch(context.Background(), server.URL+"/private/doc.htm")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, delay)
}

func TestRobotsChecker_UnreachableAllowsAll(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	checker := NewRobotsChecker(&http.Client{Timeout: time.Second}, "edgarseg/0.1")
	allowed, _, err := checker.CanFetch(context.Background(), url+"/doc.htm")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestRobotsChecker_WaitHook(t *testing.T) {
	server, hits := newRobotsServer(t, http.StatusOK, robotsBody)
	checker := NewRobotsChecker(server.Client(), "edgarseg/0.1")

	var waits int
	checker.Wait = func(ctx context.Context) error {
		waits++
		return nil
	}

	for i := 0; i < 3; i++ {
		_, _, err := checker.CanFetch(context.Background(), server.URL+"/Archives/")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, waits)
	assert.Equal(t, int32(1), hits.Load())

	blocked := errors.New("no permit")
	checker.Clear()
	checker.Wait = func(ctx context.Context) error { return blocked }
	allowed, _, err := checker.CanFetch(context.Background(), server.URL+"/Archives/")
	require.NoError(t, err, "robots failures never block fetching")
	assert.True(t, allowed)
}

func TestRobotsChecker_Canceled(t *testing.T) {
	server, _ := newRobotsServer(t, http.StatusOK, robotsBody)
	checker := NewRobotsChecker(server.Client(), "edgarseg/0.1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := checker.CanFetch(ctx, server.URL+"/Archives/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"edgarseg/0.1 (ops@example.com)", "edgarseg"},
		{"Acme Research admin@acme.com", "Acme"},
		{"edgarseg", "edgarseg"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUserAgent(tt.in), tt.in)
	}
}
