package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hls-downloader/pkg/constants"
	apperrors "hls-downloader/pkg/errors"
	"hls-downloader/pkg/helper"
)

func newFetcher() *HTTPFetcher {
	return NewHTTPFetcher(Options{ResponseHeaderTimeout: 5 * time.Second}, zap.NewNop())
}

func TestFetchBytesSendsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_, _ = w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	headers := helper.BuildHeaders("agent/1.0", "https://site.example.com/watch", "sid=abc")
	body, status, err := newFetcher().FetchBytes(context.Background(), srv.URL+"/master.m3u8", headers)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "#EXTM3U\n", string(body))
	assert.Equal(t, "agent/1.0", got.Get("User-Agent"))
	assert.Equal(t, "https://site.example.com/watch", got.Get("Referer"))
	assert.Equal(t, "sid=abc", got.Get("Cookie"))
}

func TestFetchBytesNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, status, err := newFetcher().FetchBytes(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	var fe *apperrors.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.StatusCode)
	assert.True(t, apperrors.IsRetryable(err))
}

func TestFetchBytesTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{MaxPlaylistBytes: 10}, zap.NewNop())
	_, _, err := f.FetchBytes(context.Background(), srv.URL, nil)
	assert.Error(t, err)
}

func TestFetchToFile(t *testing.T) {
	payload := strings.Repeat("ts", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "segments", "segment_0.ts")
	n, err := newFetcher().FetchToFile(context.Background(), srv.URL+"/seg0.ts", nil, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))

	_, err = os.Stat(dest + constants.PartSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestFetchToFileShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("only-a-little"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "segment_0.ts")
	_, err := newFetcher().FetchToFile(context.Background(), srv.URL, nil, dest)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "truncated segment must not be published")
	_, statErr = os.Stat(dest + constants.PartSuffix)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchToFileCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newFetcher().FetchToFile(ctx, srv.URL, nil, filepath.Join(t.TempDir(), "s.ts"))
	require.Error(t, err)
	assert.True(t, apperrors.IsCancelled(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestFetchConnectionRefusedIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := newFetcher().FetchBytes(context.Background(), url, nil)
	require.Error(t, err)

	var te *apperrors.TransientError
	assert.True(t, errors.As(err, &te))
}

func TestRateLimiter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(Options{RequestsPerSecond: 20}, zap.NewNop())
	start := time.Now()
	for i := 0; i < 30; i++ {
		_, _, err := f.FetchBytes(context.Background(), srv.URL, nil)
		require.NoError(t, err)
	}
	// burst of 20, then 10 more at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}
