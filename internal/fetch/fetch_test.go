package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func fastOptions() *Options {
	opts := DefaultOptions()
	opts.Limiter = nil
	return opts
}

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html><body><div class="vehicle-card">2021 Honda Accord</div></body></html>`))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, fastOptions())
	require.NoError(t, err)
	assert.Equal(t, server.URL, result.URL)
	assert.Contains(t, result.HTML, "vehicle-card")
	assert.Equal(t, http.StatusOK, result.StatusCode)
}

func TestURL_InvalidURL(t *testing.T) {
	_, err := URL(context.Background(), "not-a-valid-url", nil)
	require.Error(t, err)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "invalid URL")
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, fastOptions())
	require.Error(t, err)
	assert.NotNil(t, result) // Result is returned even on error
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var fetchErr *Error
	assert.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "404")
}

func TestURL_RejectsNonHTTPScheme(t *testing.T) {
	_, err := URL(context.Background(), "file:///etc/passwd", fastOptions())
	assert.ErrorContains(t, err, "invalid URL")
}

func TestURL_TruncatesLargePages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer server.Close()

	opts := fastOptions()
	opts.MaxBytes = 4
	opts.Client = server.Client()
	result, err := URL(context.Background(), server.URL, opts)
	require.NoError(t, err)
	assert.Equal(t, "0123", result.HTML)
	assert.True(t, result.Truncated)
}

func TestURL_LimiterHonorsContext(t *testing.T) {
	opts := fastOptions()
	opts.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)
	opts.Limiter.Allow() // drain the only token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := URL(ctx, "https://example.com", opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
}

func TestRender_HTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	html, err := Render(context.Background(), server.URL, false, 0, fastOptions(), zerolog.Nop())
	require.NoError(t, err)
	assert.Contains(t, html, "ok")
}

func TestRender_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Render(context.Background(), server.URL, false, 0, fastOptions(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty body")
}
