package helpers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "sjsage522/bestdeal/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.Contains(t, r.Header.Get("Accept-Language"), "fr-FR")
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Carte graphique à 499,90 €</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Carte graphique à 499,90 €")
}

func TestFetchWithRandomHeadersNonUTF8(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "Mémoire" in ISO-8859-1
		w.Write([]byte("<html><body>M\xe9moire DDR4</body></html>"))
	}))
	defer server.Close()

	reader, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.NoError(t, err)

	body, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Mémoire DDR4")
}

func TestFetchWithRandomHeadersError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status code: 500")
	assert.Equal(t, apperrors.ErrorTypeNetwork, apperrors.TypeOf(err))

	serverRateLimited := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer serverRateLimited.Close()

	_, err = FetchWithRandomHeaders(context.Background(), serverRateLimited.URL)
	assert.ErrorIs(t, err, apperrors.ErrRateLimit)
}

func TestFetchWithRandomHeadersInvalidURL(t *testing.T) {
	_, err := FetchWithRandomHeaders(context.Background(), "http://invalid.url.that.does.not.exist")
	assert.Error(t, err)
}

func TestFetchWithRandomHeadersCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchWithRandomHeaders(ctx, server.URL)
	assert.Error(t, err)
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 60*time.Second, retryAfter("60"))
	assert.Equal(t, defaultRetryAfter, retryAfter(""))
	assert.Equal(t, defaultRetryAfter, retryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
}
