package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := New(Options{
		Endpoint: server.URL,
		CacheDir: t.TempDir(),
		Logger:   zerolog.Nop(),
	})
	return client, server
}

func TestDownload(t *testing.T) {
	payload := []byte("checkpoint bytes")
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hubertsiuzdak/snac_24khz/resolve/main/config.json", r.URL.Path)
		_, _ = w.Write(payload)
	}))

	path, err := client.Download(context.Background(), "hubertsiuzdak/snac_24khz", "main", "config.json")
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadUsesCache(t *testing.T) {
	var hits int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("data"))
	}))

	_, err := client.Download(context.Background(), "org/model", "main", "file.bin")
	require.NoError(t, err)
	_, err = client.Download(context.Background(), "org/model", "main", "file.bin")
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "second download must come from cache")
}

func TestDownloadSendsToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	client.token = "secret"

	_, err := client.Download(context.Background(), "org/gated", "main", "file.bin")
	require.NoError(t, err)
}

func TestDownloadNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Download(context.Background(), "org/missing", "main", "file.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
}

func TestDownloadUnauthorized(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.Download(context.Background(), "org/gated", "main", "file.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.Contains(t, err.Error(), "token")
}

func TestDownloadChecksumMismatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// A 64-hex ETag announces a sha256 the payload will not match.
		w.Header().Set("ETag", `"`+hex.EncodeToString(make([]byte, 32))+`"`)
		_, _ = w.Write([]byte("payload"))
	}))

	_, err := client.Download(context.Background(), "org/model", "main", "file.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrModelUnavailable))
	assert.Contains(t, err.Error(), "checksum")
}

func TestDownloadChecksumMatch(t *testing.T) {
	payload := []byte("verified payload")
	sum := sha256.Sum256(payload)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"`+hex.EncodeToString(sum[:])+`"`)
		_, _ = w.Write(payload)
	}))

	path, err := client.Download(context.Background(), "org/model", "main", "file.bin")
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadCancelledContext(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("data"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Download(ctx, "org/model", "main", "file.bin")
	require.Error(t, err)
}

func TestDownloadFailureLeavesNoCacheEntry(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.Download(context.Background(), "org/model", "main", "file.bin")
	require.Error(t, err)

	_, statErr := os.Stat(client.CachePath("org/model", "main", "file.bin"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCachePathLayout(t *testing.T) {
	client := New(Options{CacheDir: "/tmp/cache", Logger: zerolog.Nop()})
	path := client.CachePath("hubertsiuzdak/snac_24khz", "main", "config.json")
	assert.Equal(t, "/tmp/cache/hubertsiuzdak--snac_24khz@main/config.json", path)
}
