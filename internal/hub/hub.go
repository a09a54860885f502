// Package hub downloads model files from the Hugging Face hub and caches
// them on disk. Downloads go to a temporary file first and are renamed
// into the cache only after the size and checksum checks pass, so an
// interrupted transfer never poisons the cache.
package hub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultEndpoint is the Hugging Face hub base URL.
const DefaultEndpoint = "https://huggingface.co"

// ErrModelUnavailable marks failures where the model files cannot be
// obtained at all: network errors, missing repos, or authentication
// problems. Callers use it to distinguish "install/fetch the model" from
// bugs.
var ErrModelUnavailable = errors.New("model unavailable")

// Options configures a hub client.
type Options struct {
	// Endpoint overrides the hub base URL. Used by tests and mirrors.
	Endpoint string

	// CacheDir is where downloaded files are stored. Defaults to
	// $HOME/.cache/snacx/hub.
	CacheDir string

	// Token is a bearer token for gated or private repos.
	Token string

	// Timeout bounds a single download. Zero means no client timeout;
	// cancellation is still available through the context.
	Timeout time.Duration

	Logger zerolog.Logger
}

// Client downloads files from the hub.
type Client struct {
	httpClient *http.Client
	endpoint   string
	cacheDir   string
	token      string
	log        zerolog.Logger
}

// DefaultCacheDir returns the default on-disk cache location.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "snacx", "hub")
	}
	return filepath.Join(".", ".snacx-hub")
}

// New creates a hub client.
func New(opts Options) *Client {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		cacheDir:   cacheDir,
		token:      opts.Token,
		log:        opts.Logger,
	}
}

// CachePath returns the local path a file resolves to, whether or not it
// has been downloaded yet.
func (c *Client) CachePath(repo, revision, filename string) string {
	repoDir := strings.ReplaceAll(repo, "/", "--") + "@" + revision
	return filepath.Join(c.cacheDir, repoDir, filename)
}

// fileURL builds the hub resolve URL for a file.
func (c *Client) fileURL(repo, revision, filename string) string {
	return fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repo, revision, filename)
}

// Download fetches a file from the hub, returning its local cache path.
// A previously cached copy is reused without touching the network.
func (c *Client) Download(ctx context.Context, repo, revision, filename string) (string, error) {
	localPath := c.CachePath(repo, revision, filename)
	if _, err := os.Stat(localPath); err == nil {
		c.log.Debug().Str("path", localPath).Msg("using cached file")
		return localPath, nil
	}

	url := c.fileURL(repo, revision, filename)
	c.log.Info().Str("url", url).Msg("downloading")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrModelUnavailable, repo, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return "", fmt.Errorf("%w: access to %s denied (status %d), a token may be required",
			ErrModelUnavailable, repo, resp.StatusCode)
	case http.StatusNotFound:
		return "", fmt.Errorf("%w: %s has no file %s at revision %s",
			ErrModelUnavailable, repo, filename, revision)
	default:
		return "", fmt.Errorf("%w: unexpected status %d for %s", ErrModelUnavailable, resp.StatusCode, url)
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(localPath), ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("%w: download of %s interrupted: %v", ErrModelUnavailable, filename, err)
	}

	if resp.ContentLength > 0 && written != resp.ContentLength {
		return "", fmt.Errorf("%w: %s is truncated: got %d of %d bytes",
			ErrModelUnavailable, filename, written, resp.ContentLength)
	}
	if err := verifyChecksum(resp, hasher.Sum(nil)); err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrModelUnavailable, filename, err)
	}

	if err := os.Rename(tmpPath, localPath); err != nil {
		return "", fmt.Errorf("failed to move download into cache: %w", err)
	}

	c.log.Info().Str("path", localPath).Int64("bytes", written).Msg("download complete")
	return localPath, nil
}

// verifyChecksum compares the payload digest against the LFS ETag when the
// server provides one. LFS files expose their sha256 as a 64-hex-digit
// ETag; short ETags are content hashes of another kind and are skipped.
func verifyChecksum(resp *http.Response, sum []byte) error {
	etag := strings.Trim(resp.Header.Get("ETag"), `W/"`)
	if len(etag) != 64 {
		return nil
	}
	if got := hex.EncodeToString(sum); !strings.EqualFold(got, etag) {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, etag)
	}
	return nil
}
