// Package download stages remote PDF sources locally before processing.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/pdfsplit/internal/run"
)

// DefaultMaxSize caps downloads at 500 MB to avoid runaway transfers.
const DefaultMaxSize = 500 * 1024 * 1024

// chunkSize is the read granularity for progress callbacks.
const chunkSize = 64 * 1024

// ErrTooLarge is returned when a download exceeds the configured size cap.
var ErrTooLarge = errors.New("download exceeds maximum size")

var contentDispositionFilename = regexp.MustCompile(`(?i)filename\s*=\s*(?:"([^"]+)"|'([^']+)'|([^;\s]+))`)

// Client downloads files over HTTP(S) with a size cap and transient-failure
// retries on connection establishment.
type Client struct {
	httpClient *http.Client
	maxSize    int64
	logger     *slog.Logger
}

// New creates a Client. maxSize <= 0 uses DefaultMaxSize.
func New(maxSize int64, logger *slog.Logger) *Client {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		// No overall timeout: large downloads run until complete or the
		// context is cancelled.
		httpClient: &http.Client{},
		maxSize:    maxSize,
		logger:     logger.With("component", "download"),
	}
}

// Fetch downloads rawURL into destDir and returns the staged file path.
// onProgress receives (received, total) byte counts; total is -1 when the
// server did not announce a Content-Length.
func (c *Client) Fetch(ctx context.Context, rawURL, destDir string, onProgress func(received, total int64)) (string, error) {
	if err := validateURL(rawURL); err != nil {
		return "", err
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	var resp *http.Response
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			r, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			if r.StatusCode != http.StatusOK {
				r.Body.Close()
				err := fmt.Errorf("unexpected status: %s", r.Status)
				if r.StatusCode >= 400 && r.StatusCode < 500 {
					return retry.Unrecoverable(err)
				}
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(1*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total > 0 && total > c.maxSize {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, total, c.maxSize)
	}

	destPath := uniquePath(destDir, filenameFor(rawURL, resp))

	f, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}

	received, copyErr := c.copyBody(ctx, f, resp.Body, total, onProgress)
	closeErr := f.Close()
	if copyErr != nil {
		os.Remove(destPath)
		return "", copyErr
	}
	if closeErr != nil {
		os.Remove(destPath)
		return "", fmt.Errorf("failed to finalize %s: %w", destPath, closeErr)
	}

	c.logger.Debug("download complete", "url", rawURL, "path", destPath, "bytes", received)
	return destPath, nil
}

func (c *Client) copyBody(ctx context.Context, dst io.Writer, src io.Reader, total int64, onProgress func(received, total int64)) (int64, error) {
	buf := make([]byte, chunkSize)
	var received int64

	for {
		if err := ctx.Err(); err != nil {
			return received, err
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return received, fmt.Errorf("write failed: %w", werr)
			}
			received += int64(n)
			if received > c.maxSize {
				return received, fmt.Errorf("%w: max %d bytes", ErrTooLarge, c.maxSize)
			}
			if onProgress != nil {
				onProgress(received, total)
			}
		}
		if err == io.EOF {
			return received, nil
		}
		if err != nil {
			return received, fmt.Errorf("read failed: %w", err)
		}
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL (must be http or https): %s", rawURL)
	}
	return nil
}

// filenameFor derives the staged filename from the Content-Disposition
// header, falling back to the URL path, then to downloaded.pdf. The result
// always carries a .pdf extension.
func filenameFor(rawURL string, resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if m := contentDispositionFilename.FindStringSubmatch(cd); m != nil {
			name := m[1]
			if name == "" {
				name = m[2]
			}
			if name == "" {
				name = m[3]
			}
			if name != "" {
				return ensurePDFExt(filepath.Base(name))
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if decoded, err := url.PathUnescape(u.Path); err == nil {
			if name := filepath.Base(decoded); name != "" && name != "/" && name != "." {
				return ensurePDFExt(name)
			}
		}
	}

	return "downloaded.pdf"
}

func ensurePDFExt(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return name
	}
	return name + ".pdf"
}

// uniquePath suffixes _1, _2, ... when name already exists in dir.
func uniquePath(dir, name string) string {
	path := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)

	for counter := 1; ; counter++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", base, counter, ext))
	}
}

// Interface compliance.
var _ run.Fetcher = (*Client)(nil)
