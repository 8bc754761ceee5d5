package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/JustJay7/highcourt-fetcher/internal/metrics"
	"github.com/JustJay7/highcourt-fetcher/pkg/logger"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// DownloaderOptions configures a PDFDownloader
type DownloaderOptions struct {
	// Root is the directory documents are written under
	Root string
	// StaticPrefix is the URL path Root is served from
	StaticPrefix string
	UserAgent    string
	Timeout      time.Duration
	// RateLimit caps downloads per second; zero disables the limit
	RateLimit int
}

// PDFDownloader fetches portal documents with the browser session's cookies
// and stores them under a static root. An existing target is never fetched
// again.
type PDFDownloader struct {
	client *resty.Client
	logger *logger.Logger
	root   string
	prefix string
}

// NewPDFDownloader creates a downloader
func NewPDFDownloader(opts DownloaderOptions, logger *logger.Logger) *PDFDownloader {
	client := resty.New()
	client.SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	if opts.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateLimit)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}

	return &PDFDownloader{
		client: client,
		logger: logger,
		root:   opts.Root,
		prefix: opts.StaticPrefix,
	}
}

// Fetch stores the document at rawURL as relPath under the root and returns
// its static URL path.
func (d *PDFDownloader) Fetch(ctx context.Context, rawURL string, cookies []*http.Cookie, relPath string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(relPath))
	if filepath.IsAbs(rel) || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid artifact path %q", relPath)
	}

	target := filepath.Join(d.root, rel)
	staticPath := path.Join(d.prefix, filepath.ToSlash(rel))

	if _, err := os.Stat(target); err == nil {
		metrics.RecordArtifact("cached")
		d.logger.Debug("Document already stored", "path", target)
		return staticPath, nil
	}

	if err := d.download(ctx, rawURL, cookies, target); err != nil {
		metrics.RecordArtifact("failed")
		return "", err
	}

	metrics.RecordArtifact("downloaded")
	d.logger.Info("Document downloaded", "url", rawURL, "path", target)
	return staticPath, nil
}

// download writes to a temporary file and renames it into place so a
// partial download never looks like a stored document.
func (d *PDFDownloader) download(ctx context.Context, rawURL string, cookies []*http.Cookie, target string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetCookies(cookies).
		SetDoNotParseResponse(true).
		Get(rawURL)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("failed to download %s: bad status %s", rawURL, resp.Status())
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to store file: %w", err)
	}
	return nil
}
