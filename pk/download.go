package pk

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// DownloadOpt configures download and extraction behavior.
type DownloadOpt func(*downloadConfig)

type downloadConfig struct {
	destDir      string
	format       string // "tar.gz", "zip", "" (raw copy)
	extractOpts  []ExtractOpt
	skipIfExists string
	client       *http.Client
}

func newDownloadConfig(opts []DownloadOpt) *downloadConfig {
	cfg := &downloadConfig{client: http.DefaultClient}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithDestDir sets the destination directory for extraction.
func WithDestDir(dir string) DownloadOpt {
	return func(cfg *downloadConfig) {
		cfg.destDir = dir
	}
}

// WithFormat sets the archive format.
// Supported formats: "tar.gz", "zip", or "" for raw copy.
func WithFormat(format string) DownloadOpt {
	return func(cfg *downloadConfig) {
		cfg.format = format
	}
}

// WithExtract adds extraction options.
func WithExtract(opt ExtractOpt) DownloadOpt {
	return func(cfg *downloadConfig) {
		cfg.extractOpts = append(cfg.extractOpts, opt)
	}
}

// WithSkipIfExists skips the download if the specified file exists.
func WithSkipIfExists(path string) DownloadOpt {
	return func(cfg *downloadConfig) {
		cfg.skipIfExists = path
	}
}

// WithHTTPClient sets the client used for the request.
func WithHTTPClient(c *http.Client) DownloadOpt {
	return func(cfg *downloadConfig) {
		cfg.client = c
	}
}

// Download creates a Runnable that fetches a URL and optionally extracts it.
func Download(url string, opts ...DownloadOpt) Runnable {
	return Do(func(ctx context.Context) error {
		return download(ctx, url, opts...)
	})
}

func download(ctx context.Context, url string, opts ...DownloadOpt) error {
	cfg := newDownloadConfig(opts)

	// Check if we can skip.
	if cfg.skipIfExists != "" {
		if _, err := os.Stat(cfg.skipIfExists); err == nil {
			return nil
		}
	}

	destDir := cfg.destDir
	if destDir == "" {
		destDir = "."
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination dir: %w", err)
	}

	Printf(ctx, "  Downloading %s\n", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := cfg.client.Do(req)
	if err != nil {
		return fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: HTTP %d", url, resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "sitebuild-download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("download: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	switch cfg.format {
	case "tar.gz":
		if err := ExtractTarGz(tmpPath, destDir, cfg.extractOpts...); err != nil {
			return fmt.Errorf("extract tar.gz: %w", err)
		}
	case "zip":
		if err := ExtractZip(tmpPath, destDir, cfg.extractOpts...); err != nil {
			return fmt.Errorf("extract zip: %w", err)
		}
	default:
		data, err := os.ReadFile(tmpPath)
		if err != nil {
			return fmt.Errorf("read download: %w", err)
		}
		dst := destDir + string(os.PathSeparator) + baseURLName(url)
		if err := os.WriteFile(dst, data, 0o755); err != nil {
			return fmt.Errorf("write destination: %w", err)
		}
	}
	return nil
}

// baseURLName returns the last path segment of a URL.
func baseURLName(url string) string {
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return url
}
