// Package downloader streams remote artifacts to local files.
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"genvid/internal/core/domain"
)

// chunkSize is the copy buffer size. Generated videos can be large, so the
// body is never buffered whole.
const chunkSize = 8 * 1024

// HTTPDownloader implements ports.Downloader using standard HTTP.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader creates a new HTTPDownloader.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{
		client: &http.Client{
			Timeout: 30 * time.Minute, // Videos can be large
		},
	}
}

// Fetch downloads url into destPath in 8 KiB chunks. The bytes land in a
// .partial sibling first and are renamed into place only after the stream
// completed and, when the server declared a Content-Length, the written
// size matched it. A failed download leaves no file at destPath.
func (d *HTTPDownloader) Fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", domain.ErrDownload, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: unexpected status code %d", domain.ErrDownload, resp.StatusCode)
	}

	tmpPath := destPath + ".partial"
	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("%w: create file %s: %v", domain.ErrDownload, tmpPath, err)
	}

	written, err := io.CopyBuffer(file, resp.Body, make([]byte, chunkSize))
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %v", domain.ErrDownload, tmpPath, err)
	}

	if resp.ContentLength >= 0 && written != resp.ContentLength {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: wrote %d bytes, server declared %d", domain.ErrDownload, written, resp.ContentLength)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: finalize %s: %v", domain.ErrDownload, destPath, err)
	}
	return nil
}
