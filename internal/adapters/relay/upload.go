// Package relay makes local input files publicly fetchable. The remote
// generation APIs refuse local paths; every input image or audio clip must
// be reachable over plain HTTP before a job can be submitted.
//
// Two implementations exist: UploadClient pushes assets to an image-hosting
// relay, and Server exposes a local staging directory directly.
package relay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UploadClient publishes files through an imgbb-compatible hosting relay:
// one form POST with the base64 payload, the response carries the public
// URL. The relay stores audio clips through the same image parameter.
type UploadClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewUploadClient creates an UploadClient for the given relay endpoint.
func NewUploadClient(endpoint, apiKey string) *UploadClient {
	return &UploadClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 2 * time.Minute},
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Publish uploads localPath and returns its public URL.
func (c *UploadClient) Publish(ctx context.Context, localPath string) (string, error) {
	raw, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("read asset %s: %w", localPath, err)
	}

	form := url.Values{}
	form.Set("key", c.apiKey)
	form.Set("image", base64.StdEncoding.EncodeToString(raw))
	form.Set("name", assetName(localPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload asset: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read relay response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	var res uploadResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	if !res.Success || res.Data.URL == "" {
		if res.Error.Message != "" {
			return "", fmt.Errorf("relay rejected upload: %s", res.Error.Message)
		}
		return "", fmt.Errorf("relay rejected upload")
	}
	return res.Data.URL, nil
}

// assetName builds a collision-free name keeping the original extension.
func assetName(localPath string) string {
	ext := filepath.Ext(localPath)
	return "genvid_" + uuid.New().String() + ext
}
