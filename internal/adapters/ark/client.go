// Package ark implements the token-authenticated generation service family.
// Job creation POSTs a model/content document; status is polled with a
// plain GET per task. No request signing is involved, only a static bearer
// token.
package ark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"genvid/internal/core/domain"
)

const tasksPath = "/contents/generations/tasks"

// Client talks to the token service family.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     *slog.Logger
}

// New creates a Client for the given API base URL and bearer token.
func New(baseURL, token string, log *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 2 * time.Minute},
		log:     log,
	}
}

// ImageRef wraps an input image URL.
type ImageRef struct {
	URL string `json:"url"`
}

// ContentItem is one element of a generation request: a text prompt or an
// input image reference. Role marks the frame position for multi-image
// requests and is omitted otherwise.
type ContentItem struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageRef `json:"image_url,omitempty"`
	Role     string    `json:"role,omitempty"`
}

// Text builds a text content item.
func Text(prompt string) ContentItem {
	return ContentItem{Type: "text", Text: prompt}
}

// Image builds an image content item. role may be empty.
func Image(url, role string) ContentItem {
	return ContentItem{Type: "image_url", ImageURL: &ImageRef{URL: url}, Role: role}
}

type createRequest struct {
	Model   string        `json:"model"`
	Content []ContentItem `json:"content"`
}

type createResponse struct {
	ID string `json:"id"`
}

// CreateTask submits a generation job and returns its task handle. Any
// non-2xx status, or a 2xx body without an id, is a submission error and is
// not retried here.
func (c *Client) CreateTask(ctx context.Context, model string, content []ContentItem) (domain.TaskHandle, error) {
	body, err := json.Marshal(createRequest{Model: model, Content: content})
	if err != nil {
		return domain.TaskHandle{}, fmt.Errorf("%w: marshal request: %v", domain.ErrSubmission, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tasksPath, bytes.NewReader(body))
	if err != nil {
		return domain.TaskHandle{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.TaskHandle{}, fmt.Errorf("%w: %v", domain.ErrSubmission, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.TaskHandle{}, fmt.Errorf("%w: read response: %v", domain.ErrSubmission, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.TaskHandle{}, fmt.Errorf("%w: status %d, body: %s", domain.ErrSubmission, resp.StatusCode, truncate(raw, 200))
	}

	var res createResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.TaskHandle{}, fmt.Errorf("%w: decode response: %v", domain.ErrSubmission, err)
	}
	if res.ID == "" {
		return domain.TaskHandle{}, fmt.Errorf("%w: response carries no task id", domain.ErrSubmission)
	}

	c.log.Info("task created", "task_id", res.ID, "model", model)
	return domain.TaskHandle{TaskID: res.ID}, nil
}

type statusResponse struct {
	Status   string `json:"status"`
	Progress int    `json:"progress"`
	Content  struct {
		VideoURL string `json:"video_url"`
	} `json:"content"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	FailureReason string `json:"failure_reason"`
}

// Check implements ports.StatusChecker with a single GET of the task
// resource. The bearer token is static; nothing is re-derived per poll.
func (c *Client) Check(ctx context.Context, taskID string) (domain.StatusUpdate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tasksPath+"/"+taskID, nil)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.StatusUpdate{}, fmt.Errorf("status endpoint returned %d: %s", resp.StatusCode, truncate(raw, 200))
	}

	var res statusResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.StatusUpdate{}, fmt.Errorf("decode status response: %w", err)
	}

	update := domain.StatusUpdate{Status: mapStatus(res.Status), Progress: res.Progress}
	switch update.Status {
	case domain.StatusSucceeded:
		if res.Content.VideoURL == "" {
			update.Status = domain.StatusFailed
			update.Reason = "task succeeded without a video url"
			break
		}
		update.Result = res.Content.VideoURL
	case domain.StatusFailed:
		update.Reason = failureReason(res)
	}
	return update, nil
}

func failureReason(res statusResponse) string {
	switch {
	case res.FailureReason != "":
		return res.FailureReason
	case res.Error.Message != "":
		return res.Error.Message
	default:
		return "no failure reason provided"
	}
}

// mapStatus translates this family's status vocabulary onto the normalized
// set; unrecognized strings are Unknown and non-terminal.
func mapStatus(raw string) domain.TaskStatus {
	switch raw {
	case "queued", "pending":
		return domain.StatusQueued
	case "running", "processing":
		return domain.StatusRunning
	case "succeeded":
		return domain.StatusSucceeded
	case "failed":
		return domain.StatusFailed
	default:
		return domain.StatusUnknown
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
