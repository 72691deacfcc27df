// Package visual implements the signature-protected generation service
// family. Every request, including each status poll, is signed with a
// freshly derived keyed-hash signature.
package visual

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
	"genvid/internal/core/ports"
	"genvid/internal/signer"
)

// Config holds the endpoints and request keys for one deployment. The
// submit and result URLs carry the Action/Version query parameters.
type Config struct {
	SubmitURL   string
	ResultURL   string
	RoleReqKey  string
	VideoReqKey string
}

// Client talks to the signed service family.
type Client struct {
	cfg    Config
	creds  signer.Credentials
	scope  signer.Scope
	client *http.Client
	log    *slog.Logger

	// now is injected so tests can sign against a fixed instant.
	now func() time.Time
}

// New creates a Client. creds must be non-empty; signing fails otherwise.
func New(cfg Config, creds signer.Credentials, scope signer.Scope, log *slog.Logger) *Client {
	return &Client{
		cfg:    cfg,
		creds:  creds,
		scope:  scope,
		client: &http.Client{Timeout: 2 * time.Minute},
		log:    log,
		now:    time.Now,
	}
}

type taskPayload struct {
	ReqKey   string `json:"req_key"`
	ImageURL string `json:"image_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	TaskID   string `json:"task_id,omitempty"`
}

type submitResponse struct {
	TaskID   string `json:"task_id"`
	VideoURL string `json:"video_url"`
	Message  string `json:"message"`
}

// SubmitRole starts a subject-identification task for the given image URL.
func (c *Client) SubmitRole(ctx context.Context, imageURL string) (domain.TaskHandle, error) {
	return c.submit(ctx, taskPayload{ReqKey: c.cfg.RoleReqKey, ImageURL: imageURL})
}

// SubmitVideo starts an audio-driven video generation task.
func (c *Client) SubmitVideo(ctx context.Context, imageURL, audioURL string) (domain.TaskHandle, error) {
	return c.submit(ctx, taskPayload{ReqKey: c.cfg.VideoReqKey, ImageURL: imageURL, AudioURL: audioURL})
}

func (c *Client) submit(ctx context.Context, payload taskPayload) (domain.TaskHandle, error) {
	raw, status, err := c.post(ctx, c.cfg.SubmitURL, payload)
	if err != nil {
		return domain.TaskHandle{}, err
	}
	if status < 200 || status >= 300 {
		return domain.TaskHandle{}, fmt.Errorf("%w: status %d, body: %s", domain.ErrSubmission, status, truncate(raw, 200))
	}

	var res submitResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.TaskHandle{}, fmt.Errorf("%w: decode submit response: %v", domain.ErrSubmission, err)
	}
	switch {
	case res.TaskID != "":
		c.log.Info("task created", "req_key", payload.ReqKey, "task_id", res.TaskID)
		return domain.TaskHandle{TaskID: res.TaskID}, nil
	case res.VideoURL != "":
		// Some deployments resolve synchronously; no polling needed.
		c.log.Info("task resolved synchronously", "req_key", payload.ReqKey)
		return domain.TaskHandle{Resolved: true, Result: res.VideoURL}, nil
	default:
		return domain.TaskHandle{}, fmt.Errorf("%w: response carries neither task_id nor a result", domain.ErrSubmission)
	}
}

// post signs and sends one JSON request, returning the response body and
// HTTP status. A signing failure aborts before any network traffic; the
// caller decides what a non-2xx status means for its stage of the pipeline.
func (c *Client) post(ctx context.Context, url string, payload taskPayload) ([]byte, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal payload: %w", err)
	}

	headers := map[string]string{}
	if err := signer.Sign(c.creds, http.MethodPost, url, headers, body, c.scope, c.now()); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}

// RoleStatus returns the checker for subject-identification tasks.
func (c *Client) RoleStatus() ports.StatusChecker {
	return &statusChecker{c: c, reqKey: c.cfg.RoleReqKey, role: true}
}

// VideoStatus returns the checker for video generation tasks.
func (c *Client) VideoStatus() ports.StatusChecker {
	return &statusChecker{c: c, reqKey: c.cfg.VideoReqKey}
}

// statusChecker polls the result endpoint. The poll body carries the same
// req_key the task was submitted under; each poll is re-signed with a fresh
// timestamp.
type statusChecker struct {
	c      *Client
	reqKey string
	role   bool
}

type resultResponse struct {
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		VideoURL string `json:"video_url"`
		RespData string `json:"resp_data"`
	} `json:"data"`
}

func (s *statusChecker) Check(ctx context.Context, taskID string) (domain.StatusUpdate, error) {
	raw, status, err := s.c.post(ctx, s.c.cfg.ResultURL, taskPayload{ReqKey: s.reqKey, TaskID: taskID})
	if err != nil {
		return domain.StatusUpdate{}, err
	}
	// Non-2xx during polling is transient; the loop logs and retries.
	if status < 200 || status >= 300 {
		return domain.StatusUpdate{}, fmt.Errorf("status endpoint returned %d: %s", status, truncate(raw, 200))
	}

	var res resultResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return domain.StatusUpdate{}, fmt.Errorf("decode result response: %w", err)
	}

	update := domain.StatusUpdate{Status: mapStatus(res.Data.Status), Progress: -1}
	switch update.Status {
	case domain.StatusSucceeded:
		if s.role {
			return s.roleResult(taskID, res), nil
		}
		if res.Data.VideoURL == "" {
			update.Status = domain.StatusFailed
			update.Reason = "task finished without a video url"
			return update, nil
		}
		update.Result = res.Data.VideoURL
	case domain.StatusFailed:
		update.Reason = res.Message
	}
	return update, nil
}

// roleResult interprets a finished subject-identification task. The service
// reports usability inside a nested resp_data JSON document; status 1 means
// a usable human subject was found, and the task id doubles as the subject
// id for subsequent video submissions.
func (s *statusChecker) roleResult(taskID string, res resultResponse) domain.StatusUpdate {
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal([]byte(res.Data.RespData), &resp); err != nil || resp.Status != 1 {
		return domain.StatusUpdate{
			Status:   domain.StatusFailed,
			Reason:   "no usable subject detected in the input image",
			Progress: -1,
		}
	}
	return domain.StatusUpdate{Status: domain.StatusSucceeded, Result: taskID, Progress: -1}
}

// mapStatus translates this family's status vocabulary onto the closed
// normalized set. Anything unrecognized is Unknown, which the poll loop
// treats as non-terminal.
func mapStatus(raw string) domain.TaskStatus {
	switch raw {
	case "in_queue":
		return domain.StatusQueued
	case "generating":
		return domain.StatusRunning
	case "done":
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
