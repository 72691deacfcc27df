// Package service coordinates the generation workflow: stage and publish
// inputs, submit the remote job, poll it to a terminal state, and download
// the artifact.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"genvid/internal/adapters/ark"
	"genvid/internal/core/domain"
	"genvid/internal/core/ports"
	"genvid/internal/logging"
	"genvid/internal/polling"
)

// ArkAPI is the token service family, as used by the generate pipeline.
type ArkAPI interface {
	CreateTask(ctx context.Context, model string, content []ark.ContentItem) (domain.TaskHandle, error)
	ports.StatusChecker
}

// VisualAPI is the signed service family, as used by the avatar pipeline.
type VisualAPI interface {
	SubmitRole(ctx context.Context, imageURL string) (domain.TaskHandle, error)
	SubmitVideo(ctx context.Context, imageURL, audioURL string) (domain.TaskHandle, error)
	RoleStatus() ports.StatusChecker
	VideoStatus() ports.StatusChecker
}

// Orchestrator coordinates the generation workflow.
type Orchestrator struct {
	ark        ArkAPI
	visual     VisualAPI
	uploader   ports.Uploader
	downloader ports.Downloader
	storage    ports.Storage
	poller     *polling.Poller
	recorder   ports.Recorder
	logger     *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. recorder may be nil when no
// history ledger is configured.
func NewOrchestrator(
	arkAPI ArkAPI,
	visualAPI VisualAPI,
	uploader ports.Uploader,
	downloader ports.Downloader,
	storage ports.Storage,
	poller *polling.Poller,
	recorder ports.Recorder,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ark:        arkAPI,
		visual:     visualAPI,
		uploader:   uploader,
		downloader: downloader,
		storage:    storage,
		poller:     poller,
		recorder:   recorder,
		logger:     logger,
	}
}

// GenerateRequest describes an image-to-video job.
type GenerateRequest struct {
	ImagePath    string
	EndFramePath string // optional last frame
	Prompt       string
	Model        string
	Resolution   string // 480p, 720p, 1080p
	Duration     string // 5s, 10s
	CameraFixed  bool
	Seed         int64 // negative means unset
}

// AvatarRequest describes an audio-driven talking-head job.
type AvatarRequest struct {
	ImagePath string
	AudioPath string
}

// Generate runs an image-to-video job through the token service family.
// Remote failures, poll timeouts and download errors come back as a failed
// JobResult with err == nil; err is reserved for configuration problems and
// context cancellation.
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*domain.JobResult, error) {
	prompt := formatPrompt(req)
	job := domain.Job{
		ID:        uuid.New().String(),
		Kind:      domain.KindGenerate,
		Model:     req.Model,
		Prompt:    prompt,
		CreatedAt: time.Now().UTC(),
	}
	result := &domain.JobResult{Job: job}
	log := logging.WithJob(o.logger, job.ID)
	log.Info("starting generate job", "model", req.Model)

	if err := o.initJob(ctx, result); err != nil {
		return o.finish(ctx, log, result, err)
	}

	firstURL, err := o.publishInput(ctx, job.ID, req.ImagePath, "first_frame")
	if err != nil {
		return o.finish(ctx, log, result, err)
	}
	content := []ark.ContentItem{ark.Text(prompt), ark.Image(firstURL, "")}

	if req.EndFramePath != "" {
		endURL, err := o.publishInput(ctx, job.ID, req.EndFramePath, "end_frame")
		if err != nil {
			return o.finish(ctx, log, result, err)
		}
		// Frame roles are only meaningful (and only accepted) when both
		// frames are present.
		content[1].Role = "first_frame"
		content = append(content, ark.Image(endURL, "last_frame"))
	}

	handle, err := o.ark.CreateTask(ctx, req.Model, content)
	if err != nil {
		return o.finish(ctx, log, result, err)
	}
	result.Job.TaskID = handle.TaskID

	videoURL, err := o.resolve(ctx, handle, o.ark)
	if err != nil {
		return o.finish(ctx, log, result, err)
	}

	return o.download(ctx, log, result, videoURL)
}

// Avatar runs a talking-head job through the signed service family: the
// subject image is validated by a separate identification task before the
// generation task is submitted.
func (o *Orchestrator) Avatar(ctx context.Context, req AvatarRequest) (*domain.JobResult, error) {
	job := domain.Job{
		ID:        uuid.New().String(),
		Kind:      domain.KindAvatar,
		CreatedAt: time.Now().UTC(),
	}
	result := &domain.JobResult{Job: job}
	log := logging.WithJob(o.logger, job.ID)
	log.Info("starting avatar job")

	if err := o.initJob(ctx, result); err != nil {
		return o.finish(ctx, log, result, err)
	}

	imageURL, err := o.publishInput(ctx, job.ID, req.ImagePath, "subject")
	if err != nil {
		return o.finish(ctx, log, result, err)
	}
	audioURL, err := o.publishInput(ctx, job.ID, req.AudioPath, "voice")
	if err != nil {
		return o.finish(ctx, log, result, err)
	}

	// Subject identification first: the service refuses generation for
	// images without a usable human subject.
	roleHandle, err := o.visual.SubmitRole(ctx, imageURL)
	if err != nil {
		return o.finish(ctx, log, result, err)
	}
	if !roleHandle.Resolved {
		if _, err := o.resolveWith(ctx, roleHandle, o.visual.RoleStatus(), "subject identification"); err != nil {
			return o.finish(ctx, log, result, err)
		}
	}
	log.Info("subject identified")

	handle, err := o.visual.SubmitVideo(ctx, imageURL, audioURL)
	if err != nil {
		return o.finish(ctx, log, result, err)
	}
	result.Job.TaskID = handle.TaskID

	videoURL, err := o.resolveWith(ctx, handle, o.visual.VideoStatus(), "video generation")
	if err != nil {
		return o.finish(ctx, log, result, err)
	}

	return o.download(ctx, log, result, videoURL)
}

func (o *Orchestrator) initJob(ctx context.Context, result *domain.JobResult) error {
	if err := o.storage.InitJob(ctx, result.Job.ID); err != nil {
		return fmt.Errorf("init job: %w", err)
	}
	record, _ := json.MarshalIndent(result.Job, "", "  ")
	if err := o.storage.SaveInput(ctx, result.Job.ID, record); err != nil {
		return fmt.Errorf("save input record: %w", err)
	}
	return nil
}

// publishInput stages a local asset next to the job's output and makes the
// staged copy publicly fetchable.
func (o *Orchestrator) publishInput(ctx context.Context, jobID, srcPath, name string) (string, error) {
	staged, err := o.storage.Stage(ctx, jobID, srcPath, name+filepath.Ext(srcPath))
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", name, err)
	}
	url, err := o.uploader.Publish(ctx, staged)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", name, err)
	}
	return url, nil
}

// resolve turns a task handle into an artifact URL, polling when needed.
func (o *Orchestrator) resolve(ctx context.Context, handle domain.TaskHandle, checker ports.StatusChecker) (string, error) {
	return o.resolveWith(ctx, handle, checker, "task")
}

func (o *Orchestrator) resolveWith(ctx context.Context, handle domain.TaskHandle, checker ports.StatusChecker, stage string) (string, error) {
	if handle.Resolved {
		return handle.Result, nil
	}
	outcome, err := o.poller.Wait(ctx, checker, handle.TaskID)
	if err != nil {
		return "", err
	}
	switch {
	case outcome.TimedOut:
		return "", fmt.Errorf("%s timed out: %s", stage, outcome.Reason)
	case outcome.Status == domain.StatusFailed:
		if outcome.Reason != "" {
			return "", fmt.Errorf("%s failed: %s", stage, outcome.Reason)
		}
		return "", fmt.Errorf("%s failed", stage)
	default:
		return outcome.Result, nil
	}
}

func (o *Orchestrator) download(ctx context.Context, log *slog.Logger, result *domain.JobResult, videoURL string) (*domain.JobResult, error) {
	dest := o.storage.ArtifactPath(result.Job.ID, "video.mp4")
	log.Info("downloading artifact", "dest", dest)
	if err := o.downloader.Fetch(ctx, videoURL, dest); err != nil {
		return o.finish(ctx, log, result, err)
	}

	result.Success = true
	result.ArtifactPath = dest
	log.Info("job completed", "artifact", dest)
	return o.finish(ctx, log, result, nil)
}

// finish stamps the result, records it, and decides how the failure (if
// any) surfaces. Configuration and signing problems, plus context
// cancellation, propagate as Go errors; everything else degrades to a
// failed JobResult so the caller gets the two-outcome contract.
func (o *Orchestrator) finish(ctx context.Context, log *slog.Logger, result *domain.JobResult, err error) (*domain.JobResult, error) {
	result.CompletedAt = time.Now().UTC()

	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		log.Error("job failed", "error", err)
	}
	o.record(ctx, result)

	if err != nil && (errors.Is(err, domain.ErrConfiguration) ||
		errors.Is(err, domain.ErrSigning) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)) {
		return result, err
	}
	return result, nil
}

func (o *Orchestrator) record(ctx context.Context, result *domain.JobResult) {
	if o.recorder == nil {
		return
	}
	// Recording must not mask the job outcome; use a fresh context so a
	// canceled job still lands in the ledger.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := o.recorder.Record(recordCtx, *result); err != nil {
		o.logger.Warn("failed to record job in history", "job_id", result.Job.ID, "error", err)
	}
}

// formatPrompt folds the request parameters into the prompt string the way
// the token service expects them.
func formatPrompt(req GenerateRequest) string {
	duration := strings.TrimSuffix(req.Duration, "s")
	prompt := fmt.Sprintf("%s --resolution %s --duration %s --camerafixed %t",
		req.Prompt, req.Resolution, duration, req.CameraFixed)
	if req.Seed >= 0 {
		prompt += fmt.Sprintf(" --seed %d", req.Seed)
	}
	return strings.TrimSpace(prompt)
}
