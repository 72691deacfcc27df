package domain

import "time"

// JobKind identifies which generation pipeline a job runs through.
type JobKind string

const (
	// KindGenerate is image-to-video generation (token-authenticated family).
	KindGenerate JobKind = "generate"
	// KindAvatar is audio-driven talking-head generation (signed family).
	KindAvatar JobKind = "avatar"
)

// TaskStatus is the normalized status of a remote generation task.
// Every service family maps its own vocabulary onto this closed set.
type TaskStatus int

const (
	StatusUnknown TaskStatus = iota
	StatusQueued
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s TaskStatus) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further polling should happen for this status.
func (s TaskStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// TaskHandle references one in-flight or already-completed remote task.
// Either TaskID is set (asynchronous path) or Resolved is true and Result
// carries the artifact reference the service returned synchronously.
type TaskHandle struct {
	TaskID   string
	Resolved bool
	Result   string
}

// StatusUpdate is the outcome of a single status check.
type StatusUpdate struct {
	Status TaskStatus
	// Result is the artifact reference (video URL or success marker),
	// populated only when Status is StatusSucceeded.
	Result string
	// Reason carries service diagnostics when Status is StatusFailed.
	Reason string
	// Progress is a best-effort percentage; -1 when the service does not
	// report one.
	Progress int
}

// Job represents a single generation job.
type Job struct {
	ID        string    `json:"job_id"`
	Kind      JobKind   `json:"kind"`
	Model     string    `json:"model"`
	Prompt    string    `json:"prompt,omitempty"`
	TaskID    string    `json:"task_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// JobResult holds the outcome of a completed job. The public contract is
// two-outcome: either Success with ArtifactPath set, or a failure described
// by ErrorMessage. Remote failures and poll timeouts land here as values,
// not as Go errors.
type JobResult struct {
	Job          Job
	ArtifactPath string
	Success      bool
	ErrorMessage string
	CompletedAt  time.Time
}
