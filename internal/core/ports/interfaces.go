package ports

import (
	"context"

	"genvid/internal/core/domain"
)

// StatusChecker performs one status request for a remote task and maps the
// service-specific response onto the normalized status set. Each service
// family implements its own checker; the poll loop only sees this contract.
type StatusChecker interface {
	// Check issues a single status request. A transport or HTTP error is
	// returned as err and treated as transient by the poll loop.
	Check(ctx context.Context, taskID string) (domain.StatusUpdate, error)
}

// Uploader makes a local file publicly fetchable and returns its URL.
// The remote generation APIs only accept public URLs for input assets.
type Uploader interface {
	Publish(ctx context.Context, localPath string) (string, error)
}

// Downloader streams a remote artifact to a local file.
type Downloader interface {
	// Fetch downloads url into destPath. The write is streamed; the whole
	// payload is never held in memory.
	Fetch(ctx context.Context, url, destPath string) error
}

// Storage persists job artifacts on the local filesystem.
type Storage interface {
	// InitJob creates the job directory structure.
	InitJob(ctx context.Context, jobID string) error

	// SaveInput saves the job input record (parameters, timestamps).
	SaveInput(ctx context.Context, jobID string, data []byte) error

	// Stage copies a local input asset into the job directory and returns
	// the staged path.
	Stage(ctx context.Context, jobID, srcPath, filename string) (string, error)

	// ArtifactPath returns the destination path for the final video.
	ArtifactPath(jobID, filename string) string

	// JobPath returns the filesystem path for a given job ID.
	JobPath(jobID string) string
}

// Recorder appends completed jobs to a durable ledger.
type Recorder interface {
	Record(ctx context.Context, res domain.JobResult) error
}
