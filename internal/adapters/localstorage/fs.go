package localstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage implements ports.Storage for the local filesystem. Each job
// gets its own directory under {BaseDir}/jobs/{id} holding the input record,
// staged input assets and the final video.
type LocalStorage struct {
	BaseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
func NewLocalStorage(baseDir string) *LocalStorage {
	return &LocalStorage{BaseDir: baseDir}
}

// InitJob creates the job directory.
func (s *LocalStorage) InitJob(ctx context.Context, jobID string) error {
	path := s.JobPath(jobID)
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create job directory %s: %w", path, err)
	}
	return nil
}

// SaveInput saves the job input record.
func (s *LocalStorage) SaveInput(ctx context.Context, jobID string, data []byte) error {
	path := filepath.Join(s.JobPath(jobID), "input.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save input.json: %w", err)
	}
	return nil
}

// Stage copies a local asset into the job directory so every input the job
// depended on lives next to its output.
func (s *LocalStorage) Stage(ctx context.Context, jobID, srcPath, filename string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open asset %s: %w", srcPath, err)
	}
	defer src.Close()

	destPath := filepath.Join(s.JobPath(jobID), filename)
	dest, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create staged asset %s: %w", destPath, err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, src); err != nil {
		return "", fmt.Errorf("failed to stage asset: %w", err)
	}
	return destPath, nil
}

// ArtifactPath returns the destination path for the final video.
func (s *LocalStorage) ArtifactPath(jobID, filename string) string {
	if filename == "" {
		filename = "video.mp4"
	}
	return filepath.Join(s.JobPath(jobID), filename)
}

// JobPath returns the path for a job directory.
func (s *LocalStorage) JobPath(jobID string) string {
	return filepath.Join(s.BaseDir, "jobs", jobID)
}
