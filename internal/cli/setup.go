package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"genvid/internal/adapters/downloader"
	"genvid/internal/adapters/localstorage"
	"genvid/internal/adapters/relay"
	"genvid/internal/config"
	"genvid/internal/core/domain"
	"genvid/internal/core/ports"
	"genvid/internal/history"
	"genvid/internal/logging"
	"genvid/internal/polling"
)

// env bundles everything a pipeline command needs: configuration,
// credentials, and the wired adapters.
type env struct {
	cfg     config.Config
	creds   config.Credentials
	log     *slog.Logger
	poller  *polling.Poller
	storage *localstorage.LocalStorage
	dl      *downloader.HTTPDownloader
	history *history.Store
}

func newEnv() (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := history.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return &env{
		cfg:     cfg,
		creds:   config.LoadCredentials(),
		log:     log,
		poller:  polling.New(cfg.Polling.MaxAttempts, time.Duration(cfg.Polling.IntervalSeconds)*time.Second, log),
		storage: localstorage.NewLocalStorage(cfg.DataDir),
		dl:      downloader.NewHTTPDownloader(),
		history: store,
	}, nil
}

func (e *env) close() {
	if e.history != nil {
		e.history.Close()
	}
}

// uploader picks how input assets become publicly fetchable: the hosting
// relay when a key is configured, otherwise the self-hosted relay started
// with `genvid serve`.
func (e *env) uploader() ports.Uploader {
	if e.creds.RelayKey != "" {
		return relay.NewUploadClient(e.cfg.Relay.Endpoint, e.creds.RelayKey)
	}
	return relay.NewServer(filepath.Join(e.cfg.DataDir, "relay"), e.cfg.Relay.BaseURL)
}

// printSummary reports the job outcome and returns a non-nil error for a
// failed job so the process exits non-zero.
func printSummary(res *domain.JobResult) error {
	fmt.Println("\n=== Job Summary ===")
	fmt.Printf("Job ID:       %s\n", res.Job.ID)
	fmt.Printf("Kind:         %s\n", res.Job.Kind)
	if res.Job.TaskID != "" {
		fmt.Printf("Task ID:      %s\n", res.Job.TaskID)
	}
	fmt.Printf("Success:      %t\n", res.Success)
	if res.Success {
		fmt.Printf("Video:        %s\n", res.ArtifactPath)
	} else {
		fmt.Printf("Error:        %s\n", res.ErrorMessage)
	}
	fmt.Printf("Completed At: %s\n", res.CompletedAt.Format("2006-01-02 15:04:05 UTC"))

	if !res.Success {
		return fmt.Errorf("job %s failed", res.Job.ID)
	}
	return nil
}

func requireFile(path, what string) error {
	if path == "" {
		return fmt.Errorf("%w: --%s is required", domain.ErrConfiguration, what)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("%w: %s %q: %v", domain.ErrConfiguration, what, path, err)
	}
	return nil
}
