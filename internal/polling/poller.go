// Package polling tracks a remote generation task until it reaches a
// terminal state. One loop serves every service family; the family-specific
// request shape, status vocabulary and result extraction live behind the
// ports.StatusChecker each adapter implements.
package polling

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"genvid/internal/core/domain"
	"genvid/internal/core/ports"
)

// Default attempt budget and inter-attempt delay. Remote generation jobs
// routinely run for minutes, so the loop is patient by default.
const (
	DefaultMaxAttempts = 60
	DefaultInterval    = 5 * time.Second
)

// Outcome is the terminal result of a poll loop. Timeouts and remote
// failures are reported here as values; only context cancellation surfaces
// as an error from Wait.
type Outcome struct {
	Status domain.TaskStatus
	// Result is the artifact reference when Status is StatusSucceeded.
	Result string
	// Reason describes the failure or timeout for the other terminal states.
	Reason string
	// TimedOut is set when the attempt budget ran out before a terminal
	// status was observed.
	TimedOut bool
	Attempts int
}

// Poller repeatedly checks task status with a fixed delay between attempts.
type Poller struct {
	MaxAttempts int
	Interval    time.Duration
	Log         *slog.Logger
}

// New returns a Poller with the given budget; zero values fall back to the
// package defaults.
func New(maxAttempts int, interval time.Duration, log *slog.Logger) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Poller{MaxAttempts: maxAttempts, Interval: interval, Log: log}
}

// Wait polls checker until the task reaches a terminal status, the attempt
// budget is exhausted, or ctx is canceled. Transport errors and unknown
// status strings are transient: they are logged and the loop continues.
// Exhausting the budget is a normal outcome, not an error.
func (p *Poller) Wait(ctx context.Context, checker ports.StatusChecker, taskID string) (Outcome, error) {
	log := p.Log.With("task_id", taskID)
	log.Info("polling task", "max_attempts", p.MaxAttempts, "interval", p.Interval)

	prev := domain.TaskStatus(-1)
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		update, err := checker.Check(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{Attempts: attempt}, ctx.Err()
			}
			// Signing and configuration failures are deterministic;
			// retrying cannot fix them.
			if errors.Is(err, domain.ErrSigning) || errors.Is(err, domain.ErrConfiguration) {
				return Outcome{Attempts: attempt}, err
			}
			log.Warn("status check failed, will retry", "attempt", attempt, "error", err)
		} else {
			if update.Status != prev {
				args := []any{"attempt", attempt, "status", update.Status.String()}
				if update.Progress >= 0 {
					args = append(args, "progress", update.Progress)
				}
				log.Info("task status", args...)
				prev = update.Status
			}

			switch update.Status {
			case domain.StatusSucceeded:
				return Outcome{Status: domain.StatusSucceeded, Result: update.Result, Attempts: attempt}, nil
			case domain.StatusFailed:
				if update.Reason != "" {
					log.Error("task failed", "reason", update.Reason)
				} else {
					log.Error("task failed")
				}
				return Outcome{Status: domain.StatusFailed, Reason: update.Reason, Attempts: attempt}, nil
			}
			// Queued, Running and Unknown all keep the loop going.
		}

		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return Outcome{Attempts: attempt}, ctx.Err()
		case <-time.After(p.Interval):
		}
	}

	log.Warn("task did not finish within the attempt budget", "attempts", p.MaxAttempts)
	return Outcome{
		Status:   domain.StatusUnknown,
		Reason:   "polling budget exhausted before the task finished",
		TimedOut: true,
		Attempts: p.MaxAttempts,
	}, nil
}
