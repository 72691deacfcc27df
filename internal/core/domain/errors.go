package domain

import "errors"

// Error categories for the pipeline. Only ErrConfiguration and ErrSigning
// may surface before a network call is made; everything downstream of
// submission degrades to a JobResult with an error message instead of
// propagating through the caller.
var (
	// ErrConfiguration means credentials or endpoints are missing or
	// malformed. Fatal, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrSigning means the request signer was given input it cannot sign
	// (empty credentials, unparseable URL). The request must not be sent.
	ErrSigning = errors.New("signing error")

	// ErrSubmission means job creation got a non-2xx response or a 2xx
	// body carrying neither a task id nor a resolved result. Fatal for the
	// job; retry policy belongs to the caller.
	ErrSubmission = errors.New("submission error")

	// ErrDownload means the artifact stream failed after the remote job
	// itself succeeded.
	ErrDownload = errors.New("download error")
)
