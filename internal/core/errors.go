package core

import (
	"errors"
	"fmt"
)

var (
	// ErrChannelTimeout is returned when an inference request exceeds
	// its deadline. Recoverable: stages substitute a safe default.
	ErrChannelTimeout = errors.New("inference request timed out")

	// ErrChannelCancelled is returned when the caller's context is
	// cancelled while a request is still pending. Recoverable.
	ErrChannelCancelled = errors.New("inference request cancelled")

	// ErrChannelFatal is returned when the inference worker itself has
	// failed. It rejects all pending requests and stops the run.
	ErrChannelFatal = errors.New("inference worker failed")

	// ErrMalformedOutput is returned when the boundary's response could
	// not be validated or parsed. Recoverable.
	ErrMalformedOutput = errors.New("malformed inference output")

	// ErrKeyMissing is returned when a registry operation targets an
	// unknown application key. Callers treat it as a soft no-op.
	ErrKeyMissing = errors.New("application key not found")
)

// IsFatal reports whether err must terminate the whole run rather than
// degrade a single email's outcome.
func IsFatal(err error) bool {
	return errors.Is(err, ErrChannelFatal)
}

// FetchError records the failure of one retrieval batch. Retrieval
// continues with the remaining batches.
type FetchError struct {
	Batch int
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch batch %d failed: %v", e.Batch, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
