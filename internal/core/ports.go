package core

import (
	"context"
)

// InferenceService defines the typed operations the pipeline needs from
// the inference boundary.
type InferenceService interface {
	// Classify determines whether the content is job-application related
	Classify(ctx context.Context, content string) (bool, error)

	// ExtractJobData extracts structured job data from the content.
	// A nil record with nil error means extraction gave up cleanly.
	ExtractJobData(ctx context.Context, content string) (*JobRecord, error)

	// DetermineStatus determines the application status conveyed by the
	// content. Failures resolve to StatusPending.
	DetermineStatus(ctx context.Context, content, subject string) (ApplicationStatus, error)
}

// EmailSource defines the interface for fetching emails from a remote mailbox
type EmailSource interface {
	// FetchPage lists message ids matching the query, resuming from
	// cursor. An empty next cursor ends pagination.
	FetchPage(ctx context.Context, query, cursor string) (ids []string, next string, err error)

	// FetchDetail fetches the full message for one id
	FetchDetail(ctx context.Context, id string) (*EmailMessage, error)
}

// RegistryStore defines the persistence contract for the application
// registry and the per-email outcome history.
type RegistryStore interface {
	// LoadRegistry loads every known application entry
	LoadRegistry(ctx context.Context) (map[string]*ApplicationEntry, error)

	// SaveRegistry persists the full registry map
	SaveRegistry(ctx context.Context, entries map[string]*ApplicationEntry) error

	// AppendHistory records one processing outcome
	AppendHistory(ctx context.Context, outcome *ProcessingOutcome) error

	// LoadHistory returns up to limit outcomes, most recent first
	LoadHistory(ctx context.Context, limit int) ([]*ProcessingOutcome, error)
}

// ProgressObserver receives a snapshot after every chunk and once at
// the terminal state of a run.
type ProgressObserver interface {
	Publish(snapshot ProgressSnapshot)
}

// ProgressObserverFunc adapts a plain function to the observer interface.
type ProgressObserverFunc func(snapshot ProgressSnapshot)

func (f ProgressObserverFunc) Publish(snapshot ProgressSnapshot) { f(snapshot) }
