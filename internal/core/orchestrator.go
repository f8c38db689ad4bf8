package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultChunkSize      = 5
	defaultFetchBatchSize = 10
	defaultFetchDelay     = 500 * time.Millisecond
)

// Orchestrator drives the pipeline over an ordered email list in fixed
// size chunks, reporting progress after each one. Cancellation is
// cooperative and honored only at chunk boundaries: an in-flight
// inference call is allowed to finish or time out naturally.
type Orchestrator struct {
	source         EmailSource
	pipeline       *Pipeline
	registry       *Registry
	observer       ProgressObserver
	logger         *zap.Logger
	chunkSize      int
	fetchBatchSize int
	fetchDelay     time.Duration
}

// NewOrchestrator creates an orchestrator. Zero values for chunkSize,
// fetchBatchSize and fetchDelay select the defaults.
func NewOrchestrator(
	source EmailSource,
	pipeline *Pipeline,
	registry *Registry,
	observer ProgressObserver,
	logger *zap.Logger,
	chunkSize int,
	fetchBatchSize int,
	fetchDelay time.Duration,
) *Orchestrator {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if fetchBatchSize <= 0 {
		fetchBatchSize = defaultFetchBatchSize
	}
	if fetchDelay <= 0 {
		fetchDelay = defaultFetchDelay
	}
	if observer == nil {
		observer = ProgressObserverFunc(func(ProgressSnapshot) {})
	}
	return &Orchestrator{
		source:         source,
		pipeline:       pipeline,
		registry:       registry,
		observer:       observer,
		logger:         logger,
		chunkSize:      chunkSize,
		fetchBatchSize: fetchBatchSize,
		fetchDelay:     fetchDelay,
	}
}

// Run fetches every email matching query, sorts them chronologically
// and processes them. The returned error is non-nil only when the
// inference worker failed mid-run.
func (o *Orchestrator) Run(ctx context.Context, query string) (*RunResult, error) {
	if err := o.registry.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	emails, fetchErrs := o.fetchAll(ctx, query)

	// first_seen and status_history correctness depend on processing
	// emails in true chronological order, not arrival order.
	sort.SliceStable(emails, func(i, j int) bool {
		return emails[i].Timestamp.Before(emails[j].Timestamp)
	})

	result, err := o.ProcessEmails(ctx, emails)
	result.Errors = append(fetchErrs, result.Errors...)
	return result, err
}

// ProcessEmails runs the pipeline over emails, which the caller must
// have sorted ascending by timestamp.
func (o *Orchestrator) ProcessEmails(ctx context.Context, emails []*EmailMessage) (*RunResult, error) {
	result := &RunResult{State: RunCompleted}
	total := len(emails)
	totalChunks := (total + o.chunkSize - 1) / o.chunkSize

	o.logger.Info("Starting batch run",
		zap.Int("emails", total),
		zap.Int("chunks", totalChunks),
		zap.Int("chunk_size", o.chunkSize))

	for chunk := 0; chunk < totalChunks; chunk++ {
		lo := chunk * o.chunkSize
		hi := lo + o.chunkSize
		if hi > total {
			hi = total
		}

		// Registry mutations across a chunk are applied strictly in
		// submission order, never interleaved.
		for _, email := range emails[lo:hi] {
			outcome, err := o.pipeline.Process(ctx, email)
			result.Outcomes = append(result.Outcomes, outcome)
			if err != nil {
				result.State = RunFailed
				result.Errors = append(result.Errors, fmt.Sprintf("run aborted: %v", err))
				o.logger.Error("Inference worker failed, stopping run", zap.Error(err))
				o.publish(result, total, chunk+1, totalChunks, "Failed: inference worker unavailable")
				return result, err
			}
			for _, e := range outcome.Errors {
				result.Errors = append(result.Errors, fmt.Sprintf("email %s: %s", email.ID, e))
			}
		}

		o.publish(result, total, chunk+1, totalChunks,
			fmt.Sprintf("Processed chunk %d of %d", chunk+1, totalChunks))

		if ctx.Err() != nil {
			result.State = RunCancelled
			o.logger.Info("Run cancelled",
				zap.Int("processed", len(result.Outcomes)),
				zap.Int("total", total))
			o.publish(result, total, chunk+1, totalChunks, "Cancelled")
			return result, nil
		}
	}

	o.publish(result, total, totalChunks, totalChunks, "Completed")
	o.logger.Info("Batch run completed",
		zap.Int("processed", len(result.Outcomes)),
		zap.Int("applications", o.registry.Len()),
		zap.Int("errors", len(result.Errors)))
	return result, nil
}

func (o *Orchestrator) publish(result *RunResult, total, chunk, totalChunks int, status string) {
	o.observer.Publish(ProgressSnapshot{
		TotalEmails:     total,
		ProcessedEmails: len(result.Outcomes),
		CurrentChunk:    chunk,
		TotalChunks:     totalChunks,
		StatusText:      status,
		Results:         result.Outcomes,
		Errors:          result.Errors,
	})
}

// fetchAll pages through the source for message ids, then fetches full
// messages in bounded-parallel batches with a fixed inter-batch delay.
// A failing batch is recorded and retrieval continues.
func (o *Orchestrator) fetchAll(ctx context.Context, query string) ([]*EmailMessage, []string) {
	var (
		ids    []string
		errs   []string
		cursor string
	)
	for {
		pageIDs, next, err := o.source.FetchPage(ctx, query, cursor)
		if err != nil {
			errs = append(errs, fmt.Sprintf("list messages: %v", err))
			break
		}
		ids = append(ids, pageIDs...)
		if next == "" {
			break
		}
		cursor = next
	}
	o.logger.Info("Listed messages", zap.Int("count", len(ids)), zap.String("query", query))

	var emails []*EmailMessage
	for batch := 0; batch*o.fetchBatchSize < len(ids); batch++ {
		if ctx.Err() != nil {
			errs = append(errs, "fetch interrupted: "+ctx.Err().Error())
			break
		}
		lo := batch * o.fetchBatchSize
		hi := lo + o.fetchBatchSize
		if hi > len(ids) {
			hi = len(ids)
		}

		fetched := make([]*EmailMessage, hi-lo)
		var wg sync.WaitGroup
		var batchErr error
		var mu sync.Mutex
		for i, id := range ids[lo:hi] {
			wg.Add(1)
			go func(i int, id string) {
				defer wg.Done()
				msg, err := o.source.FetchDetail(ctx, id)
				if err != nil {
					mu.Lock()
					batchErr = &FetchError{Batch: batch, Err: err}
					mu.Unlock()
					return
				}
				fetched[i] = msg
			}(i, id)
		}
		wg.Wait()

		if batchErr != nil {
			errs = append(errs, batchErr.Error())
			o.logger.Warn("Fetch batch failed, continuing", zap.Int("batch", batch))
		}
		for _, msg := range fetched {
			if msg != nil {
				emails = append(emails, msg)
			}
		}

		if hi < len(ids) {
			select {
			case <-time.After(o.fetchDelay):
			case <-ctx.Done():
			}
		}
	}
	return emails, errs
}
