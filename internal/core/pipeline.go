package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Pipeline runs the per-email stage sequence:
//
//	Classify -> (job related? ExtractJobData : Finalize)
//	         -> CheckFirstInstance -> DetermineStatus -> Finalize
//
// Every stage catches its own faults and substitutes a safe default so
// a single email can never abort the run; the one exception is a fatal
// inference-worker failure, which is returned to the caller.
type Pipeline struct {
	inference InferenceService
	registry  *Registry
	store     RegistryStore
	logger    *zap.Logger
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(inference InferenceService, registry *Registry, store RegistryStore, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		inference: inference,
		registry:  registry,
		store:     store,
		logger:    logger,
	}
}

// Process runs the full stage sequence for one email. The returned
// error is non-nil only when the inference worker itself has failed.
func (p *Pipeline) Process(ctx context.Context, email *EmailMessage) (*ProcessingOutcome, error) {
	started := time.Now()
	out := &ProcessingOutcome{
		EmailID: email.ID,
		Status:  StatusPending,
	}
	content := emailContent(email)

	// Classify
	jobRelated, err := p.inference.Classify(ctx, content)
	if err != nil {
		out.IsJobRelated = false
		out.Errors = append(out.Errors, fmt.Sprintf("classify: %v", err))
		if IsFatal(err) {
			return p.finalize(ctx, out, started), err
		}
		p.logger.Warn("Classification failed, skipping email",
			zap.String("email_id", email.ID), zap.Error(err))
		return p.finalize(ctx, out, started), nil
	}
	out.IsJobRelated = jobRelated
	if !jobRelated {
		return p.finalize(ctx, out, started), nil
	}

	// ExtractJobData: a missing extraction degrades the outcome, it
	// never halts the run for this email.
	rec, err := p.inference.ExtractJobData(ctx, content)
	if err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("extract: %v", err))
		if IsFatal(err) {
			return p.finalize(ctx, out, started), err
		}
		rec = nil
	}
	out.JobData = rec

	// CheckFirstInstance
	var key string
	if rec.HasCompany() {
		key = ApplicationKey(rec.CompanyName, rec.Title)
		out.IsFirstInstance = p.registry.Upsert(key, rec, email.Timestamp)
	} else {
		out.IsFirstInstance = false
	}

	// DetermineStatus
	status, err := p.inference.DetermineStatus(ctx, content, email.Subject)
	if err != nil {
		// The default is surfaced in the outcome without being
		// recorded as a real transition.
		out.Status = StatusPending
		out.Errors = append(out.Errors, fmt.Sprintf("status: %v", err))
		if IsFatal(err) {
			return p.finalize(ctx, out, started), err
		}
		return p.finalize(ctx, out, started), nil
	}
	out.Status = status
	if key != "" {
		if err := p.registry.AppendStatus(key, status); err != nil && err != ErrKeyMissing {
			out.Errors = append(out.Errors, fmt.Sprintf("registry: %v", err))
		}
	}

	return p.finalize(ctx, out, started), nil
}

// finalize stamps the outcome, persists the registry and records the
// outcome in the run history. The stamps go on before persisting so
// history rows carry them too. Persistence failures degrade the
// outcome rather than fail it.
func (p *Pipeline) finalize(ctx context.Context, out *ProcessingOutcome, started time.Time) *ProcessingOutcome {
	out.Duration = time.Since(started)
	out.ProcessedAt = time.Now()
	if err := p.registry.Flush(ctx); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("persist registry: %v", err))
		p.logger.Error("Failed to persist registry", zap.Error(err))
	}
	if err := p.store.AppendHistory(ctx, out); err != nil {
		out.Errors = append(out.Errors, fmt.Sprintf("persist history: %v", err))
		p.logger.Error("Failed to persist outcome history", zap.Error(err))
	}
	return out
}

// emailContent flattens the fields the inference boundary needs into a
// single text block.
func emailContent(email *EmailMessage) string {
	body := email.Body
	if body == "" {
		body = email.Snippet
	}
	return fmt.Sprintf("From: %s\nSubject: %s\nDate: %s\n\n%s",
		email.Sender, email.Subject, email.Timestamp.Format(time.RFC3339), body)
}
