// Package inference implements the typed operations (classify, extract,
// determine-status) on top of the rpc channel.
package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/rpc"
	"github.com/jobsift/jobsift/internal/utils"
)

// DefaultMaxContentSize bounds the email prefix sent with each request.
const DefaultMaxContentSize = 2000

// Adapter routes the three inference operations through the rpc
// channel, truncating content to a bounded prefix first.
type Adapter struct {
	channel        *rpc.Channel
	textProcessor  *utils.TextProcessor
	maxContentSize int
	logger         *zap.Logger
}

// NewAdapter creates an adapter over the channel. A zero
// maxContentSize selects DefaultMaxContentSize.
func NewAdapter(channel *rpc.Channel, textProcessor *utils.TextProcessor, maxContentSize int, logger *zap.Logger) *Adapter {
	if maxContentSize <= 0 {
		maxContentSize = DefaultMaxContentSize
	}
	return &Adapter{
		channel:        channel,
		textProcessor:  textProcessor,
		maxContentSize: maxContentSize,
		logger:         logger,
	}
}

const classifyPrompt = `You are a job-application email detector. Decide whether the following email is related to a job application the recipient has made (confirmation, recruiter reply, interview invitation, offer, rejection, and so on).
Respond with a JSON object containing:
- is_job_related: boolean (true if the email concerns a job application, false otherwise)

Email:
%s

Respond only with the JSON object and nothing else.`

const extractPrompt = `You are a job-application email parser. Extract the structured job data from the following email.
Respond with a JSON object containing:
- company_name: string (the hiring company)
- title: string (the job title)
- location: string
- application_date: string
- salary_range: string
- contact: string
- job_id: string

Use "Unknown" for any field you cannot determine. If the email carries no job data at all, respond with null.

Email:
%s

Respond only with the JSON object and nothing else.`

const statusPrompt = `You are a job-application status detector. Determine which status this email conveys for the application it concerns.
The status must be exactly one of: applied, under_review, interview_scheduled, interview_completed, offer_received, offer_accepted, rejected, withdrawn, pending.

Subject: %s
Email:
%s

Respond only with the status value and nothing else.`

type classifyResponse struct {
	IsJobRelated bool `json:"is_job_related"`
}

// Classify determines whether the content describes job-application
// activity. Fails soft: on channel error or malformed output it
// returns false together with a recoverable error.
func (a *Adapter) Classify(ctx context.Context, content string) (bool, error) {
	payload := fmt.Sprintf(classifyPrompt, a.textProcessor.ProcessText(content, a.maxContentSize))

	raw, err := a.channel.Dispatch(ctx, rpc.KindClassify, payload)
	if err != nil {
		return false, err
	}

	var resp classifyResponse
	if err := unmarshalWithFallback(raw, &resp); err != nil {
		a.logger.Warn("Unparseable classification output", zap.Error(err))
		return false, fmt.Errorf("%w: %v", core.ErrMalformedOutput, err)
	}
	return resp.IsJobRelated, nil
}

// ExtractJobData parses the boundary's response as a structured job
// record. On irrecoverable parse failure it returns nil and the
// failure; a "null" answer returns nil without error.
func (a *Adapter) ExtractJobData(ctx context.Context, content string) (*core.JobRecord, error) {
	payload := fmt.Sprintf(extractPrompt, a.textProcessor.ProcessText(content, a.maxContentSize))

	raw, err := a.channel.Dispatch(ctx, rpc.KindExtract, payload)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "null" {
		return nil, nil
	}

	var rec core.JobRecord
	if err := unmarshalWithFallback(raw, &rec); err != nil {
		a.logger.Warn("Unparseable extraction output", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedOutput, err)
	}
	rec.Normalize()
	return &rec, nil
}

// DetermineStatus validates the boundary's answer against the closed
// status set. Any value outside it resolves to pending; any channel
// failure returns pending with the error.
func (a *Adapter) DetermineStatus(ctx context.Context, content, subject string) (core.ApplicationStatus, error) {
	payload := fmt.Sprintf(statusPrompt, subject, a.textProcessor.ProcessText(content, a.maxContentSize))

	raw, err := a.channel.Dispatch(ctx, rpc.KindStatus, payload)
	if err != nil {
		return core.StatusPending, err
	}

	candidate := strings.ToLower(strings.Trim(strings.TrimSpace(raw), `"'.`))
	status, ok := core.ParseStatus(candidate)
	if !ok {
		a.logger.Warn("Status outside the known set, defaulting to pending",
			zap.String("raw", candidate))
	}
	return status, nil
}

// unmarshalWithFallback parses raw as JSON, falling back to the
// substring between the first '{' and the last '}' before giving up.
func unmarshalWithFallback(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}

	jsonStart := strings.IndexByte(raw, '{')
	jsonEnd := strings.LastIndexByte(raw, '}')
	if jsonStart < 0 || jsonEnd < jsonStart {
		return fmt.Errorf("no JSON object in response")
	}
	if err := json.Unmarshal([]byte(raw[jsonStart:jsonEnd+1]), v); err != nil {
		return fmt.Errorf("failed to parse response as JSON: %w", err)
	}
	return nil
}
