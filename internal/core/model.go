package core

import (
	"time"
)

// UnknownField is the sentinel stored in place of any job field the
// extraction could not determine. Extracted records never carry empty
// or missing fields past the extraction stage.
const UnknownField = "Unknown"

// EmailMessage represents a single email produced by the email source.
// Instances are read-only once fetched.
type EmailMessage struct {
	ID        string
	ThreadID  string
	Subject   string
	Sender    string
	Recipient string
	Timestamp time.Time
	Snippet   string
	Body      string
	Labels    []string
	Unread    bool
}

// JobRecord holds the structured job data extracted from a single email.
type JobRecord struct {
	CompanyName     string `json:"company_name"`
	Title           string `json:"title"`
	Location        string `json:"location"`
	ApplicationDate string `json:"application_date"`
	SalaryRange     string `json:"salary_range"`
	Contact         string `json:"contact"`
	JobID           string `json:"job_id"`
}

// Normalize replaces every empty field with the UnknownField sentinel.
func (r *JobRecord) Normalize() {
	fields := []*string{
		&r.CompanyName, &r.Title, &r.Location,
		&r.ApplicationDate, &r.SalaryRange, &r.Contact, &r.JobID,
	}
	for _, f := range fields {
		if *f == "" {
			*f = UnknownField
		}
	}
}

// HasCompany reports whether the record carries a usable company name.
func (r *JobRecord) HasCompany() bool {
	return r != nil && r.CompanyName != "" && r.CompanyName != UnknownField
}

// ApplicationStatus is the closed set of states an application can be in.
type ApplicationStatus string

const (
	StatusApplied            ApplicationStatus = "applied"
	StatusUnderReview        ApplicationStatus = "under_review"
	StatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	StatusInterviewCompleted ApplicationStatus = "interview_completed"
	StatusOfferReceived      ApplicationStatus = "offer_received"
	StatusOfferAccepted      ApplicationStatus = "offer_accepted"
	StatusRejected           ApplicationStatus = "rejected"
	StatusWithdrawn          ApplicationStatus = "withdrawn"
	StatusPending            ApplicationStatus = "pending"
)

var validStatuses = map[ApplicationStatus]bool{
	StatusApplied:            true,
	StatusUnderReview:        true,
	StatusInterviewScheduled: true,
	StatusInterviewCompleted: true,
	StatusOfferReceived:      true,
	StatusOfferAccepted:      true,
	StatusRejected:           true,
	StatusWithdrawn:          true,
	StatusPending:            true,
}

// ParseStatus validates a raw status string against the closed set.
// Anything outside it resolves to StatusPending.
func ParseStatus(raw string) (ApplicationStatus, bool) {
	s := ApplicationStatus(raw)
	if validStatuses[s] {
		return s, true
	}
	return StatusPending, false
}

// ApplicationEntry tracks one deduplicated application across all the
// emails that matched its key.
type ApplicationEntry struct {
	Key           string              `json:"key"`
	CompanyName   string              `json:"company_name"`
	Title         string              `json:"title"`
	FirstSeen     time.Time           `json:"first_seen"`
	StatusHistory []ApplicationStatus `json:"status_history"`
	CurrentStatus ApplicationStatus   `json:"current_status"`
	EmailCount    int                 `json:"email_count"`
	LastUpdated   time.Time           `json:"last_updated"`
}

// Clone returns a deep copy so stores and snapshots never alias the
// registry's own entries.
func (e *ApplicationEntry) Clone() *ApplicationEntry {
	cp := *e
	cp.StatusHistory = append([]ApplicationStatus(nil), e.StatusHistory...)
	return &cp
}

// ProcessingOutcome aggregates everything the pipeline decided about a
// single email, including every recoverable error it absorbed.
type ProcessingOutcome struct {
	EmailID         string            `json:"email_id"`
	IsJobRelated    bool              `json:"is_job_related"`
	JobData         *JobRecord        `json:"job_data,omitempty"`
	IsFirstInstance bool              `json:"is_first_instance"`
	Status          ApplicationStatus `json:"application_status"`
	Errors          []string          `json:"errors,omitempty"`
	Duration        time.Duration     `json:"duration,omitempty"`
	ProcessedAt     time.Time         `json:"processed_at"`
}

// RunState is the terminal state of an orchestrated run.
type RunState string

const (
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
	RunFailed    RunState = "failed"
)

// RunResult is what a batch run hands back to the caller: the outcome
// for every email that was processed plus the run-level error list.
type RunResult struct {
	State    RunState
	Outcomes []*ProcessingOutcome
	Errors   []string
}

// ProgressSnapshot is published to the observer once per chunk and once
// at the terminal state.
type ProgressSnapshot struct {
	TotalEmails     int
	ProcessedEmails int
	CurrentChunk    int
	TotalChunks     int
	StatusText      string
	Results         []*ProcessingOutcome
	Errors          []string
}
