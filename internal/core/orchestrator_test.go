package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource serves a fixed message set, paged pageSize ids at a time.
type fakeSource struct {
	messages map[string]*EmailMessage
	order    []string
	pageSize int
	failIDs  map[string]bool
	listErr  error
}

func newFakeSource(emails ...*EmailMessage) *fakeSource {
	s := &fakeSource{
		messages: make(map[string]*EmailMessage),
		pageSize: 2,
		failIDs:  make(map[string]bool),
	}
	for _, e := range emails {
		s.messages[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	return s
}

func (s *fakeSource) FetchPage(_ context.Context, _ string, cursor string) ([]string, string, error) {
	if s.listErr != nil {
		return nil, "", s.listErr
	}
	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &start)
	}
	end := start + s.pageSize
	if end >= len(s.order) {
		return s.order[start:], "", nil
	}
	return s.order[start:end], fmt.Sprintf("%d", end), nil
}

func (s *fakeSource) FetchDetail(_ context.Context, id string) (*EmailMessage, error) {
	if s.failIDs[id] {
		return nil, errors.New("message gone")
	}
	msg, ok := s.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message %s", id)
	}
	return msg, nil
}

// recordingObserver collects every published snapshot.
type recordingObserver struct {
	mu        sync.Mutex
	snapshots []ProgressSnapshot
}

func (r *recordingObserver) Publish(s ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recordingObserver) all() []ProgressSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ProgressSnapshot(nil), r.snapshots...)
}

func newTestOrchestrator(source EmailSource, inf InferenceService, chunkSize int) (*Orchestrator, *recordingObserver, *Registry) {
	store := newMemStore()
	registry := NewRegistry(store, zap.NewNop())
	pipeline := NewPipeline(inf, registry, store, zap.NewNop())
	observer := &recordingObserver{}
	orch := NewOrchestrator(source, pipeline, registry, observer, zap.NewNop(),
		chunkSize, 2, time.Millisecond)
	return orch, observer, registry
}

func emailAt(id string, offsetDays int) *EmailMessage {
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	return testEmail(id, "Update on your application", base.AddDate(0, 0, offsetDays))
}

func TestRunProcessesInChronologicalOrder(t *testing.T) {
	// Arrival order deliberately scrambled.
	source := newFakeSource(
		emailAt("m3", 2), emailAt("m1", 0), emailAt("m5", 4),
		emailAt("m2", 1), emailAt("m4", 3),
	)
	inf := &scriptedInference{jobRelated: false}
	orch, observer, _ := newTestOrchestrator(source, inf, 2)

	result, err := orch.Run(context.Background(), "in:inbox")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.State)
	require.Len(t, result.Outcomes, 5)
	for i, want := range []string{"m1", "m2", "m3", "m4", "m5"} {
		assert.Equal(t, want, result.Outcomes[i].EmailID)
	}

	// One snapshot per chunk plus the terminal one.
	snaps := observer.all()
	require.Len(t, snaps, 4)
	assert.Equal(t, 2, snaps[0].ProcessedEmails)
	assert.Equal(t, 1, snaps[0].CurrentChunk)
	assert.Equal(t, 3, snaps[0].TotalChunks)
	assert.Equal(t, 5, snaps[2].ProcessedEmails)
	assert.Equal(t, "Completed", snaps[3].StatusText)
}

func TestRunAccumulatesApplications(t *testing.T) {
	source := newFakeSource(emailAt("m1", 0), emailAt("m2", 7))
	inf := &scriptedInference{
		jobRelated: true,
		record:     &JobRecord{CompanyName: "Acme", Title: "Engineer"},
		status:     StatusApplied,
	}
	orch, _, registry := newTestOrchestrator(source, inf, 5)

	result, err := orch.Run(context.Background(), "in:inbox")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.State)

	entry, ok := registry.Get(ApplicationKey("Acme", "Engineer"))
	require.True(t, ok)
	assert.Equal(t, 2, entry.EmailCount)
	assert.True(t, result.Outcomes[0].IsFirstInstance)
	assert.False(t, result.Outcomes[1].IsFirstInstance)
}

// cancellingInference cancels the run's context mid-chunk, on its
// nth classification call.
type cancellingInference struct {
	scriptedInference
	cancelAfter int
	cancel      context.CancelFunc
}

func (c *cancellingInference) Classify(ctx context.Context, content string) (bool, error) {
	related, err := c.scriptedInference.Classify(ctx, content)
	if c.classifyCalls == c.cancelAfter {
		c.cancel()
	}
	return related, err
}

func TestProcessEmailsCancelsAtChunkBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inf := &cancellingInference{cancelAfter: 3, cancel: cancel}
	orch, observer, _ := newTestOrchestrator(newFakeSource(), inf, 2)

	emails := []*EmailMessage{
		emailAt("m1", 0), emailAt("m2", 1), emailAt("m3", 2),
		emailAt("m4", 3), emailAt("m5", 4), emailAt("m6", 5),
	}
	result, err := orch.ProcessEmails(ctx, emails)
	require.NoError(t, err)
	assert.Equal(t, RunCancelled, result.State)

	// Cancellation landed inside chunk 2; the chunk still finishes.
	require.Len(t, result.Outcomes, 4)
	assert.Equal(t, "m4", result.Outcomes[3].EmailID)

	snaps := observer.all()
	require.NotEmpty(t, snaps)
	assert.Equal(t, "Cancelled", snaps[len(snaps)-1].StatusText)
	assert.Equal(t, 4, snaps[len(snaps)-1].ProcessedEmails)
}

func TestProcessEmailsFatalErrorFailsRun(t *testing.T) {
	inf := &scriptedInference{
		classifyErr: fmt.Errorf("dispatch: %w", ErrChannelFatal),
	}
	orch, observer, _ := newTestOrchestrator(newFakeSource(), inf, 2)

	emails := []*EmailMessage{emailAt("m1", 0), emailAt("m2", 1)}
	result, err := orch.ProcessEmails(context.Background(), emails)
	assert.ErrorIs(t, err, ErrChannelFatal)
	assert.Equal(t, RunFailed, result.State)
	assert.Len(t, result.Outcomes, 1)

	snaps := observer.all()
	require.NotEmpty(t, snaps)
	assert.Contains(t, snaps[len(snaps)-1].StatusText, "Failed")
}

func TestRunContinuesPastFailedFetchBatch(t *testing.T) {
	source := newFakeSource(
		emailAt("m1", 0), emailAt("m2", 1), emailAt("m3", 2), emailAt("m4", 3),
	)
	source.failIDs["m2"] = true
	inf := &scriptedInference{jobRelated: false}
	orch, _, _ := newTestOrchestrator(source, inf, 5)

	result, err := orch.Run(context.Background(), "in:inbox")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.State)
	// The failed message is dropped, its batch neighbors survive.
	require.Len(t, result.Outcomes, 3)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "batch")
}

func TestRunListErrorYieldsEmptyCompletedRun(t *testing.T) {
	source := newFakeSource()
	source.listErr = errors.New("quota exceeded")
	inf := &scriptedInference{jobRelated: false}
	orch, _, _ := newTestOrchestrator(source, inf, 2)

	result, err := orch.Run(context.Background(), "in:inbox")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, result.State)
	assert.Empty(t, result.Outcomes)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "list messages")
}
