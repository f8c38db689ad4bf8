package inference

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
	"github.com/jobsift/jobsift/internal/rpc"
	"github.com/jobsift/jobsift/internal/utils"
)

// scriptedTransport answers every request with a fixed result string,
// resolved asynchronously the way the real worker does.
type scriptedTransport struct {
	channel *rpc.Channel
	answers map[rpc.RequestKind]string
	lastReq rpc.Request
}

func (t *scriptedTransport) Send(req rpc.Request) error {
	t.lastReq = req
	answer := t.answers[req.Kind]
	go t.channel.Resolve(rpc.Response{ID: req.ID, Result: answer})
	return nil
}

func newTestAdapter(answers map[rpc.RequestKind]string) (*Adapter, *scriptedTransport) {
	transport := &scriptedTransport{answers: answers}
	channel := rpc.NewChannel(transport, time.Second, zap.NewNop())
	transport.channel = channel
	adapter := NewAdapter(channel, utils.NewTextProcessor(zap.NewNop()), 0, zap.NewNop())
	return adapter, transport
}

func TestClassifyParsesCleanJSON(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindClassify: `{"is_job_related": true}`,
	})
	related, err := adapter.Classify(context.Background(), "Subject: Interview invitation")
	require.NoError(t, err)
	assert.True(t, related)
}

func TestClassifyParsesJSONWrappedInProse(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindClassify: "Sure, here is the answer:\n```json\n{\"is_job_related\": false}\n```\nLet me know!",
	})
	related, err := adapter.Classify(context.Background(), "Subject: 50% off")
	require.NoError(t, err)
	assert.False(t, related)
}

func TestClassifyMalformedOutputFailsSoft(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindClassify: "I am not sure about this one.",
	})
	related, err := adapter.Classify(context.Background(), "Subject: hmm")
	assert.ErrorIs(t, err, core.ErrMalformedOutput)
	assert.False(t, related)
}

func TestExtractJobDataNormalizesMissingFields(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindExtract: `{"company_name": "Acme", "title": "Engineer"}`,
	})
	rec, err := adapter.ExtractJobData(context.Background(), "Thanks for applying to Acme")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "Acme", rec.CompanyName)
	assert.Equal(t, "Engineer", rec.Title)
	assert.Equal(t, core.UnknownField, rec.Location)
	assert.Equal(t, core.UnknownField, rec.SalaryRange)
}

func TestExtractJobDataNullAnswer(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindExtract: "null",
	})
	rec, err := adapter.ExtractJobData(context.Background(), "Weekly jobs digest")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestExtractJobDataGibberish(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindExtract: "no structured data here",
	})
	rec, err := adapter.ExtractJobData(context.Background(), "whatever")
	assert.ErrorIs(t, err, core.ErrMalformedOutput)
	assert.Nil(t, rec)
}

func TestDetermineStatusAcceptsKnownValue(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindStatus: "  Interview_Scheduled \n",
	})
	status, err := adapter.DetermineStatus(context.Background(), "body", "Interview next week")
	require.NoError(t, err)
	assert.Equal(t, core.StatusInterviewScheduled, status)
}

func TestDetermineStatusUnknownValueDefaultsToPending(t *testing.T) {
	adapter, _ := newTestAdapter(map[rpc.RequestKind]string{
		rpc.KindStatus: "ghosted",
	})
	status, err := adapter.DetermineStatus(context.Background(), "body", "subject")
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, status)
}

func TestContentIsTruncatedBeforeDispatch(t *testing.T) {
	transport := &scriptedTransport{answers: map[rpc.RequestKind]string{
		rpc.KindClassify: `{"is_job_related": true}`,
	}}
	channel := rpc.NewChannel(transport, time.Second, zap.NewNop())
	transport.channel = channel
	adapter := NewAdapter(channel, utils.NewTextProcessor(zap.NewNop()), 50, zap.NewNop())

	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	_, err := adapter.Classify(context.Background(), string(long))
	require.NoError(t, err)
	assert.Less(t, len(transport.lastReq.Payload), len(classifyPrompt)+100)
}
