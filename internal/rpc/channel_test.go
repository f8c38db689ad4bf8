package rpc

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

	"github.com/jobsift/jobsift/internal/core"
)

// echoTransport resolves every request asynchronously with its own
// payload as the result.
type echoTransport struct {
	channel *Channel
}

func (t *echoTransport) Send(req Request) error {
	go t.channel.Resolve(Response{ID: req.ID, Result: req.Payload})
	return nil
}

// silentTransport accepts requests and never responds.
type silentTransport struct {
	mu   sync.Mutex
	seen []Request
}

func (t *silentTransport) Send(req Request) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = append(t.seen, req)
	return nil
}

func (t *silentTransport) requests() []Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Request(nil), t.seen...)
}

func TestDispatchResolvesResponse(t *testing.T) {
	transport := &echoTransport{}
	channel := NewChannel(transport, time.Second, zap.NewNop())
	transport.channel = channel

	result, err := channel.Dispatch(context.Background(), KindClassify, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
	assert.Equal(t, 0, channel.PendingCount())
}

func TestDispatchRejectsUnknownKind(t *testing.T) {
	channel := NewChannel(&silentTransport{}, time.Second, zap.NewNop())

	_, err := channel.Dispatch(context.Background(), RequestKind("bogus"), "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedOutput)
	assert.Equal(t, 0, channel.PendingCount())
}

func TestDispatchTimesOut(t *testing.T) {
	channel := NewChannel(&silentTransport{}, 20*time.Millisecond, zap.NewNop())

	_, err := channel.Dispatch(context.Background(), KindClassify, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrChannelTimeout)
	assert.Equal(t, 0, channel.PendingCount())
}

func TestDispatchHonorsContextCancel(t *testing.T) {
	channel := NewChannel(&silentTransport{}, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := channel.Dispatch(ctx, KindClassify, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrChannelCancelled)
	assert.NotErrorIs(t, err, core.ErrChannelTimeout)
	assert.Equal(t, 0, channel.PendingCount())
}

func TestResolveUnknownIDIsDiscarded(t *testing.T) {
	channel := NewChannel(&silentTransport{}, time.Second, zap.NewNop())

	// Must not panic or create an entry.
	channel.Resolve(Response{ID: "never-dispatched", Result: "x"})
	assert.Equal(t, 0, channel.PendingCount())
}

func TestErrorResponseResolvesAsMalformed(t *testing.T) {
	transport := &silentTransport{}
	channel := NewChannel(transport, time.Second, zap.NewNop())

	done := make(chan error, 1)
	go func() {
		_, err := channel.Dispatch(context.Background(), KindExtract, "x")
		done <- err
	}()

	var reqs []Request
	require.Eventually(t, func() bool {
		reqs = transport.requests()
		return len(reqs) == 1
	}, time.Second, time.Millisecond)

	channel.Resolve(Response{ID: reqs[0].ID, Err: "model exploded"})
	err := <-done
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrMalformedOutput)
}

func TestFailRejectsAllPending(t *testing.T) {
	transport := &silentTransport{}
	channel := NewChannel(transport, time.Minute, zap.NewNop())

	const callers = 5
	done := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			_, err := channel.Dispatch(context.Background(), KindStatus, fmt.Sprintf("p%d", i))
			done <- err
		}(i)
	}

	require.Eventually(t, func() bool {
		return channel.PendingCount() == callers
	}, time.Second, time.Millisecond)

	channel.Fail(errors.New("worker crashed"))

	for i := 0; i < callers; i++ {
		err := <-done
		assert.ErrorIs(t, err, core.ErrChannelFatal)
	}
	assert.Equal(t, 0, channel.PendingCount())
}

func TestConcurrentDispatchNeverCrossesResponses(t *testing.T) {
	transport := &echoTransport{}
	channel := NewChannel(transport, 5*time.Second, zap.NewNop())
	transport.channel = channel

	const callers = 50
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			payload := fmt.Sprintf("payload-%d", i)
			result, err := channel.Dispatch(context.Background(), KindClassify, payload)
			assert.NoError(t, err)
			assert.Equal(t, payload, result)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, channel.PendingCount())
}

func TestLateResponseAfterTimeoutIsDiscarded(t *testing.T) {
	transport := &silentTransport{}
	channel := NewChannel(transport, 10*time.Millisecond, zap.NewNop())

	_, err := channel.Dispatch(context.Background(), KindClassify, "x")
	require.ErrorIs(t, err, core.ErrChannelTimeout)

	reqs := transport.requests()
	require.Len(t, reqs, 1)

	// The late response hits an empty table: exactly-once means the
	// timeout already consumed the resolution.
	channel.Resolve(Response{ID: reqs[0].ID, Result: "too late"})
	assert.Equal(t, 0, channel.PendingCount())
}
