// Package rpc implements the request/response protocol to the inference
// boundary: correlation ids, deadlines, and exactly-once resolution of
// every dispatched request.
package rpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
)

// RequestKind discriminates the closed set of operations the boundary
// understands. It is validated on both sides of the boundary.
type RequestKind string

const (
	KindClassify RequestKind = "classify"
	KindExtract  RequestKind = "extract"
	KindStatus   RequestKind = "status"
)

// Valid reports whether the kind is one of the closed set.
func (k RequestKind) Valid() bool {
	switch k {
	case KindClassify, KindExtract, KindStatus:
		return true
	}
	return false
}

// Request is the wire message sent to the inference worker.
type Request struct {
	ID      string      `json:"id"`
	Kind    RequestKind `json:"kind"`
	Payload string      `json:"payload"`
}

// Response is the wire message received from the inference worker.
// Exactly one of Result or Err is meaningful.
type Response struct {
	ID     string `json:"id"`
	Result string `json:"result,omitempty"`
	Err    string `json:"error,omitempty"`
}

// ProgressEvent is an out-of-band notification from the worker, not
// tied to any pending request.
type ProgressEvent struct {
	Text    string  `json:"text"`
	Percent float64 `json:"percent"`
}

// Transport delivers a request to the worker boundary.
type Transport interface {
	Send(req Request) error
}

// DefaultTimeout bounds how long a dispatched request may stay pending.
const DefaultTimeout = 60 * time.Second

type outcome struct {
	result string
	err    error
}

type pending struct {
	done chan outcome
}

// Channel correlates dispatched requests with their eventual responses.
// The pending table is the one shared resource; it is guarded by a
// mutex so no two callers can ever observe the same response.
type Channel struct {
	transport  Transport
	timeout    time.Duration
	logger     *zap.Logger
	onProgress func(ProgressEvent)

	mu      sync.Mutex
	pending map[string]*pending
}

// NewChannel creates a channel over the given transport. A zero timeout
// selects DefaultTimeout.
func NewChannel(transport Transport, timeout time.Duration, logger *zap.Logger) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		transport: transport,
		timeout:   timeout,
		logger:    logger,
		pending:   make(map[string]*pending),
	}
}

// SetProgressHandler registers a callback for out-of-band progress
// events. Must be called before the first dispatch.
func (c *Channel) SetProgressHandler(fn func(ProgressEvent)) {
	c.onProgress = fn
}

// Dispatch sends payload to the boundary under a fresh correlation id
// and blocks until the response arrives, the deadline elapses, or the
// boundary fails. Each id is created once and resolved exactly once.
func (c *Channel) Dispatch(ctx context.Context, kind RequestKind, payload string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("%w: unknown request kind %q", core.ErrMalformedOutput, kind)
	}

	id := uuid.NewString()
	p := &pending{done: make(chan outcome, 1)}

	c.mu.Lock()
	c.pending[id] = p
	c.mu.Unlock()

	if err := c.transport.Send(Request{ID: id, Kind: kind, Payload: payload}); err != nil {
		c.take(id)
		return "", fmt.Errorf("%w: %v", core.ErrChannelFatal, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.result, res.err
	case <-timer.C:
		// The entry may have been resolved between the timer firing
		// and the table lookup; the response wins in that case.
		if c.take(id) == nil {
			res := <-p.done
			return res.result, res.err
		}
		c.logger.Warn("Inference request timed out",
			zap.String("id", id),
			zap.Duration("timeout", c.timeout))
		return "", core.ErrChannelTimeout
	case <-ctx.Done():
		if c.take(id) == nil {
			res := <-p.done
			return res.result, res.err
		}
		return "", fmt.Errorf("%w: %v", core.ErrChannelCancelled, ctx.Err())
	}
}

// Resolve delivers a response to its pending request. Responses for
// unknown ids are logged and discarded.
func (c *Channel) Resolve(resp Response) {
	p := c.take(resp.ID)
	if p == nil {
		c.logger.Warn("Discarding response for unknown request id",
			zap.String("id", resp.ID))
		return
	}
	if resp.Err != "" {
		p.done <- outcome{err: fmt.Errorf("%w: %s", core.ErrMalformedOutput, resp.Err)}
		return
	}
	p.done <- outcome{result: resp.Result}
}

// Progress forwards an out-of-band progress event. It never touches the
// pending table.
func (c *Channel) Progress(ev ProgressEvent) {
	if c.onProgress != nil {
		c.onProgress(ev)
	}
}

// Fail resolves every currently pending request as a fatal channel
// error and clears the table. Used when the worker itself has failed.
func (c *Channel) Fail(cause error) {
	c.mu.Lock()
	orphans := c.pending
	c.pending = make(map[string]*pending)
	c.mu.Unlock()

	if len(orphans) > 0 {
		c.logger.Error("Rejecting all pending inference requests",
			zap.Int("count", len(orphans)),
			zap.Error(cause))
	}
	for _, p := range orphans {
		p.done <- outcome{err: fmt.Errorf("%w: %v", core.ErrChannelFatal, cause)}
	}
}

// PendingCount returns the number of unresolved requests.
func (c *Channel) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// take removes and returns the pending entry for id, or nil if it was
// already resolved. Removal under the lock is what makes resolution
// exactly-once.
func (c *Channel) take(id string) *pending {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[id]
	if !ok {
		return nil
	}
	delete(c.pending, id)
	return p
}
