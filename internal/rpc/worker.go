package rpc

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Provider is the LLM client the worker runs requests through.
type Provider interface {
	// Complete sends a prompt to the model and returns its raw text output
	Complete(ctx context.Context, prompt string) (string, error)
}

// Worker is the in-process inference worker: a single goroutine that
// drains a mailbox of requests, runs each through the provider, and
// posts the response back to the channel. When the worker stops, every
// request still pending on the channel is rejected as fatal.
type Worker struct {
	provider Provider
	channel  *Channel
	logger   *zap.Logger

	mailbox chan Request
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewWorker creates a worker over the given provider. Attach it to a
// channel and call Start before dispatching.
func NewWorker(provider Provider, logger *zap.Logger, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		provider: provider,
		logger:   logger,
		mailbox:  make(chan Request, queueSize),
		done:     make(chan struct{}),
	}
}

// Attach binds the worker to the channel it responds on.
func (w *Worker) Attach(channel *Channel) {
	w.channel = channel
}

// Send queues a request for the worker. Implements Transport.
func (w *Worker) Send(req Request) error {
	select {
	case <-w.done:
		return fmt.Errorf("inference worker stopped")
	default:
	}
	select {
	case w.mailbox <- req:
		return nil
	case <-w.done:
		return fmt.Errorf("inference worker stopped")
	}
}

// Start launches the worker goroutine. The worker runs until ctx is
// cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	w.channel.Progress(ProgressEvent{Text: "inference worker ready", Percent: 0})
}

// Stop shuts the worker down and waits for it to exit. Pending
// requests on the channel are rejected.
func (w *Worker) Stop() {
	w.once.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	defer w.channel.Fail(fmt.Errorf("worker shut down"))

	// Requests in flight are cancelled on shutdown so Stop never waits
	// on a stuck provider call.
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.done:
			cancel()
		case <-reqCtx.Done():
		}
	}()

	for {
		select {
		case req := <-w.mailbox:
			w.handle(reqCtx, req)
		case <-ctx.Done():
			w.once.Do(func() { close(w.done) })
			return
		case <-w.done:
			return
		}
	}
}

// handle validates and executes one request. The request kind is
// checked again on this side of the boundary; the payload is never
// trusted blindly.
func (w *Worker) handle(ctx context.Context, req Request) {
	if !req.Kind.Valid() {
		w.logger.Warn("Rejecting request with unknown kind",
			zap.String("id", req.ID),
			zap.String("kind", string(req.Kind)))
		w.channel.Resolve(Response{ID: req.ID, Err: fmt.Sprintf("unknown request kind %q", req.Kind)})
		return
	}

	result, err := w.provider.Complete(ctx, req.Payload)
	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; the channel rejects the request as fatal.
			return
		}
		w.logger.Warn("Provider call failed",
			zap.String("id", req.ID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
		w.channel.Resolve(Response{ID: req.ID, Err: err.Error()})
		return
	}
	w.channel.Resolve(Response{ID: req.ID, Result: result})
}
