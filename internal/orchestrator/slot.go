// Package orchestrator keeps at most one request in flight per consumer.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrClosed = errors.New("request slot closed")

// Fetch performs one request. It must honour ctx cancellation.
type Fetch[T any] func(ctx context.Context) (T, error)

// Handlers receive the outcome of the current request. They are called with
// the slot lock held and must not call back into the slot.
type Handlers[T any] struct {
	OnLoading func(loading bool)
	OnResult  func(T)
	OnError   func(error)
}

// Request is a handle on one started fetch.
type Request struct {
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Generation is the slot generation this request was issued with.
func (r *Request) Generation() uint64 {
	return r.gen
}

// Done is closed once the fetch has returned and its outcome was applied or
// discarded.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Slot owns the in-flight request of a single consumer. Starting a request
// cancels the previous one, and a result is only applied while its request
// is still the current one and its context has not been cancelled.
type Slot[T any] struct {
	name   string
	logger *slog.Logger

	mu       sync.Mutex
	gen      uint64
	current  *Request
	loading  func(bool)
	applied  int64
	closed   bool
	inflight sync.WaitGroup
}

func NewSlot[T any](name string, logger *slog.Logger) *Slot[T] {
	return &Slot[T]{
		name:   name,
		logger: logger.With("component", "orchestrator", "slot", name),
	}
}

// Start cancels the current request and issues fetch. No debouncing is done:
// every trigger starts a request immediately.
func (s *Slot[T]) Start(ctx context.Context, fetch Fetch[T], h Handlers[T]) (*Request, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.current != nil {
		s.current.cancel()
		s.logger.Debug("superseding request", "generation", s.current.gen)
	}
	s.gen++
	rctx, cancel := context.WithCancel(ctx)
	req := &Request{gen: s.gen, cancel: cancel, done: make(chan struct{})}
	s.current = req
	s.loading = h.OnLoading
	if h.OnLoading != nil {
		h.OnLoading(true)
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go s.run(rctx, req, fetch, h)

	return req, nil
}

func (s *Slot[T]) run(ctx context.Context, req *Request, fetch Fetch[T], h Handlers[T]) {
	defer s.inflight.Done()
	defer close(req.done)
	defer req.cancel()

	v, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if req != s.current {
		s.logger.Debug("discarding superseded result", "generation", req.gen)
		return
	}
	s.current = nil
	s.loading = nil
	if h.OnLoading != nil {
		h.OnLoading(false)
	}

	if ctx.Err() != nil {
		s.logger.Debug("discarding aborted result", "generation", req.gen)
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("request aborted", "generation", req.gen)
			return
		}
		s.logger.Debug("request failed", "generation", req.gen, "error", err)
		if h.OnError != nil {
			h.OnError(err)
		}
		return
	}

	s.applied++
	if h.OnResult != nil {
		h.OnResult(v)
	}
}

// Cancel aborts the current request, if any. Its outcome is discarded.
func (s *Slot[T]) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Slot[T]) cancelLocked() {
	if s.current == nil {
		return
	}
	s.current.cancel()
	s.logger.Debug("request cancelled", "generation", s.current.gen)
	s.current = nil
	s.gen++
	if s.loading != nil {
		s.loading(false)
		s.loading = nil
	}
}

// Close aborts the current request, waits for every fetch goroutine to
// return and rejects further Starts.
func (s *Slot[T]) Close() {
	s.mu.Lock()
	s.closed = true
	s.cancelLocked()
	s.mu.Unlock()

	s.inflight.Wait()
}

// Wait blocks until every started fetch has returned.
func (s *Slot[T]) Wait() {
	s.inflight.Wait()
}

// InFlight reports whether a request is outstanding.
func (s *Slot[T]) InFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Applied counts results handed to OnResult.
func (s *Slot[T]) Applied() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}
