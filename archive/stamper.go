package archive

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStamperClosed is delivered to requests submitted after Close.
var ErrStamperClosed = errors.New("stamper is closed")

const defaultStampQueue = 16

type stampRequest struct {
	ctx    context.Context
	patch  map[string]string
	result chan error
	path   string
}

// Stamper serializes descriptor rewrites on a single goroutine so that no
// two rewrites of the same archive ever overlap.
type Stamper struct {
	logger   *slog.Logger
	requests chan stampRequest
	done     chan struct{}
	rewrite  func(ctx context.Context, path string, patch map[string]string) error
	mu       sync.RWMutex
	closed   bool
}

// StamperOption configures a Stamper.
type StamperOption func(*Stamper)

// WithStamperLogger sets the logger for the Stamper.
func WithStamperLogger(logger *slog.Logger) StamperOption {
	return func(s *Stamper) {
		s.logger = logger
	}
}

// WithStampQueue sets how many requests may wait before Stamp blocks.
func WithStampQueue(n int) StamperOption {
	return func(s *Stamper) {
		if n >= 0 {
			s.requests = make(chan stampRequest, n)
		}
	}
}

// NewStamper starts the worker goroutine. Call Close to stop it.
func NewStamper(opts ...StamperOption) *Stamper {
	s := &Stamper{
		logger:   slog.Default(),
		requests: make(chan stampRequest, defaultStampQueue),
		done:     make(chan struct{}),
		rewrite:  PatchDescriptor,
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// Stamp queues a descriptor patch for the archive at path. The returned
// channel receives exactly one value: nil on success or the rewrite error.
func (s *Stamper) Stamp(ctx context.Context, path string, patch map[string]string) <-chan error {
	result := make(chan error, 1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		result <- ErrStamperClosed
		return result
	}

	req := stampRequest{ctx: ctx, path: path, patch: patch, result: result}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		result <- ctx.Err()
	}
	return result
}

// Close stops accepting requests, finishes the queued ones and waits for
// the worker to exit. It is safe to call more than once.
func (s *Stamper) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.requests)
	}
	s.mu.Unlock()

	<-s.done
}

func (s *Stamper) run() {
	defer close(s.done)

	for req := range s.requests {
		if err := req.ctx.Err(); err != nil {
			req.result <- err
			continue
		}

		err := s.rewrite(req.ctx, req.path, req.patch)
		if err != nil {
			s.logger.Warn("descriptor stamp failed", "path", req.path, "error", err)
		} else {
			s.logger.Debug("descriptor stamped", "path", req.path, "keys", len(req.patch))
		}
		req.result <- err
	}
}
