// Package async delivers reports to a slow output in the background.
package async

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

const (
	defaultBufferSize   = 8
	defaultDrainTimeout = 30 * time.Second
)

var (
	// ErrClosed is returned by Write after Close.
	ErrClosed = errors.New("async output: closed")
	// ErrDrainTimeout is returned by Close when queued reports were not
	// delivered within the drain timeout.
	ErrDrainTimeout = errors.New("async output: drain timed out")
)

// Option configures an Async wrapper.
type Option func(*Async)

// WithBufferSize sets how many reports may wait for delivery. Default: 8.
func WithBufferSize(n int) Option {
	return func(a *Async) { a.bufSize = n }
}

// WithDrainTimeout bounds how long Close waits for queued reports. Default: 30s.
func WithDrainTimeout(d time.Duration) Option {
	return func(a *Async) { a.drainTimeout = d }
}

// Async queues reports and writes them to the wrapped output from one
// background goroutine, so a run does not wait on a chat API or webhook.
// Delivery failures are logged as they happen and returned together by Close.
type Async struct {
	inner        output.Output
	ctx          context.Context // cancelled when the drain times out
	cancel       context.CancelFunc
	ch           chan model.Report
	done         chan struct{}
	bufSize      int
	drainTimeout time.Duration

	mu     sync.RWMutex // guards closed against a send on the closed channel
	closed bool

	errMu sync.Mutex
	errs  []error
}

// New wraps inner. The drain goroutine starts immediately.
func New(inner output.Output, opts ...Option) *Async {
	a := &Async{
		inner:        inner,
		bufSize:      defaultBufferSize,
		drainTimeout: defaultDrainTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.ch = make(chan model.Report, a.bufSize)
	a.done = make(chan struct{})
	go a.drain()
	return a
}

// Write queues the report. It blocks while the queue is full, until ctx is done.
func (a *Async) Write(ctx context.Context, report model.Report) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrClosed
	}
	select {
	case a.ch <- report:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting reports, waits for the queue to drain, closes the
// inner output and returns every delivery error. If the drain timeout
// passes first, the in-flight write is cancelled, the remaining reports are
// dropped, the inner output is left open and ErrDrainTimeout is returned.
func (a *Async) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	close(a.ch)
	a.mu.Unlock()

	select {
	case <-a.done:
		a.cancel()
	case <-time.After(a.drainTimeout):
		a.cancel()
		slog.Warn("async output drain timed out", "queued", len(a.ch))
		a.errMu.Lock()
		errs := append(slices.Clip(a.errs), ErrDrainTimeout)
		a.errMu.Unlock()
		return errors.Join(errs...)
	}

	a.errMu.Lock()
	errs := append(a.errs, a.inner.Close())
	a.errMu.Unlock()
	return errors.Join(errs...)
}

func (a *Async) drain() {
	defer close(a.done)
	for report := range a.ch {
		if a.ctx.Err() != nil {
			continue
		}
		if err := a.inner.Write(a.ctx, report); err != nil {
			slog.Warn("async output write error", "report", report.ID, "error", err)
			a.errMu.Lock()
			a.errs = append(a.errs, err)
			a.errMu.Unlock()
		}
	}
}
