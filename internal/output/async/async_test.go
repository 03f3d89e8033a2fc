package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crimson-sun/worktally/internal/model"
)

type mockOutput struct {
	mu      sync.Mutex
	reports []model.Report
	closed  bool
	err     error         // if set, Write returns this
	delay   time.Duration // if >0, Write sleeps first
}

func (m *mockOutput) Write(_ context.Context, r model.Report) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.reports = append(m.reports, r)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reports)
}

func testReport(id string) model.Report {
	return model.Report{ID: id, Granularity: model.ByMonth}
}

func TestReportsFlowThroughInOrder(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(4))

	for _, id := range []string{"a", "b", "c"} {
		if err := a.Write(context.Background(), testReport(id)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.count() != 3 {
		t.Fatalf("got %d reports, want 3", inner.count())
	}
	for i, id := range []string{"a", "b", "c"} {
		if inner.reports[i].ID != id {
			t.Errorf("report %d = %q, want %q", i, inner.reports[i].ID, id)
		}
	}
	if !inner.closed {
		t.Error("expected inner output closed")
	}
}

func TestWriteBlocksUntilContextDone(t *testing.T) {
	inner := &mockOutput{delay: 200 * time.Millisecond}
	a := New(inner, WithBufferSize(1))
	defer a.Close()

	// The first report is taken by the drain goroutine, the second fills the queue.
	a.Write(context.Background(), testReport("1"))
	time.Sleep(20 * time.Millisecond)
	a.Write(context.Background(), testReport("2"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := a.Write(ctx, testReport("3")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded on full queue, got %v", err)
	}
}

func TestCloseReturnsDeliveryErrors(t *testing.T) {
	inner := &mockOutput{err: errors.New("channel_not_found")}
	a := New(inner)

	a.Write(context.Background(), testReport("x"))
	a.Write(context.Background(), testReport("y"))

	err := a.Close()
	if err == nil {
		t.Fatal("expected delivery errors from Close")
	}
	if inner.count() != 2 {
		t.Errorf("expected both reports attempted, got %d", inner.count())
	}
}

func TestWriteAfterClose(t *testing.T) {
	a := New(&mockOutput{})
	a.Close()
	if err := a.Write(context.Background(), testReport("late")); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	a := New(&mockOutput{})
	a.Write(context.Background(), testReport("once"))
	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}

func TestDrainTimeout(t *testing.T) {
	inner := &mockOutput{delay: 300 * time.Millisecond}
	a := New(inner, WithDrainTimeout(10*time.Millisecond))
	a.Write(context.Background(), testReport("slow"))

	start := time.Now()
	err := a.Close()
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Close waited %v, expected the drain timeout to cut it short", elapsed)
	}
	if !errors.Is(err, ErrDrainTimeout) {
		t.Errorf("Close error = %v, want ErrDrainTimeout", err)
	}
	if inner.isClosed() {
		t.Error("inner output closed while a write was still in flight")
	}
}

// ctxOutput blocks each Write until its context is cancelled.
type ctxOutput struct {
	cancelled chan struct{}
	mu        sync.Mutex
	writes    int
	closed    bool
}

func (c *ctxOutput) Write(ctx context.Context, _ model.Report) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	<-ctx.Done()
	select {
	case <-c.cancelled:
	default:
		close(c.cancelled)
	}
	return ctx.Err()
}

func (c *ctxOutput) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func TestDrainTimeoutCancelsInFlightWrite(t *testing.T) {
	inner := &ctxOutput{cancelled: make(chan struct{})}
	a := New(inner, WithBufferSize(4), WithDrainTimeout(20*time.Millisecond))
	for _, id := range []string{"a", "b", "c"} {
		if err := a.Write(context.Background(), testReport(id)); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	if err := a.Close(); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("Close error = %v, want ErrDrainTimeout", err)
	}
	select {
	case <-inner.cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight write was not cancelled")
	}
	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after cancellation")
	}

	inner.mu.Lock()
	defer inner.mu.Unlock()
	if inner.writes != 1 {
		t.Errorf("writes = %d, want 1 (queued reports dropped after cancellation)", inner.writes)
	}
	if inner.closed {
		t.Error("inner output should stay open after a drain timeout")
	}
}
