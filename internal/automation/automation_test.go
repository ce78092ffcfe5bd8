package automation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type blockingRunner struct {
	started atomic.Int32
	running atomic.Int32
	ready   chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{ready: make(chan struct{}, 10)}
}

func (r *blockingRunner) Run(ctx context.Context) error {
	r.started.Add(1)
	r.running.Add(1)
	defer r.running.Add(-1)
	r.ready <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func waitReady(t *testing.T, r *blockingRunner) {
	t.Helper()
	select {
	case <-r.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not start")
	}
}

func TestHandle_StartStop(t *testing.T) {
	r := newBlockingRunner()
	h := New(r)

	if h.State() != StateStopped {
		t.Fatalf("initial State() = %v, want stopped", h.State())
	}
	if got := h.Start(); got != StateRunning {
		t.Fatalf("Start() = %v, want running", got)
	}
	waitReady(t, r)

	if got := h.Stop(); got != StateStopped {
		t.Fatalf("Stop() = %v, want stopped", got)
	}
	h.Wait()

	if r.running.Load() != 0 {
		t.Error("runner still running after Wait")
	}
}

func TestHandle_Idempotent(t *testing.T) {
	r := newBlockingRunner()
	h := New(r)

	h.Start()
	waitReady(t, r)
	if got := h.Start(); got != StateRunning {
		t.Errorf("second Start() = %v, want running", got)
	}
	if r.started.Load() != 1 {
		t.Errorf("runner started %d times, want 1", r.started.Load())
	}

	h.Stop()
	if got := h.Stop(); got != StateStopped {
		t.Errorf("second Stop() = %v, want stopped", got)
	}
	h.Wait()
}

func TestHandle_Restart(t *testing.T) {
	r := newBlockingRunner()
	h := New(r)

	h.Start()
	waitReady(t, r)
	h.Stop()
	h.Wait()

	h.Start()
	waitReady(t, r)
	if r.started.Load() != 2 {
		t.Errorf("runner started %d times, want 2", r.started.Load())
	}
	h.Stop()
	h.Wait()
}

// lingeringRunner keeps working for a while after cancellation, like a cycle in flight
type lingeringRunner struct {
	linger    time.Duration
	active    atomic.Int32
	maxActive atomic.Int32
	started   atomic.Int32
	ready     chan struct{}
}

func (r *lingeringRunner) Run(ctx context.Context) error {
	n := r.active.Add(1)
	for {
		peak := r.maxActive.Load()
		if n <= peak || r.maxActive.CompareAndSwap(peak, n) {
			break
		}
	}
	r.started.Add(1)
	r.ready <- struct{}{}

	<-ctx.Done()
	time.Sleep(r.linger)
	r.active.Add(-1)
	return ctx.Err()
}

func TestHandle_RestartWithoutWait(t *testing.T) {
	r := &lingeringRunner{linger: 100 * time.Millisecond, ready: make(chan struct{}, 10)}
	h := New(r)

	h.Start()
	<-r.ready
	h.Stop()
	if got := h.Start(); got != StateRunning {
		t.Fatalf("Start() after Stop() = %v, want running", got)
	}

	select {
	case <-r.ready:
	case <-time.After(5 * time.Second):
		t.Fatal("second runner did not start")
	}

	if got := r.maxActive.Load(); got != 1 {
		t.Errorf("observed %d runners at once, want 1", got)
	}
	if r.started.Load() != 2 {
		t.Errorf("runner started %d times, want 2", r.started.Load())
	}

	h.Stop()
	h.Wait()
}

type failingRunner struct{}

func (failingRunner) Run(context.Context) error { return errors.New("config vanished") }

func TestHandle_RunnerExits(t *testing.T) {
	h := New(failingRunner{})

	h.Start()
	h.Wait()

	if h.State() != StateStopped {
		t.Errorf("State() after the runner exited = %v, want stopped", h.State())
	}
}

func TestHandle_WaitWithoutStart(t *testing.T) {
	h := New(newBlockingRunner())
	h.Wait()
	if h.Stop() != StateStopped {
		t.Error("Stop() on a stopped handle should report stopped")
	}
}
