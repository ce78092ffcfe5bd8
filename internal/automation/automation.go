package automation

import (
	"context"
	"errors"
	"sync"

	"mail-auto-ticketing/internal/logging"
)

// State of the background automation
type State int

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Runner is a long-running job that returns once ctx is cancelled
type Runner interface {
	Run(ctx context.Context) error
}

// Handle starts and stops a Runner in the background. Start and Stop are idempotent,
// and at most one Run is in progress at any time.
type Handle struct {
	runner Runner

	startMu sync.Mutex

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func New(runner Runner) *Handle {
	return &Handle{runner: runner}
}

// Start launches the runner unless it is already running and returns the resulting state.
// After a Stop it first waits for the previous run to finish its cycle.
func (h *Handle) Start() State {
	h.startMu.Lock()
	defer h.startMu.Unlock()

	h.mu.Lock()
	if h.state == StateRunning {
		h.mu.Unlock()
		logging.Log.Info("Automation already running")
		return StateRunning
	}
	previous := h.done
	h.mu.Unlock()

	if previous != nil {
		<-previous
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	h.cancel, h.done, h.state = cancel, done, StateRunning

	go func() {
		defer close(done)
		err := h.runner.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Log.Errorf("Automation stopped unexpectedly: %v", err)
		}

		h.mu.Lock()
		defer h.mu.Unlock()
		if h.done == done {
			h.state = StateStopped
			h.cancel = nil
		}
		cancel()
	}()

	logging.Log.Info("Automation started")
	return h.state
}

// Stop asks the runner to finish. The in-flight cycle completes in the
// background; use Wait to block until it has.
func (h *Handle) Stop() State {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateRunning {
		return h.state
	}
	h.cancel()
	h.cancel = nil
	h.state = StateStopped
	logging.Log.Info("Automation stopping")
	return h.state
}

// State returns whether the automation is running
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Wait blocks until the most recently started runner has returned
func (h *Handle) Wait() {
	h.mu.Lock()
	done := h.done
	h.mu.Unlock()

	if done != nil {
		<-done
	}
}
