package runs

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/birun/console/pkg/events"
	"github.com/birun/console/pkg/models"
)

// UpdateFunc receives every successfully polled run detail, on the monitor goroutine.
// It may call Stop on its watcher.
type UpdateFunc func(run *models.WorkflowRun)

// Watcher follows one run. It is torn down on a terminal status or by Stop.
type Watcher struct {
	RunID int64

	cancel   context.CancelFunc
	done     chan struct{}
	updating atomic.Bool

	mu       sync.Mutex
	last     *models.WorkflowRun
	terminal bool
}

// Monitor polls the run detail every poll interval until its status is terminal or ctx ends.
// Failed polls are logged and retried on the next tick.
func (o *Orchestrator) Monitor(ctx context.Context, runID int64, onUpdate UpdateFunc) *Watcher {
	ctx, cancel := context.WithCancel(ctx)

	w := &Watcher{
		RunID:  runID,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go o.poll(ctx, w, onUpdate)

	return w
}

func (o *Orchestrator) poll(ctx context.Context, w *Watcher, onUpdate UpdateFunc) {
	defer close(w.done)
	defer w.cancel()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	logger := o.logger.With("run_id", w.RunID)

	var previous models.RunStatus

	for {
		run, err := o.api.GetRun(ctx, w.RunID)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return
			}

			logger.Debug("Run poll failed", "error", err)
		default:
			terminal := run.Status.IsTerminal()
			w.observe(run, terminal)

			if onUpdate != nil {
				w.updating.Store(true)
				onUpdate(run)
				w.updating.Store(false)
			}

			if run.Status != previous {
				o.publish(ctx, runKey(w.RunID), events.RunStatusChanged{
					BaseEvent: events.NewBaseEvent(events.RunStatusChangedEvent, run.WorkflowID),
					RunID:     w.RunID,
					Previous:  previous,
					Status:    run.Status,
					Terminal:  terminal,
				})
				previous = run.Status
			}

			if terminal {
				logger.Info("Run finished", "status", run.Status)
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Watcher) observe(run *models.WorkflowRun, terminal bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.last = run
	w.terminal = terminal
}

// Last returns the most recently polled run detail, nil before the first successful poll.
func (w *Watcher) Last() *models.WorkflowRun {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.last
}

// Done is closed once the monitor goroutine exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

// Stop tears the monitor down and waits for it to exit. Called from the UpdateFunc it returns
// at once and the monitor exits when the callback does. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.cancel()

	if w.updating.Load() {
		return
	}

	<-w.done
}

// Wait blocks until the monitor exits. It returns the terminal run, or the last observed run and
// ErrMonitorStopped when the monitor was stopped first.
func (w *Watcher) Wait() (*models.WorkflowRun, error) {
	<-w.done

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.terminal {
		return w.last, ErrMonitorStopped
	}

	return w.last, nil
}
