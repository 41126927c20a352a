package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/birun/console/pkg/eventbus"
	"github.com/birun/console/pkg/events"
)

// reportGrace bounds how long a finished command waits for its last status event to be printed.
const reportGrace = time.Second

// runReporter prints the status transitions the run monitor publishes on the bus.
type runReporter struct {
	out   io.Writer
	runID int64

	mu       sync.Mutex
	closed   bool
	once     sync.Once
	finished chan struct{}
}

func newRunReporter(out io.Writer, runID int64) *runReporter {
	return &runReporter{out: out, runID: runID, finished: make(chan struct{})}
}

// subscribe registers the reporter and starts delivery. It must run before the monitor does,
// since the in-memory bus drops events published with no subscriber.
func (r *runReporter) subscribe(ctx context.Context, bus eventbus.EventBus) error {
	if err := bus.Handle(events.RunStatusChangedEvent, r.handle); err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}

func (r *runReporter) handle(_ context.Context, event any) error {
	changed, ok := event.(*events.RunStatusChanged)
	if !ok || changed.RunID != r.runID {
		return nil
	}

	r.mu.Lock()
	if !r.closed {
		fmt.Fprintf(r.out, "run %d: %s\n", changed.RunID, changed.Status)
	}
	r.mu.Unlock()

	if changed.Terminal {
		r.once.Do(func() { close(r.finished) })
	}

	return nil
}

// wait blocks until the terminal transition has been printed or the grace period passes.
// Nothing is printed after it returns.
func (r *runReporter) wait(ctx context.Context) {
	timer := time.NewTimer(reportGrace)
	defer timer.Stop()

	defer func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
	}()

	select {
	case <-r.finished:
	case <-ctx.Done():
	case <-timer.C:
	}
}
