package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// countingWorker panics on its first runs and returns cleanly once the
// panic budget is spent, so restarts are observable.
type countingWorker struct {
	runs     atomic.Int32
	panics   int32
	finished chan struct{}
}

func (w *countingWorker) Run(ctx context.Context) error {
	run := w.runs.Add(1)
	if run <= w.panics {
		panic("boom")
	}
	close(w.finished)
	return nil
}

// blockingWorker runs until its context is canceled.
type blockingWorker struct{}

func (blockingWorker) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func Test_Supervisor_should_restart_panicking_worker(t *testing.T) {
	req := require.New(t)

	worker := &countingWorker{panics: 2, finished: make(chan struct{})}
	sup := NewSupervisor(slog.Default())
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-worker.finished:
	case <-time.After(5 * time.Second):
		req.FailNow("worker never survived its restarts")
	}

	// A clean return retires the worker, so Run unblocks
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.FailNow("supervisor never returned after the worker retired")
	}
	req.EqualValues(3, worker.runs.Load())
}

func Test_Supervisor_should_stop_workers_on_parent_cancellation(t *testing.T) {
	req := require.New(t)

	sup := NewSupervisor(slog.Default())
	sup.Add(blockingWorker{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.FailNow("supervisor ignored parent cancellation")
	}
}
