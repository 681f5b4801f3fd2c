// Package worker runs one job at a time off the caller's goroutine.
//
// # Why Worker Exists
//
// Planning can take far longer than the supervisor's tick. The supervisor
// must keep consuming pose, map and cost updates while a plan is computed,
// and it must be able to abandon a plan the moment its inputs go stale.
//
// A Worker holds at most one pending job and one running job. Submitting a
// new job cancels the running one and replaces any pending one: only the
// newest request matters. Completed results land in a single-slot Mailbox
// that the supervisor drains on its own schedule.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
)

// Func is the job body.
type Func[Req, Res any] func(ctx context.Context, req Req) (Res, error)

// Result is a completed job.
type Result[Res any] struct {
	RequestID uint64
	Value     Res
	Err       error
	Started   time.Time
	Finished  time.Time
}

type job[Req any] struct {
	id  uint64
	req Req
}

// Worker executes submitted jobs sequentially on a single goroutine.
type Worker[Req, Res any] struct {
	fn      Func[Req, Res]
	mailbox *Mailbox[Res]

	mu      sync.Mutex
	pending *job[Req]
	cancel  context.CancelFunc
	wake    chan struct{}
}

// New creates a worker that delivers results into mailbox.
func New[Req, Res any](fn Func[Req, Res], mailbox *Mailbox[Res]) *Worker[Req, Res] {
	return &Worker[Req, Res]{
		fn:      fn,
		mailbox: mailbox,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues a job, cancelling the running job and dropping any queued
// one. It never blocks.
func (w *Worker[Req, Res]) Submit(id uint64, req Req) {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.pending = &job[Req]{id: id, req: req}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Cancel aborts the running job and drops any queued one.
func (w *Worker[Req, Res]) Cancel() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
	}
	w.pending = nil
}

// Run processes jobs until ctx is cancelled.
func (w *Worker[Req, Res]) Run(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.")
	defer logger.Debug("Worker finished.")

	for {
		select {
		case <-ctx.Done():
			w.Cancel()
			return
		case <-w.wake:
		}

		w.mu.Lock()
		j := w.pending
		w.pending = nil
		if j == nil {
			w.mu.Unlock()
			continue
		}
		jobCtx, cancel := context.WithCancel(ctx)
		w.cancel = cancel
		w.mu.Unlock()

		jobLogger := logger.With("requestID", j.id)
		jobLogger.Debug("Worker picked up job.")
		started := time.Now()
		value, err := w.fn(jobCtx, j.req)
		finished := time.Now()
		cancel()

		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()

		if err != nil {
			jobLogger.Debug("Job finished with error.", "error", err, "elapsed", finished.Sub(started))
		} else {
			jobLogger.Debug("Job finished.", "elapsed", finished.Sub(started))
		}
		w.mailbox.Put(Result[Res]{RequestID: j.id, Value: value, Err: err, Started: started, Finished: finished})
	}
}
