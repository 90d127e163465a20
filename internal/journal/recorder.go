package journal

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/busbridge/internal/bridge"
)

// Recorder writes entries on its own goroutine so the poll loop never waits
// on disk. Record is non-blocking; Run drains the queue into the journal.
type Recorder struct {
	journal *Journal
	queue   *bridge.Queue[Entry]
	logger  *slog.Logger
	done    chan struct{}

	written  atomic.Int64
	failed   atomic.Int64
	rejected atomic.Int64
}

// NewRecorder creates a recorder for j. A nil logger uses slog.Default().
func NewRecorder(j *Journal, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		journal: j,
		queue:   bridge.NewQueue[Entry](),
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Record queues e for writing. Returns false once the recorder is closed;
// such entries are counted by Rejected.
func (r *Recorder) Record(e Entry) bool {
	if !r.queue.Enqueue(e) {
		r.rejected.Add(1)
		return false
	}
	return true
}

// Run writes queued entries until Close is called or ctx is cancelled,
// then flushes whatever is still queued and returns.
func (r *Recorder) Run(ctx context.Context) {
	defer close(r.done)

	// Pending entries are flushed even after ctx ends.
	wctx := context.WithoutCancel(ctx)

	for {
		for _, e := range r.queue.Drain() {
			r.write(wctx, e)
		}
		if r.queue.Closed() {
			return
		}

		select {
		case <-r.queue.Wait():
		case <-ctx.Done():
			r.queue.Close()
		}
	}
}

func (r *Recorder) write(ctx context.Context, e Entry) {
	if err := r.journal.Append(ctx, e); err != nil {
		r.failed.Add(1)
		r.logger.Warn("journal write failed", "run", e.RunID, "seq", e.Seq, "error", err)
		return
	}
	r.written.Add(1)
}

// Close stops accepting entries. Run returns after flushing.
func (r *Recorder) Close() {
	r.queue.Close()
}

// Done is closed when Run has returned.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// Written returns how many entries reached the journal.
func (r *Recorder) Written() int64 {
	return r.written.Load()
}

// Rejected returns how many entries arrived after the recorder closed.
func (r *Recorder) Rejected() int64 {
	return r.rejected.Load()
}

// Failed returns how many entries could not be written.
func (r *Recorder) Failed() int64 {
	return r.failed.Load()
}
