package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// taskGroup runs background work on behalf of the poll loop.
//
// Every task receives the group context, which is cancelled by Shutdown.
// Panics are caught at the task boundary and reported through onPanic;
// they never reach the poll loop or crash the process.
type taskGroup struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.Mutex // guards closed against concurrent Go/Shutdown
	closed bool
	wg     conc.WaitGroup

	spawned atomic.Int64
	active  atomic.Int64

	onPanic func(task string, r *panics.Recovered)
}

func newTaskGroup(logger *slog.Logger, onPanic func(string, *panics.Recovered)) *taskGroup {
	ctx, cancel := context.WithCancel(context.Background())
	return &taskGroup{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		onPanic: onPanic,
	}
}

// Go starts fn on a new goroutine. Returns false once the group is shut down.
func (g *taskGroup) Go(name string, fn func(ctx context.Context)) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return false
	}

	g.spawned.Add(1)
	g.active.Add(1)
	g.wg.Go(func() {
		defer g.active.Add(-1)

		if r := panics.Try(func() { fn(g.ctx) }); r != nil {
			g.logger.Error("background task panicked", "task", name, "panic", r.Value)
			if g.onPanic != nil {
				g.onPanic(name, r)
			}
		}
	})
	return true
}

// Shutdown cancels every task and waits for them to return, bounded by ctx.
func (g *taskGroup) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.cancel()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d background tasks: %w", g.active.Load(), ctx.Err())
	}
}
