package bridge

import (
	"context"

	"github.com/roach88/busbridge/internal/netman"
)

// dispatchActions spawns one background task per pending request.
//
// Requests are dropped when the connection is not ready: no queuing for
// later, no retry, no error record. Completion order across tasks is not
// guaranteed, so error records may arrive out of submission order.
func (b *Bridge) dispatchActions() {
	for _, p := range b.actions.Drain() {
		if !b.Ready() {
			b.dropped.Add(1)
			b.logger.Debug("action dropped: service not ready", "action", p.req.Name(), "request", p.id)
			continue
		}

		conn := b.conn
		if !b.tasks.Go(p.req.Name(), func(ctx context.Context) {
			b.runAction(ctx, conn, p)
		}) {
			b.dropped.Add(1)
		}
	}
}

// runAction executes one request. Only failures are reported.
func (b *Bridge) runAction(ctx context.Context, conn netman.Connection, p pendingAction) {
	if err := execute(ctx, conn, p.req); err != nil {
		rec := newActionError(p.id, p.req, err)
		b.logger.Warn("action failed", "action", rec.Action, "request", rec.RequestID, "error", err)
		b.failures.Enqueue(rec)
		return
	}
	b.logger.Debug("action completed", "action", p.req.Name(), "request", p.id)
}
