package bridge

import (
	"context"

	"github.com/roach88/busbridge/internal/netman"
)

func (b *Bridge) notSubscribed() bool {
	return !b.subscribed
}

func (b *Bridge) hasEvents() bool {
	return b.events != nil
}

// setupSubscription spawns the subscription task. Gated on Ready and
// !subscribed, so it runs at most once per bridge.
func (b *Bridge) setupSubscription() {
	b.subscribed = true

	conn := b.conn
	if !b.tasks.Go(RoutineSubscribe, func(ctx context.Context) {
		b.runSubscription(ctx, conn)
	}) {
		b.logger.Debug("subscription not started: bridge shut down")
	}
}

// runSubscription opens the device event stream, hands the queue to the
// poll loop, then relays events into it until the stream or ctx ends.
func (b *Bridge) runSubscription(ctx context.Context, conn netman.Connection) {
	src, err := conn.SubscribeEvents(ctx)
	if err != nil {
		b.logger.Error("event subscription failed", "error", err)
		b.failures.Enqueue(ErrorRecord{Code: ErrCodeSubscribe, Reason: err.Error()})
		return
	}

	q := NewBoundedQueue[netman.DeviceEvent](b.eventCapacity)
	b.eventsSlot.Put(q)
	defer q.Close()

	b.logger.Info("event subscription started")

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-src:
			if !ok {
				b.logger.Info("event stream ended")
				return
			}
			if err := q.Push(ctx, ev); err != nil {
				return
			}
		}
	}
}

// installEvents takes the subscription queue into the poll loop.
func (b *Bridge) installEvents() {
	if q, ok := b.eventsSlot.Take(); ok {
		b.events = q
	}
}

// drainEvents forwards every queued device event, in arrival order.
func (b *Bridge) drainEvents() {
	for _, ev := range b.events.Drain() {
		b.emit(Event{Kind: EventDevice, Device: ev})
	}

	if b.events.Closed() {
		b.emit(Event{Kind: EventStreamClosed})
		b.events = nil
	}
}
