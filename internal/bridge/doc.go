// Package bridge feeds an asynchronous network service into a synchronous,
// tick-driven poll loop that must never block.
//
// ARCHITECTURE:
//
// Two scheduling domains:
//   - Poll loop: a single goroutine calling Bridge.Poll() once per tick.
//     Each tick runs a fixed, ordered Schedule of routines to completion.
//   - Background tasks: goroutines owned by the bridge's task group, free to
//     block on the bus.
//
// The domains meet only at Slots (one-shot handoffs) and Queues (FIFO
// streams). Every read the poll loop performs on them is non-blocking.
//
// Tick order:
//  1. service-init     take the connection once the init task produced it
//  2. subscribe        (Ready, not yet subscribed) spawn the event task once
//  3. install-events   take the event queue from the subscription task
//  4. drain-events     forward queued device events, FIFO
//  5. dispatch-actions spawn one task per action, or drop when not Ready
//  6. drain-errors     forward failure records
//
// Installation is ordered before draining, so a queue handed over during a
// tick is drained in that same tick.
//
// FAILURE MODEL:
//
// Background errors are caught at the task boundary, logged, and turned into
// ErrorRecords delivered as EventError. Initialization failure is permanent:
// Ready never becomes true and gated routines stay skipped. A finished event
// stream is reported once as EventStreamClosed.
//
// Shutdown cancels every background task through the task group context and
// waits for them, bounded by the caller's context.
package bridge
