package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sourcegraph/conc/panics"

	"github.com/roach88/busbridge/internal/netman"
)

// Routine names, in the order Poll runs them.
const (
	RoutineServiceInit   = "service-init"
	RoutineSubscribe     = "subscribe"
	RoutineInstallEvents = "install-events"
	RoutineDrainEvents   = "drain-events"
	RoutineDispatch      = "dispatch-actions"
	RoutineDrainErrors   = "drain-errors"
)

// Bridge connects the asynchronous network service to a synchronous poll loop.
//
// Thread-safety model:
//   - Poll(), Ready(), Shutdown(): poll loop only (single goroutine)
//   - Dispatch(), Stats(): safe from any goroutine
//   - Start(): once, from any goroutine
//
// Cross-domain state lives exclusively in Slots and Queues. Everything else
// is owned by the poll loop and needs no locking.
type Bridge struct {
	service       netman.Service
	logger        *slog.Logger
	clock         *Clock
	ids           IDGenerator
	eventCapacity int

	tasks    *taskGroup
	schedule *Schedule
	started  atomic.Bool

	// Handoffs from background tasks.
	connSlot   *Slot[netman.Connection]
	eventsSlot *Slot[*Queue[netman.DeviceEvent]]
	actions    *Queue[pendingAction]
	failures   *Queue[ErrorRecord]

	// Poll-loop state.
	conn       netman.Connection
	subscribed bool
	events     *Queue[netman.DeviceEvent]
	out        []Event

	ticks   atomic.Int64
	dropped atomic.Int64
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = logger
	}
}

// WithIDGenerator sets the request ID generator. Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(b *Bridge) {
		b.ids = ids
	}
}

// WithClock sets the logical clock used to stamp events.
func WithClock(clock *Clock) Option {
	return func(b *Bridge) {
		b.clock = clock
	}
}

// WithEventQueueCapacity bounds the device event queue. 0 means unbounded.
// When full, the subscription task blocks until the poll loop drains it.
func WithEventQueueCapacity(n int) Option {
	return func(b *Bridge) {
		b.eventCapacity = n
	}
}

// New creates a bridge for the given service. Call Start to begin connecting.
func New(service netman.Service, opts ...Option) *Bridge {
	b := &Bridge{
		service:    service,
		logger:     slog.Default(),
		clock:      NewClock(),
		ids:        UUIDv7Generator{},
		schedule:   &Schedule{},
		connSlot:   NewSlot[netman.Connection](),
		eventsSlot: NewSlot[*Queue[netman.DeviceEvent]](),
		actions:    NewQueue[pendingAction](),
		failures:   NewQueue[ErrorRecord](),
	}

	for _, opt := range opts {
		opt(b)
	}

	b.tasks = newTaskGroup(b.logger, b.recordPanic)

	// Order matters: each handoff is taken before it is drained in the same tick.
	b.schedule.Add(RoutineServiceInit, b.takeConnection)
	b.schedule.Add(RoutineSubscribe, b.setupSubscription, b.Ready, b.notSubscribed)
	b.schedule.Add(RoutineInstallEvents, b.installEvents)
	b.schedule.Add(RoutineDrainEvents, b.drainEvents, b.hasEvents)
	b.schedule.Add(RoutineDispatch, b.dispatchActions)
	b.schedule.Add(RoutineDrainErrors, b.drainErrors)

	return b
}

// Schedule exposes the tick schedule so callers can append their own
// routines. Routines added here run after the bridge's own routines.
func (b *Bridge) Schedule() *Schedule {
	return b.schedule
}

// Start spawns the one-time service initialization task. It does not block.
func (b *Bridge) Start() error {
	if !b.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	if !b.tasks.Go(RoutineServiceInit, b.initService) {
		return ErrShutdown
	}
	return nil
}

// Ready reports whether the service connection has reached the poll loop.
// Monotonic: once true, it stays true for the life of the bridge.
func (b *Bridge) Ready() bool {
	return b.conn != nil
}

// Poll runs one tick of the schedule and returns the events it produced,
// in emission order. Never blocks. An empty result is normal.
func (b *Bridge) Poll() []Event {
	b.out = nil
	ran := b.schedule.Run()
	tick := b.ticks.Add(1)

	out := b.out
	b.out = nil
	if len(out) > 0 {
		b.logger.Debug("tick produced events", "tick", tick, "events", len(out), "routines", ran)
	}
	return out
}

// Dispatch queues an action for the next tick and returns its request ID.
// Safe from any goroutine. Requests reaching the dispatch routine before
// the bridge is Ready are dropped without an error record.
func (b *Bridge) Dispatch(req ActionRequest) string {
	if req == nil {
		return ""
	}
	id := b.ids.Generate()
	if !b.actions.Enqueue(pendingAction{id: id, req: req}) {
		b.logger.Debug("action rejected: bridge shut down", "action", req.Name(), "request", id)
		b.dropped.Add(1)
	}
	return id
}

// Stats is a point-in-time snapshot of bridge counters.
type Stats struct {
	Ticks          int64
	TasksSpawned   int64
	TasksActive    int64
	ActionsDropped int64
}

// Stats returns current counters. Safe from any goroutine.
func (b *Bridge) Stats() Stats {
	return Stats{
		Ticks:          b.ticks.Load(),
		TasksSpawned:   b.tasks.spawned.Load(),
		TasksActive:    b.tasks.active.Load(),
		ActionsDropped: b.dropped.Load(),
	}
}

// Shutdown cancels all background tasks, waits for them (bounded by ctx),
// and closes the connection. Events already queued can still be drained
// with Poll afterwards.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.logger.Info("bridge stopping")

	err := b.tasks.Shutdown(ctx)
	b.actions.Close()

	// A connection produced but never taken still needs closing.
	if conn, ok := b.connSlot.Take(); ok {
		b.closeConn(conn)
	}
	if b.conn != nil {
		b.closeConn(b.conn)
	}

	b.failures.Close()

	if err != nil {
		return fmt.Errorf("bridge shutdown: %w", err)
	}
	return nil
}

func (b *Bridge) closeConn(conn netman.Connection) {
	if err := conn.Close(); err != nil {
		b.logger.Warn("error closing service connection", "error", err)
	}
}

// initService runs on a background goroutine exactly once.
func (b *Bridge) initService(ctx context.Context) {
	conn, err := b.service.Connect(ctx)
	if err != nil {
		b.logger.Error("service init failed", "error", err)
		b.failures.Enqueue(ErrorRecord{Code: ErrCodeInit, Reason: err.Error()})
		return
	}

	if ctx.Err() != nil {
		// Shut down while connecting; nobody will take the slot.
		b.closeConn(conn)
		return
	}

	b.connSlot.Put(conn)
	b.logger.Info("service initialized")
}

// takeConnection moves the connection into the poll loop.
func (b *Bridge) takeConnection() {
	conn, ok := b.connSlot.Take()
	if !ok {
		return
	}
	if b.conn != nil {
		b.logger.Warn("duplicate service connection ignored")
		b.closeConn(conn)
		return
	}
	b.conn = conn
	b.emit(Event{Kind: EventReady})
}

func (b *Bridge) drainErrors() {
	for _, rec := range b.failures.Drain() {
		b.emit(Event{Kind: EventError, Error: &rec})
	}
}

func (b *Bridge) recordPanic(task string, r *panics.Recovered) {
	b.failures.Enqueue(ErrorRecord{
		Code:   ErrCodeTaskPanic,
		Reason: fmt.Sprint(r.Value),
		Action: task,
	})
}

func (b *Bridge) emit(ev Event) {
	ev.Seq = b.clock.Next()
	b.out = append(b.out, ev)
}
