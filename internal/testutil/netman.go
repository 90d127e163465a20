package testutil

import (
	"context"
	"sync"

	"github.com/roach88/busbridge/internal/netman"
)

// FakeService is an in-memory netman.Service for tests.
//
// By default Connect succeeds immediately with Conn. HoldConnect makes
// Connect block until released, to control which tick the connection lands on.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeService struct {
	mu         sync.Mutex
	conn       *FakeConnection
	connectErr error
	gate       chan struct{}
	connects   int
}

// NewFakeService creates a service whose Connect returns a fresh FakeConnection.
func NewFakeService() *FakeService {
	return &FakeService{conn: NewFakeConnection()}
}

// Conn returns the connection Connect hands out.
func (s *FakeService) Conn() *FakeConnection {
	return s.conn
}

// FailConnect makes Connect return err.
func (s *FakeService) FailConnect(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectErr = err
}

// HoldConnect makes Connect block until the returned release func is called.
func (s *FakeService) HoldConnect() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	gate := make(chan struct{})
	s.gate = gate
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Connect implements netman.Service.
func (s *FakeService) Connect(ctx context.Context) (netman.Connection, error) {
	s.mu.Lock()
	s.connects++
	gate, err := s.gate, s.connectErr
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return s.conn, nil
}

// Connects returns how many times Connect was called.
func (s *FakeService) Connects() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// Call records one action invocation on a FakeConnection.
type Call struct {
	Method string
	Arg    any
}

// FakeConnection is an in-memory netman.Connection.
//
// Events pushed with Emit are buffered until the subscriber reads them;
// EndStream closes the stream the way a bus disconnect would.
type FakeConnection struct {
	mu           sync.Mutex
	events       chan netman.DeviceEvent
	endOnce      sync.Once
	subscribeErr error
	failures     map[string]error
	calls        []Call
	subscribes   int
	closed       bool
}

// NewFakeConnection creates a connection with a buffered event stream.
func NewFakeConnection() *FakeConnection {
	return &FakeConnection{
		events:   make(chan netman.DeviceEvent, 256),
		failures: make(map[string]error),
	}
}

// Emit produces a device event on the stream.
func (c *FakeConnection) Emit(ev netman.DeviceEvent) {
	c.events <- ev
}

// EndStream closes the event stream.
func (c *FakeConnection) EndStream() {
	c.endOnce.Do(func() { close(c.events) })
}

// FailSubscribe makes SubscribeEvents return err.
func (c *FakeConnection) FailSubscribe(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribeErr = err
}

// FailAction makes the named method ("SetWifi", "ToggleWifi", "SwitchNetwork") return err.
func (c *FakeConnection) FailAction(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[method] = err
}

// Subscribes returns how many times SubscribeEvents was called.
func (c *FakeConnection) Subscribes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribes
}

// Calls returns a copy of the recorded action calls.
func (c *FakeConnection) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Closed reports whether Close was called.
func (c *FakeConnection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// SubscribeEvents implements netman.Connection.
func (c *FakeConnection) SubscribeEvents(ctx context.Context) (<-chan netman.DeviceEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribes++
	if c.subscribeErr != nil {
		return nil, c.subscribeErr
	}
	return c.events, nil
}

func (c *FakeConnection) record(method string, arg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Method: method, Arg: arg})
	return c.failures[method]
}

// SetWifi implements netman.Connection.
func (c *FakeConnection) SetWifi(ctx context.Context, enabled bool) error {
	return c.record("SetWifi", enabled)
}

// ToggleWifi implements netman.Connection.
func (c *FakeConnection) ToggleWifi(ctx context.Context, enabled bool) error {
	return c.record("ToggleWifi", enabled)
}

// SwitchNetwork implements netman.Connection.
func (c *FakeConnection) SwitchNetwork(ctx context.Context, connectionID string) error {
	return c.record("SwitchNetwork", connectionID)
}

// Close implements netman.Connection. Ends the event stream.
func (c *FakeConnection) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.EndStream()
	return nil
}
