package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Add service bus coordinates.
const (
	DefaultServiceName = "org.mechanix.services.Add"
	DefaultObjectPath  = dbus.ObjectPath("/org/mechanix/services/Add")
	InterfaceName      = "org.mechanix.services.Add"

	MethodAddNumber = InterfaceName + ".AddNumber"
	SignalName      = "Notification"
	SignalMember    = InterfaceName + "." + SignalName

	// ErrOverflowName is returned by AddNumber when the sum leaves the int8 range.
	ErrOverflowName = InterfaceName + ".Error.Overflow"
	// ErrInvalidArgsName is returned when an argument is outside the int8 range.
	ErrInvalidArgsName = "org.freedesktop.DBus.Error.InvalidArgs"

	colorKey = "color"
)

// Adder is the object exported at the service path.
//
// Arguments travel as int16 ("n"), the wire encoding existing clients use
// for 8-bit signed integers; values outside int8 are rejected.
type Adder struct {
	logger *slog.Logger
}

// AddNumber returns a + b, failing on int8 overflow instead of wrapping.
func (a Adder) AddNumber(x, y int16) (int16, *dbus.Error) {
	if !fitsInt8(x) || !fitsInt8(y) {
		return 0, dbus.NewError(ErrInvalidArgsName, []any{fmt.Sprintf("arguments %d, %d out of int8 range", x, y)})
	}

	sum, ok := AddInt8(int8(x), int8(y))
	if !ok {
		a.log().Warn("AddNumber overflow", "a", x, "b", y)
		return 0, dbus.NewError(ErrOverflowName, []any{fmt.Sprintf("%d + %d overflows int8", x, y)})
	}

	a.log().Info("AddNumber", "a", x, "b", y, "sum", sum)
	return int16(sum), nil
}

func (a Adder) log() *slog.Logger {
	if a.logger == nil {
		return slog.Default()
	}
	return a.logger
}

// AddInt8 adds two int8 values, reporting false on overflow.
func AddInt8(a, b int8) (int8, bool) {
	sum := int16(a) + int16(b)
	if !fitsInt8(sum) {
		return 0, false
	}
	return int8(sum), true
}

func fitsInt8(v int16) bool {
	return v >= math.MinInt8 && v <= math.MaxInt8
}

// introspectNode describes the exported object for bus introspection.
func introspectNode(path dbus.ObjectPath) *introspect.Node {
	return &introspect.Node{
		Name: string(path),
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    InterfaceName,
				Methods: introspect.Methods(Adder{}),
				Signals: []introspect.Signal{{
					Name: SignalName,
					Args: []introspect.Arg{{Name: "event", Type: "a{sv}"}},
				}},
			},
		},
	}
}

// Export publishes the Add interface and its introspection data at path.
func Export(conn *dbus.Conn, path dbus.ObjectPath, logger *slog.Logger) error {
	if err := conn.Export(Adder{logger: logger}, path, InterfaceName); err != nil {
		return fmt.Errorf("export %s: %w", InterfaceName, err)
	}
	node := introspectNode(path)
	if err := conn.Export(introspect.NewIntrospectable(node), path, "org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("export introspection: %w", err)
	}
	return nil
}

// BusEmitter emits Notification signals on a bus connection.
type BusEmitter struct {
	Conn *dbus.Conn
	Path dbus.ObjectPath
}

// Emit implements Emitter. The payload is a{sv} with a single "color" entry.
func (e BusEmitter) Emit(_ context.Context, n Notification) error {
	return e.Conn.Emit(e.Path, SignalMember, encodeNotification(n))
}

func encodeNotification(n Notification) map[string]dbus.Variant {
	return map[string]dbus.Variant{colorKey: dbus.MakeVariant(n.Color)}
}

// ServeOptions configures Serve. Zero values fall back to the defaults.
type ServeOptions struct {
	ServiceName string
	ObjectPath  dbus.ObjectPath
	Interval    time.Duration
	Logger      *slog.Logger
}

func (o ServeOptions) withDefaults() ServeOptions {
	if o.ServiceName == "" {
		o.ServiceName = DefaultServiceName
	}
	if o.ObjectPath == "" {
		o.ObjectPath = DefaultObjectPath
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Serve exports the Add service, claims its bus name, and publishes
// notifications until ctx is cancelled.
func Serve(ctx context.Context, conn *dbus.Conn, opts ServeOptions) error {
	opts = opts.withDefaults()

	if err := Export(conn, opts.ObjectPath, opts.Logger); err != nil {
		return err
	}

	reply, err := conn.RequestName(opts.ServiceName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("request name %s: %w", opts.ServiceName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken", opts.ServiceName)
	}
	defer func() {
		if _, err := conn.ReleaseName(opts.ServiceName); err != nil {
			opts.Logger.Warn("release bus name", "name", opts.ServiceName, "error", err)
		}
	}()

	opts.Logger.Info("add service ready", "name", opts.ServiceName, "path", opts.ObjectPath)

	p := New(BusEmitter{Conn: conn, Path: opts.ObjectPath},
		WithInterval(opts.Interval),
		WithLogger(opts.Logger),
	)
	return p.Run(ctx)
}
