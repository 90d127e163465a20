package publisher

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

// ClientOptions locates the Add service. Zero values fall back to the defaults.
type ClientOptions struct {
	ServiceName string
	ObjectPath  dbus.ObjectPath
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.ServiceName == "" {
		o.ServiceName = DefaultServiceName
	}
	if o.ObjectPath == "" {
		o.ObjectPath = DefaultObjectPath
	}
	return o
}

// Subscribe streams Notification signals until ctx is cancelled or the
// connection closes; the returned channel is closed then.
func Subscribe(ctx context.Context, conn *dbus.Conn, opts ClientOptions) (<-chan Notification, error) {
	opts = opts.withDefaults()

	match := []dbus.MatchOption{
		dbus.WithMatchObjectPath(opts.ObjectPath),
		dbus.WithMatchInterface(InterfaceName),
		dbus.WithMatchMember(SignalName),
	}
	if err := conn.AddMatchSignalContext(ctx, match...); err != nil {
		return nil, fmt.Errorf("add signal match: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)

	out := make(chan Notification)
	go func() {
		defer close(out)
		defer func() {
			conn.RemoveSignal(signals)
			_ = conn.RemoveMatchSignalContext(context.Background(), match...)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				n, ok := decodeNotification(sig, opts.ObjectPath)
				if !ok {
					continue
				}
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// decodeNotification extracts the payload of a Notification signal.
// Returns false for any other signal or a malformed body.
func decodeNotification(sig *dbus.Signal, path dbus.ObjectPath) (Notification, bool) {
	if sig.Name != SignalMember || sig.Path != path || len(sig.Body) != 1 {
		return Notification{}, false
	}
	fields, ok := sig.Body[0].(map[string]dbus.Variant)
	if !ok {
		return Notification{}, false
	}
	v, ok := fields[colorKey]
	if !ok {
		return Notification{}, false
	}
	color, ok := v.Value().(string)
	if !ok {
		return Notification{}, false
	}
	return Notification{Color: color}, true
}

// AddNumber calls the service's AddNumber method.
func AddNumber(ctx context.Context, conn *dbus.Conn, opts ClientOptions, a, b int8) (int8, error) {
	opts = opts.withDefaults()

	var sum int16
	obj := conn.Object(opts.ServiceName, opts.ObjectPath)
	if err := obj.CallWithContext(ctx, MethodAddNumber, 0, int16(a), int16(b)).Store(&sum); err != nil {
		return 0, fmt.Errorf("%s: %w", MethodAddNumber, err)
	}
	if !fitsInt8(sum) {
		return 0, fmt.Errorf("%s: reply %d out of int8 range", MethodAddNumber, sum)
	}
	return int8(sum), nil
}
