package netman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// NetworkManager bus coordinates.
const (
	nmService             = "org.freedesktop.NetworkManager"
	nmPath                = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmInterface           = "org.freedesktop.NetworkManager"
	nmDeviceInterface     = "org.freedesktop.NetworkManager.Device"
	nmSettingsPath        = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	nmSettingsInterface   = "org.freedesktop.NetworkManager.Settings"
	nmConnectionInterface = "org.freedesktop.NetworkManager.Settings.Connection"
	propertiesInterface   = "org.freedesktop.DBus.Properties"

	deviceTypeWifi uint32 = 2

	// signalBuffer sizes the channel godbus delivers matched signals into.
	signalBuffer = 32
)

// ErrNoWifiDevice is returned by device-level actions when no Wi-Fi device exists.
var ErrNoWifiDevice = errors.New("no wifi device found")

// BusKind selects the message bus to dial.
type BusKind string

const (
	SystemBus  BusKind = "system"
	SessionBus BusKind = "session"
)

// Dial opens a private connection to the selected bus. The connection is
// closed when ctx ends, and a dial in progress is abandoned.
func Dial(ctx context.Context, bus BusKind) (*dbus.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch bus {
	case SessionBus:
		return dbus.ConnectSessionBus(dbus.WithContext(ctx))
	case SystemBus, "":
		return dbus.ConnectSystemBus(dbus.WithContext(ctx))
	default:
		return nil, fmt.Errorf("unknown bus %q", bus)
	}
}

// DBusService talks to NetworkManager over D-Bus.
type DBusService struct {
	bus    BusKind
	logger *slog.Logger
}

// NewDBusService creates a service for the given bus. A nil logger uses slog.Default().
func NewDBusService(bus BusKind, logger *slog.Logger) *DBusService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DBusService{bus: bus, logger: logger}
}

type wifiDevice struct {
	path  dbus.ObjectPath
	iface string
}

type dbusConnection struct {
	conn    *dbus.Conn
	nm      dbus.BusObject
	devices []wifiDevice
	ifaces  map[dbus.ObjectPath]string
	logger  *slog.Logger
}

// Connect dials the bus, checks NetworkManager is reachable and discovers Wi-Fi devices.
func (s *DBusService) Connect(ctx context.Context) (Connection, error) {
	conn, err := Dial(ctx, s.bus)
	if err != nil {
		return nil, fmt.Errorf("connect %s bus: %w", s.bus, err)
	}

	c := &dbusConnection{
		conn:   conn,
		nm:     conn.Object(nmService, nmPath),
		ifaces: make(map[dbus.ObjectPath]string),
		logger: s.logger,
	}

	if err := c.nm.CallWithContext(ctx, "org.freedesktop.DBus.Peer.Ping", 0).Err; err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping NetworkManager: %w", err)
	}

	devices, err := c.discoverWifiDevices(ctx)
	if err != nil {
		conn.Close()
		return nil, err
	}
	c.devices = devices
	for _, d := range devices {
		c.ifaces[d.path] = d.iface
	}

	s.logger.Info("NetworkManager connected", "bus", string(s.bus), "wifi_devices", len(devices))
	return c, nil
}

func (c *dbusConnection) discoverWifiDevices(ctx context.Context) ([]wifiDevice, error) {
	var paths []dbus.ObjectPath
	if err := c.nm.CallWithContext(ctx, nmInterface+".GetDevices", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	var out []wifiDevice
	for _, p := range paths {
		dev := c.conn.Object(nmService, p)

		var kind uint32
		if err := getProperty(ctx, dev, nmDeviceInterface, "DeviceType", &kind); err != nil {
			return nil, err
		}
		if kind != deviceTypeWifi {
			continue
		}

		var iface string
		if err := getProperty(ctx, dev, nmDeviceInterface, "Interface", &iface); err != nil {
			return nil, err
		}
		out = append(out, wifiDevice{path: p, iface: iface})
	}
	return out, nil
}

func getProperty(ctx context.Context, obj dbus.BusObject, iface, name string, dst any) error {
	var v dbus.Variant
	if err := obj.CallWithContext(ctx, propertiesInterface+".Get", 0, iface, name).Store(&v); err != nil {
		return fmt.Errorf("get %s.%s: %w", iface, name, err)
	}
	if err := dbus.Store([]interface{}{v.Value()}, dst); err != nil {
		return fmt.Errorf("decode %s.%s: %w", iface, name, err)
	}
	return nil
}

// SubscribeEvents matches radio and device state signals and relays them in arrival order.
func (c *dbusConnection) SubscribeEvents(ctx context.Context) (<-chan DeviceEvent, error) {
	matches := [][]dbus.MatchOption{{
		dbus.WithMatchObjectPath(nmPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	}}
	for _, d := range c.devices {
		matches = append(matches, []dbus.MatchOption{
			dbus.WithMatchObjectPath(d.path),
			dbus.WithMatchInterface(nmDeviceInterface),
			dbus.WithMatchMember("StateChanged"),
		})
	}

	for i, m := range matches {
		if err := c.conn.AddMatchSignalContext(ctx, m...); err != nil {
			for _, added := range matches[:i] {
				_ = c.conn.RemoveMatchSignalContext(context.Background(), added...)
			}
			return nil, fmt.Errorf("add signal match: %w", err)
		}
	}

	signals := make(chan *dbus.Signal, signalBuffer)
	c.conn.Signal(signals)

	out := make(chan DeviceEvent)
	go c.relay(ctx, signals, out, matches)
	return out, nil
}

func (c *dbusConnection) relay(ctx context.Context, signals chan *dbus.Signal, out chan<- DeviceEvent, matches [][]dbus.MatchOption) {
	defer close(out)
	defer func() {
		c.conn.RemoveSignal(signals)
		for _, m := range matches {
			_ = c.conn.RemoveMatchSignalContext(context.Background(), m...)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signals:
			if !ok {
				c.logger.Info("NetworkManager signal stream ended")
				return
			}
			ev, ok := translateSignal(sig, c.ifaces)
			if !ok {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// translateSignal converts a matched bus signal into a DeviceEvent.
// Returns false for signals that carry no Wi-Fi state.
func translateSignal(sig *dbus.Signal, ifaces map[dbus.ObjectPath]string) (DeviceEvent, bool) {
	if sig == nil {
		return DeviceEvent{}, false
	}

	switch sig.Name {
	case nmDeviceInterface + ".StateChanged":
		if len(sig.Body) < 3 {
			return DeviceEvent{}, false
		}
		newState, ok := sig.Body[0].(uint32)
		if !ok {
			return DeviceEvent{}, false
		}
		reason, _ := sig.Body[2].(uint32)
		return DeviceEvent{
			Device:    string(sig.Path),
			Interface: ifaces[sig.Path],
			State:     StateFromDevice(newState),
			Reason:    reason,
		}, true

	case propertiesInterface + ".PropertiesChanged":
		if sig.Path != nmPath || len(sig.Body) < 2 {
			return DeviceEvent{}, false
		}
		if iface, _ := sig.Body[0].(string); iface != nmInterface {
			return DeviceEvent{}, false
		}
		changed, ok := sig.Body[1].(map[string]dbus.Variant)
		if !ok {
			return DeviceEvent{}, false
		}
		v, ok := changed["WirelessEnabled"]
		if !ok {
			return DeviceEvent{}, false
		}
		enabled, ok := v.Value().(bool)
		if !ok {
			return DeviceEvent{}, false
		}
		state := WifiDisabled
		if enabled {
			state = WifiEnabled
		}
		return DeviceEvent{State: state}, true
	}

	return DeviceEvent{}, false
}

// SetWifi writes NetworkManager's WirelessEnabled property.
func (c *dbusConnection) SetWifi(ctx context.Context, enabled bool) error {
	call := c.nm.CallWithContext(ctx, propertiesInterface+".Set", 0,
		nmInterface, "WirelessEnabled", dbus.MakeVariant(enabled))
	if call.Err != nil {
		return fmt.Errorf("set WirelessEnabled=%t: %w", enabled, call.Err)
	}
	return nil
}

// ToggleWifi lets NetworkManager pick a connection for the device, or disconnects it.
func (c *dbusConnection) ToggleWifi(ctx context.Context, enabled bool) error {
	dev, err := c.primaryDevice()
	if err != nil {
		return err
	}

	if enabled {
		return c.activate(ctx, dbus.ObjectPath("/"), dev)
	}

	call := c.conn.Object(nmService, dev.path).CallWithContext(ctx, nmDeviceInterface+".Disconnect", 0)
	if call.Err != nil {
		return fmt.Errorf("disconnect %s: %w", dev.iface, call.Err)
	}
	return nil
}

// SwitchNetwork activates the saved connection whose connection.id matches.
func (c *dbusConnection) SwitchNetwork(ctx context.Context, connectionID string) error {
	dev, err := c.primaryDevice()
	if err != nil {
		return err
	}

	var saved []dbus.ObjectPath
	settings := c.conn.Object(nmService, nmSettingsPath)
	if err := settings.CallWithContext(ctx, nmSettingsInterface+".ListConnections", 0).Store(&saved); err != nil {
		return fmt.Errorf("list connections: %w", err)
	}

	for _, p := range saved {
		var s map[string]map[string]dbus.Variant
		call := c.conn.Object(nmService, p).CallWithContext(ctx, nmConnectionInterface+".GetSettings", 0)
		if err := call.Store(&s); err != nil {
			return fmt.Errorf("read connection %s: %w", p, err)
		}
		if id, ok := s["connection"]["id"].Value().(string); ok && id == connectionID {
			return c.activate(ctx, p, dev)
		}
	}

	return fmt.Errorf("no saved connection %q", connectionID)
}

func (c *dbusConnection) activate(ctx context.Context, connection dbus.ObjectPath, dev wifiDevice) error {
	call := c.nm.CallWithContext(ctx, nmInterface+".ActivateConnection", 0,
		connection, dev.path, dbus.ObjectPath("/"))
	if call.Err != nil {
		return fmt.Errorf("activate %s on %s: %w", connection, dev.iface, call.Err)
	}
	return nil
}

func (c *dbusConnection) primaryDevice() (wifiDevice, error) {
	if len(c.devices) == 0 {
		return wifiDevice{}, ErrNoWifiDevice
	}
	return c.devices[0], nil
}

// Close closes the private bus connection, ending any event stream.
func (c *dbusConnection) Close() error {
	return c.conn.Close()
}
