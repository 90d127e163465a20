package netman

import (
	"context"
	"fmt"
)

// Service creates connections to the network management service.
type Service interface {
	// Connect establishes the connection. Expected to be called once.
	Connect(ctx context.Context) (Connection, error)
}

// Connection is a live handle to the network management service.
// Implementations must be safe for concurrent use.
type Connection interface {
	// SubscribeEvents starts the device event stream.
	// The returned channel is closed when the stream ends.
	SubscribeEvents(ctx context.Context) (<-chan DeviceEvent, error)

	// SetWifi switches the Wi-Fi radio on or off.
	SetWifi(ctx context.Context, enabled bool) error

	// ToggleWifi activates (true) or disconnects (false) the Wi-Fi device.
	ToggleWifi(ctx context.Context, enabled bool) error

	// SwitchNetwork activates the saved connection with the given id.
	SwitchNetwork(ctx context.Context, connectionID string) error

	// Close releases the underlying bus connection.
	Close() error
}

// WifiState is the user-facing state of the Wi-Fi subsystem.
type WifiState int

const (
	WifiUnknown WifiState = iota
	WifiDisabled
	WifiEnabled
	WifiUnavailable
	WifiDisconnected
	WifiConnecting
	WifiConnected
	WifiDisconnecting
	WifiFailed
)

var wifiStateNames = [...]string{
	WifiUnknown:       "Unknown",
	WifiDisabled:      "Disabled",
	WifiEnabled:       "Enabled",
	WifiUnavailable:   "Unavailable",
	WifiDisconnected:  "Disconnected",
	WifiConnecting:    "Connecting",
	WifiConnected:     "Connected",
	WifiDisconnecting: "Disconnecting",
	WifiFailed:        "Failed",
}

// String returns the display name of the state.
func (s WifiState) String() string {
	if s < 0 || int(s) >= len(wifiStateNames) {
		return fmt.Sprintf("WifiState(%d)", int(s))
	}
	return wifiStateNames[s]
}

// NetworkManager device states (NM_DEVICE_STATE_*).
const (
	deviceStateUnmanaged    uint32 = 10
	deviceStateUnavailable  uint32 = 20
	deviceStateDisconnected uint32 = 30
	deviceStatePrepare      uint32 = 40
	deviceStateSecondaries  uint32 = 90
	deviceStateActivated    uint32 = 100
	deviceStateDeactivating uint32 = 110
	deviceStateFailed       uint32 = 120
)

// StateFromDevice maps a raw NM_DEVICE_STATE value to a WifiState.
func StateFromDevice(state uint32) WifiState {
	switch {
	case state == deviceStateUnmanaged, state == deviceStateUnavailable:
		return WifiUnavailable
	case state == deviceStateDisconnected:
		return WifiDisconnected
	case state >= deviceStatePrepare && state <= deviceStateSecondaries:
		return WifiConnecting
	case state == deviceStateActivated:
		return WifiConnected
	case state == deviceStateDeactivating:
		return WifiDisconnecting
	case state == deviceStateFailed:
		return WifiFailed
	default:
		return WifiUnknown
	}
}

// DeviceEvent is one state change reported by the service.
type DeviceEvent struct {
	// Device is the bus object path of the device ("" for radio-level events).
	Device string
	// Interface is the kernel interface name, e.g. "wlan0".
	Interface string
	State     WifiState
	// Reason is the raw NM_DEVICE_STATE_REASON value, 0 when not applicable.
	Reason uint32
}

// String renders the event the way the status display shows it.
func (e DeviceEvent) String() string {
	if e.Interface == "" {
		return e.State.String()
	}
	return fmt.Sprintf("%s: %s", e.Interface, e.State)
}
