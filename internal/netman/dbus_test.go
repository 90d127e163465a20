package netman

import (
	"context"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFromDevice(t *testing.T) {
	tests := []struct {
		raw  uint32
		want WifiState
	}{
		{0, WifiUnknown},
		{10, WifiUnavailable},
		{20, WifiUnavailable},
		{30, WifiDisconnected},
		{40, WifiConnecting},
		{60, WifiConnecting},
		{90, WifiConnecting},
		{100, WifiConnected},
		{110, WifiDisconnecting},
		{120, WifiFailed},
		{999, WifiUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StateFromDevice(tt.raw), "raw state %d", tt.raw)
	}
}

func TestWifiState_String(t *testing.T) {
	assert.Equal(t, "Connected", WifiConnected.String())
	assert.Equal(t, "Disabled", WifiDisabled.String())
	assert.Equal(t, "WifiState(42)", WifiState(42).String())
}

func TestDeviceEvent_String(t *testing.T) {
	assert.Equal(t, "Enabled", DeviceEvent{State: WifiEnabled}.String())
	assert.Equal(t, "wlan0: Connected", DeviceEvent{Interface: "wlan0", State: WifiConnected}.String())
}

func TestTranslateSignal_DeviceStateChanged(t *testing.T) {
	path := dbus.ObjectPath("/org/freedesktop/NetworkManager/Devices/3")
	ifaces := map[dbus.ObjectPath]string{path: "wlan0"}

	sig := &dbus.Signal{
		Path: path,
		Name: nmDeviceInterface + ".StateChanged",
		Body: []interface{}{uint32(100), uint32(90), uint32(0)},
	}

	ev, ok := translateSignal(sig, ifaces)
	require.True(t, ok)
	assert.Equal(t, string(path), ev.Device)
	assert.Equal(t, "wlan0", ev.Interface)
	assert.Equal(t, WifiConnected, ev.State)
	assert.Equal(t, uint32(0), ev.Reason)
}

func TestTranslateSignal_WirelessEnabled(t *testing.T) {
	sig := &dbus.Signal{
		Path: nmPath,
		Name: propertiesInterface + ".PropertiesChanged",
		Body: []interface{}{
			nmInterface,
			map[string]dbus.Variant{"WirelessEnabled": dbus.MakeVariant(false)},
			[]string{},
		},
	}

	ev, ok := translateSignal(sig, nil)
	require.True(t, ok)
	assert.Equal(t, WifiDisabled, ev.State)
	assert.Empty(t, ev.Device)
}

func TestTranslateSignal_Ignored(t *testing.T) {
	tests := map[string]*dbus.Signal{
		"nil":   nil,
		"other": {Name: "org.example.Foo.Bar"},
		"short state body": {
			Name: nmDeviceInterface + ".StateChanged",
			Body: []interface{}{uint32(100)},
		},
		"unrelated property": {
			Path: nmPath,
			Name: propertiesInterface + ".PropertiesChanged",
			Body: []interface{}{
				nmInterface,
				map[string]dbus.Variant{"NetworkingEnabled": dbus.MakeVariant(true)},
			},
		},
		"other interface": {
			Path: nmPath,
			Name: propertiesInterface + ".PropertiesChanged",
			Body: []interface{}{
				"org.freedesktop.NetworkManager.AccessPoint",
				map[string]dbus.Variant{"WirelessEnabled": dbus.MakeVariant(true)},
			},
		},
	}

	for name, sig := range tests {
		t.Run(name, func(t *testing.T) {
			_, ok := translateSignal(sig, nil)
			assert.False(t, ok)
		})
	}
}

func TestDial_UnknownBus(t *testing.T) {
	_, err := Dial(context.Background(), BusKind("tram"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown bus "tram"`)
}

func TestConnect_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, bus := range []BusKind{SystemBus, SessionBus} {
		conn, err := NewDBusService(bus, nil).Connect(ctx)
		require.ErrorIs(t, err, context.Canceled, "bus %s", bus)
		assert.Nil(t, conn)
	}
}
