package publisher

import (
	"math"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInt8(t *testing.T) {
	tests := []struct {
		name string
		a, b int8
		want int8
		ok   bool
	}{
		{"simple", 2, 3, 5, true},
		{"negative", -100, 28, -72, true},
		{"max boundary", 100, 27, 127, true},
		{"min boundary", -100, -28, -128, true},
		{"overflow", 100, 28, 0, false},
		{"underflow", -100, -29, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AddInt8(tt.a, tt.b)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdder_AddNumber(t *testing.T) {
	sum, derr := Adder{logger: quietLogger()}.AddNumber(40, 2)
	require.Nil(t, derr)
	assert.Equal(t, int16(42), sum)
}

func TestAdder_AddNumber_Overflow(t *testing.T) {
	_, derr := Adder{logger: quietLogger()}.AddNumber(math.MaxInt8, 1)
	require.NotNil(t, derr)
	assert.Equal(t, ErrOverflowName, derr.Name)
}

func TestAdder_AddNumber_ArgumentOutOfRange(t *testing.T) {
	_, derr := Adder{logger: quietLogger()}.AddNumber(200, 1)
	require.NotNil(t, derr)
	assert.Equal(t, ErrInvalidArgsName, derr.Name)
}

func TestDecodeNotification(t *testing.T) {
	sig := &dbus.Signal{
		Path: DefaultObjectPath,
		Name: SignalMember,
		Body: []any{encodeNotification(Notification{Color: "RGB(0.5, 0.25, 0)"})},
	}

	n, ok := decodeNotification(sig, DefaultObjectPath)
	require.True(t, ok)
	assert.Equal(t, "RGB(0.5, 0.25, 0)", n.Color)
}

func TestDecodeNotification_Ignored(t *testing.T) {
	valid := []any{encodeNotification(Notification{Color: "RGB(0, 0, 0)"})}

	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"other member", &dbus.Signal{Path: DefaultObjectPath, Name: InterfaceName + ".Other", Body: valid}},
		{"other path", &dbus.Signal{Path: "/elsewhere", Name: SignalMember, Body: valid}},
		{"empty body", &dbus.Signal{Path: DefaultObjectPath, Name: SignalMember}},
		{"wrong body type", &dbus.Signal{Path: DefaultObjectPath, Name: SignalMember, Body: []any{"RGB(0, 0, 0)"}}},
		{"missing color", &dbus.Signal{Path: DefaultObjectPath, Name: SignalMember, Body: []any{map[string]dbus.Variant{}}}},
		{"non-string color", &dbus.Signal{Path: DefaultObjectPath, Name: SignalMember, Body: []any{
			map[string]dbus.Variant{"color": dbus.MakeVariant(uint32(1))},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := decodeNotification(tt.sig, DefaultObjectPath)
			assert.False(t, ok)
		})
	}
}

func TestIntrospectNode(t *testing.T) {
	node := introspectNode(DefaultObjectPath)
	require.Len(t, node.Interfaces, 2)

	iface := node.Interfaces[1]
	assert.Equal(t, InterfaceName, iface.Name)

	var methods []string
	for _, m := range iface.Methods {
		methods = append(methods, m.Name)
	}
	assert.Contains(t, methods, "AddNumber")

	require.Len(t, iface.Signals, 1)
	assert.Equal(t, SignalName, iface.Signals[0].Name)
	assert.Equal(t, "a{sv}", iface.Signals[0].Args[0].Type)
}

func TestServeOptionsDefaults(t *testing.T) {
	o := ServeOptions{}.withDefaults()
	assert.Equal(t, DefaultServiceName, o.ServiceName)
	assert.Equal(t, DefaultObjectPath, o.ObjectPath)
	assert.Equal(t, DefaultInterval, o.Interval)
	assert.NotNil(t, o.Logger)
}
