package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/busbridge/internal/netman"
	"github.com/roach88/busbridge/internal/publisher"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, Validate(cfg))

	assert.Equal(t, netman.SystemBus, cfg.Bus)
	assert.Equal(t, 16*time.Millisecond, cfg.Tick.Std())
	assert.Equal(t, netman.SessionBus, cfg.Publisher.Bus)
	assert.Equal(t, publisher.DefaultServiceName, cfg.Publisher.ServiceName)
	assert.Equal(t, time.Second, cfg.Publisher.Interval.Std())
	assert.Empty(t, cfg.Journal, "journal disabled by default")
	assert.Zero(t, cfg.EventQueueCapacity, "event queue unbounded by default")
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bus: session
tick: 50ms
shutdown_timeout: 2s
event_queue_capacity: 32
journal: /tmp/busbridge.db
publisher:
  interval: 250ms
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, netman.SessionBus, cfg.Bus)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick.Std())
	assert.Equal(t, 2*time.Second, cfg.ShutdownTimeout.Std())
	assert.Equal(t, 32, cfg.EventQueueCapacity)
	assert.Equal(t, "/tmp/busbridge.db", cfg.Journal)
	assert.Equal(t, 250*time.Millisecond, cfg.Publisher.Interval.Std())
	assert.Equal(t, publisher.DefaultServiceName, cfg.Publisher.ServiceName, "unset keys keep defaults")
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse([]byte("# nothing here\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"unknown key", "colour: red\n", "config schema"},
		{"unknown nested key", "publisher:\n  colour: red\n", "config schema"},
		{"bad bus", "bus: tcp\n", "config schema"},
		{"duration not a string", "tick: 5\n", "config schema"},
		{"malformed duration", "tick: fast\n", "config schema"},
		{"negative capacity", "event_queue_capacity: -1\n", "config schema"},
		{"fractional capacity", "event_queue_capacity: 1.5\n", "config schema"},
		{"relative object path", "publisher:\n  object_path: org/mechanix\n", "config schema"},
		{"zero tick", "tick: 0s\n", "tick must be positive"},
		{"invalid object path", "publisher:\n  object_path: /trailing/\n", "not a valid object path"},
		{"not yaml", "bus: [\n", "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Tick = 0
	cfg.Publisher.ServiceName = ""

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tick must be positive")
	assert.Contains(t, err.Error(), "publisher.service_name must not be empty")
}

func TestMarshal_RoundTripsThroughParse(t *testing.T) {
	data, err := Marshal(Default())
	require.NoError(t, err)
	assert.Contains(t, string(data), "tick: 16ms")

	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
