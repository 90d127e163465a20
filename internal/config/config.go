// Package config loads busbridge settings from a YAML file.
//
// Loading happens in three steps: the raw document is checked against an
// embedded CUE schema (shape and types), decoded over the defaults, then
// Validate checks the resulting values.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/busbridge/internal/netman"
	"github.com/roach88/busbridge/internal/publisher"
)

// Config is the full busbridge configuration.
type Config struct {
	// Bus is the message bus NetworkManager is reached on.
	Bus netman.BusKind `yaml:"bus"`

	// Tick is the poll loop period.
	Tick Duration `yaml:"tick"`

	// ShutdownTimeout bounds how long shutdown waits for background tasks.
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// EventQueueCapacity bounds the device event queue; 0 means unbounded.
	EventQueueCapacity int `yaml:"event_queue_capacity"`

	// Journal is the sqlite path events are recorded to. Empty disables it.
	Journal string `yaml:"journal"`

	Publisher PublisherConfig `yaml:"publisher"`
}

// PublisherConfig configures the Add service.
type PublisherConfig struct {
	Bus         netman.BusKind `yaml:"bus"`
	ServiceName string         `yaml:"service_name"`
	ObjectPath  string         `yaml:"object_path"`
	Interval    Duration       `yaml:"interval"`
}

// Duration is a time.Duration written as a Go duration string ("250ms").
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Bus:                netman.SystemBus,
		Tick:               Duration(16 * time.Millisecond),
		ShutdownTimeout:    Duration(5 * time.Second),
		EventQueueCapacity: 0,
		Publisher: PublisherConfig{
			Bus:         netman.SessionBus,
			ServiceName: publisher.DefaultServiceName,
			ObjectPath:  string(publisher.DefaultObjectPath),
			Interval:    Duration(publisher.DefaultInterval),
		},
	}
}

// Load reads the file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults.
func Parse(data []byte) (*Config, error) {
	if err := checkSchema(data); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
