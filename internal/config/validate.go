package config

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/roach88/busbridge/internal/netman"
)

// Validate checks configuration values.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateBus("bus", cfg.Bus); err != nil {
		errs = append(errs, err)
	}
	if cfg.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick must be positive, got %s", cfg.Tick))
	}
	if cfg.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout must be positive, got %s", cfg.ShutdownTimeout))
	}
	if cfg.EventQueueCapacity < 0 {
		errs = append(errs, fmt.Errorf("event_queue_capacity must be >= 0, got %d", cfg.EventQueueCapacity))
	}

	p := cfg.Publisher
	if err := validateBus("publisher.bus", p.Bus); err != nil {
		errs = append(errs, err)
	}
	if p.ServiceName == "" {
		errs = append(errs, errors.New("publisher.service_name must not be empty"))
	}
	if !dbus.ObjectPath(p.ObjectPath).IsValid() {
		errs = append(errs, fmt.Errorf("publisher.object_path %q is not a valid object path", p.ObjectPath))
	}
	if p.Interval <= 0 {
		errs = append(errs, fmt.Errorf("publisher.interval must be positive, got %s", p.Interval))
	}

	return errors.Join(errs...)
}

func validateBus(field string, bus netman.BusKind) error {
	switch bus {
	case netman.SystemBus, netman.SessionBus:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", field, netman.SystemBus, netman.SessionBus, bus)
	}
}
