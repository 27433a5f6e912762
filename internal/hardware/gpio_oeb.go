package hardware

import (
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// OEBPin drives the Si5351's active-low OEB pin, which gates every output
// whose bit is clear in the OEB mask register.
type OEBPin struct {
	pin gpio.PinOut
}

// OpenOEBPin opens the GPIO called name (e.g. "GPIO17").
func OpenOEBPin(name string) (*OEBPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: host init failed: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: failed to open %s (OEB)", name)
	}
	return NewOEBPin(p), nil
}

// NewOEBPin wraps an already opened pin.
func NewOEBPin(p gpio.PinOut) *OEBPin {
	return &OEBPin{pin: p}
}

// Enable drives OEB low so the outputs run.
func (o *OEBPin) Enable() error {
	if err := o.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio: failed to assert OEB: %w", err)
	}
	slog.Debug("gpio: outputs enabled", "pin", o.pin.Name())
	return nil
}

// Disable drives OEB high so the outputs hold their disable state.
func (o *OEBPin) Disable() error {
	if err := o.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("gpio: failed to release OEB: %w", err)
	}
	slog.Debug("gpio: outputs disabled", "pin", o.pin.Name())
	return nil
}
