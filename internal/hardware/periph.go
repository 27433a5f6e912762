package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// PeriphDriver reaches the bus through periph.io, which also covers hosts
// where i2c-dev is not the native interface.
type PeriphDriver struct {
	mu    sync.Mutex
	name  string
	speed physic.Frequency
	bus   i2c.Bus
	close func() error
}

// NewPeriph creates a driver for the periph.io bus called name ("" picks the
// first bus). A non-zero speed is applied to the bus on Init.
func NewPeriph(name string, speed physic.Frequency) *PeriphDriver {
	return &PeriphDriver{name: name, speed: speed}
}

// NewPeriphWithBus wraps an already opened bus, such as i2ctest.Playback.
func NewPeriphWithBus(bus i2c.Bus) *PeriphDriver {
	return &PeriphDriver{name: bus.String(), bus: bus}
}

func (d *PeriphDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bus == nil {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph: host init failed: %w", err)
		}
		bc, err := i2creg.Open(d.name)
		if err != nil {
			return fmt.Errorf("periph: open bus %q: %w", d.name, err)
		}
		d.bus = bc
		d.close = bc.Close
	}
	if d.speed > 0 {
		if err := d.bus.SetSpeed(d.speed); err != nil {
			return fmt.Errorf("periph: set speed %s: %w", d.speed, err)
		}
	}
	slog.Info("periph: bus opened", "bus", d.bus.String(), "speed", d.speed)
	return nil
}

func (d *PeriphDriver) dev(addr uint16) (*i2c.Dev, error) {
	if d.bus == nil {
		return nil, fmt.Errorf("periph: driver not initialized")
	}
	return &i2c.Dev{Bus: d.bus, Addr: addr}, nil
}

func (d *PeriphDriver) Read(ctx context.Context, addr uint16, reg Register, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, err := d.dev(addr)
	if err != nil {
		return err
	}
	if err := dev.Tx([]byte{reg}, buf); err != nil {
		return fmt.Errorf("periph: read 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

func (d *PeriphDriver) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	dev, err := d.dev(addr)
	if err != nil {
		return err
	}
	w := append([]byte{reg}, data...)
	if err := dev.Tx(w, nil); err != nil {
		return fmt.Errorf("periph: write 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

func (d *PeriphDriver) Delay(ctx context.Context, dur time.Duration) error { return sleep(ctx, dur) }

func (d *PeriphDriver) Name() string { return "periph:" + d.name }

func (d *PeriphDriver) IsReal() bool { return true }

// Close closes the bus if this driver opened it.
func (d *PeriphDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.close == nil {
		return nil
	}
	err := d.close()
	d.close = nil
	d.bus = nil
	return err
}
