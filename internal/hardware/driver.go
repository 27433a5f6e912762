// Package hardware provides the register transports used to reach a Si5351.
// It defines the Driver interface and the Linux I2C, periph.io, SC18IM700
// bridge and mock implementations of it.
package hardware

import (
	"context"
	"time"
)

// Register is an I2C register address.
type Register = byte

// Driver is a register-level transport to devices on one I2C bus.
// All operations are context-aware and safe for concurrent use.
type Driver interface {
	// Init opens the bus. Must be called before any other method.
	Init(ctx context.Context) error

	// Read reads len(buf) consecutive registers starting at reg from the
	// device at the 7-bit address addr.
	Read(ctx context.Context, addr uint16, reg Register, buf []byte) error

	// Write writes data to consecutive registers starting at reg.
	Write(ctx context.Context, addr uint16, reg Register, data []byte) error

	// Delay blocks for d or until ctx is done.
	Delay(ctx context.Context, d time.Duration) error

	// Close releases the bus.
	Close() error

	// Name describes the backend for logs and the status API.
	Name() string

	// IsReal returns true for a real hardware driver, false for a mock.
	IsReal() bool
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// HardwareError is returned when a hardware operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }
