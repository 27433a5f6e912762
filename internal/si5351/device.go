// Package si5351 configures Si5351 programmable clock generators: the PLL
// and MultiSynth divider arithmetic, register encoding, output routing and
// the in-memory model of what the chip is currently programmed to.
//
// A Device is not safe for concurrent use. Register read-modify-write
// sequences are not atomic on the bus, so callers must serialise access.
package si5351

import (
	"context"
	"log/slog"
	"time"
)

// DefaultAddress is the 7-bit I²C address of every Si5351 variant.
const DefaultAddress uint16 = 0x60

// Bus is the register-level transport to the chip.
type Bus interface {
	// Read reads len(buf) consecutive registers starting at reg.
	Read(ctx context.Context, addr uint16, reg Register, buf []byte) error
	// Write writes data to consecutive registers starting at reg.
	Write(ctx context.Context, addr uint16, reg Register, data []byte) error
	// Delay blocks for d.
	Delay(ctx context.Context, d time.Duration) error
}

// Options configures a Device.
type Options struct {
	Variant Variant
	Address uint16 // 7-bit; DefaultAddress when zero

	// AllowOverclocking disables the VCO clamp and the MultiSynth output
	// frequency and divider range checks.
	AllowOverclocking bool

	Logger *slog.Logger
}

// Device is a handle to one Si5351 and the model of its configuration.
type Device struct {
	bus       Bus
	overclock bool
	log       *slog.Logger
	state     State
}

// New returns a Device for the chip reachable through bus. No bus traffic
// happens until Init.
func New(bus Bus, opts Options) (*Device, error) {
	if !opts.Variant.Valid() {
		return nil, invalidf("unknown variant %d", uint8(opts.Variant))
	}
	addr := opts.Address
	if addr == 0 {
		addr = DefaultAddress
	}
	if addr > 0x7F {
		return nil, invalidf("address 0x%02x is not a 7-bit address", addr)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Device{
		bus:       bus,
		overclock: opts.AllowOverclocking,
		log:       log.With("device", opts.Variant.String(), "addr", addr),
		state:     newState(opts.Variant, addr),
	}, nil
}

// State returns a copy of the device model.
func (d *Device) State() State { return d.state }

// Initialised reports whether Init has completed.
func (d *Device) Initialised() bool { return d.state.Initialised }

// SetAllowOverclocking toggles the range clamps described on Options.
func (d *Device) SetAllowOverclocking(allow bool) { d.overclock = allow }

func (d *Device) requireInit() error {
	if !d.state.Initialised {
		return notInitialisedf("device not initialised")
	}
	return nil
}

func checkChannel(ch Channel) error {
	if ch >= ChannelCount {
		return invalidf("channel %d out of range", uint8(ch))
	}
	return nil
}

func checkPLL(pll PLL) error {
	if pll >= pllCount {
		return invalidf("pll %d out of range", uint8(pll))
	}
	return nil
}

func (d *Device) read(ctx context.Context, reg Register, buf []byte) error {
	if err := d.bus.Read(ctx, d.state.Address, reg, buf); err != nil {
		return &TransportError{Op: "read", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) write(ctx context.Context, reg Register, data ...byte) error {
	if err := d.bus.Write(ctx, d.state.Address, reg, data); err != nil {
		return &TransportError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) readByte(ctx context.Context, reg Register) (byte, error) {
	var b [1]byte
	err := d.read(ctx, reg, b[:])
	return b[0], err
}

// modify performs a read-modify-write of the bits selected by mask.
func (d *Device) modify(ctx context.Context, reg Register, mask, val byte) error {
	b, err := d.readByte(ctx, reg)
	if err != nil {
		return err
	}
	return d.write(ctx, reg, setBits(b, mask, val))
}

// ReadRegister reads a single raw register.
func (d *Device) ReadRegister(ctx context.Context, reg Register) (byte, error) {
	return d.readByte(ctx, reg)
}

// ReadRegisters reads consecutive raw registers into buf.
func (d *Device) ReadRegisters(ctx context.Context, reg Register, buf []byte) error {
	if len(buf) == 0 || int(reg)+len(buf) > 256 {
		return invalidf("read of %d registers at %d", len(buf), reg)
	}
	return d.read(ctx, reg, buf)
}

// WriteRegister writes a single raw register. The device model is not
// updated, so this can leave it out of step with the hardware.
func (d *Device) WriteRegister(ctx context.Context, reg Register, val byte) error {
	return d.write(ctx, reg, val)
}

// WriteRegisters writes consecutive raw registers. See WriteRegister.
func (d *Device) WriteRegisters(ctx context.Context, reg Register, data []byte) error {
	if len(data) == 0 || int(reg)+len(data) > 256 {
		return invalidf("write of %d registers at %d", len(data), reg)
	}
	return d.write(ctx, reg, data...)
}

// Status is the decoded device status register.
type Status struct {
	SysInit  bool  `json:"sys_init"`  // device is still initialising
	LOLB     bool  `json:"lol_b"`     // PLL B loss of lock
	LOLA     bool  `json:"lol_a"`     // PLL A loss of lock
	LOSClkin bool  `json:"los_clkin"` // CLKIN loss of signal (Si5351C only)
	LOSXtal  bool  `json:"los_xtal"`  // crystal loss of signal
	RevID    uint8 `json:"rev_id"`
}

// DecodeStatus decodes the device status register.
func DecodeStatus(b byte) Status {
	return Status{
		SysInit:  b&statusSysInit != 0,
		LOLB:     b&statusLOLB != 0,
		LOLA:     b&statusLOLA != 0,
		LOSClkin: b&statusLOSClkin != 0,
		LOSXtal:  b&statusLOSXtal != 0,
		RevID:    b & statusRevID,
	}
}

// Status reads and decodes the device status register.
func (d *Device) Status(ctx context.Context) (Status, error) {
	b, err := d.readByte(ctx, RegDeviceStatus)
	if err != nil {
		return Status{}, err
	}
	return DecodeStatus(b), nil
}
