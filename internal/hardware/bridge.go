package hardware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SC18IM700 command bytes and status codes.
const (
	bridgeStart    = 'S'
	bridgeStop     = 'P'
	bridgeReadReg  = 'R'
	bridgeI2CStat  = 0x0A
	bridgeStatusOK = 0xF0
	bridgeNackAddr = 0xF1
	bridgeNackData = 0xF2

	bridgeBaud        = 9600
	bridgeReadTimeout = 100 * time.Millisecond
)

// Port is the serial connection to the bridge.
type Port interface {
	io.ReadWriteCloser
}

// BridgeDriver reaches the bus through an NXP SC18IM700 UART-to-I²C bridge.
type BridgeDriver struct {
	mu   sync.Mutex
	dev  string
	baud int
	port Port
}

// NewBridge creates a driver for the bridge on the serial device dev. A zero
// baud uses the bridge's power-on rate of 9600.
func NewBridge(dev string, baud int) *BridgeDriver {
	if baud == 0 {
		baud = bridgeBaud
	}
	return &BridgeDriver{dev: dev, baud: baud}
}

// NewBridgeWithPort wraps an open port. Used by tests.
func NewBridgeWithPort(p Port) *BridgeDriver {
	return &BridgeDriver{dev: "port", baud: bridgeBaud, port: p}
}

func (d *BridgeDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port != nil {
		return nil
	}
	port, err := serial.Open(d.dev, &serial.Mode{
		BaudRate: d.baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("bridge: open %s: %w", d.dev, err)
	}
	if err := port.SetReadTimeout(bridgeReadTimeout); err != nil {
		port.Close()
		return fmt.Errorf("bridge: set read timeout: %w", err)
	}
	d.port = port
	slog.Info("bridge: serial port opened", "dev", d.dev, "baud", d.baud)
	return nil
}

// Read sends S addr|W 1 reg S addr|R n P and reads n bytes back.
func (d *BridgeDriver) Read(ctx context.Context, addr uint16, reg Register, buf []byte) error {
	if len(buf) == 0 || len(buf) > 255 {
		return fmt.Errorf("bridge: invalid read length %d", len(buf))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return fmt.Errorf("bridge: driver not initialized")
	}
	a := byte(addr << 1)
	cmd := []byte{bridgeStart, a, 1, reg, bridgeStart, a | 1, byte(len(buf)), bridgeStop}
	if _, err := d.port.Write(cmd); err != nil {
		return fmt.Errorf("bridge: write command: %w", err)
	}
	if err := d.readFull(buf); err != nil {
		if serr := d.status(); serr != nil {
			return fmt.Errorf("bridge: read 0x%02x reg=%d: %w", addr, reg, serr)
		}
		return fmt.Errorf("bridge: read 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

// Write sends S addr|W n+1 reg data... P and checks the bridge I2C status.
func (d *BridgeDriver) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	if len(data) == 0 || len(data) > 254 {
		return fmt.Errorf("bridge: invalid write length %d", len(data))
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return fmt.Errorf("bridge: driver not initialized")
	}
	cmd := make([]byte, 0, len(data)+5)
	cmd = append(cmd, bridgeStart, byte(addr<<1), byte(len(data)+1), reg)
	cmd = append(cmd, data...)
	cmd = append(cmd, bridgeStop)
	if _, err := d.port.Write(cmd); err != nil {
		return fmt.Errorf("bridge: write command: %w", err)
	}
	if err := d.status(); err != nil {
		return fmt.Errorf("bridge: write 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

var (
	errBridgeNackAddr = errors.New("address not acknowledged")
	errBridgeNackData = errors.New("data not acknowledged")
	errBridgeTimeout  = errors.New("serial read timed out")
)

// status reads the bridge's I2CStat register.
func (d *BridgeDriver) status() error {
	if _, err := d.port.Write([]byte{bridgeReadReg, bridgeI2CStat, bridgeStop}); err != nil {
		return fmt.Errorf("status request: %w", err)
	}
	var st [1]byte
	if err := d.readFull(st[:]); err != nil {
		return fmt.Errorf("status: %w", err)
	}
	switch st[0] {
	case bridgeStatusOK:
		return nil
	case bridgeNackAddr:
		return errBridgeNackAddr
	case bridgeNackData:
		return errBridgeNackData
	default:
		return fmt.Errorf("i2c status 0x%02x", st[0])
	}
}

// readFull fills buf. A serial read timeout returns (0, nil), which is
// treated as the end of the response.
func (d *BridgeDriver) readFull(buf []byte) error {
	for n := 0; n < len(buf); {
		m, err := d.port.Read(buf[n:])
		if err != nil {
			return err
		}
		if m == 0 {
			return errBridgeTimeout
		}
		n += m
	}
	return nil
}

func (d *BridgeDriver) Delay(ctx context.Context, dur time.Duration) error { return sleep(ctx, dur) }

func (d *BridgeDriver) Name() string { return "sc18im700:" + d.dev }

func (d *BridgeDriver) IsReal() bool { return true }

func (d *BridgeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.port == nil {
		return nil
	}
	err := d.port.Close()
	d.port = nil
	return err
}
