//go:build linux

package hardware

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

const (
	DefaultI2CDev = "/dev/i2c-1"
	i2cRdwrIOCTL  = 0x0707 // I2C_RDWR ioctl: combined write+read with repeated start
	i2cMsgRD      = 0x0001 // i2c_msg flag: read direction
	maxOpsPerSec  = 500
	maxTxLen      = 256
)

// i2cMsg mirrors struct i2c_msg from linux/i2c.h
type i2cMsg struct {
	addr   uint16
	flags  uint16
	length uint16
	_pad   uint16 // struct alignment
	buf    uintptr
}

// i2cRdwr mirrors struct i2c_rdwr_ioctl_data from linux/i2c-dev.h
type i2cRdwr struct {
	msgs  uintptr
	nmsgs uint32
}

// I2CDriver talks to the bus through the Linux i2c-dev interface, using
// I2C_RDWR for all transactions.
type I2CDriver struct {
	mu      sync.Mutex
	path    string
	fd      int // single shared fd for the bus
	limiter *rate.Limiter
}

// NewI2C creates a driver for the i2c-dev node at path, or DefaultI2CDev
// when path is empty.
func NewI2C(path string) *I2CDriver {
	if path == "" {
		path = DefaultI2CDev
	}
	return &I2CDriver{
		path:    path,
		fd:      -1,
		limiter: rate.NewLimiter(rate.Limit(maxOpsPerSec), 10),
	}
}

func (d *I2CDriver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd >= 0 {
		return nil
	}
	fd, err := unix.Open(d.path, unix.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("i2c: open %s: %w", d.path, err)
	}
	d.fd = fd
	slog.Info("i2c: bus opened", "dev", d.path)
	return nil
}

// Read performs a combined register write and read with REPEATED START:
// START→addr|W→reg→RS→addr|R→data…→NACK→STOP
func (d *I2CDriver) Read(ctx context.Context, addr uint16, reg Register, buf []byte) error {
	if len(buf) == 0 || len(buf) > maxTxLen {
		return fmt.Errorf("i2c: invalid read length %d", len(buf))
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return fmt.Errorf("i2c: driver not initialized")
	}
	wbuf := [1]byte{reg}
	msgs := [2]i2cMsg{
		{addr: addr, flags: 0, length: 1, buf: uintptr(unsafe.Pointer(&wbuf[0]))},
		{addr: addr, flags: i2cMsgRD, length: uint16(len(buf)), buf: uintptr(unsafe.Pointer(&buf[0]))},
	}
	if err := d.rdwr(msgs[:]); err != nil {
		return fmt.Errorf("i2c: I2C_RDWR read 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

// Write sends [reg, data...] in a single message; the Si5351 auto-increments
// the register address.
func (d *I2CDriver) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	if len(data) == 0 || len(data) >= maxTxLen {
		return fmt.Errorf("i2c: invalid write length %d", len(data))
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return fmt.Errorf("i2c: driver not initialized")
	}
	wbuf := make([]byte, 0, len(data)+1)
	wbuf = append(wbuf, reg)
	wbuf = append(wbuf, data...)
	msgs := [1]i2cMsg{
		{addr: addr, flags: 0, length: uint16(len(wbuf)), buf: uintptr(unsafe.Pointer(&wbuf[0]))},
	}
	if err := d.rdwr(msgs[:]); err != nil {
		return fmt.Errorf("i2c: I2C_RDWR write 0x%02x reg=%d: %w", addr, reg, err)
	}
	return nil
}

func (d *I2CDriver) rdwr(msgs []i2cMsg) error {
	rdwr := i2cRdwr{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(len(msgs))}
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), i2cRdwrIOCTL, uintptr(unsafe.Pointer(&rdwr))); errno != 0 {
		return errno
	}
	return nil
}

func (d *I2CDriver) Delay(ctx context.Context, dur time.Duration) error { return sleep(ctx, dur) }

func (d *I2CDriver) Name() string { return "i2c-dev:" + d.path }

func (d *I2CDriver) IsReal() bool { return true }

// Close releases the I2C file descriptor.
func (d *I2CDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
