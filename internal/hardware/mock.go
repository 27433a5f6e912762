package hardware

import (
	"context"
	"sync"
	"time"
)

const (
	mockStatusReg  Register = 0
	mockSysInitBit byte     = 0x80
)

// WriteOp records one Write call seen by the Mock.
type WriteOp struct {
	Addr uint16
	Reg  Register
	Data []byte
}

// Mock is a thread-safe in-memory register file standing in for a Si5351.
// It models the SYS_INIT bit of the status register clearing after a number
// of polls; every other register simply stores what is written.
type Mock struct {
	mu        sync.Mutex
	regs      map[uint16]*[256]byte // address → register file
	initPolls int                   // status reads left that report SYS_INIT
	failWrite bool
	failRead  bool
	failAfter int // fail writes once this many have succeeded; -1 disables
	writes    []WriteOp
	delays    []time.Duration
}

// NewMock creates a mock with a device at the default address.
func NewMock() *Mock {
	return NewMockWithAddrs([]uint16{0x60})
}

// NewMockWithAddrs creates a mock with a device at each of addrs.
func NewMockWithAddrs(addrs []uint16) *Mock {
	m := &Mock{
		regs:      make(map[uint16]*[256]byte),
		failAfter: -1,
	}
	for _, a := range addrs {
		m.regs[a] = new([256]byte)
	}
	return m
}

// SetSysInitPolls makes the next n status register reads report SYS_INIT.
func (m *Mock) SetSysInitPolls(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initPolls = n
}

// SetFailWrite configures the mock to fail all write operations.
func (m *Mock) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailRead configures the mock to fail all read operations.
func (m *Mock) SetFailRead(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failRead = fail
}

// SetFailAfterWrites lets n more writes succeed and fails every later one.
// A negative n disables the limit.
func (m *Mock) SetFailAfterWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

func (m *Mock) Init(ctx context.Context) error { return nil }
func (m *Mock) Close() error                   { return nil }
func (m *Mock) Name() string                   { return "mock" }
func (m *Mock) IsReal() bool                   { return false }

func (m *Mock) Read(ctx context.Context, addr uint16, reg Register, buf []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead {
		return ErrHardware("mock: read failure configured")
	}
	regs, ok := m.regs[addr]
	if !ok {
		return ErrHardware("mock: no device at address")
	}
	if int(reg)+len(buf) > len(regs) {
		return ErrHardware("mock: read past register 255")
	}
	copy(buf, regs[reg:])
	if reg == mockStatusReg && len(buf) > 0 && m.initPolls > 0 {
		m.initPolls--
		buf[0] |= mockSysInitBit
	}
	return nil
}

func (m *Mock) Write(ctx context.Context, addr uint16, reg Register, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return ErrHardware("mock: write failure configured")
	}
	if m.failAfter == 0 {
		return ErrHardware("mock: write limit reached")
	}
	regs, ok := m.regs[addr]
	if !ok {
		return ErrHardware("mock: no device at address")
	}
	if int(reg)+len(data) > len(regs) {
		return ErrHardware("mock: write past register 255")
	}
	if m.failAfter > 0 {
		m.failAfter--
	}
	copy(regs[reg:], data)
	m.writes = append(m.writes, WriteOp{Addr: addr, Reg: reg, Data: append([]byte(nil), data...)})
	return nil
}

// Delay records d and returns immediately unless ctx is done.
func (m *Mock) Delay(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delays = append(m.delays, d)
	return nil
}

// GetReg returns a register value for testing purposes.
func (m *Mock) GetReg(addr uint16, reg Register) byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if regs, ok := m.regs[addr]; ok {
		return regs[reg]
	}
	return 0
}

// SetReg presets a register value without recording a write.
func (m *Mock) SetReg(addr uint16, reg Register, val byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if regs, ok := m.regs[addr]; ok {
		regs[reg] = val
	}
}

// Writes returns the writes seen so far.
func (m *Mock) Writes() []WriteOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]WriteOp(nil), m.writes...)
}

// ResetWrites clears the write log.
func (m *Mock) ResetWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Delays returns the delays requested so far.
func (m *Mock) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}
