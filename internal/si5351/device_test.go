package si5351_test

import (
	"context"
	"errors"
	"testing"

	"github.com/micro-nova/clockgen-go/internal/hardware"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

const addr = si5351.DefaultAddress

// newDevice returns an initialised device on a mock bus with a 25 MHz crystal.
func newDevice(t *testing.T, v si5351.Variant) (*si5351.Device, *hardware.Mock) {
	t.Helper()
	m := hardware.NewMock()
	d, err := si5351.New(m, si5351.Options{Variant: v})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Init(context.Background(), si5351.InitConfig{Crystal: si5351.Crystal25MHz}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return d, m
}

func TestNew_InvalidOptions(t *testing.T) {
	m := hardware.NewMock()
	if _, err := si5351.New(m, si5351.Options{Variant: si5351.Variant(99)}); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("unknown variant err = %v, want ErrInvalidArgument", err)
	}
	if _, err := si5351.New(m, si5351.Options{Address: 0x80}); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("8-bit address err = %v, want ErrInvalidArgument", err)
	}
}

func TestInit_Reset(t *testing.T) {
	d, m := newDevice(t, si5351.VariantA_B_GT)

	st := d.State()
	if !st.Initialised {
		t.Fatal("Initialised = false after Init")
	}
	if st.CrystalFreq != 25_000_000 {
		t.Errorf("CrystalFreq = %d, want 25000000", st.CrystalFreq)
	}
	if st.CrystalLoad != si5351.Load10pF {
		t.Errorf("CrystalLoad = %s, want 10pF", st.CrystalLoad)
	}

	regs := []struct {
		reg  byte
		want byte
	}{
		{3, 0xFF},   // all outputs disabled
		{16, 0x80},  // CLK0 powered down
		{23, 0x80},  // CLK7 powered down
		{15, 0x00},  // both PLLs from the crystal
		{149, 0x00}, // spread spectrum off
		{183, 0xD2}, // 10 pF with reserved bits
		{187, 0x00}, // no fan-out
		{177, 0xA0}, // PLL A and B reset
	}
	for _, r := range regs {
		if got := m.GetReg(addr, r.reg); got != r.want {
			t.Errorf("reg %d = 0x%02x, want 0x%02x", r.reg, got, r.want)
		}
	}
}

func TestInit_Preserve(t *testing.T) {
	m := hardware.NewMock()
	m.SetReg(addr, 183, 0x92) // 8 pF
	m.SetReg(addr, 187, 0xD0) // all fan-outs
	m.SetReg(addr, 15, 0x4C)  // both PLLs from CLKIN, divide by 2

	d, err := si5351.New(m, si5351.Options{Variant: si5351.VariantC_B_GM})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cfg := si5351.InitConfig{Crystal: si5351.Crystal25MHz, ClkinFreq: 40_000_000, Preserve: true}
	if err := d.Init(context.Background(), cfg); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if n := len(m.Writes()); n != 0 {
		t.Errorf("preserve path wrote %d times, want 0", n)
	}
	st := d.State()
	if st.CrystalLoad != si5351.Load8pF {
		t.Errorf("CrystalLoad = %s, want 8pF", st.CrystalLoad)
	}
	if st.Fanout != (si5351.Fanout{Clkin: true, Xtal: true, Multisynth: true}) {
		t.Errorf("Fanout = %+v, want all enabled", st.Fanout)
	}
	if st.ClkinDivider != si5351.ClkinDiv2 {
		t.Errorf("ClkinDivider = %s, want 2", st.ClkinDivider)
	}
	if st.PLL[si5351.PLLA].Source != si5351.SourceClkin || st.PLL[si5351.PLLB].Source != si5351.SourceClkin {
		t.Errorf("PLL sources = %s/%s, want clkin/clkin", st.PLL[0].Source, st.PLL[1].Source)
	}

	// 40 MHz / 2 = 20 MHz reference, 30 * 20 MHz = 600 MHz
	if err := d.SetPLLFrequency(context.Background(), si5351.PLLA, 600_000_000); err != nil {
		t.Fatalf("SetPLLFrequency: %v", err)
	}
	if got := d.State().PLL[si5351.PLLA].Divider; got != (si5351.Divider{A: 30, B: 0, C: 1}) {
		t.Errorf("divider = %v, want 30", got)
	}
}

func TestInit_Timeout(t *testing.T) {
	m := hardware.NewMock()
	m.SetSysInitPolls(100)
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantA_B_GT})

	err := d.Init(context.Background(), si5351.InitConfig{Crystal: si5351.Crystal25MHz})
	if !errors.Is(err, si5351.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if n := len(m.Delays()); n != 10 {
		t.Errorf("delays = %d, want 10", n)
	}
	if d.Initialised() {
		t.Error("Initialised = true after timeout")
	}
}

func TestInit_WaitsForSysInit(t *testing.T) {
	m := hardware.NewMock()
	m.SetSysInitPolls(3)
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantA_B_GT})

	if err := d.Init(context.Background(), si5351.InitConfig{Crystal: si5351.Crystal27MHz}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if n := len(m.Delays()); n != 3 {
		t.Errorf("delays = %d, want 3", n)
	}
}

func TestInit_InvalidReference(t *testing.T) {
	tests := []struct {
		name string
		cfg  si5351.InitConfig
	}{
		{"no reference", si5351.InitConfig{}},
		{"unsupported crystal", si5351.InitConfig{Crystal: 26_000_000}},
		{"clkin too slow", si5351.InitConfig{Crystal: si5351.Crystal25MHz, ClkinFreq: 5_000_000}},
		{"clkin too fast", si5351.InitConfig{ClkinFreq: 101_000_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := hardware.NewMock()
			m.SetFailRead(true) // validation must happen before any bus traffic
			d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantC_B_GM})
			if err := d.Init(context.Background(), tt.cfg); !errors.Is(err, si5351.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestInit_ClkinWithoutInput(t *testing.T) {
	m := hardware.NewMock()
	m.SetFailRead(true)
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantA_B_GT})
	cfg := si5351.InitConfig{Crystal: si5351.Crystal25MHz, ClkinFreq: 20_000_000}
	if err := d.Init(context.Background(), cfg); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("err = %v, want ErrInvalidArgument", err)
	}
	if len(m.Writes()) != 0 {
		t.Errorf("writes = %+v, want none", m.Writes())
	}
}

func TestNotInitialised(t *testing.T) {
	m := hardware.NewMock()
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantA_B_GT})
	ctx := context.Background()

	calls := map[string]error{
		"SetPLLFrequency": d.SetPLLFrequency(ctx, si5351.PLLA, 600_000_000),
		"SetMultisynth":   d.SetMultisynth(ctx, si5351.Clk0, si5351.PLLA, 10_000_000),
		"SetClock":        d.SetClock(ctx, si5351.Clk0, si5351.ClockConfig{}),
		"SetFanout":       d.SetFanout(ctx, si5351.Fanout{}),
		"SetCrystalLoad":  d.SetCrystalLoad(ctx, si5351.Load8pF),
		"ResetPLL":        d.ResetPLL(ctx),
	}
	for name, err := range calls {
		if !errors.Is(err, si5351.ErrNotInitialised) {
			t.Errorf("%s err = %v, want ErrNotInitialised", name, err)
		}
	}
	if n := len(m.Writes()); n != 0 {
		t.Errorf("uninitialised device wrote %d times", n)
	}

	// Status and raw access work before Init
	if _, err := d.Status(ctx); err != nil {
		t.Errorf("Status: %v", err)
	}
}

func TestStatus(t *testing.T) {
	m := hardware.NewMock()
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantA_B_GT})
	m.SetReg(addr, 0, 0x61) // LOL_B, LOL_A, revision 1

	st, err := d.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	want := si5351.Status{LOLB: true, LOLA: true, RevID: 1}
	if st != want {
		t.Errorf("Status = %+v, want %+v", st, want)
	}
}

func TestTransportError(t *testing.T) {
	d, m := newDevice(t, si5351.VariantA_B_GT)
	m.SetFailWrite(true)

	err := d.SetCrystalLoad(context.Background(), si5351.Load6pF)
	if !errors.Is(err, si5351.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	var te *si5351.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err %T is not a *TransportError", err)
	}
	if te.Op != "write" || te.Reg != 183 {
		t.Errorf("TransportError = %+v, want write reg 183", te)
	}
	if d.State().CrystalLoad != si5351.Load10pF {
		t.Errorf("failed write changed CrystalLoad to %s", d.State().CrystalLoad)
	}
}

func TestRawRegisters(t *testing.T) {
	d, m := newDevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()

	if err := d.WriteRegisters(ctx, 165, []byte{1, 2, 3}); err != nil {
		t.Fatalf("WriteRegisters: %v", err)
	}
	if got := m.GetReg(addr, 167); got != 3 {
		t.Errorf("reg 167 = %d, want 3", got)
	}
	buf := make([]byte, 3)
	if err := d.ReadRegisters(ctx, 165, buf); err != nil {
		t.Fatalf("ReadRegisters: %v", err)
	}
	if buf[0] != 1 || buf[2] != 3 {
		t.Errorf("ReadRegisters = %v", buf)
	}
	if err := d.ReadRegisters(ctx, 250, make([]byte, 10)); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("read past 255 err = %v, want ErrInvalidArgument", err)
	}
}
