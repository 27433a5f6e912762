package si5351_test

import (
	"context"
	"errors"
	"testing"

	"github.com/micro-nova/clockgen-go/internal/hardware"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// newRoutedDevice returns a device with MultiSynth0 at 10 MHz from PLL A.
func newRoutedDevice(t *testing.T, v si5351.Variant) (*si5351.Device, *hardware.Mock) {
	t.Helper()
	d, m := newVCODevice(t, v)
	if err := d.SetMultisynth(context.Background(), si5351.Clk0, si5351.PLLA, 10_000_000); err != nil {
		t.Fatalf("SetMultisynth: %v", err)
	}
	m.ResetWrites()
	return d, m
}

func TestSetClock(t *testing.T) {
	d, m := newRoutedDevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()

	cfg := si5351.ClockConfig{PowerUp: true, Source: si5351.ClockSourceMS, Drive: si5351.Drive8mA, RDivider: si5351.RDiv4}
	if err := d.SetClock(ctx, si5351.Clk0, cfg); err != nil {
		t.Fatalf("SetClock: %v", err)
	}

	// MS_INT kept from the MultiSynth write, source MS0, 8 mA
	if got := m.GetReg(addr, 16); got != 0x4F {
		t.Errorf("control = 0x%02x, want 0x4f", got)
	}
	if got := m.GetReg(addr, 44) & 0x70; got != 0x20 {
		t.Errorf("R divider bits = 0x%02x, want 0x20", got)
	}
	writes := m.Writes()
	if len(writes) != 2 || writes[0].Reg != 16 || writes[1].Reg != 44 {
		t.Errorf("write order = %+v, want control then R divider", writes)
	}

	st := d.State()
	out := st.Output[si5351.Clk0]
	if !out.Configured || !out.PowerUp || out.RDivider != si5351.RDiv4 {
		t.Errorf("Output = %+v", out)
	}
	if got := st.OutputFrequency(si5351.Clk0); got != 2_500_000 {
		t.Errorf("OutputFrequency = %d, want 2500000", got)
	}
}

func TestSetClock_SourceMatrix(t *testing.T) {
	tests := []struct {
		name   string
		fanout si5351.Fanout
		ch     si5351.Channel
		src    si5351.ClockSource
		ok     bool
	}{
		{"own multisynth", si5351.Fanout{}, si5351.Clk0, si5351.ClockSourceMS, true},
		{"ms0 alias on clk0", si5351.Fanout{}, si5351.Clk0, si5351.ClockSourceMS0or4, true},
		{"own multisynth unconfigured", si5351.Fanout{}, si5351.Clk1, si5351.ClockSourceMS, false},
		{"ms0 without fan-out", si5351.Fanout{}, si5351.Clk1, si5351.ClockSourceMS0or4, false},
		{"ms0 with fan-out", si5351.Fanout{Multisynth: true}, si5351.Clk3, si5351.ClockSourceMS0or4, true},
		{"ms4 unconfigured", si5351.Fanout{Multisynth: true}, si5351.Clk5, si5351.ClockSourceMS0or4, false},
		{"ms4 alias on clk4 unconfigured", si5351.Fanout{Multisynth: true}, si5351.Clk4, si5351.ClockSourceMS0or4, false},
		{"xtal without fan-out", si5351.Fanout{}, si5351.Clk2, si5351.ClockSourceXtal, false},
		{"xtal with fan-out", si5351.Fanout{Xtal: true}, si5351.Clk2, si5351.ClockSourceXtal, true},
		{"clkin on A variant", si5351.Fanout{Xtal: true}, si5351.Clk2, si5351.ClockSourceClkin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, m := newRoutedDevice(t, si5351.VariantA_B_GT)
			ctx := context.Background()
			if err := d.SetFanout(ctx, tt.fanout); err != nil {
				t.Fatalf("SetFanout: %v", err)
			}
			m.ResetWrites()

			err := d.SetClock(ctx, tt.ch, si5351.ClockConfig{PowerUp: true, Source: tt.src})
			if tt.ok && err != nil {
				t.Fatalf("SetClock: %v", err)
			}
			if !tt.ok {
				if !errors.Is(err, si5351.ErrInvalidArgument) {
					t.Errorf("err = %v, want ErrInvalidArgument", err)
				}
				if n := len(m.Writes()); n != 0 {
					t.Errorf("rejected request wrote %d times", n)
				}
			}
		})
	}
}

func TestSetClock_AliasDoesNotChangeCaller(t *testing.T) {
	d, _ := newRoutedDevice(t, si5351.VariantA_B_GT)
	cfg := si5351.ClockConfig{PowerUp: true, Source: si5351.ClockSourceMS0or4}
	if err := d.SetClock(context.Background(), si5351.Clk0, cfg); err != nil {
		t.Fatalf("SetClock: %v", err)
	}
	if cfg.Source != si5351.ClockSourceMS0or4 {
		t.Errorf("caller config mutated to %s", cfg.Source)
	}
	if got := d.State().Output[si5351.Clk0].Source; got != si5351.ClockSourceMS {
		t.Errorf("recorded source = %s, want ms", got)
	}
}

func TestSetClock_Clkin(t *testing.T) {
	m := hardware.NewMock()
	d, _ := si5351.New(m, si5351.Options{Variant: si5351.VariantC_B_GM})
	ctx := context.Background()
	if err := d.Init(ctx, si5351.InitConfig{ClkinFreq: 20_000_000}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := d.SetFanout(ctx, si5351.Fanout{Clkin: true}); err != nil {
		t.Fatalf("SetFanout: %v", err)
	}
	if got := m.GetReg(addr, 187); got != 0x80 {
		t.Errorf("reg 187 = 0x%02x, want 0x80", got)
	}
	if err := d.SetClock(ctx, si5351.Clk7, si5351.ClockConfig{PowerUp: true, Source: si5351.ClockSourceClkin}); err != nil {
		t.Fatalf("SetClock: %v", err)
	}
	if got := d.State().OutputFrequency(si5351.Clk7); got != 20_000_000 {
		t.Errorf("OutputFrequency = %d, want 20000000", got)
	}
	// no crystal fitted
	if err := d.SetFanout(ctx, si5351.Fanout{Clkin: true, Xtal: true}); err != nil {
		t.Fatalf("SetFanout: %v", err)
	}
	if err := d.SetClock(ctx, si5351.Clk1, si5351.ClockConfig{Source: si5351.ClockSourceXtal}); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("xtal with no crystal err = %v, want ErrInvalidArgument", err)
	}
}

func TestSetClock_PartialFailure(t *testing.T) {
	d, m := newRoutedDevice(t, si5351.VariantA_B_GT)
	m.SetFailAfterWrites(1)

	cfg := si5351.ClockConfig{PowerUp: true, Source: si5351.ClockSourceMS, Drive: si5351.Drive8mA}
	err := d.SetClock(context.Background(), si5351.Clk0, cfg)
	var te *si5351.TransportError
	if !errors.As(err, &te) || te.Reg != 44 {
		t.Fatalf("err = %v, want transport error on reg 44", err)
	}
	// the control write went through, the model was not updated
	if got := m.GetReg(addr, 16); got != 0x4F {
		t.Errorf("control = 0x%02x, want 0x4f", got)
	}
	if d.State().Output[si5351.Clk0].Configured {
		t.Error("Output configured after failed R divider write")
	}
}

func TestSetClock_InvalidFields(t *testing.T) {
	d, _ := newRoutedDevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()
	bad := []si5351.ClockConfig{
		{Source: si5351.ClockSourceMS, RDivider: si5351.RDivider(8)},
		{Source: si5351.ClockSourceMS, Drive: si5351.DriveStrength(4)},
		{Source: si5351.ClockSource(4)},
	}
	for _, cfg := range bad {
		if err := d.SetClock(ctx, si5351.Clk0, cfg); !errors.Is(err, si5351.ErrInvalidArgument) {
			t.Errorf("SetClock(%+v) err = %v, want ErrInvalidArgument", cfg, err)
		}
	}
}

func TestOutputControls(t *testing.T) {
	d, m := newRoutedDevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()

	steps := []struct {
		name string
		run  func() error
		reg  byte
		want byte
	}{
		{"enable clk3", func() error { return d.SetOutputEnable(ctx, si5351.Clk3, true) }, 3, 0xF7},
		{"power up clk1", func() error { return d.SetPowerDown(ctx, si5351.Clk1, false) }, 17, 0x00},
		{"clock power off clk1", func() error { return d.SetClockPower(ctx, si5351.Clk1, false) }, 17, 0x80},
		{"clock power on clk1", func() error { return d.SetClockPower(ctx, si5351.Clk1, true) }, 17, 0x00},
		{"invert clk1", func() error { return d.SetInverted(ctx, si5351.Clk1, true) }, 17, 0x10},
		{"drive clk1", func() error { return d.SetDriveStrength(ctx, si5351.Clk1, si5351.Drive6mA) }, 17, 0x12},
		{"disable state clk5", func() error { return d.SetDisableState(ctx, si5351.Clk5, si5351.DisableHighZ) }, 25, 0x08},
		{"disable state clk2", func() error { return d.SetDisableState(ctx, si5351.Clk2, si5351.DisableNever) }, 24, 0x30},
		{"phase clamp", func() error { return d.SetPhaseOffset(ctx, si5351.Clk2, 200) }, 167, 0x7F},
		{"r divider clk7", func() error { return d.SetRDivider(ctx, si5351.Clk7, si5351.RDiv4) }, 92, 0x20},
		{"r divider clk6", func() error { return d.SetRDivider(ctx, si5351.Clk6, si5351.RDiv2) }, 92, 0x21},
		{"crystal load", func() error { return d.SetCrystalLoad(ctx, si5351.Load6pF) }, 183, 0x52},
		{"fan-out", func() error { return d.SetFanout(ctx, si5351.Fanout{Xtal: true, Multisynth: true}) }, 187, 0x50},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if got := m.GetReg(addr, s.reg); got != s.want {
			t.Errorf("%s: reg %d = 0x%02x, want 0x%02x", s.name, s.reg, got, s.want)
		}
	}

	if err := d.SetPhaseOffset(ctx, si5351.Clk6, 1); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("phase offset on CLK6 err = %v, want ErrInvalidArgument", err)
	}
	if err := d.SetFanout(ctx, si5351.Fanout{Clkin: true}); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("clkin fan-out on A variant err = %v, want ErrInvalidArgument", err)
	}
	if err := d.SetCrystalLoad(ctx, si5351.CrystalLoad(0)); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("crystal load 0 err = %v, want ErrInvalidArgument", err)
	}
}

func TestReferenceSetters(t *testing.T) {
	d, m := newDevice(t, si5351.VariantC_B_GM)
	m.ResetWrites()

	if err := d.SetCrystalFrequency(si5351.Crystal27MHz); err != nil {
		t.Fatalf("SetCrystalFrequency: %v", err)
	}
	if got := d.State().CrystalFreq; got != 27_000_000 {
		t.Errorf("CrystalFreq = %d, want 27000000", got)
	}
	if err := d.SetCrystalFrequency(si5351.CrystalNone); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("removing the only reference err = %v, want ErrInvalidArgument", err)
	}
	if err := d.SetClkinFrequency(50_000_000); err != nil {
		t.Fatalf("SetClkinFrequency: %v", err)
	}
	if err := d.SetClkinFrequency(200_000_000); !errors.Is(err, si5351.ErrInvalidArgument) {
		t.Errorf("200 MHz clkin err = %v, want ErrInvalidArgument", err)
	}
	if n := len(m.Writes()); n != 0 {
		t.Errorf("reference setters wrote %d times", n)
	}
}
