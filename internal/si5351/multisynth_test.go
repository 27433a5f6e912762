package si5351_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/micro-nova/clockgen-go/internal/hardware"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// newVCODevice returns a device with PLL A locked at 600 MHz.
func newVCODevice(t *testing.T, v si5351.Variant) (*si5351.Device, *hardware.Mock) {
	t.Helper()
	d, m := newDevice(t, v)
	if err := d.SetPLLFrequency(context.Background(), si5351.PLLA, 600_000_000); err != nil {
		t.Fatalf("SetPLLFrequency: %v", err)
	}
	m.ResetWrites()
	return d, m
}

func TestSetMultisynth(t *testing.T) {
	tests := []struct {
		name     string
		ch       si5351.Channel
		hz       uint32
		wantDiv  si5351.Divider
		wantFreq uint32
		wantCtrl byte
	}{
		// 600 MHz / 60: even integer, MS_INT set
		{"integer", si5351.Clk0, 10_000_000, si5351.Divider{A: 60, B: 0, C: 1}, 10_000_000, 0xC0},
		// 600 MHz / 75: odd integer, MS_INT clear
		{"odd integer", si5351.Clk1, 8_000_000, si5351.Divider{A: 75, B: 0, C: 1}, 8_000_000, 0x80},
		{"fractional", si5351.Clk2, 339_200, si5351.Divider{A: 1768, B: 910084, C: 0xFFFFF}, 339_200, 0x80},
		{"fractional 7 MHz", si5351.Clk3, 7_000_000, si5351.Divider{A: 85, B: 748982, C: 0xFFFFF}, 7_000_000, 0x80},
		{"divide by 4", si5351.Clk4, 150_000_000, si5351.Divider{A: 4, B: 0, C: 1}, 150_000_000, 0xC0},
		{"divide by 6", si5351.Clk5, 100_000_000, si5351.Divider{A: 6, B: 0, C: 1}, 100_000_000, 0xC0},
		// integer-only stages keep bit 6 for FBx_INT
		{"ms6", si5351.Clk6, 10_000_000, si5351.Divider{A: 60, B: 0, C: 1}, 10_000_000, 0x80},
		{"ms7", si5351.Clk7, 2_362_204, si5351.Divider{A: 254, B: 0, C: 1}, 2_362_205, 0x80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, m := newVCODevice(t, si5351.VariantA_B_GT)
			if err := d.SetMultisynth(context.Background(), tt.ch, si5351.PLLA, tt.hz); err != nil {
				t.Fatalf("SetMultisynth: %v", err)
			}
			slot := d.State().Multisynth[tt.ch]
			if !slot.Configured || slot.PLL != si5351.PLLA {
				t.Errorf("slot = %+v", slot)
			}
			if slot.Divider != tt.wantDiv {
				t.Errorf("Divider = %v, want %v", slot.Divider, tt.wantDiv)
			}
			if got, _ := d.MultisynthFrequency(tt.ch); got != tt.wantFreq {
				t.Errorf("MultisynthFrequency = %d, want %d", got, tt.wantFreq)
			}
			if got := m.GetReg(addr, 16+byte(tt.ch)); got != tt.wantCtrl {
				t.Errorf("control = 0x%02x, want 0x%02x", got, tt.wantCtrl)
			}
		})
	}
}

func TestSetMultisynth_Registers(t *testing.T) {
	d, m := newVCODevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()

	if err := d.SetMultisynth(ctx, si5351.Clk2, si5351.PLLA, 339_200); err != nil {
		t.Fatalf("SetMultisynth: %v", err)
	}
	want := []byte{0xFF, 0xFF, 0x03, 0x72, 0x6F, 0xF1, 0x82, 0x6F}
	if got := regs(m, 58, 8); !bytes.Equal(got, want) {
		t.Errorf("MS2 params = % x, want % x", got, want)
	}

	// parameters are written first, then the control register
	writes := m.Writes()
	if len(writes) != 2 || writes[0].Reg != 58 || writes[1].Reg != 18 {
		t.Errorf("write order = %+v, want params then control", writes)
	}

	if err := d.SetMultisynth(ctx, si5351.Clk4, si5351.PLLA, 150_000_000); err != nil {
		t.Fatalf("SetMultisynth div4: %v", err)
	}
	if got := m.GetReg(addr, 76); got&0x0C != 0x0C {
		t.Errorf("MS4 byte 2 = 0x%02x, want DIV4 bits set", got)
	}

	if err := d.SetMultisynth(ctx, si5351.Clk6, si5351.PLLA, 10_000_000); err != nil {
		t.Fatalf("SetMultisynth ms6: %v", err)
	}
	if got := m.GetReg(addr, 90); got != 60 {
		t.Errorf("reg 90 = %d, want 60", got)
	}
}

func TestSetMultisynth_PreservesRDivider(t *testing.T) {
	d, m := newVCODevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()

	if err := d.SetMultisynth(ctx, si5351.Clk0, si5351.PLLA, 10_000_000); err != nil {
		t.Fatalf("SetMultisynth: %v", err)
	}
	if err := d.SetRDivider(ctx, si5351.Clk0, si5351.RDiv8); err != nil {
		t.Fatalf("SetRDivider: %v", err)
	}
	if err := d.SetMultisynth(ctx, si5351.Clk0, si5351.PLLA, 12_000_000); err != nil {
		t.Fatalf("SetMultisynth again: %v", err)
	}
	if got := m.GetReg(addr, 44) & 0x70; got != 0x30 {
		t.Errorf("R divider bits = 0x%02x, want 0x30", got)
	}
}

func TestSetMultisynth_PLLB(t *testing.T) {
	d, m := newDevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()
	if err := d.SetPLLFrequency(ctx, si5351.PLLB, 800_000_000); err != nil {
		t.Fatalf("SetPLLFrequency: %v", err)
	}
	if err := d.SetMultisynth(ctx, si5351.Clk1, si5351.PLLB, 100_000_000); err != nil {
		t.Fatalf("SetMultisynth: %v", err)
	}
	// MS_SRC=PLLB and MS_INT for the even divider 8
	if got := m.GetReg(addr, 17); got != 0xE0 {
		t.Errorf("control = 0x%02x, want 0xe0", got)
	}
}

func TestSetMultisynth_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		variant si5351.Variant
		ch      si5351.Channel
		hz      uint32
	}{
		{"zero", si5351.VariantA_B_GT, si5351.Clk0, 0},
		{"revision A cap", si5351.VariantA_A_GT, si5351.Clk0, 170_000_000},
		{"odd small divider", si5351.VariantA_B_GT, si5351.Clk0, 120_000_000},
		{"fractional below 8", si5351.VariantA_B_GT, si5351.Clk0, 90_000_000},
		{"too slow", si5351.VariantA_B_GT, si5351.Clk0, 200_000},
		{"ms6 not integer", si5351.VariantA_B_GT, si5351.Clk6, 7_000_000},
		{"ms7 divider too large", si5351.VariantA_B_GT, si5351.Clk7, 1_000_000},
		{"bad channel", si5351.VariantA_B_GT, si5351.Channel(8), 10_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, m := newVCODevice(t, tt.variant)
			err := d.SetMultisynth(context.Background(), tt.ch, si5351.PLLA, tt.hz)
			if !errors.Is(err, si5351.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
			if n := len(m.Writes()); n != 0 {
				t.Errorf("rejected request wrote %d times", n)
			}
		})
	}
}

func TestSetMultisynthFractional_Validation(t *testing.T) {
	tests := []struct {
		name    string
		ch      si5351.Channel
		a, b, c uint32
		ok      bool
	}{
		{"fractional min", si5351.Clk0, 8, 1, 2, true},
		{"fractional max", si5351.Clk0, 2048, 0, 1, true},
		{"above 2048", si5351.Clk0, 2048, 1, 2, false},
		{"div4", si5351.Clk0, 4, 0, 1, true},
		{"div4 fractional", si5351.Clk0, 4, 1, 2, false},
		{"even 6", si5351.Clk0, 6, 0, 1, true},
		{"odd 7", si5351.Clk0, 7, 0, 1, false},
		{"ms6 even", si5351.Clk6, 100, 0, 1, true},
		{"ms6 divider 5", si5351.Clk6, 5, 0, 1, false},
		{"ms6 odd", si5351.Clk6, 101, 0, 1, false},
		{"ms7 fractional", si5351.Clk7, 100, 1, 2, false},
		{"ms7 above 254", si5351.Clk7, 256, 0, 1, false},
		{"zero denominator", si5351.Clk1, 10, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _ := newVCODevice(t, si5351.VariantA_B_GT)
			err := d.SetMultisynthFractional(context.Background(), tt.ch, si5351.PLLA, tt.a, tt.b, tt.c)
			if tt.ok && err != nil {
				t.Errorf("err = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, si5351.ErrInvalidArgument) {
				t.Errorf("err = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestSetMultisynth_PLLNotConfigured(t *testing.T) {
	d, _ := newDevice(t, si5351.VariantA_B_GT)
	err := d.SetMultisynth(context.Background(), si5351.Clk0, si5351.PLLB, 10_000_000)
	if !errors.Is(err, si5351.ErrNotInitialised) {
		t.Errorf("err = %v, want ErrNotInitialised", err)
	}
	if _, err := d.MultisynthFrequency(si5351.Clk0); !errors.Is(err, si5351.ErrNotInitialised) {
		t.Errorf("MultisynthFrequency err = %v, want ErrNotInitialised", err)
	}
}

func TestSetMultisynth_FailedWriteKeepsState(t *testing.T) {
	d, m := newVCODevice(t, si5351.VariantA_B_GT)
	ctx := context.Background()
	if err := d.SetMultisynth(ctx, si5351.Clk0, si5351.PLLA, 10_000_000); err != nil {
		t.Fatalf("SetMultisynth: %v", err)
	}

	// the parameter write succeeds, the control write fails
	m.SetFailAfterWrites(1)
	err := d.SetMultisynth(ctx, si5351.Clk0, si5351.PLLA, 12_000_000)
	if !errors.Is(err, si5351.ErrTransport) {
		t.Fatalf("err = %v, want ErrTransport", err)
	}
	if got, _ := d.MultisynthFrequency(si5351.Clk0); got != 10_000_000 {
		t.Errorf("frequency after failed write = %d, want 10000000", got)
	}
}

func TestSetMultisynthFractional_IntegerDenominator(t *testing.T) {
	tests := []struct {
		name string
		a, c uint32
		hz   uint32
	}{
		{"even 6", 6, 7, 100_000_000},
		{"div4", 4, 0xFFFFF, 150_000_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, m := newVCODevice(t, si5351.VariantA_B_GT)
			if err := d.SetMultisynthFractional(context.Background(), si5351.Clk0, si5351.PLLA, tt.a, 0, tt.c); err != nil {
				t.Fatalf("SetMultisynthFractional: %v", err)
			}
			// P3 is the first two bytes and the upper nibble of byte 5
			if got := regs(m, 42, 2); !bytes.Equal(got, []byte{0x00, 0x01}) || m.GetReg(addr, 47)&0xF0 != 0 {
				t.Errorf("P3 = % x / 0x%02x, want 1", got, m.GetReg(addr, 47))
			}
			slot := d.State().Multisynth[si5351.Clk0]
			if want := (si5351.Divider{A: tt.a, B: 0, C: 1}); slot.Divider != want {
				t.Errorf("Divider = %v, want %v", slot.Divider, want)
			}
			if slot.Frequency != tt.hz {
				t.Errorf("Frequency = %d, want %d", slot.Frequency, tt.hz)
			}
		})
	}
}
