package si5351

import "fmt"

// Divider is a rational divider a + b/c. It is used for both PLL feedback
// dividers and MultiSynth output dividers.
type Divider struct {
	A uint32 `json:"a"`
	B uint32 `json:"b"`
	C uint32 `json:"c"`
}

// IntegerDivider returns the divider a + 0/1.
func IntegerDivider(a uint32) Divider { return Divider{A: a, B: 0, C: 1} }

// IsInteger reports whether the fractional part is zero.
func (d Divider) IsInteger() bool { return d.B == 0 }

func (d Divider) String() string {
	if d.B == 0 {
		return fmt.Sprintf("%d", d.A)
	}
	return fmt.Sprintf("%d+%d/%d", d.A, d.B, d.C)
}

// params computes the datasheet P1, P2 and P3 values for d.
func (d Divider) params() (p1, p2, p3 uint32, err error) {
	if d.C == 0 || d.B >= d.C {
		return 0, 0, 0, invalidf("divider %d+%d/%d: need 0 <= b < c", d.A, d.B, d.C)
	}
	a, b, c := int64(d.A), int64(d.B), int64(d.C)
	q := 128 * b / c
	v1 := 128*a + q - 512
	v2 := 128*b - c*q
	if c&^p3Mask != 0 {
		return 0, 0, 0, invalidf("divider %s: P3 overflows 20 bits", d)
	}
	if v1 < 0 || v1&^p1Mask != 0 {
		return 0, 0, 0, invalidf("divider %s: P1 overflows 18 bits", d)
	}
	if v2&^p2Mask != 0 {
		return 0, 0, 0, invalidf("divider %s: P2 overflows 20 bits", d)
	}
	return uint32(v1), uint32(v2), uint32(c), nil
}

// EncodeDivider packs d into the 8-byte parameter block shared by the PLL
// feedback and MultiSynth0..5 registers.
func EncodeDivider(d Divider) ([8]byte, error) {
	var data [8]byte
	p1, p2, p3, err := d.params()
	if err != nil {
		return data, err
	}
	data[0] = byte(p3 >> 8)
	data[1] = byte(p3)
	data[2] = byte(p1>>16) & msP1High
	data[3] = byte(p1 >> 8)
	data[4] = byte(p1)
	data[5] = byte(p3>>12)&0xF0 | byte(p2>>16)&0x0F
	data[6] = byte(p2 >> 8)
	data[7] = byte(p2)
	return data, nil
}

// DecodeDivider is the inverse of EncodeDivider. The DIV4 and R divider bits
// that share byte 2 are ignored.
func DecodeDivider(data [8]byte) Divider {
	p3 := uint32(data[5]&0xF0)<<12 | uint32(data[0])<<8 | uint32(data[1])
	p1 := uint32(data[2]&msP1High)<<16 | uint32(data[3])<<8 | uint32(data[4])
	p2 := uint32(data[5]&0x0F)<<16 | uint32(data[6])<<8 | uint32(data[7])
	if p3 == 0 {
		return Divider{}
	}
	// P1+512 = 128a + q with q = floor(128b/c) < 128.
	v := uint64(p1) + 512
	a := v / 128
	q := v % 128
	b := (uint64(p2) + uint64(p3)*q) / 128
	return Divider{A: uint32(a), B: uint32(b), C: p3}
}

// packControl builds a CLKx control byte from its fields.
func packControl(powerUp, inverted bool, src ClockSource, drive DriveStrength, msSrc PLL, integer bool) byte {
	b := src.bits() | drive.bits()
	if !powerUp {
		b |= ctrlPowerOff
	}
	if inverted {
		b |= ctrlInvert
	}
	if msSrc == PLLB {
		b |= ctrlMSSrc
	}
	if integer {
		b |= ctrlMSInt
	}
	return b
}

// setBits replaces the bits selected by mask in b with val.
func setBits(b, mask, val byte) byte {
	return b&^mask | val&mask
}

// PackDisableStates packs four 2-bit disable states into a register byte,
// s[0] in bits 1:0.
func PackDisableStates(s [4]DisableState) byte {
	var b byte
	for i, st := range s {
		b |= (byte(st) & disableBits) << (2 * i)
	}
	return b
}

// UnpackDisableStates is the inverse of PackDisableStates.
func UnpackDisableStates(b byte) [4]DisableState {
	var s [4]DisableState
	for i := range s {
		s[i] = DisableState(b >> (2 * i) & disableBits)
	}
	return s
}

// disableStateReg returns the register and bit position holding ch's
// disable state.
func disableStateReg(ch Channel) (Register, uint) {
	if ch <= Clk3 {
		return RegDisableState3to0, 2 * uint(ch)
	}
	return RegDisableState7to4, 2 * uint(ch-Clk4)
}

// rDividerField returns the register, mask and shift of ch's R divider.
// MultiSynth0..5 keep it in parameter byte 2; CLK6 and CLK7 share register 92.
func rDividerField(ch Channel) (reg Register, mask byte, shift uint) {
	switch ch {
	case Clk6:
		return RegClk67OutputDivider, 0x07, 0
	case Clk7:
		return RegClk67OutputDivider, 0x70, 4
	default:
		return multisynthReg(ch) + 2, msRDiv, msRDivS
	}
}
