package si5351

import (
	"context"
	"math"
)

// SetMultisynth programs MultiSynth ch, fed by pll, to the output frequency
// closest to hz. Ratios within one hertz of an integer use integer mode.
// MultiSynth6 and MultiSynth7 are integer only and reject any other ratio.
func (d *Device) SetMultisynth(ctx context.Context, ch Channel, pll PLL, hz uint32) error {
	vco, err := d.multisynthInput(ch, pll)
	if err != nil {
		return err
	}
	if hz == 0 {
		return invalidf("%s: frequency must be positive", ch)
	}
	div, err := d.multisynthDivider(ch, vco, hz)
	if err != nil {
		return err
	}
	return d.programMultisynth(ctx, ch, pll, vco, div)
}

// multisynthDivider chooses the divider producing hz from vco.
func (d *Device) multisynthDivider(ch Channel, vco, hz uint32) (Divider, error) {
	a := vco / hz
	nearInt := func(a uint32) bool {
		diff := int64(vco) - int64(a)*int64(hz)
		if diff < 0 {
			diff = -diff
		}
		return diff < int64(a)
	}

	if !ch.fractional() {
		a = uint32(roundHalfUp(uint64(vco), uint64(hz)))
		if a == 0 || !nearInt(a) {
			return Divider{}, invalidf("%s: %d Hz is not an integer division of %d Hz", ch, hz, vco)
		}
		return IntegerDivider(a), nil
	}

	if limit := d.state.Revision.outputMax(); !d.overclock && hz > limit {
		return Divider{}, invalidf("%s: %d Hz above revision %s limit %d Hz", ch, hz, d.state.Revision, limit)
	}
	if a >= msDivBy4 && a < msFracMin {
		if a%2 == 0 && nearInt(a) {
			return IntegerDivider(a), nil
		}
		return Divider{}, invalidf("%s: ratio %d/%d needs a non-integer divider below %d", ch, vco, hz, msFracMin)
	}
	if !d.overclock && (uint64(vco) > uint64(hz)*msFracMax || uint64(vco) < uint64(hz)*msFracMin) {
		return Divider{}, invalidf("%s: %d Hz out of range for vco %d Hz", ch, hz, vco)
	}
	if a > 0 && nearInt(a) {
		return IntegerDivider(a), nil
	}
	return approximate(uint64(vco), uint64(hz), DenominatorMax, 1, math.MaxUint32)
}

// SetMultisynthInteger programs MultiSynth ch with the integer divider a.
func (d *Device) SetMultisynthInteger(ctx context.Context, ch Channel, pll PLL, a uint32) error {
	return d.SetMultisynthFractional(ctx, ch, pll, a, 0, 1)
}

// SetMultisynthFractional programs MultiSynth ch with the divider a + b/c.
//
// MultiSynth0..5 accept 8 <= a <= 2048 (b must be 0 at 2048), the
// divide-by-4 mode (a == 4, b == 0) and even integers 6..254. MultiSynth6
// and MultiSynth7 only accept even integers 6..254.
func (d *Device) SetMultisynthFractional(ctx context.Context, ch Channel, pll PLL, a, b, c uint32) error {
	vco, err := d.multisynthInput(ch, pll)
	if err != nil {
		return err
	}
	return d.programMultisynth(ctx, ch, pll, vco, Divider{A: a, B: b, C: c})
}

// multisynthInput checks the common preconditions and returns the VCO
// frequency of pll.
func (d *Device) multisynthInput(ch Channel, pll PLL) (uint32, error) {
	if err := d.requireInit(); err != nil {
		return 0, err
	}
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	if err := checkPLL(pll); err != nil {
		return 0, err
	}
	if !d.state.PLL[pll].Configured {
		return 0, notInitialisedf("%s: source %s not configured", ch, pll)
	}
	return d.state.PLL[pll].Frequency, nil
}

func validMultisynthDivider(ch Channel, div Divider) error {
	if div.C == 0 || div.B >= div.C {
		return invalidf("%s: need 0 <= b < c, got %d/%d", ch, div.B, div.C)
	}
	evenInt := div.B == 0 && div.A%2 == 0 && div.A >= msIntMin && div.A <= msIntMax
	if !ch.fractional() {
		if !evenInt {
			return invalidf("%s: divider %s must be an even integer in [%d, %d]", ch, div, msIntMin, msIntMax)
		}
		return nil
	}
	if div.A == msFracMax && div.B > 0 {
		return invalidf("%s: divider %s above %d", ch, div, msFracMax)
	}
	if div.A >= msFracMin && div.A <= msFracMax {
		return nil
	}
	if (div.B == 0 && div.A == msDivBy4) || evenInt {
		return nil
	}
	return invalidf("%s: divider %s outside [%d, %d]", ch, div, msFracMin, msFracMax)
}

func (d *Device) programMultisynth(ctx context.Context, ch Channel, pll PLL, vco uint32, div Divider) error {
	if err := validMultisynthDivider(ch, div); err != nil {
		return err
	}
	integer := div.B == 0 && div.A%2 == 0

	if ch.fractional() {
		if div.A < msFracMin {
			// divide-by-4 and the even integers below 8 have no fraction
			div = IntegerDivider(div.A)
		}
		data, err := EncodeDivider(div)
		if err != nil {
			return err
		}
		reg := multisynthReg(ch)
		old, err := d.readByte(ctx, reg+2)
		if err != nil {
			return err
		}
		data[2] |= old & msRDiv
		if div.A == msDivBy4 {
			data[2] |= msDiv4
		}
		if err := d.write(ctx, reg, data[:]...); err != nil {
			return err
		}
		ctrl := packControl(true, false, 0, 0, pll, integer)
		if err := d.modify(ctx, controlReg(ch), ctrlMSSrc|ctrlMSInt, ctrl); err != nil {
			return err
		}
	} else {
		div = IntegerDivider(div.A)
		if err := d.write(ctx, multisynthReg(ch), byte(div.A)); err != nil {
			return err
		}
		// bit 6 of the CLK6/CLK7 control register is FBx_INT, not MS_INT
		ctrl := packControl(true, false, 0, 0, pll, false)
		if err := d.modify(ctx, controlReg(ch), ctrlMSSrc, ctrl); err != nil {
			return err
		}
	}

	freq := multisynthOutput(vco, div)
	d.state.Multisynth[ch] = MultisynthState{
		Configured: true,
		PLL:        pll,
		Frequency:  freq,
		Divider:    div,
	}
	d.log.Debug("si5351: multisynth programmed", "channel", ch, "pll", pll, "divider", div, "freq", freq)
	return nil
}

// multisynthOutput is vco / (a + b/c), rounded half up.
func multisynthOutput(vco uint32, div Divider) uint32 {
	c := uint64(div.C)
	return uint32(roundHalfUp(uint64(vco)*c, c*uint64(div.A)+uint64(div.B)))
}

// MultisynthFrequency returns the output frequency of MultiSynth ch before
// its R divider.
func (d *Device) MultisynthFrequency(ch Channel) (uint32, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	if !d.state.Multisynth[ch].Configured {
		return 0, notInitialisedf("%s multisynth not configured", ch)
	}
	return d.state.Multisynth[ch].Frequency, nil
}
