package si5351

import (
	"context"
	"math"
)

// SetPLLSource selects the reference for each PLL and the CLKIN pre-divider.
// CLKIN is only available on Si5351C parts. A PLL whose effective reference
// changes is marked unconfigured until it is programmed again.
func (d *Device) SetPLLSource(ctx context.Context, a, b PLLSource, div ClkinDivider) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	for _, s := range []PLLSource{a, b} {
		if s > SourceClkin {
			return invalidf("unknown pll source %d", uint8(s))
		}
		if s == SourceClkin && !d.state.Variant.HasClkin() {
			return invalidf("%s has no clkin input", d.state.Variant)
		}
	}
	if div > ClkinDiv8 {
		return invalidf("clkin divider %d out of range", uint8(div))
	}
	return d.setPLLSource(ctx, a, b, div)
}

func (d *Device) setPLLSource(ctx context.Context, a, b PLLSource, div ClkinDivider) error {
	v := div.bits()
	if a == SourceClkin {
		v |= pllSrcPLLA
	}
	if b == SourceClkin {
		v |= pllSrcPLLB
	}
	if err := d.write(ctx, RegPLLInputSource, v); err != nil {
		return err
	}
	for pll, src := range [pllCount]PLLSource{a, b} {
		slot := &d.state.PLL[pll]
		if slot.Source != src || (src == SourceClkin && div != d.state.ClkinDivider) {
			slot.Configured = false
		}
		slot.Source = src
	}
	d.state.ClkinDivider = div
	return nil
}

// pllDenominator returns the fixed denominator used when approximating a
// feedback ratio for pll.
func (d *Device) pllDenominator(pll PLL) uint32 {
	if pll == PLLB && d.state.Variant.HasVCXO() {
		return VCXODenominator
	}
	return DenominatorMax
}

// pllRef returns the validated reference frequency of pll.
func (d *Device) pllRef(pll PLL) (uint32, error) {
	ref := d.state.pllRefFrequency(pll)
	if ref == 0 {
		return 0, invalidf("%s: no %s reference configured", pll, d.state.PLL[pll].Source)
	}
	if ref < PLLRefMin || ref > PLLRefMax {
		return 0, invalidf("%s: reference %d Hz outside [%d, %d]", pll, ref, PLLRefMin, PLLRefMax)
	}
	return ref, nil
}

// SetPLLFrequency programs pll to the VCO frequency closest to hz. Without
// overclocking hz is clamped to [VCOMin, VCOMax]. The recorded frequency is
// the one the chosen divider actually produces.
func (d *Device) SetPLLFrequency(ctx context.Context, pll PLL, hz uint32) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if err := checkPLL(pll); err != nil {
		return err
	}
	if hz == 0 {
		return invalidf("%s: frequency must be positive", pll)
	}
	if !d.overclock {
		hz = min(max(hz, VCOMin), VCOMax)
	}
	ref, err := d.pllRef(pll)
	if err != nil {
		return err
	}
	cMax := d.pllDenominator(pll)
	div, err := approximate(uint64(hz), uint64(ref), cMax, pllIntMin, pllIntMax)
	if err != nil {
		return err
	}
	if cMax == VCXODenominator {
		div.C = VCXODenominator
	}
	return d.programPLL(ctx, pll, ref, div)
}

// SetPLLInteger programs pll with the integer feedback divider a.
func (d *Device) SetPLLInteger(ctx context.Context, pll PLL, a uint32) error {
	if err := checkPLL(pll); err != nil {
		return err
	}
	div := IntegerDivider(a)
	if d.pllDenominator(pll) == VCXODenominator {
		div.C = VCXODenominator
	}
	return d.SetPLLFractional(ctx, pll, div.A, div.B, div.C)
}

// SetPLLFractional programs pll with the feedback divider a + b/c. PLL B on
// Si5351B parts only accepts c == VCXODenominator.
func (d *Device) SetPLLFractional(ctx context.Context, pll PLL, a, b, c uint32) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if err := checkPLL(pll); err != nil {
		return err
	}
	if a < pllIntMin || a > pllIntMax {
		return invalidf("%s: integer part %d outside [%d, %d]", pll, a, pllIntMin, pllIntMax)
	}
	if c == 0 || b >= c {
		return invalidf("%s: need 0 <= b < c, got %d/%d", pll, b, c)
	}
	if d.pllDenominator(pll) == VCXODenominator && c != VCXODenominator {
		return invalidf("%s: %s requires denominator %d", pll, d.state.Variant, VCXODenominator)
	}
	ref, err := d.pllRef(pll)
	if err != nil {
		return err
	}
	return d.programPLL(ctx, pll, ref, Divider{A: a, B: b, C: c})
}

func (d *Device) programPLL(ctx context.Context, pll PLL, ref uint32, div Divider) error {
	actual := roundHalfUp(uint64(ref)*uint64(div.B), uint64(div.C)) + uint64(ref)*uint64(div.A)
	if actual > math.MaxUint32 {
		return invalidf("%s: vco %d Hz does not fit", pll, actual)
	}
	if !d.overclock && (actual < VCOMin || actual > VCOMax) {
		return invalidf("%s: vco %d Hz outside [%d, %d]", pll, actual, VCOMin, VCOMax)
	}
	data, err := EncodeDivider(div)
	if err != nil {
		return err
	}
	if err := d.write(ctx, pllReg(pll), data[:]...); err != nil {
		return err
	}
	slot := &d.state.PLL[pll]
	slot.Configured = true
	slot.Frequency = uint32(actual)
	slot.Divider = div
	d.log.Debug("si5351: pll programmed", "pll", pll, "divider", div, "vco", actual)

	// MultiSynths fed by pll keep their dividers, so their outputs follow the VCO.
	for ch := range d.state.Multisynth {
		ms := &d.state.Multisynth[ch]
		if ms.Configured && ms.PLL == pll {
			ms.Frequency = multisynthOutput(slot.Frequency, ms.Divider)
		}
	}
	return nil
}

// SetPLLIntegerMode sets or clears the FBx_INT bit of pll. It lowers jitter
// when the feedback divider is an even integer.
func (d *Device) SetPLLIntegerMode(ctx context.Context, pll PLL, on bool) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if err := checkPLL(pll); err != nil {
		return err
	}
	var v byte
	if on {
		v = ctrlMSInt
	}
	return d.modify(ctx, pllIntReg(pll), ctrlMSInt, v)
}

// PLLFrequency returns the VCO frequency recorded for pll.
func (d *Device) PLLFrequency(pll PLL) (uint32, error) {
	if err := checkPLL(pll); err != nil {
		return 0, err
	}
	if !d.state.PLL[pll].Configured {
		return 0, notInitialisedf("%s not configured", pll)
	}
	return d.state.PLL[pll].Frequency, nil
}

// ResetPLL soft-resets both PLLs. Outputs glitch while the PLLs relock.
func (d *Device) ResetPLL(ctx context.Context) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	return d.write(ctx, RegPLLReset, pllResetA|pllResetB)
}
