package si5351

import "context"

// ClockConfig is the routing and driver configuration of one output.
type ClockConfig struct {
	PowerUp  bool          `json:"power_up"`
	Inverted bool          `json:"inverted"`
	Source   ClockSource   `json:"source"`
	RDivider RDivider      `json:"r_divider"`
	Drive    DriveStrength `json:"drive"`
}

// SetClock routes output ch and sets its driver and R divider. It writes the
// control register and then the R divider; if the second write fails the
// control register keeps its new value and the model is not updated.
//
// On CLK0 and CLK4, ClockSourceMS0or4 selects the channel's own MultiSynth.
func (d *Device) SetClock(ctx context.Context, ch Channel, cfg ClockConfig) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if err := checkChannel(ch); err != nil {
		return err
	}
	if cfg.RDivider > RDiv128 {
		return invalidf("%s: r divider %d out of range", ch, uint8(cfg.RDivider))
	}
	if cfg.Drive > Drive8mA {
		return invalidf("%s: drive strength %d out of range", ch, uint8(cfg.Drive))
	}
	src := normalizeSource(ch, cfg.Source)
	if err := d.clockSourceValid(ch, src); err != nil {
		return err
	}

	ctrl := packControl(cfg.PowerUp, cfg.Inverted, src, cfg.Drive, PLLA, false)
	if err := d.modify(ctx, controlReg(ch), ctrlPowerOff|ctrlInvert|ctrlSrc|ctrlDrive, ctrl); err != nil {
		return err
	}
	reg, mask, shift := rDividerField(ch)
	if err := d.modify(ctx, reg, mask, byte(cfg.RDivider)<<shift); err != nil {
		return err
	}

	d.state.Output[ch] = OutputState{
		Configured: true,
		PowerUp:    cfg.PowerUp,
		Inverted:   cfg.Inverted,
		Source:     src,
		RDivider:   cfg.RDivider,
		Drive:      cfg.Drive,
	}
	d.log.Debug("si5351: clock routed", "channel", ch, "source", src, "rdiv", cfg.RDivider, "drive", cfg.Drive)
	return nil
}

func normalizeSource(ch Channel, src ClockSource) ClockSource {
	if src == ClockSourceMS0or4 && (ch == Clk0 || ch == Clk4) {
		return ClockSourceMS
	}
	return src
}

// clockSourceValid checks src against what the fan-out and the configured
// MultiSynths allow for ch.
func (d *Device) clockSourceValid(ch Channel, src ClockSource) error {
	s := &d.state
	switch src {
	case ClockSourceXtal:
		if !s.Fanout.Xtal {
			return invalidf("%s: xtal fan-out not enabled", ch)
		}
		if s.CrystalFreq == 0 {
			return invalidf("%s: no crystal configured", ch)
		}
	case ClockSourceClkin:
		if !s.Variant.HasClkin() {
			return invalidf("%s: %s has no clkin input", ch, s.Variant)
		}
		if !s.Fanout.Clkin {
			return invalidf("%s: clkin fan-out not enabled", ch)
		}
		if s.ClkinFreq == 0 {
			return invalidf("%s: no clkin frequency configured", ch)
		}
	case ClockSourceMS0or4:
		base := Clk0
		if ch >= Clk4 {
			base = Clk4
		}
		if !s.Fanout.Multisynth {
			return invalidf("%s: multisynth fan-out not enabled", ch)
		}
		if !s.Multisynth[base].Configured {
			return invalidf("%s: source %s multisynth not configured", ch, base)
		}
	case ClockSourceMS:
		if !s.Multisynth[ch].Configured {
			return invalidf("%s: multisynth not configured", ch)
		}
	default:
		return invalidf("%s: unknown clock source %d", ch, uint8(src))
	}
	return nil
}

// SetClockSource changes only the source of output ch.
func (d *Device) SetClockSource(ctx context.Context, ch Channel, src ClockSource) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	src = normalizeSource(ch, src)
	if err := d.clockSourceValid(ch, src); err != nil {
		return err
	}
	if err := d.modify(ctx, controlReg(ch), ctrlSrc, src.bits()); err != nil {
		return err
	}
	d.state.Output[ch].Source = src
	return nil
}

// SetPowerDown powers output ch down, or back up.
func (d *Device) SetPowerDown(ctx context.Context, ch Channel, down bool) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	var v byte
	if down {
		v = ctrlPowerOff
	}
	if err := d.modify(ctx, controlReg(ch), ctrlPowerOff, v); err != nil {
		return err
	}
	d.state.Output[ch].PowerUp = !down
	return nil
}

// SetClockPower is SetPowerDown with the sense of the flag inverted.
func (d *Device) SetClockPower(ctx context.Context, ch Channel, on bool) error {
	return d.SetPowerDown(ctx, ch, !on)
}

// SetOutputEnable enables or disables output ch. A disabled output holds its
// disable state.
func (d *Device) SetOutputEnable(ctx context.Context, ch Channel, enable bool) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	bit := byte(1) << ch
	var v byte
	if !enable {
		v = bit
	}
	return d.modify(ctx, RegOutputEnable, bit, v)
}

// SetInverted sets the output inversion of ch.
func (d *Device) SetInverted(ctx context.Context, ch Channel, inverted bool) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	var v byte
	if inverted {
		v = ctrlInvert
	}
	if err := d.modify(ctx, controlReg(ch), ctrlInvert, v); err != nil {
		return err
	}
	d.state.Output[ch].Inverted = inverted
	return nil
}

// SetDriveStrength sets the output driver current of ch.
func (d *Device) SetDriveStrength(ctx context.Context, ch Channel, drive DriveStrength) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	if drive > Drive8mA {
		return invalidf("%s: drive strength %d out of range", ch, uint8(drive))
	}
	if err := d.modify(ctx, controlReg(ch), ctrlDrive, drive.bits()); err != nil {
		return err
	}
	d.state.Output[ch].Drive = drive
	return nil
}

// SetRDivider sets the post divider of ch.
func (d *Device) SetRDivider(ctx context.Context, ch Channel, r RDivider) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	if r > RDiv128 {
		return invalidf("%s: r divider %d out of range", ch, uint8(r))
	}
	reg, mask, shift := rDividerField(ch)
	if err := d.modify(ctx, reg, mask, byte(r)<<shift); err != nil {
		return err
	}
	d.state.Output[ch].RDivider = r
	return nil
}

// SetDisableState sets the level output ch holds while disabled.
func (d *Device) SetDisableState(ctx context.Context, ch Channel, st DisableState) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	if st > DisableNever {
		return invalidf("%s: disable state %d out of range", ch, uint8(st))
	}
	reg, shift := disableStateReg(ch)
	return d.modify(ctx, reg, disableBits<<shift, byte(st)<<shift)
}

// SetPhaseOffset sets the initial phase offset of CLK0..CLK5 in units of a
// quarter VCO period. Offsets above 127 are clamped.
func (d *Device) SetPhaseOffset(ctx context.Context, ch Channel, offset uint8) error {
	if err := d.checkOutput(ch); err != nil {
		return err
	}
	if !ch.fractional() {
		return invalidf("%s has no phase offset", ch)
	}
	return d.write(ctx, RegClk0PhaseOffset+Register(ch), min(offset, phaseOffsetMax))
}

func (d *Device) checkOutput(ch Channel) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	return checkChannel(ch)
}

// SetFanout enables the fan-out of the crystal, CLKIN and MultiSynth0/4 to
// other outputs. CLKIN fan-out is only available on Si5351C parts.
func (d *Device) SetFanout(ctx context.Context, f Fanout) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if f.Clkin && !d.state.Variant.HasClkin() {
		return invalidf("%s has no clkin input", d.state.Variant)
	}
	return d.setFanout(ctx, f)
}

func (d *Device) setFanout(ctx context.Context, f Fanout) error {
	if err := d.write(ctx, RegFanoutEnable, f.bits()); err != nil {
		return err
	}
	d.state.Fanout = f
	return nil
}

// SetCrystalLoad sets the internal crystal load capacitance.
func (d *Device) SetCrystalLoad(ctx context.Context, load CrystalLoad) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if !load.Valid() {
		return invalidf("crystal load %d out of range", uint8(load))
	}
	return d.setCrystalLoad(ctx, load)
}

func (d *Device) setCrystalLoad(ctx context.Context, load CrystalLoad) error {
	if err := d.write(ctx, RegCrystalLoad, load.bits()); err != nil {
		return err
	}
	d.state.CrystalLoad = load
	return nil
}

// SetCrystalFrequency records a new crystal frequency. Nothing is written;
// PLLs must be reprogrammed to take it into account.
func (d *Device) SetCrystalFrequency(f CrystalFreq) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if !f.Valid() {
		return invalidf("unsupported crystal frequency %d Hz", uint32(f))
	}
	if f == CrystalNone && d.state.ClkinFreq == 0 {
		return invalidf("no reference clock: need a crystal or clkin")
	}
	d.state.CrystalFreq = uint32(f)
	return nil
}

// SetClkinFrequency records a new CLKIN frequency. See SetCrystalFrequency.
func (d *Device) SetClkinFrequency(hz uint32) error {
	if err := d.requireInit(); err != nil {
		return err
	}
	if hz != 0 && (hz < ClkinMin || hz > ClkinMax) {
		return invalidf("clkin frequency %d Hz outside [%d, %d]", hz, ClkinMin, ClkinMax)
	}
	if hz == 0 && d.state.CrystalFreq == 0 {
		return invalidf("no reference clock: need a crystal or clkin")
	}
	d.state.ClkinFreq = hz
	return nil
}

// powerDown disables every output and powers down its driver.
func (d *Device) powerDown(ctx context.Context) error {
	if err := d.write(ctx, RegOutputEnable, 0xFF); err != nil {
		return err
	}
	var ctrl [ChannelCount]byte
	for i := range ctrl {
		ctrl[i] = ctrlPowerOff
	}
	if err := d.write(ctx, RegClk0Control, ctrl[:]...); err != nil {
		return err
	}
	for ch := range d.state.Output {
		d.state.Output[ch].PowerUp = false
	}
	return nil
}
