package si5351

import (
	"context"
	"fmt"
	"time"
)

// InitConfig describes the reference clocks and how to bring the device up.
type InitConfig struct {
	Crystal   CrystalFreq // CrystalNone when no crystal is fitted
	ClkinFreq uint32      // 0, or 10..100 MHz on Si5351C parts

	// Preserve keeps the running configuration: the device is not reset and
	// only the crystal load, fan-out and PLL source registers are read back.
	Preserve bool
}

const pollInterval = time.Millisecond

// Init waits for the device to finish its power-up sequence, records the
// reference clocks and either resets the device to a known default or reads
// back the parts of the running configuration the model needs. Every other
// configuration call requires a successful Init.
func (d *Device) Init(ctx context.Context, cfg InitConfig) error {
	if !cfg.Crystal.Valid() {
		return invalidf("unsupported crystal frequency %d Hz", uint32(cfg.Crystal))
	}
	if cfg.ClkinFreq != 0 && (cfg.ClkinFreq < ClkinMin || cfg.ClkinFreq > ClkinMax) {
		return invalidf("clkin frequency %d Hz outside [%d, %d]", cfg.ClkinFreq, ClkinMin, ClkinMax)
	}
	if cfg.ClkinFreq != 0 && !d.state.Variant.HasClkin() {
		return invalidf("%s has no clkin input", d.state.Variant)
	}
	if cfg.Crystal == CrystalNone && cfg.ClkinFreq == 0 {
		return invalidf("no reference clock: need a crystal or clkin")
	}

	if err := d.waitReady(ctx); err != nil {
		return err
	}

	// Re-initialising starts a fresh model; slots are re-learned by
	// subsequent configuration calls.
	next := newState(d.state.Variant, d.state.Address)
	next.CrystalFreq = uint32(cfg.Crystal)
	next.ClkinFreq = cfg.ClkinFreq
	d.state = next

	var err error
	if cfg.Preserve {
		err = d.readBack(ctx)
	} else {
		err = d.resetToDefault(ctx)
	}
	if err != nil {
		return err
	}
	d.state.Initialised = true
	d.log.Info("si5351: initialised",
		"crystal", uint32(cfg.Crystal),
		"clkin", cfg.ClkinFreq,
		"preserve", cfg.Preserve,
	)
	return nil
}

// waitReady polls the status register until SYS_INIT clears.
func (d *Device) waitReady(ctx context.Context) error {
	for i := 0; i < powerUpPolls; i++ {
		st, err := d.Status(ctx)
		if err != nil {
			return err
		}
		if !st.SysInit {
			return nil
		}
		if err := d.bus.Delay(ctx, pollInterval); err != nil {
			return fmt.Errorf("si5351: delay: %w", err)
		}
	}
	return fmt.Errorf("%w: device still in system initialisation after %d polls", ErrTimeout, powerUpPolls)
}

// readBack loads the model fields that live only in hardware.
func (d *Device) readBack(ctx context.Context) error {
	load, err := d.readByte(ctx, RegCrystalLoad)
	if err != nil {
		return err
	}
	fan, err := d.readByte(ctx, RegFanoutEnable)
	if err != nil {
		return err
	}
	src, err := d.readByte(ctx, RegPLLInputSource)
	if err != nil {
		return err
	}
	d.state.CrystalLoad = crystalLoadFromReg(load)
	d.state.Fanout = fanoutFromReg(fan)
	d.state.ClkinDivider = ClkinDivider((src & pllSrcClkinDiv) >> pllSrcClkinDivS)
	if src&pllSrcPLLA != 0 {
		d.state.PLL[PLLA].Source = SourceClkin
	}
	if src&pllSrcPLLB != 0 {
		d.state.PLL[PLLB].Source = SourceClkin
	}
	return nil
}

// resetToDefault disables and powers down every output and returns the
// remaining registers to their reset values.
func (d *Device) resetToDefault(ctx context.Context) error {
	if err := d.powerDown(ctx); err != nil {
		return err
	}
	for _, reg := range []Register{RegInterruptSticky, RegInterruptMask, RegOEBMask} {
		if err := d.write(ctx, reg, 0x00); err != nil {
			return err
		}
	}
	if err := d.setPLLSource(ctx, SourceXtal, SourceXtal, ClkinDiv1); err != nil {
		return err
	}
	if err := d.write(ctx, RegDisableState3to0, 0x00, 0x00); err != nil {
		return err
	}
	if err := d.write(ctx, RegClk0PhaseOffset, 0, 0, 0, 0, 0, 0); err != nil {
		return err
	}
	if err := d.write(ctx, RegSpreadSpectrum, 0x00); err != nil {
		return err
	}
	if err := d.setCrystalLoad(ctx, Load10pF); err != nil {
		return err
	}
	if err := d.setFanout(ctx, Fanout{}); err != nil {
		return err
	}
	return d.write(ctx, RegPLLReset, pllResetA|pllResetB)
}
