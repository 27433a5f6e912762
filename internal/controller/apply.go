package controller

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/micro-nova/clockgen-go/internal/config"
	"github.com/micro-nova/clockgen-go/internal/models"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// ApplyPlan programs the chip from plan and, on success, stores it.
func (c *Controller) ApplyPlan(ctx context.Context, plan config.Plan) (models.Status, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.apply(ctx, plan)
	c.publish()
	if err != nil {
		return models.Status{}, models.FromError(err)
	}
	c.save()
	return c.snapshot(), nil
}

// Reload re-reads the stored plan and applies it if it differs from the
// plan in effect.
func (c *Controller) Reload(ctx context.Context) error {
	plan, err := c.store.Load()
	if err != nil {
		return fmt.Errorf("controller: reload: %w", err)
	}
	config.Migrate(plan)

	c.mu.Lock()
	defer c.mu.Unlock()
	if reflect.DeepEqual(*plan, c.plan) {
		slog.Debug("controller: stored plan unchanged", "path", c.store.Path())
		return nil
	}
	err = c.apply(ctx, *plan)
	c.publish()
	return err
}

// apply resets or adopts the chip and programs every entry of plan, in
// dependency order: references, PLLs, fan-out, MultiSynths, outputs, PLL
// reset and finally the output enables. Caller holds c.mu.
func (c *Controller) apply(ctx context.Context, plan config.Plan) error {
	plan = plan.DeepCopy()
	config.Migrate(&plan)
	if err := plan.Validate(); err != nil {
		return err
	}

	if c.oeb != nil {
		if err := c.oeb.Disable(); err != nil {
			return err
		}
	}

	dev, err := si5351.New(c.drv, si5351.Options{
		Variant:           plan.Variant,
		Address:           plan.Address,
		AllowOverclocking: plan.AllowOverclocking,
	})
	if err != nil {
		return err
	}
	cfg := si5351.InitConfig{Crystal: plan.Crystal, ClkinFreq: uint32(plan.ClkinHz), Preserve: plan.Preserve}
	if err := dev.Init(ctx, cfg); err != nil {
		return fmt.Errorf("init: %w", err)
	}

	c.dev = dev
	c.outputs = [si5351.ChannelCount]outputExtra{}
	if plan.Preserve {
		if err := c.readOutputs(ctx); err != nil {
			return fmt.Errorf("read outputs: %w", err)
		}
	}
	if err := c.program(ctx, &plan); err != nil {
		return err
	}
	// edits build on c.plan, so it only tracks plans that programmed cleanly
	c.plan = plan

	if c.oeb != nil {
		if err := c.oeb.Enable(); err != nil {
			return err
		}
	}
	slog.Info("controller: plan applied",
		"variant", plan.Variant,
		"preserve", plan.Preserve,
		"plls", len(plan.PLLs),
		"multisynths", len(plan.Multisynths),
		"outputs", len(plan.Outputs),
	)
	return nil
}

func (c *Controller) program(ctx context.Context, plan *config.Plan) error {
	d := c.dev
	if !plan.Preserve {
		src := plan.PLLSource
		if err := d.SetPLLSource(ctx, src.A, src.B, src.ClkinDivider); err != nil {
			return fmt.Errorf("pll source: %w", err)
		}
		if plan.CrystalLoad != 0 && plan.Crystal != si5351.CrystalNone {
			if err := d.SetCrystalLoad(ctx, plan.CrystalLoad); err != nil {
				return fmt.Errorf("crystal load: %w", err)
			}
		}
	}

	for i, e := range plan.PLLs {
		if err := setPLL(ctx, d, e.PLL, e.Frequency, e.Divider); err != nil {
			return fmt.Errorf("plls[%d]: %w", i, err)
		}
		if e.IntegerMode {
			if err := d.SetPLLIntegerMode(ctx, e.PLL, true); err != nil {
				return fmt.Errorf("plls[%d]: %w", i, err)
			}
		}
	}

	if !plan.Preserve {
		if err := d.SetFanout(ctx, plan.Fanout); err != nil {
			return fmt.Errorf("fanout: %w", err)
		}
	}

	for i, e := range plan.Multisynths {
		if err := setMultisynth(ctx, d, e.Channel, e.PLL, e.Frequency, e.Divider); err != nil {
			return fmt.Errorf("multisynths[%d]: %w", i, err)
		}
	}

	for i, o := range plan.Outputs {
		if err := c.programOutput(ctx, o); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}

	// an adopted chip keeps running unless its PLLs were reprogrammed
	if !plan.Preserve || len(plan.PLLs) > 0 {
		if err := d.ResetPLL(ctx); err != nil {
			return fmt.Errorf("pll reset: %w", err)
		}
	}

	for i, o := range plan.Outputs {
		if err := d.SetOutputEnable(ctx, o.Channel, o.Enabled); err != nil {
			return fmt.Errorf("outputs[%d]: enable: %w", i, err)
		}
		c.outputs[o.Channel].enabled = o.Enabled
	}
	return nil
}

func (c *Controller) programOutput(ctx context.Context, o config.OutputPlan) error {
	if err := c.dev.SetClock(ctx, o.Channel, o.ClockConfig); err != nil {
		return err
	}
	if err := c.dev.SetDisableState(ctx, o.Channel, o.DisableState); err != nil {
		return err
	}
	c.outputs[o.Channel].disable = o.DisableState
	if o.Channel <= si5351.Clk5 {
		if err := c.dev.SetPhaseOffset(ctx, o.Channel, o.Phase); err != nil {
			return err
		}
		c.outputs[o.Channel].phase = min(o.Phase, 0x7F)
	}
	return nil
}

// readOutputs loads the enable, disable-state and phase registers of a chip
// that was adopted rather than reset.
func (c *Controller) readOutputs(ctx context.Context) error {
	en, err := c.dev.ReadRegister(ctx, si5351.RegOutputEnable)
	if err != nil {
		return err
	}
	ds := make([]byte, 2)
	if err := c.dev.ReadRegisters(ctx, si5351.RegDisableState3to0, ds); err != nil {
		return err
	}
	phase := make([]byte, 6)
	if err := c.dev.ReadRegisters(ctx, si5351.RegClk0PhaseOffset, phase); err != nil {
		return err
	}
	for ch := si5351.Clk0; ch < si5351.ChannelCount; ch++ {
		c.outputs[ch].enabled = en&(1<<ch) == 0
		c.outputs[ch].disable = si5351.UnpackDisableStates(ds[ch/4])[ch%4]
		if ch <= si5351.Clk5 {
			c.outputs[ch].phase = phase[ch] & 0x7F
		}
	}
	return nil
}

func setPLL(ctx context.Context, d *si5351.Device, pll si5351.PLL, hz models.Hz, div *si5351.Divider) error {
	if div != nil {
		return d.SetPLLFractional(ctx, pll, div.A, div.B, div.C)
	}
	return d.SetPLLFrequency(ctx, pll, uint32(hz))
}

func setMultisynth(ctx context.Context, d *si5351.Device, ch si5351.Channel, pll si5351.PLL, hz models.Hz, div *si5351.Divider) error {
	if div != nil {
		return d.SetMultisynthFractional(ctx, ch, pll, div.A, div.B, div.C)
	}
	return d.SetMultisynth(ctx, ch, pll, uint32(hz))
}
