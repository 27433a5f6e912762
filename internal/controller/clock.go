package controller

import (
	"context"
	"fmt"

	"github.com/micro-nova/clockgen-go/internal/config"
	"github.com/micro-nova/clockgen-go/internal/models"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// GetPLL returns the status of one PLL.
func (c *Controller) GetPLL(pll si5351.PLL) (models.PLL, *models.AppError) {
	if pll > si5351.PLLB {
		return models.PLL{}, models.ErrNotFound(fmt.Sprintf("no PLL %d", pll))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshot()
	if len(s.PLLs) == 0 {
		return models.PLL{}, models.ErrConflict("device not initialised")
	}
	return s.PLLs[pll], nil
}

// GetOutput returns the status of one output.
func (c *Controller) GetOutput(ch si5351.Channel) (models.Output, *models.AppError) {
	if ch >= si5351.ChannelCount {
		return models.Output{}, models.ErrNotFound(fmt.Sprintf("no output %d", ch))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.snapshot()
	o := s.FindOutput(ch)
	if o == nil {
		return models.Output{}, models.ErrConflict("device not initialised")
	}
	return *o, nil
}

// SetPLL programs one PLL by frequency or divider and records it in the plan.
func (c *Controller) SetPLL(ctx context.Context, pll si5351.PLL, req models.PLLRequest) (models.Status, *models.AppError) {
	if pll > si5351.PLLB {
		return models.Status{}, models.ErrNotFound(fmt.Sprintf("no PLL %d", pll))
	}
	if appErr := oneOf(req.Frequency, req.Divider); appErr != nil {
		return models.Status{}, appErr
	}
	return c.mutate(func(d *si5351.Device) error {
		if err := setPLL(ctx, d, pll, req.Frequency, req.Divider); err != nil {
			return err
		}
		entry := config.PLLPlan{PLL: pll, Frequency: req.Frequency, Divider: copyDivider(req.Divider)}
		if old := findPLL(&c.plan, pll); old != nil {
			entry.IntegerMode = old.IntegerMode
		}
		if req.IntegerMode != nil {
			if err := d.SetPLLIntegerMode(ctx, pll, *req.IntegerMode); err != nil {
				return err
			}
			entry.IntegerMode = *req.IntegerMode
		}
		upsertPLL(&c.plan, entry)
		return nil
	})
}

// SetMultisynth programs one MultiSynth stage and records it in the plan.
func (c *Controller) SetMultisynth(ctx context.Context, ch si5351.Channel, req models.MultisynthRequest) (models.Status, *models.AppError) {
	if ch >= si5351.ChannelCount {
		return models.Status{}, models.ErrNotFound(fmt.Sprintf("no multisynth %d", ch))
	}
	if appErr := oneOf(req.Frequency, req.Divider); appErr != nil {
		return models.Status{}, appErr
	}
	return c.mutate(func(d *si5351.Device) error {
		if err := setMultisynth(ctx, d, ch, req.PLL, req.Frequency, req.Divider); err != nil {
			return err
		}
		upsertMultisynth(&c.plan, config.MultisynthPlan{
			Channel:   ch,
			PLL:       req.PLL,
			Frequency: req.Frequency,
			Divider:   copyDivider(req.Divider),
		})
		return nil
	})
}

// SetOutput applies a partial update to one output. An output that has not
// been routed yet needs a source in the update.
func (c *Controller) SetOutput(ctx context.Context, ch si5351.Channel, upd models.OutputUpdate) (models.Status, *models.AppError) {
	if ch >= si5351.ChannelCount {
		return models.Status{}, models.ErrNotFound(fmt.Sprintf("no output %d", ch))
	}
	if upd.Empty() {
		return models.Status{}, models.ErrBadRequest("empty output update")
	}
	return c.mutate(func(d *si5351.Device) error {
		cur := d.State().Output[ch]
		if !cur.Configured && upd.Source == nil {
			return models.ErrBadRequest(fmt.Sprintf("%s is not routed yet: source is required", ch))
		}

		cfg := si5351.ClockConfig{
			PowerUp:  cur.PowerUp,
			Inverted: cur.Inverted,
			Source:   cur.Source,
			RDivider: cur.RDivider,
			Drive:    cur.Drive,
		}
		routing := false
		if upd.PowerUp != nil {
			cfg.PowerUp, routing = *upd.PowerUp, true
		}
		if upd.Inverted != nil {
			cfg.Inverted, routing = *upd.Inverted, true
		}
		if upd.Source != nil {
			cfg.Source, routing = *upd.Source, true
		}
		if upd.RDivider != nil {
			cfg.RDivider, routing = *upd.RDivider, true
		}
		if upd.Drive != nil {
			cfg.Drive, routing = *upd.Drive, true
		}
		if routing {
			if err := d.SetClock(ctx, ch, cfg); err != nil {
				return err
			}
		}

		extra := &c.outputs[ch]
		if upd.DisableState != nil {
			if err := d.SetDisableState(ctx, ch, *upd.DisableState); err != nil {
				return err
			}
			extra.disable = *upd.DisableState
		}
		if upd.Phase != nil {
			if err := d.SetPhaseOffset(ctx, ch, *upd.Phase); err != nil {
				return err
			}
			extra.phase = min(*upd.Phase, 0x7F)
		}
		if upd.Enabled != nil {
			if err := d.SetOutputEnable(ctx, ch, *upd.Enabled); err != nil {
				return err
			}
			extra.enabled = *upd.Enabled
		}

		now := d.State().Output[ch]
		upsertOutput(&c.plan, config.OutputPlan{
			Channel: ch,
			Enabled: extra.enabled,
			ClockConfig: si5351.ClockConfig{
				PowerUp:  now.PowerUp,
				Inverted: now.Inverted,
				Source:   now.Source,
				RDivider: now.RDivider,
				Drive:    now.Drive,
			},
			DisableState: extra.disable,
			Phase:        extra.phase,
		})
		return nil
	})
}

// ResetPLL soft-resets both PLLs.
func (c *Controller) ResetPLL(ctx context.Context) (models.Status, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return models.Status{}, models.ErrConflict("device not initialised")
	}
	if err := c.dev.ResetPLL(ctx); err != nil {
		return models.Status{}, models.FromError(err)
	}
	return c.snapshot(), nil
}

// mutate runs fn against the device, then saves the plan and publishes. The
// snapshot is published even when fn fails part way, since the chip may have
// changed.
func (c *Controller) mutate(fn func(d *si5351.Device) error) (models.Status, *models.AppError) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dev == nil {
		return models.Status{}, models.ErrConflict("device not initialised")
	}
	err := fn(c.dev)
	c.publish()
	if err != nil {
		return models.Status{}, models.FromError(err)
	}
	c.save()
	return c.snapshot(), nil
}

func oneOf(hz models.Hz, div *si5351.Divider) *models.AppError {
	switch {
	case hz == 0 && div == nil:
		return models.ErrBadRequest("set one of frequency or divider")
	case hz != 0 && div != nil:
		return models.ErrBadRequest("frequency and divider are mutually exclusive")
	}
	return nil
}

func copyDivider(d *si5351.Divider) *si5351.Divider {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func findPLL(p *config.Plan, pll si5351.PLL) *config.PLLPlan {
	for i := range p.PLLs {
		if p.PLLs[i].PLL == pll {
			return &p.PLLs[i]
		}
	}
	return nil
}

func upsertPLL(p *config.Plan, e config.PLLPlan) {
	if old := findPLL(p, e.PLL); old != nil {
		*old = e
		return
	}
	p.PLLs = append(p.PLLs, e)
}

func upsertMultisynth(p *config.Plan, e config.MultisynthPlan) {
	for i := range p.Multisynths {
		if p.Multisynths[i].Channel == e.Channel {
			p.Multisynths[i] = e
			return
		}
	}
	p.Multisynths = append(p.Multisynths, e)
}

func upsertOutput(p *config.Plan, e config.OutputPlan) {
	for i := range p.Outputs {
		if p.Outputs[i].Channel == e.Channel {
			p.Outputs[i] = e
			return
		}
	}
	p.Outputs = append(p.Outputs, e)
}
