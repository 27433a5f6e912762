// Package controller owns the clock generator: every call into the
// si5351.Device goes through it, one at a time. It applies clock plans,
// keeps the stored plan in step with API changes and publishes status
// snapshots.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/clockgen-go/internal/config"
	"github.com/micro-nova/clockgen-go/internal/events"
	"github.com/micro-nova/clockgen-go/internal/hardware"
	"github.com/micro-nova/clockgen-go/internal/models"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// OutputEnabler drives the chip's OEB pin. hardware.OEBPin implements it.
type OutputEnabler interface {
	Enable() error
	Disable() error
}

// Options configures a Controller. Driver and Store are required.
type Options struct {
	Driver hardware.Driver
	Store  config.Store
	Bus    *events.Bus
	OEB    OutputEnabler
}

// Controller serializes access to one Si5351.
type Controller struct {
	mu    sync.Mutex
	drv   hardware.Driver
	store config.Store
	bus   *events.Bus
	oeb   OutputEnabler

	dev  *si5351.Device
	plan config.Plan

	// Registers the device model does not track.
	outputs [si5351.ChannelCount]outputExtra

	chip    *si5351.Status
	chipErr string
}

type outputExtra struct {
	enabled bool
	disable si5351.DisableState
	phase   uint8
}

// New loads the stored plan and applies it. A plan that fails to apply is
// logged, not returned: the controller stays usable so a corrected plan can
// be posted.
func New(ctx context.Context, opts Options) (*Controller, error) {
	if opts.Driver == nil || opts.Store == nil {
		return nil, fmt.Errorf("controller: driver and store are required")
	}
	plan, err := opts.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("controller: load plan: %w", err)
	}

	c := &Controller{
		drv:   opts.Driver,
		store: opts.Store,
		bus:   opts.Bus,
		oeb:   opts.OEB,
		plan:  plan.DeepCopy(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.apply(ctx, *plan); err != nil {
		slog.Error("controller: initial plan not applied", "path", opts.Store.Path(), "err", err)
	}
	c.refreshChip(ctx)
	c.publish()
	return c, nil
}

// Plan returns a copy of the plan last applied or edited.
func (c *Controller) Plan() config.Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plan.DeepCopy()
}

// Status reads the status register and returns a full snapshot.
func (c *Controller) Status(ctx context.Context) models.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshChip(ctx)
	return c.snapshot()
}

// publish sends the current snapshot to subscribers. Caller holds c.mu.
func (c *Controller) publish() {
	if c.bus != nil {
		c.bus.Publish(c.snapshot())
	}
}

// save schedules a write of the current plan. Caller holds c.mu.
func (c *Controller) save() {
	if err := c.store.Save(&c.plan); err != nil {
		slog.Error("controller: failed to save plan", "path", c.store.Path(), "err", err)
	}
}

// snapshot builds the status model from the device state. Caller holds c.mu.
func (c *Controller) snapshot() models.Status {
	s := models.Status{
		Backend:   c.drv.Name(),
		ChipError: c.chipErr,
		Variant:   c.plan.Variant,
		Address:   c.plan.Address,
		PLLs:      []models.PLL{},
		Outputs:   []models.Output{},
		Updated:   time.Now(),
	}
	if c.chip != nil {
		chip := *c.chip
		s.Chip = &chip
	}
	if c.dev == nil {
		return s
	}

	st := c.dev.State()
	s.Variant = st.Variant
	s.Address = st.Address
	s.Initialised = st.Initialised
	s.Crystal = models.Hz(st.CrystalFreq)
	s.CrystalLoad = st.CrystalLoad
	s.Clkin = models.Hz(st.ClkinFreq)
	s.ClkinDivider = st.ClkinDivider
	s.Fanout = st.Fanout

	for _, p := range []si5351.PLL{si5351.PLLA, si5351.PLLB} {
		slot := st.PLL[p]
		info := models.PLL{PLL: p, Configured: slot.Configured, Source: slot.Source}
		if slot.Configured {
			info.Frequency = models.Hz(slot.Frequency)
			info.Display = info.Frequency.String()
			info.Divider = slot.Divider
		}
		s.PLLs = append(s.PLLs, info)
	}

	for ch := si5351.Clk0; ch < si5351.ChannelCount; ch++ {
		o := models.Output{
			Channel:      ch,
			Enabled:      c.outputs[ch].enabled,
			OutputState:  st.Output[ch],
			DisableState: c.outputs[ch].disable,
			Phase:        c.outputs[ch].phase,
			Multisynth:   st.Multisynth[ch],
		}
		if f := st.OutputFrequency(ch); f > 0 {
			o.Frequency = models.Hz(f)
			o.Display = o.Frequency.String()
		}
		s.Outputs = append(s.Outputs, o)
	}
	return s
}

// refreshChip reads the status register and reports whether it changed.
// Caller holds c.mu.
func (c *Controller) refreshChip(ctx context.Context) bool {
	if c.dev == nil {
		return false
	}
	st, err := c.dev.Status(ctx)
	if err != nil {
		msg := err.Error()
		changed := msg != c.chipErr
		if changed {
			slog.Warn("controller: status read failed", "err", err)
		}
		c.chip, c.chipErr = nil, msg
		return changed
	}
	prev := c.chip
	c.chip, c.chipErr = &st, ""
	if prev != nil && *prev == st {
		return false
	}
	logTransitions(prev, st)
	return true
}

func logTransitions(prev *si5351.Status, cur si5351.Status) {
	var was si5351.Status
	if prev != nil {
		was = *prev
	}
	flags := []struct {
		name     string
		was, now bool
	}{
		{"PLL A lock lost", was.LOLA, cur.LOLA},
		{"PLL B lock lost", was.LOLB, cur.LOLB},
		{"CLKIN signal lost", was.LOSClkin, cur.LOSClkin},
		{"crystal signal lost", was.LOSXtal, cur.LOSXtal},
	}
	for _, f := range flags {
		switch {
		case f.now && !f.was:
			slog.Warn("controller: "+f.name, "rev", cur.RevID)
		case !f.now && f.was:
			slog.Info("controller: cleared: " + f.name)
		}
	}
}
