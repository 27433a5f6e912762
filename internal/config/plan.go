// Package config handles loading, saving and watching the clock plan.
package config

import (
	"errors"
	"fmt"

	"github.com/micro-nova/clockgen-go/internal/models"
	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// Plan is the complete desired configuration of one Si5351.
type Plan struct {
	Variant           si5351.Variant     `json:"variant"`
	Address           uint16             `json:"address"`
	Crystal           si5351.CrystalFreq `json:"crystal"`
	ClkinHz           models.Hz          `json:"clkin_hz,omitempty"`
	CrystalLoad       si5351.CrystalLoad `json:"crystal_load"`
	AllowOverclocking bool               `json:"allow_overclocking,omitempty"`
	// Preserve initialises from the chip's current registers instead of
	// resetting it. PLL source, fan-out and crystal load then come from the
	// chip; the PLL, MultiSynth and output entries are applied on top.
	Preserve    bool             `json:"preserve,omitempty"`
	PLLSource   PLLSourcePlan    `json:"pll_source"`
	Fanout      si5351.Fanout    `json:"fanout"`
	PLLs        []PLLPlan        `json:"plls"`
	Multisynths []MultisynthPlan `json:"multisynths"`
	Outputs     []OutputPlan     `json:"outputs"`
}

// PLLSourcePlan selects the reference of each PLL.
type PLLSourcePlan struct {
	A            si5351.PLLSource    `json:"a"`
	B            si5351.PLLSource    `json:"b"`
	ClkinDivider si5351.ClkinDivider `json:"clkin_divider"`
}

// PLLPlan sets one PLL either by frequency or by explicit divider.
type PLLPlan struct {
	PLL         si5351.PLL      `json:"pll"`
	Frequency   models.Hz       `json:"frequency,omitempty"`
	Divider     *si5351.Divider `json:"divider,omitempty"`
	IntegerMode bool            `json:"integer_mode,omitempty"`
}

// MultisynthPlan sets one MultiSynth stage either by frequency or by
// explicit divider.
type MultisynthPlan struct {
	Channel   si5351.Channel  `json:"channel"`
	PLL       si5351.PLL      `json:"pll"`
	Frequency models.Hz       `json:"frequency,omitempty"`
	Divider   *si5351.Divider `json:"divider,omitempty"`
}

// OutputPlan is the routing and enable state of one output pin.
type OutputPlan struct {
	Channel si5351.Channel `json:"channel"`
	Enabled bool           `json:"enabled"`
	si5351.ClockConfig
	DisableState si5351.DisableState `json:"disable_state"`
	Phase        uint8               `json:"phase,omitempty"`
}

// DefaultPlan returns the plan used when no plan file exists: a 25 MHz
// crystal, PLL A at 800 MHz and a 10 MHz square wave on CLK0.
func DefaultPlan() Plan {
	return Plan{
		Variant:     si5351.VariantA_B_GT,
		Address:     si5351.DefaultAddress,
		Crystal:     si5351.Crystal25MHz,
		CrystalLoad: si5351.Load10pF,
		PLLs: []PLLPlan{
			{PLL: si5351.PLLA, Frequency: 800_000_000},
		},
		Multisynths: []MultisynthPlan{
			{Channel: si5351.Clk0, PLL: si5351.PLLA, Frequency: 10_000_000},
		},
		Outputs: []OutputPlan{
			{
				Channel: si5351.Clk0,
				Enabled: true,
				ClockConfig: si5351.ClockConfig{
					PowerUp: true,
					Source:  si5351.ClockSourceMS,
					Drive:   si5351.Drive8mA,
				},
			},
		},
	}
}

// DeepCopy returns a copy of p that shares no slices or pointers with it.
func (p *Plan) DeepCopy() Plan {
	cp := *p
	if p.PLLs != nil {
		cp.PLLs = make([]PLLPlan, len(p.PLLs))
		for i, e := range p.PLLs {
			e.Divider = copyDivider(e.Divider)
			cp.PLLs[i] = e
		}
	}
	if p.Multisynths != nil {
		cp.Multisynths = make([]MultisynthPlan, len(p.Multisynths))
		for i, e := range p.Multisynths {
			e.Divider = copyDivider(e.Divider)
			cp.Multisynths[i] = e
		}
	}
	if p.Outputs != nil {
		cp.Outputs = append([]OutputPlan(nil), p.Outputs...)
	}
	return cp
}

func copyDivider(d *si5351.Divider) *si5351.Divider {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

// Validate checks the structure of the plan. Register-level limits are left
// to the device; this only catches entries that can never be applied.
func (p *Plan) Validate() error {
	if !p.Variant.Valid() {
		return invalidPlanf("unknown variant %d", p.Variant)
	}
	if p.Address > 0x7F {
		return invalidPlanf("address 0x%x is not a 7-bit address", p.Address)
	}
	if !p.Crystal.Valid() {
		return invalidPlanf("unsupported crystal %d Hz", p.Crystal)
	}
	if p.Crystal == si5351.CrystalNone && p.ClkinHz == 0 {
		return invalidPlanf("no reference: set crystal or clkin_hz")
	}

	seenPLL := map[si5351.PLL]bool{}
	for i, e := range p.PLLs {
		if e.PLL > si5351.PLLB {
			return invalidPlanf("plls[%d]: unknown PLL %d", i, e.PLL)
		}
		if seenPLL[e.PLL] {
			return invalidPlanf("plls[%d]: PLL %s listed twice", i, e.PLL)
		}
		seenPLL[e.PLL] = true
		if err := oneOf(e.Frequency, e.Divider); err != nil {
			return invalidPlanf("plls[%d]: %v", i, err)
		}
	}

	seenMS := map[si5351.Channel]bool{}
	for i, e := range p.Multisynths {
		if e.Channel >= si5351.ChannelCount {
			return invalidPlanf("multisynths[%d]: unknown channel %d", i, e.Channel)
		}
		if e.PLL > si5351.PLLB {
			return invalidPlanf("multisynths[%d]: unknown PLL %d", i, e.PLL)
		}
		if seenMS[e.Channel] {
			return invalidPlanf("multisynths[%d]: %s listed twice", i, e.Channel)
		}
		seenMS[e.Channel] = true
		if err := oneOf(e.Frequency, e.Divider); err != nil {
			return invalidPlanf("multisynths[%d]: %v", i, err)
		}
	}

	seenOut := map[si5351.Channel]bool{}
	for i, o := range p.Outputs {
		if o.Channel >= si5351.ChannelCount {
			return invalidPlanf("outputs[%d]: unknown channel %d", i, o.Channel)
		}
		if seenOut[o.Channel] {
			return invalidPlanf("outputs[%d]: %s listed twice", i, o.Channel)
		}
		seenOut[o.Channel] = true
		if o.Phase != 0 && o.Channel > si5351.Clk5 {
			return invalidPlanf("outputs[%d]: %s has no phase offset register", i, o.Channel)
		}
	}
	return nil
}

func oneOf(freq models.Hz, div *si5351.Divider) error {
	switch {
	case freq == 0 && div == nil:
		return errors.New("set one of frequency or divider")
	case freq != 0 && div != nil:
		return errors.New("frequency and divider are mutually exclusive")
	}
	return nil
}

func invalidPlanf(format string, args ...any) error {
	return fmt.Errorf("%w: plan: %s", si5351.ErrInvalidArgument, fmt.Sprintf(format, args...))
}
