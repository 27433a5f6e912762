package models

import (
	"time"

	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// Status is the snapshot served by GET /api/status and pushed to SSE
// subscribers.
type Status struct {
	Backend string `json:"backend"`
	// Chip is the decoded status register, nil when it could not be read.
	Chip         *si5351.Status      `json:"chip,omitempty"`
	ChipError    string              `json:"chip_error,omitempty"`
	Variant      si5351.Variant      `json:"variant"`
	Address      uint16              `json:"address"`
	Initialised  bool                `json:"initialised"`
	Crystal      Hz                  `json:"crystal"`
	CrystalLoad  si5351.CrystalLoad  `json:"crystal_load"`
	Clkin        Hz                  `json:"clkin"`
	ClkinDivider si5351.ClkinDivider `json:"clkin_divider"`
	Fanout       si5351.Fanout       `json:"fanout"`
	PLLs         []PLL               `json:"plls"`
	Outputs      []Output            `json:"outputs"`
	Updated      time.Time           `json:"updated"`
}

// PLL is the status of one PLL.
type PLL struct {
	PLL        si5351.PLL       `json:"pll"`
	Configured bool             `json:"configured"`
	Source     si5351.PLLSource `json:"source"`
	Frequency  Hz               `json:"frequency"`
	Display    string           `json:"display,omitempty"`
	Divider    si5351.Divider   `json:"divider"`
}

// Output is the status of one output pin and the MultiSynth stage behind it.
type Output struct {
	Channel   si5351.Channel `json:"channel"`
	Enabled   bool           `json:"enabled"`
	Frequency Hz             `json:"frequency"`
	Display   string         `json:"display,omitempty"`
	si5351.OutputState
	DisableState si5351.DisableState    `json:"disable_state"`
	Phase        uint8                  `json:"phase"`
	Multisynth   si5351.MultisynthState `json:"multisynth"`
}

// FindOutput returns the output for ch, or nil.
func (s *Status) FindOutput(ch si5351.Channel) *Output {
	for i := range s.Outputs {
		if s.Outputs[i].Channel == ch {
			return &s.Outputs[i]
		}
	}
	return nil
}
