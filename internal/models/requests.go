package models

import "github.com/micro-nova/clockgen-go/internal/si5351"

// PLLRequest is the PUT body for a PLL. Exactly one of Frequency and Divider
// must be set.
type PLLRequest struct {
	Frequency   Hz              `json:"frequency,omitempty"`
	Divider     *si5351.Divider `json:"divider,omitempty"`
	IntegerMode *bool           `json:"integer_mode,omitempty"`
}

// MultisynthRequest is the PUT body for a MultiSynth stage. Exactly one of
// Frequency and Divider must be set.
type MultisynthRequest struct {
	PLL       si5351.PLL      `json:"pll"`
	Frequency Hz              `json:"frequency,omitempty"`
	Divider   *si5351.Divider `json:"divider,omitempty"`
}

// OutputUpdate is the PATCH body for an output. Nil fields are left as they
// are.
type OutputUpdate struct {
	Enabled      *bool                 `json:"enabled,omitempty"`
	PowerUp      *bool                 `json:"power_up,omitempty"`
	Inverted     *bool                 `json:"inverted,omitempty"`
	Source       *si5351.ClockSource   `json:"source,omitempty"`
	RDivider     *si5351.RDivider      `json:"r_divider,omitempty"`
	Drive        *si5351.DriveStrength `json:"drive,omitempty"`
	DisableState *si5351.DisableState  `json:"disable_state,omitempty"`
	Phase        *uint8                `json:"phase,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u OutputUpdate) Empty() bool {
	return u.Enabled == nil && u.PowerUp == nil && u.Inverted == nil && u.Source == nil &&
		u.RDivider == nil && u.Drive == nil && u.DisableState == nil && u.Phase == nil
}
