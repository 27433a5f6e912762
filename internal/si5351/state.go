package si5351

// PLLState mirrors one PLL. Frequency and Divider are valid only when
// Configured is set.
type PLLState struct {
	Configured bool      `json:"configured"`
	Source     PLLSource `json:"source"`
	Frequency  uint32    `json:"frequency"`
	Divider    Divider   `json:"divider"`
}

// MultisynthState mirrors one MultiSynth stage. Frequency is the MultiSynth
// output before the R divider.
type MultisynthState struct {
	Configured bool    `json:"configured"`
	PLL        PLL     `json:"pll"`
	Frequency  uint32  `json:"frequency"`
	Divider    Divider `json:"divider"`
}

// OutputState mirrors the last successful SetClock on a channel.
type OutputState struct {
	Configured bool          `json:"configured"`
	PowerUp    bool          `json:"power_up"`
	Inverted   bool          `json:"inverted"`
	Source     ClockSource   `json:"source"`
	RDivider   RDivider      `json:"r_divider"`
	Drive      DriveStrength `json:"drive"`
}

// State is the in-memory model of the chip configuration. It is only
// changed after the corresponding register writes succeed.
type State struct {
	Initialised  bool                          `json:"initialised"`
	Variant      Variant                       `json:"variant"`
	Revision     Revision                      `json:"revision"`
	Address      uint16                        `json:"address"`
	CrystalFreq  uint32                        `json:"crystal_freq"`
	CrystalLoad  CrystalLoad                   `json:"crystal_load"`
	ClkinFreq    uint32                        `json:"clkin_freq"`
	ClkinDivider ClkinDivider                  `json:"clkin_divider"`
	Fanout       Fanout                        `json:"fanout"`
	PLL          [pllCount]PLLState            `json:"pll"`
	Multisynth   [ChannelCount]MultisynthState `json:"multisynth"`
	Output       [ChannelCount]OutputState     `json:"output"`
}

// newState returns the state of a device that has not been initialised.
func newState(v Variant, addr uint16) State {
	return State{
		Variant:  v,
		Revision: v.Revision(),
		Address:  addr,
	}
}

// pllRefFrequency returns the reference frequency feeding pll.
func (s *State) pllRefFrequency(pll PLL) uint32 {
	switch s.PLL[pll].Source {
	case SourceClkin:
		return uint32(roundHalfUp(uint64(s.ClkinFreq), uint64(s.ClkinDivider.Value())))
	default:
		return s.CrystalFreq
	}
}

// OutputFrequency returns the frequency at the CLK pin for ch, taking the
// routed source and R divider into account. It returns 0 when the channel's
// source is not configured.
func (s State) OutputFrequency(ch Channel) uint32 {
	if ch >= ChannelCount || !s.Output[ch].Configured {
		return 0
	}
	out := s.Output[ch]
	var f uint32
	switch out.Source {
	case ClockSourceXtal:
		f = s.CrystalFreq
	case ClockSourceClkin:
		f = s.ClkinFreq
	case ClockSourceMS0or4:
		if ch < Clk4 {
			f = s.Multisynth[Clk0].Frequency
		} else {
			f = s.Multisynth[Clk4].Frequency
		}
	case ClockSourceMS:
		f = s.Multisynth[ch].Frequency
	}
	return uint32(roundHalfUp(uint64(f), uint64(out.RDivider.Value())))
}
