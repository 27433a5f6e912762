package si5351

import (
	"fmt"
	"strings"
)

// Variant identifies a Si5351 part by feature set, revision and package.
type Variant uint8

const (
	VariantA_A_GM  Variant = iota // Si5351A-A-GM: crystal in, revision A, 20-QFN
	VariantA_A_GU                 // Si5351A-A-GU: crystal in, revision A, 24-QSOP
	VariantA_A_GT                 // Si5351A-A-GT: crystal in, revision A, 10-MSOP
	VariantB_A_GM                 // Si5351B-A-GM: crystal in + VCXO, revision A, 20-QFN
	VariantB_A_GU                 // Si5351B-A-GU: crystal in + VCXO, revision A, 24-QSOP
	VariantC_A_GM                 // Si5351C-A-GM: crystal in + CLKIN, revision A, 20-QFN
	VariantC_A_GU                 // Si5351C-A-GU: crystal in + CLKIN, revision A, 24-QSOP
	VariantA_B_GM                 // Si5351A-B-GM: crystal in, revision B, 20-QFN
	VariantA_B_GM1                // Si5351A-B-GM1: crystal in, revision B, 16-QFN
	VariantA_B_GT                 // Si5351A-B-GT: crystal in, revision B, 10-MSOP
	VariantB_B_GM                 // Si5351B-B-GM: crystal in + VCXO, revision B, 20-QFN
	VariantB_B_GM1                // Si5351B-B-GM1: crystal in + VCXO, revision B, 16-QFN
	VariantC_B_GM                 // Si5351C-B-GM: crystal in + CLKIN, revision B, 20-QFN
	VariantC_B_GM1                // Si5351C-B-GM1: crystal in + CLKIN, revision B, 16-QFN
	variantCount
)

var variantNames = [variantCount]string{
	"Si5351A-A-GM", "Si5351A-A-GU", "Si5351A-A-GT",
	"Si5351B-A-GM", "Si5351B-A-GU",
	"Si5351C-A-GM", "Si5351C-A-GU",
	"Si5351A-B-GM", "Si5351A-B-GM1", "Si5351A-B-GT",
	"Si5351B-B-GM", "Si5351B-B-GM1",
	"Si5351C-B-GM", "Si5351C-B-GM1",
}

func (v Variant) String() string {
	if v >= variantCount {
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
	return variantNames[v]
}

// Valid reports whether v is a known part.
func (v Variant) Valid() bool { return v < variantCount }

// Revision returns the silicon revision of the part.
func (v Variant) Revision() Revision {
	if v >= VariantA_B_GM {
		return RevisionB
	}
	return RevisionA
}

// HasVCXO reports whether the part is a Si5351B, whose PLL B drives the VCXO.
func (v Variant) HasVCXO() bool {
	switch v {
	case VariantB_A_GM, VariantB_A_GU, VariantB_B_GM, VariantB_B_GM1:
		return true
	}
	return false
}

// HasClkin reports whether the part is a Si5351C with a CLKIN input.
func (v Variant) HasClkin() bool {
	switch v {
	case VariantC_A_GM, VariantC_A_GU, VariantC_B_GM, VariantC_B_GM1:
		return true
	}
	return false
}

func (v Variant) MarshalText() ([]byte, error) { return marshalEnum(v, variantNames[:]) }
func (v *Variant) UnmarshalText(b []byte) error {
	return unmarshalEnum(v, b, "variant", variantNames[:])
}

// Revision is the silicon revision.
type Revision uint8

const (
	RevisionA Revision = iota
	RevisionB
)

func (r Revision) String() string {
	if r == RevisionB {
		return "B"
	}
	return "A"
}

// outputMax is the highest MultiSynth0..5 output frequency for the revision.
func (r Revision) outputMax() uint32 {
	if r == RevisionB {
		return revBOutputMax
	}
	return revAOutputMax
}

// PLL selects one of the two PLLs.
type PLL uint8

const (
	PLLA PLL = iota
	PLLB
	pllCount
)

var pllNames = []string{"A", "B"}

func (p PLL) String() string {
	if p >= pllCount {
		return fmt.Sprintf("PLL(%d)", uint8(p))
	}
	return "PLL" + pllNames[p]
}

func (p PLL) MarshalText() ([]byte, error) { return marshalEnum(p, pllNames) }
func (p *PLL) UnmarshalText(b []byte) error {
	s := strings.TrimPrefix(strings.ToUpper(string(b)), "PLL")
	return unmarshalEnum(p, []byte(s), "pll", pllNames)
}

// Channel selects an output clock and the MultiSynth stage that feeds it.
type Channel uint8

const (
	Clk0 Channel = iota
	Clk1
	Clk2
	Clk3
	Clk4
	Clk5
	Clk6
	Clk7
	ChannelCount
)

func (c Channel) String() string { return fmt.Sprintf("CLK%d", uint8(c)) }

// fractional reports whether the MultiSynth stage supports fractional division.
func (c Channel) fractional() bool { return c <= Clk5 }

// PLLSource is the reference feeding a PLL.
type PLLSource uint8

const (
	SourceXtal PLLSource = iota
	SourceClkin
)

var pllSourceNames = []string{"xtal", "clkin"}

func (s PLLSource) String() string               { return enumName(s, pllSourceNames) }
func (s PLLSource) MarshalText() ([]byte, error) { return marshalEnum(s, pllSourceNames) }
func (s *PLLSource) UnmarshalText(b []byte) error {
	return unmarshalEnum(s, b, "pll source", pllSourceNames)
}

// ClkinDivider divides CLKIN before it reaches the PLLs.
type ClkinDivider uint8

const (
	ClkinDiv1 ClkinDivider = iota
	ClkinDiv2
	ClkinDiv4
	ClkinDiv8
)

var clkinDividerNames = []string{"1", "2", "4", "8"}

func (d ClkinDivider) String() string { return enumName(d, clkinDividerNames) }

// Value returns the division ratio.
func (d ClkinDivider) Value() uint32 { return 1 << d }

func (d ClkinDivider) bits() byte { return byte(d) << pllSrcClkinDivS & pllSrcClkinDiv }
func (d ClkinDivider) MarshalText() ([]byte, error) {
	return marshalEnum(d, clkinDividerNames)
}
func (d *ClkinDivider) UnmarshalText(b []byte) error {
	return unmarshalEnum(d, b, "clkin divider", clkinDividerNames)
}

// CrystalFreq is one of the supported crystal frequencies.
type CrystalFreq uint32

const (
	CrystalNone  CrystalFreq = 0
	Crystal25MHz CrystalFreq = 25_000_000
	Crystal27MHz CrystalFreq = 27_000_000
)

// Valid reports whether f is a supported crystal.
func (f CrystalFreq) Valid() bool {
	return f == CrystalNone || f == Crystal25MHz || f == Crystal27MHz
}

// CrystalLoad is the internal crystal load capacitance.
type CrystalLoad uint8

const (
	Load6pF CrystalLoad = iota + 1
	Load8pF
	Load10pF
)

var crystalLoadNames = []string{"unset", "6pF", "8pF", "10pF"}

func (l CrystalLoad) String() string { return enumName(l, crystalLoadNames) }

// Valid reports whether l is a selectable load.
func (l CrystalLoad) Valid() bool { return l >= Load6pF && l <= Load10pF }

func (l CrystalLoad) bits() byte { return byte(l)<<6&crystalLoadCL | crystalLoadRsv }

func crystalLoadFromReg(b byte) CrystalLoad { return CrystalLoad((b & crystalLoadCL) >> 6) }

func (l CrystalLoad) MarshalText() ([]byte, error) { return marshalEnum(l, crystalLoadNames) }
func (l *CrystalLoad) UnmarshalText(b []byte) error {
	return unmarshalEnum(l, b, "crystal load", crystalLoadNames)
}

// ClockSource selects what drives an output clock.
type ClockSource uint8

const (
	ClockSourceXtal     ClockSource = iota // crystal, needs XO fan-out
	ClockSourceClkin                       // CLKIN, needs CLKIN fan-out
	ClockSourceMS0or4                      // MultiSynth0 for CLK0..3, MultiSynth4 for CLK4..7
	ClockSourceMS                          // the channel's own MultiSynth
)

var clockSourceNames = []string{"xtal", "clkin", "ms0or4", "ms"}

func (s ClockSource) String() string { return enumName(s, clockSourceNames) }
func (s ClockSource) bits() byte     { return byte(s) << 2 & ctrlSrc }
func (s ClockSource) MarshalText() ([]byte, error) {
	return marshalEnum(s, clockSourceNames)
}
func (s *ClockSource) UnmarshalText(b []byte) error {
	return unmarshalEnum(s, b, "clock source", clockSourceNames)
}

// DriveStrength is the output driver current.
type DriveStrength uint8

const (
	Drive2mA DriveStrength = iota
	Drive4mA
	Drive6mA
	Drive8mA
)

var driveStrengthNames = []string{"2mA", "4mA", "6mA", "8mA"}

func (d DriveStrength) String() string { return enumName(d, driveStrengthNames) }
func (d DriveStrength) bits() byte     { return byte(d) & ctrlDrive }
func (d DriveStrength) MarshalText() ([]byte, error) {
	return marshalEnum(d, driveStrengthNames)
}
func (d *DriveStrength) UnmarshalText(b []byte) error {
	return unmarshalEnum(d, b, "drive strength", driveStrengthNames)
}

// RDivider is the power-of-two post divider after a MultiSynth stage.
type RDivider uint8

const (
	RDiv1 RDivider = iota
	RDiv2
	RDiv4
	RDiv8
	RDiv16
	RDiv32
	RDiv64
	RDiv128
)

var rDividerNames = []string{"1", "2", "4", "8", "16", "32", "64", "128"}

func (r RDivider) String() string { return enumName(r, rDividerNames) }

// Value returns the division ratio.
func (r RDivider) Value() uint32 { return 1 << r }

func (r RDivider) MarshalText() ([]byte, error) { return marshalEnum(r, rDividerNames) }
func (r *RDivider) UnmarshalText(b []byte) error {
	return unmarshalEnum(r, b, "r divider", rDividerNames)
}

// DisableState is the level an output holds while disabled.
type DisableState uint8

const (
	DisableLow DisableState = iota
	DisableHigh
	DisableHighZ
	DisableNever
)

var disableStateNames = []string{"low", "high", "highz", "never"}

func (s DisableState) String() string { return enumName(s, disableStateNames) }
func (s DisableState) MarshalText() ([]byte, error) {
	return marshalEnum(s, disableStateNames)
}
func (s *DisableState) UnmarshalText(b []byte) error {
	return unmarshalEnum(s, b, "disable state", disableStateNames)
}

// Fanout records which sources may feed channels other than their own.
type Fanout struct {
	Clkin      bool `json:"clkin"`
	Xtal       bool `json:"xtal"`
	Multisynth bool `json:"multisynth"`
}

func (f Fanout) bits() byte {
	var b byte
	if f.Clkin {
		b |= fanoutClkin
	}
	if f.Xtal {
		b |= fanoutXO
	}
	if f.Multisynth {
		b |= fanoutMS
	}
	return b
}

func fanoutFromReg(b byte) Fanout {
	return Fanout{
		Clkin:      b&fanoutClkin != 0,
		Xtal:       b&fanoutXO != 0,
		Multisynth: b&fanoutMS != 0,
	}
}

type enum interface {
	~uint8
}

func enumName[T enum](v T, names []string) string {
	if int(v) >= len(names) || names[v] == "" {
		return fmt.Sprintf("%d", uint8(v))
	}
	return names[v]
}

func marshalEnum[T enum](v T, names []string) ([]byte, error) {
	if int(v) >= len(names) || names[v] == "" {
		return nil, fmt.Errorf("%w: value %d", ErrInvalidArgument, uint8(v))
	}
	return []byte(names[v]), nil
}

func unmarshalEnum[T enum](v *T, b []byte, kind string, names []string) error {
	s := strings.TrimSpace(string(b))
	for i, n := range names {
		if n != "" && strings.EqualFold(n, s) {
			*v = T(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidArgument, kind, s)
}
