package si5351

// Register is a Si5351 register address.
type Register = byte

// Register addresses from the Si5351 register map (AN619).
const (
	RegDeviceStatus        Register = 0
	RegInterruptSticky     Register = 1
	RegInterruptMask       Register = 2
	RegOutputEnable        Register = 3 // 1 bit per CLK, 1=disabled
	RegOEBMask             Register = 9
	RegPLLInputSource      Register = 15
	RegClk0Control         Register = 16 // CLK0..CLK7 control = 16..23
	RegDisableState3to0    Register = 24
	RegDisableState7to4    Register = 25
	RegPLLAParams          Register = 26 // MSNA P1..P3, 8 bytes
	RegPLLBParams          Register = 34 // MSNB P1..P3, 8 bytes
	RegMS0Params           Register = 42 // MS0..MS5 = 42..89, 8 bytes each
	RegMS6Params           Register = 90
	RegMS7Params           Register = 91
	RegClk67OutputDivider  Register = 92 // R6 [2:0], R7 [6:4]
	RegSpreadSpectrum      Register = 149
	RegClk0PhaseOffset     Register = 165 // CLK0..CLK5 = 165..170
	RegPLLReset            Register = 177
	RegCrystalLoad         Register = 183
	RegFanoutEnable        Register = 187
	paramsLen                       = 8
)

// Device status (register 0) bits.
const (
	statusRevID    byte = 0x03
	statusLOSXtal  byte = 0x08
	statusLOSClkin byte = 0x10
	statusLOLA     byte = 0x20
	statusLOLB     byte = 0x40
	statusSysInit  byte = 0x80
)

// PLL input source (register 15) bits.
const (
	pllSrcPLLA      byte = 0x04
	pllSrcPLLB      byte = 0x08
	pllSrcClkinDiv  byte = 0xC0
	pllSrcClkinDivS      = 6
)

// CLKx control register bits.
const (
	ctrlDrive    byte = 0x03
	ctrlSrc      byte = 0x0C
	ctrlInvert   byte = 0x10
	ctrlMSSrc    byte = 0x20 // 0=PLLA, 1=PLLB
	ctrlMSInt    byte = 0x40 // CLK0..5: MSx integer mode; CLK6/7: FBA/FBB integer mode
	ctrlPowerOff byte = 0x80
)

// MultiSynth0..5 parameter byte 2 fields.
const (
	msDiv4     byte = 0x0C
	msRDiv     byte = 0x70
	msRDivS         = 4
	msP1High   byte = 0x03
	disableBits byte = 0x03
)

const (
	pllResetA      byte = 0x20
	pllResetB      byte = 0x80
	crystalLoadCL  byte = 0xC0
	crystalLoadRsv byte = 0x12 // bits 5:0 must be written as 010010b
	fanoutMS       byte = 0x10
	fanoutXO       byte = 0x40
	fanoutClkin    byte = 0x80
	phaseOffsetMax byte = 0x7F
)

// Parameter field widths.
const (
	p1Mask = 0x3FFFF
	p2Mask = 0xFFFFF
	p3Mask = 0xFFFFF
)

// Frequency and divider limits from the datasheet.
const (
	VCOMin          = 600_000_000
	VCOMax          = 900_000_000
	PLLRefMin       = 10_000_000
	PLLRefMax       = 40_000_000
	ClkinMin        = 10_000_000
	ClkinMax        = 100_000_000
	pllIntMin       = 15
	pllIntMax       = 90
	msDivBy4        = 4
	msFracMin       = 8
	msFracMax       = 2048
	msIntMin        = 6
	msIntMax        = 254
	revAOutputMax   = 160_000_000
	revBOutputMax   = 200_000_000
	DenominatorMax  = 0xFFFFF
	VCXODenominator = 0xF4240
	powerUpPolls    = 10
)

// controlReg returns the CLKx control register for ch.
func controlReg(ch Channel) Register {
	return RegClk0Control + Register(ch)
}

// multisynthReg returns the first parameter register of MultiSynth ch.
func multisynthReg(ch Channel) Register {
	switch ch {
	case Clk6:
		return RegMS6Params
	case Clk7:
		return RegMS7Params
	default:
		return RegMS0Params + Register(ch)*paramsLen
	}
}

// pllReg returns the first feedback parameter register of pll.
func pllReg(pll PLL) Register {
	if pll == PLLB {
		return RegPLLBParams
	}
	return RegPLLAParams
}

// pllIntReg returns the control register holding the FBx_INT bit for pll.
func pllIntReg(pll PLL) Register {
	if pll == PLLB {
		return controlReg(Clk7)
	}
	return controlReg(Clk6)
}
