package si5351

// roundHalfUp divides n by d rounding halves up: (n + d/2) / d.
// Register values depend on this exact tie-break.
func roundHalfUp(n, d uint64) uint64 {
	return (n + d/2) / d
}

// approximate finds the divider a + b/c closest to num/den using the fixed
// denominator cMax. An exact ratio yields the integer form (a, 0, 1).
func approximate(num, den uint64, cMax uint32, minA, maxA uint32) (Divider, error) {
	if den == 0 {
		return Divider{}, invalidf("zero divisor")
	}
	a := num / den
	var d Divider
	if a*den == num {
		d = IntegerDivider(uint32(min(a, 1<<32-1)))
	} else {
		b := roundHalfUp(num%den*uint64(cMax), den)
		if b >= uint64(cMax) {
			// rounding carried into the integer part
			a++
			d = IntegerDivider(uint32(min(a, 1<<32-1)))
		} else {
			d = Divider{A: uint32(min(a, 1<<32-1)), B: uint32(b), C: cMax}
		}
	}
	if uint64(d.A) < uint64(minA) || uint64(d.A) > uint64(maxA) || a > uint64(maxA) {
		return Divider{}, invalidf("ratio %d/%d needs integer part %d outside [%d, %d]", num, den, a, minA, maxA)
	}
	return d, nil
}
