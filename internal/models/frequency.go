package models

import (
	"encoding/json"
	"fmt"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Hz is a frequency in hertz. In JSON it is written as a number and read
// either as a number or as a string with a unit, e.g. "10MHz".
type Hz uint32

// String formats f with an SI prefix.
func (f Hz) String() string {
	return (physic.Frequency(f) * physic.Hertz).String()
}

// ParseHz parses a frequency such as "25MHz". A bare number is taken as
// hertz.
func ParseHz(s string) (Hz, error) {
	var pf physic.Frequency
	if err := pf.Set(s); err != nil {
		return 0, fmt.Errorf("frequency %q: %w", s, err)
	}
	if pf < 0 || pf%physic.Hertz != 0 || pf/physic.Hertz > math.MaxUint32 {
		return 0, fmt.Errorf("frequency %q: not a whole number of hertz below 4.29GHz", s)
	}
	return Hz(pf / physic.Hertz), nil
}

func (f *Hz) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := ParseHz(s)
		if err != nil {
			return err
		}
		*f = v
		return nil
	}
	var n uint32
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = Hz(n)
	return nil
}
