package si5351

import (
	"errors"
	"fmt"
)

// Error kinds. Validation failures wrap one of these with context, so callers
// test with errors.Is.
var (
	// ErrInvalidArgument means a request violated a range, format or state
	// dependency. Nothing was written to the device.
	ErrInvalidArgument = errors.New("si5351: invalid argument")

	// ErrNotInitialised means the device, or the PLL/MultiSynth the request
	// depends on, has not been configured yet.
	ErrNotInitialised = errors.New("si5351: not initialised")

	// ErrTimeout means the device did not leave system initialisation in time.
	ErrTimeout = errors.New("si5351: timeout")

	// ErrTransport matches any *TransportError.
	ErrTransport = errors.New("si5351: transport error")
)

// TransportError wraps a failure returned by the bus primitive.
type TransportError struct {
	Op  string // "read" or "write"
	Reg Register
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("si5351: %s reg %d: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrTransport) match any transport failure.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

func notInitialisedf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrNotInitialised}, args...)...)
}
