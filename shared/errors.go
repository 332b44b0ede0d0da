package shared

import (
	"errors"
	"fmt"
	"io"
	"math/big"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrMisaligned    = errors.New("non-aligned end of input")
	ErrSource        = errors.New("source failure")
)

// ConfigError describes a rejected construction parameter.
type ConfigError struct {
	Param    string
	Expected string
	Given    string
}

func (err ConfigError) Error() string {
	return fmt.Sprintf("invalid `%v`; expected: %v, given: %v", err.Param, err.Expected, err.Given)
}

func (err ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// InvalidParam returns a ConfigError for param.
func InvalidParam(param, expected string, given any) error {
	return ConfigError{
		Param:    param,
		Expected: expected,
		Given:    fmt.Sprint(given),
	}
}

// PrematureEOFError is returned when the input ends inside a unit and the
// stream is configured to fail on it. Partial holds the zero-padded unit.
type PrematureEOFError struct {
	Partial *big.Int
	Real    uint
	Width   uint
}

func (err *PrematureEOFError) Error() string {
	return fmt.Sprintf("premature end of input: %d of %d bits read, partial unit %#x",
		err.Real, err.Width, err.Partial)
}

func (err *PrematureEOFError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

// Misaligned wraps ErrMisaligned with the bit offset of the unit the input
// ended inside of.
func Misaligned(bit uint64) error {
	return fmt.Errorf("%w: last unit starts at bit %d (bit %d of byte %d)", ErrMisaligned, bit, bit%8, bit/8)
}
